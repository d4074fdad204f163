// Package imagens normaliza a referência de imagem de um veículo: data: URL
// de upload, link direto para a imagem ou página de anúncio de onde a foto
// principal é extraída.
package imagens

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

var ErrReferenciaInvalida = errors.New("referência de imagem inválida")

// TamanhoMaximoUpload limita o arquivo enviado pelo painel.
const TamanhoMaximoUpload = 5 << 20

type Resolvedor struct {
	HTTPClient *http.Client
	UserAgent  string
}

func NewResolvedor() *Resolvedor {
	return &Resolvedor{
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		UserAgent:  "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	}
}

// Resolver devolve a referência a gravar. Se a URL apontar para uma página
// HTML, usa a imagem de destaque da página. Qualquer falha de rede devolve a
// referência original junto com o erro, e ela continua utilizável.
func (r *Resolvedor) Resolver(ctx context.Context, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", nil
	}
	if strings.HasPrefix(ref, "data:") {
		if !DataURLValida(ref) {
			return "", ErrReferenciaInvalida
		}
		return ref, nil
	}

	u, err := url.Parse(ref)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", ErrReferenciaInvalida
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return ref, err
	}
	req.Header.Set("User-Agent", r.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,image/webp,image/*;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "pt-BR,pt;q=0.9,en-US;q=0.8,en;q=0.7")

	res, err := r.HTTPClient.Do(req)
	if err != nil {
		return ref, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return ref, fmt.Errorf("status HTTP %d", res.StatusCode)
	}

	tipo := strings.ToLower(res.Header.Get("Content-Type"))
	switch {
	case strings.HasPrefix(tipo, "image/"):
		return ref, nil
	case strings.Contains(tipo, "html"):
		doc, err := goquery.NewDocumentFromReader(io.LimitReader(res.Body, 2<<20))
		if err != nil {
			return ref, err
		}
		achada := imagemDestaque(doc)
		if achada == "" {
			return ref, fmt.Errorf("nenhuma imagem encontrada em %s", ref)
		}
		base := res.Request.URL
		if base == nil {
			base = u
		}
		rel, err := url.Parse(achada)
		if err != nil {
			return ref, err
		}
		return base.ResolveReference(rel).String(), nil
	}
	return ref, fmt.Errorf("conteúdo %q não é imagem", tipo)
}

// imagemDestaque procura, em ordem, og:image, twitter:image, image_src e o primeiro <img>.
func imagemDestaque(doc *goquery.Document) string {
	candidatos := []struct {
		seletor, attr string
	}{
		{`meta[property="og:image"]`, "content"},
		{`meta[name="twitter:image"]`, "content"},
		{`link[rel="image_src"]`, "href"},
		{`img[src]`, "src"},
	}
	for _, c := range candidatos {
		if v := strings.TrimSpace(doc.Find(c.seletor).First().AttrOr(c.attr, "")); v != "" {
			return v
		}
	}
	return ""
}

// DataURL embute o arquivo enviado, como o upload do painel fazia no navegador.
func DataURL(contentType string, dados []byte) string {
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(dados)
}

func DataURLValida(s string) bool {
	if !strings.HasPrefix(s, "data:image/") {
		return false
	}
	cab, corpo, ok := strings.Cut(s, ",")
	if !ok || !strings.HasSuffix(cab, ";base64") {
		return false
	}
	_, err := base64.StdEncoding.DecodeString(corpo)
	return err == nil
}
