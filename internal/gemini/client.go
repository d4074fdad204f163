// Package gemini chama a API generateContent do Gemini para textos de anúncio.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var ErrSemChave = errors.New("gemini: chave de API não configurada")

// Parametros de amostragem enviados em generationConfig.
type Parametros struct {
	Temperatura float64
	TopP        float64
}

type Client struct {
	BaseURL    string
	APIKey     string
	Model      string
	HTTPClient *http.Client
}

func NewClient(apiKey string, opts ...func(*Client)) *Client {
	c := &Client{
		BaseURL:    "https://generativelanguage.googleapis.com/v1beta",
		APIKey:     strings.TrimSpace(apiKey),
		Model:      "gemini-3-flash-preview",
		HTTPClient: &http.Client{Timeout: 20 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func WithBaseURL(baseURL string) func(*Client) {
	return func(c *Client) {
		if strings.TrimSpace(baseURL) != "" {
			c.BaseURL = baseURL
		}
	}
}

func WithModel(model string) func(*Client) {
	return func(c *Client) {
		if strings.TrimSpace(model) != "" {
			c.Model = model
		}
	}
}

func WithHTTPClient(hc *http.Client) func(*Client) {
	return func(c *Client) {
		if hc != nil {
			c.HTTPClient = hc
		}
	}
}

type parte struct {
	Text string `json:"text"`
}

type conteudo struct {
	Role  string  `json:"role,omitempty"`
	Parts []parte `json:"parts"`
}

type configGeracao struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"topP"`
}

type requisicao struct {
	Contents         []conteudo    `json:"contents"`
	GenerationConfig configGeracao `json:"generationConfig"`
}

type resposta struct {
	Candidates []struct {
		Content conteudo `json:"content"`
	} `json:"candidates"`
}

// Gerar envia o prompt e devolve o texto do primeiro candidato. Resposta sem
// texto volta como string vazia, sem erro.
func (c *Client) Gerar(ctx context.Context, prompt string, p Parametros) (string, error) {
	if c.APIKey == "" {
		return "", ErrSemChave
	}

	body, err := json.Marshal(requisicao{
		Contents:         []conteudo{{Role: "user", Parts: []parte{{Text: prompt}}}},
		GenerationConfig: configGeracao{Temperature: p.Temperatura, TopP: p.TopP},
	})
	if err != nil {
		return "", err
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", strings.TrimRight(c.BaseURL, "/"), c.Model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		trecho, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("gemini: http %d: %s", resp.StatusCode, strings.TrimSpace(string(trecho)))
	}

	var out resposta
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("gemini: resposta ilegível: %w", err)
	}
	if len(out.Candidates) == 0 {
		return "", nil
	}
	var b strings.Builder
	for _, p := range out.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	return strings.TrimSpace(b.String()), nil
}
