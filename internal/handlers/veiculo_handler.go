package handlers

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"rl-imports/internal/imagens"
	"rl-imports/internal/models"
	"rl-imports/internal/services"
)

type VeiculoHandler struct {
	*Base
}

func NewVeiculoHandler(base *Base) *VeiculoHandler {
	return &VeiculoHandler{Base: base}
}

// Veiculos atende /api/veiculos. PUT e DELETE recebem o ID em ?id=.
func (h *VeiculoHandler) Veiculos(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.responderJSON(w, http.StatusOK, h.coordenador(w, r).Estado().Veiculos)
	case http.MethodPost:
		h.adicionar(w, r)
	case http.MethodPut:
		h.atualizar(w, r)
	case http.MethodDelete:
		h.excluir(w, r)
	default:
		http.Error(w, "Método inválido", http.StatusMethodNotAllowed)
	}
}

func (h *VeiculoHandler) adicionar(w http.ResponseWriter, r *http.Request) {
	var novo models.NovoVeiculo
	if err := lerJSON(r, &novo); err != nil {
		h.responderErro(w, err)
		return
	}
	v, err := h.coordenador(w, r).AdicionarVeiculo(r.Context(), novo)
	if err != nil {
		h.responderErro(w, err)
		return
	}
	h.responderJSON(w, http.StatusCreated, v)
}

func (h *VeiculoHandler) atualizar(w http.ResponseWriter, r *http.Request) {
	var v models.Veiculo
	if err := lerJSON(r, &v); err != nil {
		h.responderErro(w, err)
		return
	}
	if id := r.URL.Query().Get("id"); id != "" {
		v.ID = id
	}
	salvo, err := h.coordenador(w, r).AtualizarVeiculo(r.Context(), v)
	if err != nil {
		h.responderErro(w, err)
		return
	}
	h.responderJSON(w, http.StatusOK, salvo)
}

func (h *VeiculoHandler) excluir(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		h.responderErro(w, fmt.Errorf("%w: id obrigatório", models.ErrDadosInvalidos))
		return
	}
	if err := h.coordenador(w, r).ExcluirVeiculo(r.Context(), id); err != nil {
		h.responderErro(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Descricao é o botão "Gerar com IA" do formulário do painel.
func (h *VeiculoHandler) Descricao(w http.ResponseWriter, r *http.Request) {
	if !metodoPermitido(w, r, http.MethodPost) {
		return
	}
	var req struct {
		Marca  string `json:"brand"`
		Modelo string `json:"model"`
		Ano    int    `json:"year"`
	}
	if err := lerJSON(r, &req); err != nil {
		h.responderErro(w, err)
		return
	}
	texto, err := h.coordenador(w, r).GerarDescricao(r.Context(), req.Marca, req.Modelo, req.Ano)
	if err != nil {
		h.responderErro(w, err)
		return
	}
	h.responderJSON(w, http.StatusOK, map[string]string{"description": texto})
}

// Imagem recebe o arquivo escolhido no painel (campo "imagem") e devolve a
// data: URL a ser gravada em imageUrl.
func (h *VeiculoHandler) Imagem(w http.ResponseWriter, r *http.Request) {
	if !metodoPermitido(w, r, http.MethodPost) {
		return
	}
	if !h.coordenador(w, r).Autenticado(r.Context()) {
		h.responderErro(w, services.ErrNaoAutorizado)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, imagens.TamanhoMaximoUpload+1024)
	arquivo, cabecalho, err := r.FormFile("imagem")
	if err != nil {
		h.responderErro(w, fmt.Errorf("%w: envie o arquivo no campo imagem: %v", models.ErrDadosInvalidos, err))
		return
	}
	defer arquivo.Close()

	dados, err := io.ReadAll(io.LimitReader(arquivo, imagens.TamanhoMaximoUpload+1))
	if err != nil {
		h.responderErro(w, fmt.Errorf("%w: %v", models.ErrDadosInvalidos, err))
		return
	}
	if len(dados) > imagens.TamanhoMaximoUpload {
		h.responderErro(w, fmt.Errorf("%w: imagem maior que 5 MB", models.ErrDadosInvalidos))
		return
	}

	tipo := cabecalho.Header.Get("Content-Type")
	if !strings.HasPrefix(tipo, "image/") {
		tipo = http.DetectContentType(dados)
	}
	if !strings.HasPrefix(tipo, "image/") {
		h.responderErro(w, fmt.Errorf("%w: arquivo não é uma imagem", models.ErrDadosInvalidos))
		return
	}
	h.responderJSON(w, http.StatusOK, map[string]string{"imageUrl": imagens.DataURL(tipo, dados)})
}
