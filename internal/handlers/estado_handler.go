package handlers

import (
	"net/http"

	"rl-imports/internal/models"
)

type EstadoHandler struct {
	*Base
}

func NewEstadoHandler(base *Base) *EstadoHandler {
	return &EstadoHandler{Base: base}
}

// Estado devolve a fotografia do visitante. A sessão é conferida antes, para
// que uma expiração apareça já nesta resposta.
func (h *EstadoHandler) Estado(w http.ResponseWriter, r *http.Request) {
	if !metodoPermitido(w, r, http.MethodGet) {
		return
	}
	c := h.coordenador(w, r)
	c.VerificarSessao(r.Context())
	h.responderJSON(w, http.StatusOK, c.Estado())
}

// Recarregar refaz a inicialização (equivalente a recarregar a página).
func (h *EstadoHandler) Recarregar(w http.ResponseWriter, r *http.Request) {
	if !metodoPermitido(w, r, http.MethodPost) {
		return
	}
	c := h.coordenador(w, r)
	c.Inicializar(r.Context(), tokenSessao(r))
	h.responderJSON(w, http.StatusOK, c.Estado())
}

func (h *EstadoHandler) Navegar(w http.ResponseWriter, r *http.Request) {
	if !metodoPermitido(w, r, http.MethodPost) {
		return
	}
	var req struct {
		View string `json:"view"`
	}
	if err := lerJSON(r, &req); err != nil {
		h.responderErro(w, err)
		return
	}
	view, err := models.ParseView(req.View)
	if err != nil {
		h.responderErro(w, err)
		return
	}

	c := h.coordenador(w, r)
	c.Navegar(view)
	h.responderJSON(w, http.StatusOK, c.Estado())
}
