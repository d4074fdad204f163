package handlers

import (
	"net/http"

	"rl-imports/internal/models"
)

type LeadHandler struct {
	*Base
}

func NewLeadHandler(base *Base) *LeadHandler {
	return &LeadHandler{Base: base}
}

// Vender recebe o formulário "Venda seu carro".
func (h *LeadHandler) Vender(w http.ResponseWriter, r *http.Request) {
	if !metodoPermitido(w, r, http.MethodPost) {
		return
	}
	var req struct {
		models.ContatoLead
		models.DetalhesVenda
	}
	if err := lerJSON(r, &req); err != nil {
		h.responderErro(w, err)
		return
	}
	h.submeter(w, r, models.NovoLeadVenda(req.ContatoLead, req.DetalhesVenda))
}

// Financiar recebe o formulário de financiamento.
func (h *LeadHandler) Financiar(w http.ResponseWriter, r *http.Request) {
	if !metodoPermitido(w, r, http.MethodPost) {
		return
	}
	var req struct {
		models.ContatoLead
		models.DetalhesFinanciamento
	}
	if err := lerJSON(r, &req); err != nil {
		h.responderErro(w, err)
		return
	}
	h.submeter(w, r, models.NovoLeadFinanciamento(req.ContatoLead, req.DetalhesFinanciamento))
}

func (h *LeadHandler) submeter(w http.ResponseWriter, r *http.Request, lead models.Lead) {
	c := h.coordenador(w, r)
	if err := c.SubmeterLead(r.Context(), lead); err != nil {
		h.responderErro(w, err)
		return
	}
	h.responderJSON(w, http.StatusCreated, c.Estado())
}

// Listar é a tabela de leads do painel.
func (h *LeadHandler) Listar(w http.ResponseWriter, r *http.Request) {
	if !metodoPermitido(w, r, http.MethodGet) {
		return
	}
	leads, err := h.coordenador(w, r).Leads(r.Context())
	if err != nil {
		h.responderErro(w, err)
		return
	}
	h.responderJSON(w, http.StatusOK, leads)
}
