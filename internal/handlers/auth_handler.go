package handlers

import (
	"net/http"
)

type AuthHandler struct {
	*Base
}

func NewAuthHandler(base *Base) *AuthHandler {
	return &AuthHandler{Base: base}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if !metodoPermitido(w, r, http.MethodPost) {
		return
	}
	var creds struct {
		Email string `json:"email"`
		Senha string `json:"password"`
	}
	if err := lerJSON(r, &creds); err != nil {
		h.responderErro(w, err)
		return
	}

	c := h.coordenador(w, r)
	if !c.Entrar(r.Context(), creds.Email, creds.Senha) {
		h.responderJSON(w, http.StatusUnauthorized, map[string]any{"erro": "Credenciais inválidas"})
		return
	}

	gravarCookieSessao(w, c.Token())
	h.responderJSON(w, http.StatusOK, c.Estado())
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if !metodoPermitido(w, r, http.MethodPost) {
		return
	}
	c := h.coordenador(w, r)
	c.Sair(r.Context())
	gravarCookieSessao(w, "")
	h.responderJSON(w, http.StatusOK, c.Estado())
}
