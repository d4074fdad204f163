package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"rl-imports/internal/models"
	"rl-imports/internal/repositories"
	"rl-imports/internal/services"
)

const (
	CookieVisitante = "visitante"
	CookieSessao    = "sessao"
)

// Base é embutida em todos os handlers: acha o coordenador do visitante e
// escreve as respostas.
type Base struct {
	Visitantes *services.Visitantes
	Logger     *slog.Logger
}

// coordenador devolve o coordenador do visitante do cookie, criando o cookie
// na primeira visita.
func (b *Base) coordenador(w http.ResponseWriter, r *http.Request) *services.Coordenador {
	id := ""
	if c, err := r.Cookie(CookieVisitante); err == nil {
		if _, err := uuid.Parse(c.Value); err == nil {
			id = c.Value
		}
	}
	if id == "" {
		id = uuid.NewString()
		http.SetCookie(w, &http.Cookie{
			Name:     CookieVisitante,
			Value:    id,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return b.Visitantes.Obter(r.Context(), id, tokenSessao(r))
}

func tokenSessao(r *http.Request) string {
	c, err := r.Cookie(CookieSessao)
	if err != nil {
		return ""
	}
	return c.Value
}

func gravarCookieSessao(w http.ResponseWriter, token string) {
	c := &http.Cookie{
		Name:     CookieSessao,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if token == "" {
		c.MaxAge = -1
	}
	http.SetCookie(w, c)
}

// metodoPermitido responde 405 quando o método não está na lista.
func metodoPermitido(w http.ResponseWriter, r *http.Request, metodos ...string) bool {
	for _, m := range metodos {
		if r.Method == m {
			return true
		}
	}
	http.Error(w, "Método inválido", http.StatusMethodNotAllowed)
	return false
}

func lerJSON(r *http.Request, destino any) error {
	if err := json.NewDecoder(r.Body).Decode(destino); err != nil {
		return fmt.Errorf("%w: corpo JSON inválido: %v", models.ErrDadosInvalidos, err)
	}
	return nil
}

func (b *Base) responderJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		b.Logger.Error("falha ao escrever resposta", "erro", err)
	}
}

// responderErro traduz os erros dos serviços em status HTTP.
func (b *Base) responderErro(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrDadosInvalidos):
		b.responderJSON(w, http.StatusBadRequest, map[string]any{"erro": err.Error()})
	case errors.Is(err, services.ErrMarcaModeloObrigatorios):
		b.responderJSON(w, http.StatusBadRequest, map[string]any{"erro": services.AvisoMarcaModelo})
	case errors.Is(err, services.ErrNaoAutorizado):
		b.responderJSON(w, http.StatusUnauthorized, map[string]any{"erro": "Acesso restrito. Faça login."})
	case errors.Is(err, repositories.ErrNaoEncontrado):
		b.responderJSON(w, http.StatusNotFound, map[string]any{"erro": "Veículo não encontrado"})
	case errors.Is(err, services.ErrGeracaoEmAndamento):
		b.responderJSON(w, http.StatusConflict, map[string]any{"erro": "Aguarde a descrição em andamento"})
	case errors.Is(err, services.ErrFalhaGravacao):
		b.responderJSON(w, http.StatusBadGateway, map[string]any{
			"erro":            "Não foi possível salvar agora. Tente novamente.",
			"tentarNovamente": true,
		})
	default:
		b.Logger.Error("erro inesperado", "erro", err)
		b.responderJSON(w, http.StatusInternalServerError, map[string]any{"erro": "Erro interno"})
	}
}
