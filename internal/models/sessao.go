package models

import "time"

// Sessao prova que um lojista está autenticado até ExpiraEm ou até sair.
type Sessao struct {
	Token    string    `json:"token"`
	Email    string    `json:"email"`
	ExpiraEm time.Time `json:"expira_em"`
}

type TipoEvento string

const (
	EventoEntrou  TipoEvento = "SIGNED_IN"
	EventoSaiu    TipoEvento = "SIGNED_OUT"
	EventoExpirou TipoEvento = "EXPIRED"
)

// EventoSessao é o que os ouvintes de AoMudarSessao recebem. Sessao é nil
// para saída e expiração.
type EventoSessao struct {
	Tipo   TipoEvento `json:"tipo"`
	Token  string     `json:"token"`
	Sessao *Sessao    `json:"sessao,omitempty"`
}

// EstadoAuth é o que a interface precisa saber sobre a autenticação.
type EstadoAuth struct {
	Autenticado bool   `json:"isAuthenticated"`
	Email       string `json:"email,omitempty"`
}

// Usuario é um lojista com acesso ao painel.
type Usuario struct {
	ID    int
	Email string
}
