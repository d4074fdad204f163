package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Visitantes guarda um Coordenador por visitante (cookie "visitante").
// Um coordenador parado por mais de ttl, ou empurrado para fora pelo limite,
// é encerrado.
type Visitantes struct {
	mu     sync.Mutex
	cache  *expirable.LRU[string, *Coordenador]
	novo   func() *Coordenador
	logger *slog.Logger
}

func NewVisitantes(maximo int, ttl time.Duration, novo func() *Coordenador, logger *slog.Logger) *Visitantes {
	v := &Visitantes{novo: novo, logger: logger}
	v.cache = expirable.NewLRU[string, *Coordenador](maximo, func(id string, c *Coordenador) {
		c.Encerrar()
		logger.Debug("visitante expirado", "visitante", id)
	}, ttl)
	return v
}

// Obter devolve o coordenador do visitante, criando e inicializando um novo
// com o token da sessão quando ainda não existe.
func (v *Visitantes) Obter(ctx context.Context, id, token string) *Coordenador {
	v.mu.Lock()
	c, ok := v.cache.Get(id)
	if ok {
		// Add de novo renova o prazo de expiração.
		v.cache.Add(id, c)
		v.mu.Unlock()
		return c
	}
	// Get não devolve entrada vencida mas a deixa no cache; Add por cima não
	// chamaria o callback de despejo.
	v.cache.Remove(id)

	c = v.novo()
	// carregando já ligado quando o coordenador fica visível no cache
	terminar := c.iniciarCarga()
	v.cache.Add(id, c)
	v.mu.Unlock()

	defer terminar()
	c.inicializar(ctx, token)
	return c
}

func (v *Visitantes) Quantidade() int {
	return v.cache.Len()
}
