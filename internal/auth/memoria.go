package auth

import (
	"context"
	"sync"
	"time"

	"rl-imports/internal/models"
)

// MemoriaStore guarda sessões no processo. Serve para uma instância só e para testes.
type MemoriaStore struct {
	mu      sync.RWMutex
	sessoes map[string]models.Sessao
}

func NewMemoriaStore() *MemoriaStore {
	return &MemoriaStore{sessoes: make(map[string]models.Sessao)}
}

func (m *MemoriaStore) Salvar(_ context.Context, s models.Sessao, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessoes[s.Token] = s
	return nil
}

func (m *MemoriaStore) Buscar(_ context.Context, token string) (*models.Sessao, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessoes[token]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *MemoriaStore) Remover(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessoes, token)
	return nil
}
