// Package clock isola o acesso ao relógio para que expiração de sessão
// e a janela da notificação possam ser testadas sem sleeps.
package clock

import (
	"sync"
	"time"
)

// Clock é o que o código de produção usa no lugar de time.Now.
type Clock interface {
	Now() time.Time
}

type real struct{}

func (real) Now() time.Time { return time.Now() }

// Real devolve o relógio do sistema.
func Real() Clock { return real{} }

// Fake é um relógio manual para testes.
type Fake struct {
	mu    sync.Mutex
	agora time.Time
}

// NewFake cria um relógio parado em inicio.
func NewFake(inicio time.Time) *Fake {
	return &Fake{agora: inicio}
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.agora
}

// Advance anda o relógio d para frente.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	f.agora = f.agora.Add(d)
	f.mu.Unlock()
}
