// Package auth guarda as sessões dos lojistas e avisa os interessados quando
// uma sessão começa, termina ou expira.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"rl-imports/internal/clock"
	"rl-imports/internal/models"
)

var ErrCredenciaisInvalidas = errors.New("credenciais inválidas")

// Verificador confere e-mail e senha. UsuarioRepository implementa.
type Verificador interface {
	Autenticar(ctx context.Context, email, senha string) (*models.Usuario, error)
}

// Store persiste sessões. Buscar devolve nil, nil quando o token não existe.
type Store interface {
	Salvar(ctx context.Context, s models.Sessao, ttl time.Duration) error
	Buscar(ctx context.Context, token string) (*models.Sessao, error)
	Remover(ctx context.Context, token string) error
}

// Barramento leva eventos de sessão entre instâncias.
type Barramento interface {
	Publicar(ctx context.Context, ev models.EventoSessao) error
	Escutar(ctx context.Context, fn func(models.EventoSessao)) error
}

type Servico struct {
	usuarios   Verificador
	sessoes    Store
	barramento Barramento
	relogio    clock.Clock
	ttl        time.Duration
	logger     *slog.Logger

	mu       sync.RWMutex
	ouvintes map[uint64]func(models.EventoSessao)
	proximo  uint64
}

type Opcao func(*Servico)

func WithBarramento(b Barramento) Opcao { return func(s *Servico) { s.barramento = b } }

func WithRelogio(c clock.Clock) Opcao { return func(s *Servico) { s.relogio = c } }

func WithTTL(ttl time.Duration) Opcao {
	return func(s *Servico) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func NewServico(usuarios Verificador, sessoes Store, logger *slog.Logger, opts ...Opcao) *Servico {
	s := &Servico{
		usuarios: usuarios,
		sessoes:  sessoes,
		relogio:  clock.Real(),
		ttl:      8 * time.Hour,
		logger:   logger,
		ouvintes: make(map[uint64]func(models.EventoSessao)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Entrar autentica com e-mail e senha e abre uma sessão nova.
func (s *Servico) Entrar(ctx context.Context, email, senha string) (*models.Sessao, error) {
	if strings.TrimSpace(email) == "" || senha == "" {
		return nil, ErrCredenciaisInvalidas
	}
	u, err := s.usuarios.Autenticar(ctx, email, senha)
	if err != nil {
		s.logger.Warn("login recusado", "email", email, "erro", err)
		return nil, fmt.Errorf("%w: %v", ErrCredenciaisInvalidas, err)
	}

	sess := models.Sessao{
		Token:    uuid.NewString(),
		Email:    u.Email,
		ExpiraEm: s.relogio.Now().Add(s.ttl),
	}
	if err := s.sessoes.Salvar(ctx, sess, s.ttl); err != nil {
		return nil, fmt.Errorf("salvar sessão: %w", err)
	}

	s.notificar(ctx, models.EventoSessao{Tipo: models.EventoEntrou, Token: sess.Token, Sessao: &sess})
	return &sess, nil
}

// ObterSessao devolve a sessão do token, ou nil se não houver. Sessão vencida
// é apagada e anunciada como EXPIRED.
func (s *Servico) ObterSessao(ctx context.Context, token string) (*models.Sessao, error) {
	if token == "" {
		return nil, nil
	}
	sess, err := s.sessoes.Buscar(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("buscar sessão: %w", err)
	}
	if sess == nil {
		return nil, nil
	}
	if !s.relogio.Now().Before(sess.ExpiraEm) {
		if err := s.sessoes.Remover(ctx, token); err != nil {
			s.logger.Warn("falha ao remover sessão expirada", "erro", err)
		}
		s.notificar(ctx, models.EventoSessao{Tipo: models.EventoExpirou, Token: token})
		return nil, nil
	}
	return sess, nil
}

// Sair encerra a sessão. O evento sai mesmo se a remoção falhar: quem estava
// olhando aquela sessão deve se considerar deslogado.
func (s *Servico) Sair(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	err := s.sessoes.Remover(ctx, token)
	s.notificar(ctx, models.EventoSessao{Tipo: models.EventoSaiu, Token: token})
	return err
}

// Inscricao é devolvida por AoMudarSessao; Cancelar remove o ouvinte.
type Inscricao struct {
	once     sync.Once
	cancelar func()
}

func (i *Inscricao) Cancelar() {
	if i == nil {
		return
	}
	i.once.Do(i.cancelar)
}

// AoMudarSessao registra fn para todos os eventos de sessão.
func (s *Servico) AoMudarSessao(fn func(models.EventoSessao)) *Inscricao {
	s.mu.Lock()
	id := s.proximo
	s.proximo++
	s.ouvintes[id] = fn
	s.mu.Unlock()

	return &Inscricao{cancelar: func() {
		s.mu.Lock()
		delete(s.ouvintes, id)
		s.mu.Unlock()
	}}
}

// Ouvintes informa quantas inscrições estão ativas.
func (s *Servico) Ouvintes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ouvintes)
}

// Escutar repassa aos ouvintes locais os eventos que chegam pelo barramento.
// Sem barramento só espera o contexto acabar.
func (s *Servico) Escutar(ctx context.Context) error {
	if s.barramento == nil {
		<-ctx.Done()
		return nil
	}
	return s.barramento.Escutar(ctx, s.despachar)
}

func (s *Servico) notificar(ctx context.Context, ev models.EventoSessao) {
	if s.barramento != nil {
		err := s.barramento.Publicar(ctx, ev)
		if err == nil {
			return
		}
		s.logger.Error("falha ao publicar evento de sessão, entregando só localmente", "tipo", ev.Tipo, "erro", err)
	}
	s.despachar(ev)
}

func (s *Servico) despachar(ev models.EventoSessao) {
	s.mu.RLock()
	fns := make([]func(models.EventoSessao), 0, len(s.ouvintes))
	for _, fn := range s.ouvintes {
		fns = append(fns, fn)
	}
	s.mu.RUnlock()

	for _, fn := range fns {
		fn(ev)
	}
}
