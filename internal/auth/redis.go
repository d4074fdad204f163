package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/go-redis/redis"

	"rl-imports/internal/models"
)

const CanalEventos = "auth:eventos"

// RedisStore guarda cada sessão como JSON em sessao:<token>, com TTL.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func chaveSessao(token string) string { return "sessao:" + token }

func (r *RedisStore) Salvar(ctx context.Context, s models.Sessao, ttl time.Duration) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return r.client.WithContext(ctx).Set(chaveSessao(s.Token), data, ttl).Err()
}

func (r *RedisStore) Buscar(ctx context.Context, token string) (*models.Sessao, error) {
	val, err := r.client.WithContext(ctx).Get(chaveSessao(token)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var s models.Sessao
	if err := json.Unmarshal(val, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *RedisStore) Remover(ctx context.Context, token string) error {
	return r.client.WithContext(ctx).Del(chaveSessao(token)).Err()
}

// RedisBarramento distribui eventos de sessão por pub/sub.
type RedisBarramento struct {
	client *redis.Client
	canal  string
	logger *slog.Logger

	esperaInicial time.Duration
	esperaMaxima  time.Duration
	falhas        int
}

func NewRedisBarramento(client *redis.Client, logger *slog.Logger) *RedisBarramento {
	return &RedisBarramento{
		client:        client,
		canal:         CanalEventos,
		logger:        logger,
		esperaInicial: time.Second,
		esperaMaxima:  30 * time.Second,
	}
}

func (b *RedisBarramento) Publicar(ctx context.Context, ev models.EventoSessao) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return b.client.WithContext(ctx).Publish(b.canal, string(data)).Err()
}

// Escutar bloqueia até ctx acabar, chamando fn para cada evento recebido.
// Se a inscrição cair, tenta de novo com espera crescente.
func (b *RedisBarramento) Escutar(ctx context.Context, fn func(models.EventoSessao)) error {
	espera := b.esperaInicial
	for {
		recebeu, err := b.escutarInscricao(ctx, fn)
		if ctx.Err() != nil {
			return nil
		}
		b.falhas++
		if recebeu {
			espera = b.esperaInicial
		}
		b.logger.Error("inscrição no canal de sessões caiu, tentando de novo", "canal", b.canal, "espera", espera, "erro", err)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(espera):
		}
		espera *= 2
		if espera > b.esperaMaxima {
			espera = b.esperaMaxima
		}
	}
}

// escutarInscricao consome uma inscrição até ela cair ou ctx acabar. recebeu
// indica que a inscrição chegou a ser confirmada.
func (b *RedisBarramento) escutarInscricao(ctx context.Context, fn func(models.EventoSessao)) (recebeu bool, err error) {
	sub := b.client.Subscribe(b.canal)
	defer sub.Close()

	// espera a confirmação da inscrição antes de consumir
	if _, err := sub.Receive(); err != nil {
		return false, err
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return true, nil
		case msg, ok := <-ch:
			if !ok {
				return true, errors.New("canal de pub/sub fechado")
			}
			var ev models.EventoSessao
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				b.logger.Warn("evento de sessão ilegível", "erro", err)
				continue
			}
			fn(ev)
		}
	}
}
