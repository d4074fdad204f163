package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"rl-imports/internal/models"
)

var (
	ErrUsuarioNaoEncontrado = errors.New("usuário não encontrado")
	ErrSenhaIncorreta       = errors.New("senha incorreta")
)

type UsuarioRepository struct {
	DB *sql.DB
}

func NewUsuarioRepository(db *sql.DB) *UsuarioRepository {
	return &UsuarioRepository{DB: db}
}

// CriarUsuario grava o lojista com a senha já em bcrypt. Se o e-mail existir, não faz nada.
func (r *UsuarioRepository) CriarUsuario(ctx context.Context, email, senhaRaw string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(senhaRaw), 10)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, `
		INSERT INTO usuarios (email, password_hash) VALUES ($1, $2)
		ON CONFLICT (email) DO NOTHING
	`, normalizarEmail(email), string(hash))
	return err
}

// Autenticar confere e-mail e senha contra o hash salvo.
func (r *UsuarioRepository) Autenticar(ctx context.Context, email, senhaRaw string) (*models.Usuario, error) {
	var u models.Usuario
	var hashSalvo string

	err := r.DB.QueryRowContext(ctx, `SELECT id, email, password_hash FROM usuarios WHERE email = $1`,
		normalizarEmail(email)).Scan(&u.ID, &u.Email, &hashSalvo)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUsuarioNaoEncontrado
	}
	if err != nil {
		return nil, fmt.Errorf("buscar usuário: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hashSalvo), []byte(senhaRaw)); err != nil {
		return nil, ErrSenhaIncorreta
	}
	return &u, nil
}

func normalizarEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
