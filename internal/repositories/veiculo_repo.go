package repositories

import (
	"context"
	"database/sql"
	"errors"
	"strconv"

	"rl-imports/internal/models"
)

// ErrNaoEncontrado indica que o UPDATE/DELETE não encontrou a linha.
var ErrNaoEncontrado = errors.New("registro não encontrado")

// VeiculoRepository conversa com a tabela vehicles.
type VeiculoRepository struct {
	DB *sql.DB
}

func NewVeiculoRepository(db *sql.DB) *VeiculoRepository {
	return &VeiculoRepository{DB: db}
}

// Listar devolve o estoque do mais novo para o mais antigo.
func (r *VeiculoRepository) Listar(ctx context.Context) ([]models.Veiculo, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, brand, model, year, mileage, price, image_url, description
		FROM vehicles
		ORDER BY created_at DESC, id DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	lista := []models.Veiculo{}
	for rows.Next() {
		var id int64
		var v models.Veiculo
		if err := rows.Scan(&id, &v.Marca, &v.Modelo, &v.Ano, &v.Quilometragem, &v.Preco, &v.ImagemURL, &v.Descricao); err != nil {
			return nil, err
		}
		v.ID = strconv.FormatInt(id, 10)
		lista = append(lista, v)
	}
	return lista, rows.Err()
}

// Inserir grava o veículo e devolve o ID gerado pelo banco.
func (r *VeiculoRepository) Inserir(ctx context.Context, v models.NovoVeiculo) (string, error) {
	var id int64
	err := r.DB.QueryRowContext(ctx, `
		INSERT INTO vehicles (brand, model, year, mileage, price, image_url, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, v.Marca, v.Modelo, v.Ano, v.Quilometragem, v.Preco, v.ImagemURL, v.Descricao).Scan(&id)
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(id, 10), nil
}

func (r *VeiculoRepository) Atualizar(ctx context.Context, v models.Veiculo) error {
	id, err := strconv.ParseInt(v.ID, 10, 64)
	if err != nil {
		return ErrNaoEncontrado
	}
	res, err := r.DB.ExecContext(ctx, `
		UPDATE vehicles
		SET brand = $1, model = $2, year = $3, mileage = $4, price = $5, image_url = $6, description = $7
		WHERE id = $8
	`, v.Marca, v.Modelo, v.Ano, v.Quilometragem, v.Preco, v.ImagemURL, v.Descricao, id)
	if err != nil {
		return err
	}
	return exigirLinha(res)
}

func (r *VeiculoRepository) Excluir(ctx context.Context, idStr string) error {
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return ErrNaoEncontrado
	}
	res, err := r.DB.ExecContext(ctx, `DELETE FROM vehicles WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return exigirLinha(res)
}

func (r *VeiculoRepository) Contar(ctx context.Context) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT count(*) FROM vehicles`).Scan(&n)
	return n, err
}

func exigirLinha(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNaoEncontrado
	}
	return nil
}
