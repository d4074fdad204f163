package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"rl-imports/internal/formatar"
	"rl-imports/internal/models"
)

// LeadRepository conversa com a tabela leads. As duas variantes dividem a
// mesma linha; as colunas da outra variante ficam NULL.
type LeadRepository struct {
	DB  *sql.DB
	Loc *time.Location // fuso usado no campo Data
}

func NewLeadRepository(db *sql.DB, loc *time.Location) *LeadRepository {
	return &LeadRepository{DB: db, Loc: loc}
}

// linhaLead espelha uma linha crua de leads.
type linhaLead struct {
	ID            int64
	Tipo          string
	Nome          string
	Telefone      string
	Email         string
	Marca         sql.NullString
	Modelo        sql.NullString
	Ano           sql.NullInt64
	Quilometragem sql.NullInt64
	ValorPret     decimal.NullDecimal
	Observacoes   sql.NullString
	CPF           sql.NullString
	ValorVeiculo  decimal.NullDecimal
	Entrada       decimal.NullDecimal
	Parcelas      sql.NullInt64
	CriadoEm      time.Time
}

func (r *LeadRepository) Listar(ctx context.Context) ([]models.Lead, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, type, name, phone, email,
		       brand, model, year, mileage, intended_value, observations,
		       cpf, vehicle_value, down_payment, installments, created_at
		FROM leads
		ORDER BY created_at DESC, id DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	lista := []models.Lead{}
	for rows.Next() {
		var l linhaLead
		if err := rows.Scan(&l.ID, &l.Tipo, &l.Nome, &l.Telefone, &l.Email,
			&l.Marca, &l.Modelo, &l.Ano, &l.Quilometragem, &l.ValorPret, &l.Observacoes,
			&l.CPF, &l.ValorVeiculo, &l.Entrada, &l.Parcelas, &l.CriadoEm); err != nil {
			return nil, err
		}
		lead, err := paraLead(l, r.Loc)
		if err != nil {
			// linha com tipo desconhecido não derruba a listagem
			continue
		}
		lista = append(lista, lead)
	}
	return lista, rows.Err()
}

// Inserir grava o lead e devolve a cópia com ID e data preenchidos.
func (r *LeadRepository) Inserir(ctx context.Context, lead models.Lead) (models.Lead, error) {
	l := linhaLead{Nome: lead.Nome, Telefone: lead.Telefone, Email: lead.Email}

	switch d := lead.Detalhes.(type) {
	case models.DetalhesVenda:
		l.Tipo = string(models.TipoVenda)
		l.Marca = sql.NullString{String: d.Marca, Valid: true}
		l.Modelo = sql.NullString{String: d.Modelo, Valid: true}
		l.Ano = sql.NullInt64{Int64: int64(d.Ano), Valid: true}
		l.Quilometragem = sql.NullInt64{Int64: int64(d.Quilometragem), Valid: true}
		l.ValorPret = decimal.NullDecimal{Decimal: d.ValorPretendido, Valid: true}
		l.Observacoes = sql.NullString{String: d.Observacoes, Valid: true}
	case models.DetalhesFinanciamento:
		l.Tipo = string(models.TipoFinanciamento)
		l.CPF = sql.NullString{String: d.CPF, Valid: true}
		l.ValorVeiculo = decimal.NullDecimal{Decimal: d.ValorVeiculo, Valid: true}
		l.Entrada = decimal.NullDecimal{Decimal: d.Entrada, Valid: true}
		l.Parcelas = sql.NullInt64{Int64: int64(d.Parcelas), Valid: true}
	default:
		return models.Lead{}, fmt.Errorf("lead sem variante: %w", models.ErrDadosInvalidos)
	}

	err := r.DB.QueryRowContext(ctx, `
		INSERT INTO leads (type, name, phone, email,
		                   brand, model, year, mileage, intended_value, observations,
		                   cpf, vehicle_value, down_payment, installments)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id, created_at
	`, l.Tipo, l.Nome, l.Telefone, l.Email,
		l.Marca, l.Modelo, l.Ano, l.Quilometragem, l.ValorPret, l.Observacoes,
		l.CPF, l.ValorVeiculo, l.Entrada, l.Parcelas).Scan(&l.ID, &l.CriadoEm)
	if err != nil {
		return models.Lead{}, err
	}

	lead.ID = strconv.FormatInt(l.ID, 10)
	lead.CriadoEm = l.CriadoEm
	lead.Data = formatar.DataHora(l.CriadoEm, r.Loc)
	return lead, nil
}

// paraLead converte a linha (snake_case, colunas anuláveis) na entidade.
func paraLead(l linhaLead, loc *time.Location) (models.Lead, error) {
	lead := models.Lead{
		ID:          strconv.FormatInt(l.ID, 10),
		ContatoLead: models.ContatoLead{Nome: l.Nome, Telefone: l.Telefone, Email: l.Email},
		CriadoEm:    l.CriadoEm,
		Data:        formatar.DataHora(l.CriadoEm, loc),
	}
	switch models.TipoLead(l.Tipo) {
	case models.TipoVenda:
		lead.Detalhes = models.DetalhesVenda{
			Marca:           l.Marca.String,
			Modelo:          l.Modelo.String,
			Ano:             int(l.Ano.Int64),
			Quilometragem:   int(l.Quilometragem.Int64),
			ValorPretendido: l.ValorPret.Decimal,
			Observacoes:     l.Observacoes.String,
		}
	case models.TipoFinanciamento:
		lead.Detalhes = models.DetalhesFinanciamento{
			CPF:          l.CPF.String,
			ValorVeiculo: l.ValorVeiculo.Decimal,
			Entrada:      l.Entrada.Decimal,
			Parcelas:     int(l.Parcelas.Int64),
		}
	default:
		return models.Lead{}, fmt.Errorf("tipo de lead desconhecido %q", l.Tipo)
	}
	return lead, nil
}
