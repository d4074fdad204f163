package repositories

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"rl-imports/internal/models"
)

// estoqueInicial é a vitrine de abertura da loja, gravada só com a tabela vazia.
var estoqueInicial = []models.NovoVeiculo{
	{
		Marca: "Porsche", Modelo: "911 Carrera S", Ano: 2023, Quilometragem: 1200,
		Preco:     decimal.NewFromInt(980000),
		ImagemURL: "https://images.unsplash.com/photo-1503376780353-7e6692767b70?auto=format&fit=crop&q=80&w=800",
		Descricao: "Estado de zero. Cor Chalk Grey, interior em couro bordeaux.",
	},
	{
		Marca: "BMW", Modelo: "M4 Competition", Ano: 2024, Quilometragem: 500,
		Preco:     decimal.NewFromInt(750000),
		ImagemURL: "https://images.unsplash.com/photo-1555215695-3004980ad54e?auto=format&fit=crop&q=80&w=800",
		Descricao: "Pack M Carbon, som Harman Kardon, cor Isle of Man Green.",
	},
	{
		Marca: "Land Rover", Modelo: "Range Rover Sport", Ano: 2022, Quilometragem: 15000,
		Preco:     decimal.NewFromInt(620000),
		ImagemURL: "https://images.unsplash.com/photo-1563720223185-11003d516935?auto=format&fit=crop&q=80&w=800",
		Descricao: "Blindagem Nível III-A, revisões na concessionária.",
	},
	{
		Marca: "Mercedes-Benz", Modelo: "G63 AMG", Ano: 2023, Quilometragem: 2300,
		Preco:     decimal.NewFromInt(1850000),
		ImagemURL: "https://images.unsplash.com/photo-1520031441872-265e4ff70366?auto=format&fit=crop&q=80&w=800",
		Descricao: "A lenda off-road com luxo incomparável. Black Pack completo.",
	},
}

// InicializarDados cria o lojista padrão (se configurado) e a vitrine inicial.
func InicializarDados(ctx context.Context, veiculos *VeiculoRepository, usuarios *UsuarioRepository, adminEmail, adminSenha string, logger *slog.Logger) error {
	if adminEmail != "" && adminSenha != "" {
		if err := usuarios.CriarUsuario(ctx, adminEmail, adminSenha); err != nil {
			return fmt.Errorf("criar lojista: %w", err)
		}
	}

	n, err := veiculos.Contar(ctx)
	if err != nil {
		return fmt.Errorf("contar veículos: %w", err)
	}
	if n > 0 {
		return nil
	}

	// de trás para frente: a listagem é do mais novo para o mais antigo
	for i := len(estoqueInicial) - 1; i >= 0; i-- {
		if _, err := veiculos.Inserir(ctx, estoqueInicial[i]); err != nil {
			return fmt.Errorf("vitrine inicial: %w", err)
		}
	}
	logger.Info("vitrine inicial cadastrada", "veiculos", len(estoqueInicial))
	return nil
}
