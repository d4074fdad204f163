package models

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrDadosInvalidos é devolvido quando um formulário chega incompleto ou inconsistente.
var ErrDadosInvalidos = errors.New("dados inválidos")

// limiteValor é o primeiro valor que não cabe em NUMERIC(14, 2).
var limiteValor = decimal.New(1, 12)

func init() {
	// preços saem como número no JSON, como o formulário envia
	decimal.MarshalJSONWithoutQuotes = true
}

// validarValor aceita no máximo centavos e o que cabe na coluna NUMERIC(14, 2).
func validarValor(campo string, v decimal.Decimal) error {
	if !v.Equal(v.Round(2)) {
		return fmt.Errorf("%w: %s com mais de duas casas decimais", ErrDadosInvalidos, campo)
	}
	if v.Abs().GreaterThanOrEqual(limiteValor) {
		return fmt.Errorf("%w: %s acima do limite", ErrDadosInvalidos, campo)
	}
	return nil
}

func validarQuilometragem(km int) error {
	if km < 0 || km > math.MaxInt32 {
		return fmt.Errorf("%w: quilometragem fora do intervalo", ErrDadosInvalidos)
	}
	return nil
}

// NovoVeiculo é o que o formulário do painel envia (tudo menos o ID).
type NovoVeiculo struct {
	Marca         string          `json:"brand"`
	Modelo        string          `json:"model"`
	Ano           int             `json:"year"`
	Quilometragem int             `json:"mileage"` // km
	Preco         decimal.Decimal `json:"price"`
	ImagemURL     string          `json:"imageUrl"` // URL ou data: URL
	Descricao     string          `json:"description"`
}

// Veiculo é um carro do estoque, com o ID atribuído pelo banco.
type Veiculo struct {
	ID string `json:"id"`
	NovoVeiculo
}

func (v NovoVeiculo) Validar() error {
	if strings.TrimSpace(v.Marca) == "" {
		return fmt.Errorf("%w: marca obrigatória", ErrDadosInvalidos)
	}
	if strings.TrimSpace(v.Modelo) == "" {
		return fmt.Errorf("%w: modelo obrigatório", ErrDadosInvalidos)
	}
	if v.Ano < 1900 || v.Ano > time.Now().Year()+1 {
		return fmt.Errorf("%w: ano %d fora do intervalo", ErrDadosInvalidos, v.Ano)
	}
	if err := validarQuilometragem(v.Quilometragem); err != nil {
		return err
	}
	if v.Preco.IsNegative() {
		return fmt.Errorf("%w: preço negativo", ErrDadosInvalidos)
	}
	return validarValor("preço", v.Preco)
}
