package models

import (
	"encoding/json"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TipoLead é o discriminante gravado na coluna "type".
type TipoLead string

const (
	TipoVenda         TipoLead = "SELL"
	TipoFinanciamento TipoLead = "FINANCE"
)

// ParcelasPermitidas são as opções do formulário de financiamento.
var ParcelasPermitidas = []int{12, 24, 36, 48, 60}

const ParcelasPadrao = 48

// ContatoLead são os campos comuns aos dois formulários.
type ContatoLead struct {
	Nome     string `json:"name"`
	Telefone string `json:"phone"`
	Email    string `json:"email"`
}

// DetalhesLead é fechado: só DetalhesVenda e DetalhesFinanciamento o implementam.
type DetalhesLead interface {
	Tipo() TipoLead
	validar() error
}

// DetalhesVenda vem do formulário "Venda seu carro".
type DetalhesVenda struct {
	Marca           string          `json:"brand"`
	Modelo          string          `json:"model"`
	Ano             int             `json:"year"`
	Quilometragem   int             `json:"mileage"`
	ValorPretendido decimal.Decimal `json:"intendedValue"`
	Observacoes     string          `json:"observations"`
}

func (DetalhesVenda) Tipo() TipoLead { return TipoVenda }

func (d DetalhesVenda) validar() error {
	switch {
	case strings.TrimSpace(d.Marca) == "":
		return fmt.Errorf("%w: marca obrigatória", ErrDadosInvalidos)
	case strings.TrimSpace(d.Modelo) == "":
		return fmt.Errorf("%w: modelo obrigatório", ErrDadosInvalidos)
	case d.Ano < 1900 || d.Ano > time.Now().Year()+1:
		return fmt.Errorf("%w: ano %d fora do intervalo", ErrDadosInvalidos, d.Ano)
	case !d.ValorPretendido.IsPositive():
		return fmt.Errorf("%w: valor pretendido obrigatório", ErrDadosInvalidos)
	}
	if err := validarQuilometragem(d.Quilometragem); err != nil {
		return err
	}
	return validarValor("valor pretendido", d.ValorPretendido)
}

// DetalhesFinanciamento vem do formulário de financiamento.
type DetalhesFinanciamento struct {
	CPF          string          `json:"cpf"`
	ValorVeiculo decimal.Decimal `json:"vehicleValue"`
	Entrada      decimal.Decimal `json:"downPayment"`
	Parcelas     int             `json:"installments"`
}

func (DetalhesFinanciamento) Tipo() TipoLead { return TipoFinanciamento }

func (d DetalhesFinanciamento) validar() error {
	if len(SomenteDigitos(d.CPF)) != 11 {
		return fmt.Errorf("%w: CPF deve ter 11 dígitos", ErrDadosInvalidos)
	}
	if !d.ValorVeiculo.IsPositive() {
		return fmt.Errorf("%w: valor do veículo obrigatório", ErrDadosInvalidos)
	}
	if d.Entrada.IsNegative() || d.Entrada.GreaterThan(d.ValorVeiculo) {
		return fmt.Errorf("%w: entrada deve estar entre zero e o valor do veículo", ErrDadosInvalidos)
	}
	if err := validarValor("valor do veículo", d.ValorVeiculo); err != nil {
		return err
	}
	if err := validarValor("entrada", d.Entrada); err != nil {
		return err
	}
	for _, p := range ParcelasPermitidas {
		if d.Parcelas == p {
			return nil
		}
	}
	return fmt.Errorf("%w: %d parcelas não é uma opção", ErrDadosInvalidos, d.Parcelas)
}

// Lead é uma solicitação de cliente. Detalhes carrega a variante.
type Lead struct {
	ID string
	ContatoLead
	CriadoEm time.Time
	Data     string // CriadoEm já formatado para exibição
	Detalhes DetalhesLead
}

func NovoLeadVenda(c ContatoLead, d DetalhesVenda) Lead {
	return Lead{ContatoLead: c, Detalhes: d}
}

func NovoLeadFinanciamento(c ContatoLead, d DetalhesFinanciamento) Lead {
	if d.Parcelas == 0 {
		d.Parcelas = ParcelasPadrao
	}
	return Lead{ContatoLead: c, Detalhes: d}
}

func (l Lead) Validar() error {
	if strings.TrimSpace(l.Nome) == "" {
		return fmt.Errorf("%w: nome obrigatório", ErrDadosInvalidos)
	}
	if strings.TrimSpace(l.Telefone) == "" {
		return fmt.Errorf("%w: telefone obrigatório", ErrDadosInvalidos)
	}
	if _, err := mail.ParseAddress(l.Email); err != nil {
		return fmt.Errorf("%w: e-mail inválido", ErrDadosInvalidos)
	}
	if l.Detalhes == nil {
		return fmt.Errorf("%w: lead sem tipo", ErrDadosInvalidos)
	}
	return l.Detalhes.validar()
}

// MarshalJSON achata a variante no mesmo objeto, com "type" como discriminante.
func (l Lead) MarshalJSON() ([]byte, error) {
	saida := map[string]any{
		"id":    l.ID,
		"name":  l.Nome,
		"phone": l.Telefone,
		"email": l.Email,
		"date":  l.Data,
	}
	switch d := l.Detalhes.(type) {
	case DetalhesVenda:
		saida["type"] = TipoVenda
		saida["brand"] = d.Marca
		saida["model"] = d.Modelo
		saida["year"] = d.Ano
		saida["mileage"] = d.Quilometragem
		saida["intendedValue"] = d.ValorPretendido
		saida["observations"] = d.Observacoes
	case DetalhesFinanciamento:
		saida["type"] = TipoFinanciamento
		saida["cpf"] = d.CPF
		saida["vehicleValue"] = d.ValorVeiculo
		saida["downPayment"] = d.Entrada
		saida["installments"] = d.Parcelas
	default:
		return nil, fmt.Errorf("lead %s sem detalhes", l.ID)
	}
	return json.Marshal(saida)
}

// SomenteDigitos remove pontuação de CPF e telefone.
func SomenteDigitos(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
