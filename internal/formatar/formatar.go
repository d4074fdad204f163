// Package formatar produz os textos em pt-BR exibidos no site e no painel.
package formatar

import (
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var impressora = message.NewPrinter(language.BrazilianPortuguese)

// Moeda formata em reais, ex.: R$ 650.000,00.
func Moeda(v decimal.Decimal) string {
	return "R$ " + impressora.Sprintf("%.2f", v.Round(2).InexactFloat64())
}

// Numero agrupa milhares com ponto, ex.: 1.850.000.
func Numero(n int) string {
	return impressora.Sprintf("%d", n)
}

// DataHora reproduz a data de um lead no painel, ex.: 17/10/2026, 14:30.
func DataHora(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format("02/01/2006, 15:04")
}
