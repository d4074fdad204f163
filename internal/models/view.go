package models

import "fmt"

// View é a tela corrente de um visitante.
type View string

const (
	ViewHome           View = "HOME"
	ViewInventory      View = "INVENTORY"
	ViewSellForm       View = "SELL_FORM"
	ViewFinanceForm    View = "FINANCE_FORM"
	ViewAdminLogin     View = "ADMIN_LOGIN"
	ViewAdminDashboard View = "ADMIN_DASHBOARD"
)

func ParseView(s string) (View, error) {
	switch v := View(s); v {
	case ViewHome, ViewInventory, ViewSellForm, ViewFinanceForm, ViewAdminLogin, ViewAdminDashboard:
		return v, nil
	}
	return "", fmt.Errorf("%w: tela desconhecida %q", ErrDadosInvalidos, s)
}
