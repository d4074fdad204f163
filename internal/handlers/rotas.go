package handlers

import (
	"log/slog"
	"net/http"

	"rl-imports/internal/services"
)

// NovoRoteador registra as rotas da API e o diretório estático em "/".
func NovoRoteador(visitantes *services.Visitantes, diretorioEstatico string, logger *slog.Logger) *http.ServeMux {
	base := &Base{Visitantes: visitantes, Logger: logger}

	estadoHandler := NewEstadoHandler(base)
	authHandler := NewAuthHandler(base)
	leadHandler := NewLeadHandler(base)
	veiculoHandler := NewVeiculoHandler(base)

	mux := http.NewServeMux()
	mux.Handle("/", http.FileServer(http.Dir(diretorioEstatico)))

	mux.HandleFunc("/api/estado", estadoHandler.Estado)
	mux.HandleFunc("/api/estado/recarregar", estadoHandler.Recarregar)
	mux.HandleFunc("/api/navegar", estadoHandler.Navegar)

	mux.HandleFunc("/api/login", authHandler.Login)
	mux.HandleFunc("/api/logout", authHandler.Logout)

	mux.HandleFunc("/api/leads/vender", leadHandler.Vender)
	mux.HandleFunc("/api/leads/financiar", leadHandler.Financiar)
	mux.HandleFunc("/api/leads", leadHandler.Listar)

	mux.HandleFunc("/api/veiculos", veiculoHandler.Veiculos)
	mux.HandleFunc("/api/veiculos/descricao", veiculoHandler.Descricao)
	mux.HandleFunc("/api/veiculos/imagem", veiculoHandler.Imagem)

	return mux
}
