package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis"

	"rl-imports/internal/arquivo"
	"rl-imports/internal/auth"
	"rl-imports/internal/config"
	"rl-imports/internal/gemini"
	"rl-imports/internal/handlers"
	"rl-imports/internal/imagens"
	"rl-imports/internal/repositories"
	"rl-imports/internal/services"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("servidor encerrado com erro", "erro", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 0. Configurações iniciais
	cfg, err := config.Load(os.Args[1:], logger)
	if err != nil {
		return err
	}

	loc, err := time.LoadLocation(cfg.Server.Timezone)
	if err != nil {
		logger.Warn("fuso horário não carregado, usando o local do sistema", "timezone", cfg.Server.Timezone, "erro", err)
		loc = time.Local
	}
	time.Local = loc

	// 1. Banco de dados
	db, err := repositories.Abrir(ctx, cfg.Database.URL, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := repositories.Migrar(cfg.Database.URL); err != nil {
		logger.Error("falha ao aplicar migrações", "erro", err)
	}

	// 2. Repositórios
	veiculoRepo := repositories.NewVeiculoRepository(db)
	usuarioRepo := repositories.NewUsuarioRepository(db)
	var leadStore services.LeadStore = repositories.NewLeadRepository(db, loc)

	if err := repositories.InicializarDados(ctx, veiculoRepo, usuarioRepo, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword, logger); err != nil {
		logger.Error("falha ao inicializar dados", "erro", err)
	}

	if cfg.Mongo.URL != "" {
		mongo, err := arquivo.NovoMongo(cfg.Mongo.URL, cfg.Mongo.Database)
		if err != nil {
			logger.Error("arquivo de leads no mongo desligado", "erro", err)
		} else {
			defer mongo.Fechar()
			leadStore = arquivo.NovoLeadStoreArquivado(leadStore, mongo, logger)
			logger.Info("arquivo de leads no mongo ligado", "database", cfg.Mongo.Database)
		}
	}

	// 3. Sessões
	var sessoes auth.Store = auth.NewMemoriaStore()
	opcoes := []auth.Opcao{auth.WithTTL(cfg.Auth.SessionTTL)}
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		defer client.Close()
		if err := client.Ping().Err(); err != nil {
			logger.Error("redis indisponível, sessões ficam em memória", "addr", cfg.Redis.Addr, "erro", err)
		} else {
			sessoes = auth.NewRedisStore(client)
			opcoes = append(opcoes, auth.WithBarramento(auth.NewRedisBarramento(client, logger)))
		}
	}
	authService := auth.NewServico(usuarioRepo, sessoes, logger, opcoes...)
	go func() {
		if err := authService.Escutar(ctx); err != nil {
			logger.Error("escuta de eventos de sessão parou", "erro", err)
		}
	}()

	// 4. Serviços externos
	var gerador services.GeradorTexto
	if cfg.Gemini.APIKey != "" {
		gerador = gemini.NewClient(cfg.Gemini.APIKey, gemini.WithModel(cfg.Gemini.Model))
	} else {
		logger.Warn("GEMINI_API_KEY ausente, descrições usarão o texto padrão")
	}
	resolvedor := imagens.NewResolvedor()

	// 5. Um coordenador por visitante
	novoCoordenador := func() *services.Coordenador {
		return services.NewCoordenador(services.Dependencias{
			Veiculos: veiculoRepo,
			Leads:    leadStore,
			Auth:     authService,
			Gerador:  gerador,
			Imagens:  resolvedor,
			Logger:   logger,
		})
	}
	visitantes := services.NewVisitantes(cfg.Visitors.Max, cfg.Visitors.IdleTTL, novoCoordenador, logger)

	// 6. Servidor
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           handlers.NovoRoteador(visitantes, cfg.Server.StaticDir, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	erros := make(chan error, 1)
	go func() {
		logger.Info("RL Imports rodando", "porta", cfg.Server.Port)
		erros <- srv.ListenAndServe()
	}()

	select {
	case err := <-erros:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("desligando servidor")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
