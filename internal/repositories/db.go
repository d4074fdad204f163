package repositories

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	_ "github.com/lib/pq"
)

// Abrir conecta ao Postgres e tenta o ping algumas vezes. Banco fora do ar
// não impede a subida: as operações falham depois e são registradas.
func Abrir(ctx context.Context, databaseURL string, logger *slog.Logger) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)

	for i := 0; i < 5; i++ {
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err = db.PingContext(pingCtx)
		cancel()
		if err == nil {
			return db, nil
		}
		logger.Warn("banco de dados demorando a responder", "tentativa", i+1, "erro", err)
		select {
		case <-ctx.Done():
			return db, nil
		case <-time.After(2 * time.Second):
		}
	}
	logger.Error("banco de dados indisponível, seguindo sem conexão", "erro", err)
	return db, nil
}
