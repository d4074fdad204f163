package repositories

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migracoes embed.FS

// Migrar aplica as migrações embutidas. Abre a própria conexão a partir da URL
// para que m.Close não derrube o *sql.DB da aplicação.
func Migrar(databaseURL string) error {
	src, err := iofs.New(migracoes, "migrations")
	if err != nil {
		return fmt.Errorf("fonte das migrações: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, databaseURL)
	if err != nil {
		return fmt.Errorf("abrir migrações: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("aplicar migrações: %w", err)
	}
	return nil
}
