// Package postgresstorage implements the storage.Backend interface on a
// Postgres database through the shared GORM backend.
package postgresstorage

import (
	"fmt"
	"log/slog"

	"github.com/rs/zerolog"

	"github.com/Xyntexx/AgOpenGPS/internal/database"
	"github.com/Xyntexx/AgOpenGPS/internal/storage/gormstore"
)

// Backend wraps the GORM backend over a Postgres connection.
type Backend struct {
	*gormstore.Backend
	manager *database.Manager
}

// New connects to Postgres using the db.* configuration keys.
func New(logger *slog.Logger, dbLogger zerolog.Logger) (*Backend, error) {
	manager := database.NewManager(dbLogger)
	db, err := manager.GetPostgresDB()
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	manager.DB = db

	return &Backend{
		Backend: gormstore.New(gormstore.Dependencies{DB: db, Logger: logger}),
		manager: manager,
	}, nil
}
