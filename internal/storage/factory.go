// internal/storage/factory.go
package storage

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/rs/zerolog"

	"github.com/Xyntexx/AgOpenGPS/internal/config"
	"github.com/Xyntexx/AgOpenGPS/internal/storage/memory"
	postgresstorage "github.com/Xyntexx/AgOpenGPS/internal/storage/postgres"
	sqlitestorage "github.com/Xyntexx/AgOpenGPS/internal/storage/sqlite"
	wsstorage "github.com/Xyntexx/AgOpenGPS/internal/storage/websocket"
)

// NewBackend creates a storage backend from the storage.* configuration.
func NewBackend(logger *slog.Logger, dbLogger zerolog.Logger) (Backend, error) {
	switch t := config.GetString("storage.type"); t {
	case "memory":
		return memory.New(memory.Config{
			OutputDir:      config.GetString("storage.memory.outputDir"),
			CompressOutput: config.GetBool("storage.memory.compressOutput"),
		}), nil
	case "sqlite":
		return sqlitestorage.New(sqlitestorage.Config{
			DumpPath:     config.GetString("storage.sqlite.path"),
			DumpInterval: time.Duration(config.GetInt("storage.sqlite.dumpIntervalSec")) * time.Second,
		}, logger)
	case "postgres":
		return postgresstorage.New(logger, dbLogger)
	case "websocket":
		return wsstorage.New(wsstorage.Config{
			URL:    config.GetString("storage.websocket.url"),
			Secret: config.GetString("storage.websocket.secret"),
		}, logger), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", t)
	}
}
