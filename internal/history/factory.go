package history

import (
	"fmt"

	"github.com/echovoice/echovoice/internal/config"
)

// NewSink creates the appropriate history sink from application config.
func NewSink(cfg config.StorageConfig) (Sink, error) {
	switch cfg.StorageEngine {
	case "sqlite", "":
		return NewSQLiteSink(cfg.DataPath)
	case "postgres":
		if cfg.PostgresDSN == "" {
			return nil, fmt.Errorf("postgres storage engine requires a DSN")
		}
		return NewPostgresSink(cfg.PostgresDSN)
	case "memory":
		return NewMemorySink(), nil
	default:
		return nil, fmt.Errorf("unsupported storage engine: %q", cfg.StorageEngine)
	}
}
