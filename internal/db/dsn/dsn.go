// Package dsn provides Data Source Name construction utilities for database connections.
package dsn

import (
	"fmt"

	"github.com/teamgrid/teamgrid/internal/config"
)

// Create builds the Data Source Name from the configuration. The format
// depends on the configured engine.
func Create(cfg *config.Config) string {
	switch cfg.DB.Engine {
	case config.DBEnginePostgres:
		out := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d %s",
			cfg.DB.Host,
			cfg.DB.User,
			cfg.DB.Password,
			cfg.DB.Name,
			cfg.DB.Port,
			cfg.DB.Extras,
		)

		return out
	case config.DBEngineSQLite:
		return cfg.DB.Path
	default:
		out := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?%s",
			cfg.DB.User,
			cfg.DB.Password,
			cfg.DB.Host,
			cfg.DB.Port,
			cfg.DB.Name,
			cfg.DB.Extras,
		)

		return out
	}
}
