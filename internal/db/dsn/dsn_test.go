package dsn

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/teamgrid/teamgrid/internal/config"
)

func TestCreate(t *testing.T) {
	base := config.DB{
		Host:     "db.internal",
		Port:     3306,
		User:     "teamgrid",
		Password: "secret",
		Name:     "teamgrid",
		Extras:   "parseTime=True",
		Path:     "teamgrid.db",
	}

	testCases := []struct {
		name     string
		engine   string
		expected string
	}{
		{
			name:     "mysql",
			engine:   config.DBEngineMySQL,
			expected: "teamgrid:secret@tcp(db.internal:3306)/teamgrid?parseTime=True",
		},
		{
			name:     "postgres",
			engine:   config.DBEnginePostgres,
			expected: "host=db.internal user=teamgrid password=secret dbname=teamgrid port=3306 parseTime=True",
		},
		{
			name:     "sqlite",
			engine:   config.DBEngineSQLite,
			expected: "teamgrid.db",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Config{DB: base}
			cfg.DB.Engine = tc.engine

			assert.Equal(t, tc.expected, Create(&cfg))
		})
	}
}
