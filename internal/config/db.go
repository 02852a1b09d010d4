package config

// Supported database engines.
const (
	// DBEngineMySQL selects the MySQL driver.
	DBEngineMySQL = "mysql"
	// DBEnginePostgres selects the PostgreSQL driver.
	DBEnginePostgres = "postgres"
	// DBEngineSQLite selects the embedded SQLite driver (dev and small installs).
	DBEngineSQLite = "sqlite"
)

// DB holds the database configuration settings.
type DB struct {
	Engine   string // one of mysql, postgres, sqlite
	Extras   string
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	Path     string // database file path for the sqlite engine
}
