// Package daemon assembles the application: database, audit pipeline,
// anomaly detection, incident management, retention jobs and the web service.
package daemon

import (
	"strconv"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/storage"
	sessionmemory "github.com/gofiber/storage/memory/v2"
	sessionmysql "github.com/gofiber/storage/mysql/v2"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	gormmysql "gorm.io/driver/mysql"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/teamgrid/teamgrid/internal/anomaly"
	"github.com/teamgrid/teamgrid/internal/audit"
	"github.com/teamgrid/teamgrid/internal/config"
	"github.com/teamgrid/teamgrid/internal/db/dsn"
	"github.com/teamgrid/teamgrid/internal/db/models"
	"github.com/teamgrid/teamgrid/internal/incident"
	"github.com/teamgrid/teamgrid/internal/web"
	"github.com/teamgrid/teamgrid/internal/web/session"
)

// DefaultCleanupSchedule runs the audit retention job nightly.
const DefaultCleanupSchedule = "0 3 * * *"

// Daemon represents the main application daemon.
type Daemon struct {
	webService *web.Service
	recorder   *audit.Recorder
	cron       *cron.Cron
	addr       string
}

// Start starts the Daemon's background jobs and web service.
func (d *Daemon) Start() error {
	d.recorder.Start()
	d.cron.Start()

	return d.webService.Start(d.addr)
}

// Stop stops the background jobs and drains the audit queue.
func (d *Daemon) Stop() {
	ctx := d.cron.Stop()
	<-ctx.Done()

	d.recorder.Close()
}

// WaitShutdown blocks until the web service has shut down gracefully.
func (d *Daemon) WaitShutdown() {
	d.webService.WaitShutdown()
	d.Stop()
}

// New creates a new Daemon instance with the provided configuration.
func New(cfg *config.Config) *Daemon {
	if cfg == nil {
		log.Fatal().Msg("config is nil")
		return nil
	}

	db := openDatabase(cfg)

	if err := db.AutoMigrate(
		&models.User{},
		&models.Permission{},
		&models.Role{},
		&models.RolePermission{},
		&models.RoleAssignment{},
		&models.Team{},
		&models.TeamMembership{},
		&models.AuditLog{},
		&models.SecurityIncident{},
		&models.Setting{},
	); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
	}

	seed(cfg, db)

	// audit pipeline: recorder -> detector -> incident manager
	recorder := audit.NewRecorder(db, audit.Config{
		QueueSize:       cfg.Audit.QueueSize,
		RetentionDays:   cfg.Audit.RetentionDays,
		DetectorTimeout: time.Duration(cfg.Audit.DetectorTimeoutSeconds) * time.Second,
	})

	correlationWindow := time.Duration(cfg.Security.IncidentCorrelationWindowMin) * time.Minute
	incidents := incident.NewManager(db, recorder, correlationWindow)

	detector := anomaly.NewDetector(db, incidents, anomaly.Config{
		FailedLoginThreshold:     cfg.Security.FailedLoginThreshold,
		FailedLoginWindow:        time.Duration(cfg.Security.FailedLoginWindowMin) * time.Minute,
		SensitiveAccessThreshold: cfg.Security.SensitiveAccessThreshold,
		SensitiveAccessWindow:    time.Duration(cfg.Security.SensitiveAccessWindowMin) * time.Minute,
		DistinctIPThreshold:      cfg.Security.DistinctIPThreshold,
		DistinctIPWindow:         time.Duration(cfg.Security.DistinctIPWindowMin) * time.Minute,
	})

	recorder.SetDetector(detector)

	// retention job
	schedule := cfg.Audit.CleanupSchedule
	if schedule == "" {
		schedule = DefaultCleanupSchedule
	}

	cronRunner := cron.New()

	if _, err := cronRunner.AddFunc(schedule, func() {
		removed, err := recorder.CleanupOldLogs()
		if err != nil {
			log.Error().Err(err).Msg("audit retention cleanup failed")
			return
		}

		log.Info().Int64("removed", removed).Msg("audit retention cleanup done")
	}); err != nil {
		log.Fatal().Err(err).Str("schedule", schedule).Msg("invalid audit cleanup schedule")
	}

	session.Init(sessionStorage(cfg))

	return &Daemon{
		webService: web.New(cfg, db, recorder, incidents),
		recorder:   recorder,
		cron:       cronRunner,
		addr:       listenAddr(cfg),
	}
}

// openDatabase opens the configured database engine with gorm.
func openDatabase(cfg *config.Config) *gorm.DB {
	var dialector gorm.Dialector

	switch cfg.DB.Engine {
	case config.DBEnginePostgres:
		dialector = gormpostgres.Open(dsn.Create(cfg))
	case config.DBEngineSQLite:
		dialector = sqlite.Open(dsn.Create(cfg))
	default:
		dialector = gormmysql.Open(dsn.Create(cfg))
	}

	db, err := gorm.Open(dialector, &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatal().Err(err).Str("engine", cfg.DB.Engine).Msg("failed to connect database")
	}

	return db
}

// sessionStorage selects the session backend. MySQL installs share sessions
// across instances; other engines keep them in memory.
func sessionStorage(cfg *config.Config) storage.Storage {
	if cfg.DB.Engine == config.DBEngineMySQL {
		return sessionmysql.New(sessionmysql.Config{
			ConnectionURI: dsn.Create(cfg),
			Table:         "sessions",
		})
	}

	return sessionmemory.New()
}

func listenAddr(cfg *config.Config) string {
	if cfg.Webserver.Port > 0 {
		return ":" + strconv.Itoa(cfg.Webserver.Port)
	}

	return ":8080"
}
