// Package web wires the HTTP surface: middleware chain, handler services
// and the lifecycle of the Fiber app.
package web

import (
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/teamgrid/teamgrid/internal/audit"
	"github.com/teamgrid/teamgrid/internal/config"
	"github.com/teamgrid/teamgrid/internal/incident"
	fiberlogger "github.com/teamgrid/teamgrid/internal/logger/adapter/fiber"
	"github.com/teamgrid/teamgrid/internal/rbac"
	"github.com/teamgrid/teamgrid/internal/uniuri"
	"github.com/teamgrid/teamgrid/internal/web/handler/admin/role"
	"github.com/teamgrid/teamgrid/internal/web/handler/auditlog"
	incidenthandler "github.com/teamgrid/teamgrid/internal/web/handler/incident"
	"github.com/teamgrid/teamgrid/internal/web/handler/login"
	"github.com/teamgrid/teamgrid/internal/web/handler/logout"
	"github.com/teamgrid/teamgrid/internal/web/handler/team"
	auditmw "github.com/teamgrid/teamgrid/internal/web/middleware/audit"
	"github.com/teamgrid/teamgrid/internal/web/middleware/auth"
)

// CheckAlivePath is the liveness endpoint used by load balancers.
const CheckAlivePath = "/checkalive"

// Service represents the web service.
type Service struct {
	App          *fiber.App
	cfg          *config.Config
	fastShutDown bool
	alive        atomic.Bool
	db           *gorm.DB
	rbacService  *rbac.Service
}

// Start starts the web service on the given address.
func (s *Service) Start(addr string) error {
	var doneFiber = make(chan bool)

	go func() {
		if err := s.App.Listen(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Msgf("fiber listen error: %v", err)
		}

		doneFiber <- true
	}()

	<-doneFiber // wait for fiber to stop

	return nil
}

// WaitShutdown waits for graceful shutdown of the web service.
func (s *Service) WaitShutdown() {
	irqSig := make(chan os.Signal, 1)
	signal.Notify(irqSig, syscall.SIGINT, syscall.SIGTERM)

	sig := <-irqSig
	log.Info().Msgf("shutdown request (signal: %v)", sig)

	// Graceful shutdown for reverse proxies: set status to fail, so checkalive returns fail.
	if !s.fastShutDown {
		log.Info().Msgf(
			"graceful shutdown: return 503 while %d seconds to let LB to remove this pod from active targets",
			s.cfg.Webserver.ShutDownTime,
		)

		s.alive.Store(false)
		time.Sleep(time.Duration(s.cfg.Webserver.ShutDownTime) * time.Second)
	}

	// stop fiber http server
	serverShutdown := make(chan struct{})

	go func() {
		log.Info().Msg("stopping http server ...")

		err := s.App.Shutdown()
		if err != nil {
			log.Error().Err(err).Msg("")
		}

		serverShutdown <- struct{}{}
	}()

	<-serverShutdown
	log.Info().Msg("http server was stopped ... good bye...")
}

// New creates a new web service with the given configuration and wiring.
func New(cfg *config.Config, db *gorm.DB, recorder *audit.Recorder, incidents *incident.Manager) *Service {
	if cfg == nil {
		panic("config cannot be nil")
	}

	if db == nil {
		panic("db cannot be nil")
	}

	app := fiber.New(
		fiber.Config{
			ReadBufferSize: 8192,
			AppName:        cfg.Title,
			CaseSensitive:  true,
			Prefork:        false,
			Immutable:      true,
		},
	)

	if !cfg.Webserver.DisableRecover {
		app.Use(recover.New())
	}

	app.Use(requestid.New(requestid.Config{
		Generator: uniuri.New,
	}))

	app.Use(fiberlogger.New(fiberlogger.Config{
		Config:        cfg.Log,
		CheckAliveURI: CheckAlivePath,
	}))

	// session auth middleware
	app.Use(auth.Middleware)

	// audit trail middleware (after auth, so the acting user is known)
	app.Use(auditmw.New(recorder))

	rbacService := rbac.NewService(db)

	service := &Service{
		cfg:         cfg,
		App:         app,
		db:          db,
		rbacService: rbacService,
	}
	service.alive.Store(true)

	app.Get(CheckAlivePath, service.checkAlive)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// init handlers (they register their own routes with permission checks)
	if err := login.Handler.Init(app, cfg, db, recorder); err != nil {
		log.Fatal().Err(err).Msg("failed to init login handler")
	}

	logout.Handler.Init(app, cfg, recorder)

	if err := role.Handler.Init(app, cfg, db, rbacService); err != nil {
		log.Fatal().Err(err).Msg("failed to init role handler")
	}

	if err := team.Handler.Init(app, cfg, db, rbacService); err != nil {
		log.Fatal().Err(err).Msg("failed to init team handler")
	}

	if err := auditlog.Handler.Init(app, cfg, db, rbacService, recorder); err != nil {
		log.Fatal().Err(err).Msg("failed to init audit handler")
	}

	if err := incidenthandler.Handler.Init(app, cfg, db, rbacService, incidents); err != nil {
		log.Fatal().Err(err).Msg("failed to init incident handler")
	}

	return service
}

// checkAlive reports liveness. During graceful shutdown it returns 503 so
// load balancers stop routing to this instance.
func (s *Service) checkAlive(c *fiber.Ctx) error {
	if !s.alive.Load() {
		return c.Status(fiber.StatusServiceUnavailable).SendString("shutting down")
	}

	return c.SendString("OK")
}
