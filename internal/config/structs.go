package config

import (
	"time"

	"github.com/teamgrid/teamgrid/internal/logger"
)

// Session settings.
type Session struct {
	ExpiryTime time.Duration
}

// Config overall data structure.
type Config struct {
	DevMode   bool // enable dev mode for development
	DB        DB
	Log       logger.Log
	Title     string
	Webserver Webserver
	Audit     Audit
	Security  Security
}

// Webserver implement webserver settings.
type Webserver struct {
	CleanPath           bool    // use clean path middleware to allow multi slash requests
	DisableRecover      bool    // disable recover middleware
	Domain              string  // domain name for the webserver
	Port                int     // listening port for the webserver
	ShutDownTime        int     // wait time for shutdown
	URL                 string  // base url for the webserver
	CookieEncryptionKey string  // encryption key for cookies
	Session             Session // session settings
}

// Audit holds the audit pipeline settings.
type Audit struct {
	// QueueSize is the capacity of the in-memory audit event queue.
	QueueSize int
	// RetentionDays is how long audit entries are kept before the cleanup
	// job removes them.
	RetentionDays int
	// DetectorTimeoutSeconds bounds a single anomaly detection scan.
	DetectorTimeoutSeconds int
	// CleanupSchedule is the cron spec for the retention cleanup job.
	CleanupSchedule string
}

// Security holds the anomaly detection thresholds and windows, and the
// incident correlation window. All values are per-deployment tuning; zero
// values fall back to the built-in defaults.
type Security struct {
	FailedLoginThreshold     int
	FailedLoginWindowMin     int
	SensitiveAccessThreshold int
	SensitiveAccessWindowMin int
	DistinctIPThreshold      int
	DistinctIPWindowMin      int

	// IncidentCorrelationWindowMin is how long a new detection of the same
	// type and actor merges into an existing open incident.
	IncidentCorrelationWindowMin int

	// LoginRateLimit and LoginRateWindowSec throttle login attempts per
	// origin address.
	LoginRateLimit     int
	LoginRateWindowSec int
}
