package audit

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/teamgrid/teamgrid/internal/db/models"
)

const (
	// DefaultQueueSize is the capacity of the recorder queue when the
	// configuration does not set one.
	DefaultQueueSize = 1024
	// DefaultRetentionDays is the audit retention window when the
	// configuration does not set one.
	DefaultRetentionDays = 365
	// DefaultDetectorTimeout bounds a single anomaly scan so a slow storage
	// query cannot pile up workers under load.
	DefaultDetectorTimeout = 5 * time.Second
)

var (
	// queueDepth tracks the number of events waiting in the recorder queue.
	queueDepth prometheus.Gauge //nolint:gochecknoglobals
	// droppedEvents counts events discarded because the queue was full.
	droppedEvents prometheus.Counter //nolint:gochecknoglobals
	// metricsOnce guards metric registration across recorder instances.
	metricsOnce sync.Once //nolint:gochecknoglobals
)

func initMetrics() {
	metricsOnce.Do(func() {
		queueDepth = promauto.NewGauge(prometheus.GaugeOpts{
			Name: "audit_queue_depth",
			Help: "Number of audit events waiting to be persisted.",
		})
		droppedEvents = promauto.NewCounter(prometheus.CounterOpts{
			Name: "audit_events_dropped_total",
			Help: "Number of audit events dropped because the queue was full.",
		})
	})
}

// Event is one activity event handed to the recorder.
type Event struct {
	// UserID is the acting user, nil for anonymous or system events.
	UserID *uint64
	// Action is the action identifier.
	Action string
	// ResourceType is the kind of resource acted on.
	ResourceType string
	// ResourceID optionally identifies the affected resource.
	ResourceID string
	// Details is a free-form payload.
	Details string
	// IPAddress is the origin address.
	IPAddress string
	// UserAgent is the origin agent string.
	UserAgent string
	// Status is the outcome of the operation.
	Status models.AuditStatus
	// ErrorMessage carries the error text of failed operations.
	ErrorMessage string
	// Duration is the optional duration of the operation.
	Duration *time.Duration
}

// Detector evaluates a persisted audit entry for abnormal patterns.
// Implementations must do their own error handling; Scan has no error
// return because detection failures never propagate to the recording path.
type Detector interface {
	Scan(ctx context.Context, entry models.AuditLog)
}

// Config holds the recorder settings.
type Config struct {
	// QueueSize is the capacity of the event queue.
	QueueSize int
	// RetentionDays is how long audit entries are kept.
	RetentionDays int
	// DetectorTimeout bounds a single anomaly scan.
	DetectorTimeout time.Duration
}

// withDefaults fills unset fields.
func (c Config) withDefaults() Config {
	if c.QueueSize <= 0 {
		c.QueueSize = DefaultQueueSize
	}

	if c.RetentionDays <= 0 {
		c.RetentionDays = DefaultRetentionDays
	}

	if c.DetectorTimeout <= 0 {
		c.DetectorTimeout = DefaultDetectorTimeout
	}

	return c
}

// Recorder persists activity events off the caller's critical path.
type Recorder struct {
	db       *gorm.DB
	cfg      Config
	detector Detector
	queue    chan Event
	wg       sync.WaitGroup
	started  bool
	closed   sync.Once
}

// NewRecorder creates a recorder. Call SetDetector (optional) and then
// Start before recording.
func NewRecorder(db *gorm.DB, cfg Config) *Recorder {
	initMetrics()

	cfg = cfg.withDefaults()

	return &Recorder{
		db:    db,
		cfg:   cfg,
		queue: make(chan Event, cfg.QueueSize),
	}
}

// SetDetector attaches the anomaly detector invoked after each persisted
// event. Must be called before Start.
func (r *Recorder) SetDetector(d Detector) {
	if r.started {
		panic("audit: SetDetector called after Start")
	}

	r.detector = d
}

// Start launches the background worker consuming the queue.
func (r *Recorder) Start() {
	if r.started {
		return
	}

	r.started = true

	r.wg.Add(1)

	go func() {
		defer r.wg.Done()

		for event := range r.queue {
			queueDepth.Dec()
			r.process(event)
		}
	}()
}

// Record enqueues an event for persistence. It never blocks and never
// returns an error: when the queue is full the event is dropped, counted
// and logged, because audit recording must not delay or fail the business
// operation it describes.
func (r *Recorder) Record(event Event) {
	select {
	case r.queue <- event:
		queueDepth.Inc()
	default:
		droppedEvents.Inc()
		log.Warn().Str("action", event.Action).Msg("audit queue full, event dropped")
	}
}

// Close stops accepting events, drains the queue and waits for the worker.
func (r *Recorder) Close() {
	r.closed.Do(func() {
		close(r.queue)
	})

	r.wg.Wait()
}

// process persists one event and hands the stored entry to the detector.
// All failures are logged and swallowed.
func (r *Recorder) process(event Event) {
	entry := models.AuditLog{
		UserID:       event.UserID,
		Action:       event.Action,
		ResourceType: event.ResourceType,
		ResourceID:   event.ResourceID,
		Details:      event.Details,
		IPAddress:    event.IPAddress,
		UserAgent:    event.UserAgent,
		Status:       event.Status,
		ErrorMessage: event.ErrorMessage,
		CreatedAt:    time.Now(),
	}

	if event.Duration != nil {
		ms := event.Duration.Milliseconds()
		entry.DurationMS = &ms
	}

	if err := r.db.Create(&entry).Error; err != nil {
		log.Error().Err(err).Str("action", event.Action).Msg("failed to persist audit entry")
		return
	}

	if r.detector == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.cfg.DetectorTimeout)
	defer cancel()

	r.detector.Scan(ctx, entry)
}
