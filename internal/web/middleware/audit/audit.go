// Package audit implements the Fiber middleware that feeds request activity
// into the audit recorder. Recording is fire-and-forget: the middleware
// never delays or fails the response on behalf of the audit pipeline.
package audit

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/teamgrid/teamgrid/internal/audit"
	"github.com/teamgrid/teamgrid/internal/db/models"
)

// Locals keys handlers may set to refine the recorded event.
const (
	// LocalAction overrides the recorded action identifier.
	LocalAction = "audit_action"
	// LocalResourceType sets the resource kind of the recorded event.
	LocalResourceType = "audit_resource_type"
	// LocalResourceID sets the resource identifier of the recorded event.
	LocalResourceID = "audit_resource_id"
	// LocalDetails sets the free-form detail payload of the recorded event.
	LocalDetails = "audit_details"
)

// skippedPaths are handled elsewhere (login and logout record their own
// events) or are pure infrastructure endpoints.
var skippedPaths = map[string]bool{
	"/login":      true,
	"/logout":     true,
	"/checkalive": true,
	"/metrics":    true,
}

// New creates the audit middleware. Mutating requests are always recorded;
// read requests only when the handler set an explicit audit action (e.g.
// sensitive data reads).
func New(recorder *audit.Recorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if skippedPaths[c.Path()] {
			return c.Next()
		}

		start := time.Now()
		chainErr := c.Next()

		action, _ := c.Locals(LocalAction).(string)
		if action == "" {
			if c.Method() == fiber.MethodGet || c.Method() == fiber.MethodHead {
				return chainErr
			}

			action = c.Method() + " " + c.Route().Path
		}

		var userID *uint64

		if user, ok := c.Locals("CurrentUser").(models.User); ok && user.ID > 0 {
			id := user.ID
			userID = &id
		}

		status := models.AuditStatusSuccess
		errorMessage := ""

		if chainErr != nil {
			status = models.AuditStatusFailure
			errorMessage = chainErr.Error()
		} else if c.Response().StatusCode() >= fiber.StatusBadRequest {
			status = models.AuditStatusFailure
		}

		resourceType, _ := c.Locals(LocalResourceType).(string)
		resourceID, _ := c.Locals(LocalResourceID).(string)
		details, _ := c.Locals(LocalDetails).(string)

		duration := time.Since(start)

		recorder.Record(audit.Event{
			UserID:       userID,
			Action:       action,
			ResourceType: resourceType,
			ResourceID:   resourceID,
			Details:      details,
			IPAddress:    c.IP(),
			UserAgent:    c.Get(fiber.HeaderUserAgent),
			Status:       status,
			ErrorMessage: errorMessage,
			Duration:     &duration,
		})

		return chainErr
	}
}
