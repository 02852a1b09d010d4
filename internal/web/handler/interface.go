// Package handler holds the shared contract and constants for the web
// handler services. Each handler lives in its own subpackage and registers
// its routes during Init.
package handler

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/teamgrid/teamgrid/internal/config"
)

// Service is the interface for a web handler service.
type Service interface {
	Init(app *fiber.App, cfg *config.Config, db *gorm.DB) error
}
