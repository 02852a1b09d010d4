package daemon

import (
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/teamgrid/teamgrid/internal/config"
	"github.com/teamgrid/teamgrid/internal/db/models"
	"github.com/teamgrid/teamgrid/internal/rbac"
)

// seed installs the permission catalog and default roles, and creates the
// initial admin account on an empty user table.
func seed(_ *config.Config, db *gorm.DB) {
	rbacService := rbac.NewService(db)

	if err := rbacService.InitializeDefaultRoles(); err != nil {
		log.Fatal().Err(err).Msg("failed to initialize default roles")
	}

	var count int64

	db.Model(&models.User{}).Count(&count)

	if count != 0 {
		return
	}

	admin := models.User{
		Username: "admin",
		Password: models.HashPassword("changeme"),
		Active:   true,
	}

	if err := db.Create(&admin).Error; err != nil {
		log.Fatal().Err(err).Msg("failed to create initial admin user")
	}

	if _, err := rbacService.AssignRole(admin.ID, "admin", admin.ID, nil); err != nil {
		log.Fatal().Err(err).Msg("failed to assign admin role to initial user")
	}

	log.Warn().Msg("created initial admin user with default password, change it immediately")
}
