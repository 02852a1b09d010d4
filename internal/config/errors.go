package config

import (
	"errors"
)

var (
	// ErrEmptyURL error if config webserver.URL is empty.
	ErrEmptyURL = errors.New("toml config webserver.url can not be empty")

	// ErrWebServerPortCanNotBeZero error if config webserver listening port is 0.
	ErrWebServerPortCanNotBeZero = errors.New("toml config webserver.port listening port can not be 0")

	// ErrDBEngineEmpty error if config db.engine is empty.
	ErrDBEngineEmpty = errors.New("toml config db.engine can not be empty")

	// ErrDBEngineUnknown error if config db.engine is not a supported engine.
	ErrDBEngineUnknown = errors.New("toml config db.engine must be one of mysql, postgres, sqlite")
)
