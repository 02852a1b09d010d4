package handler

const (
	// RootPath is the root path of the route group.
	RootPath = "/"

	// RouterRootPath is the root path within a route group.
	RouterRootPath = ""

	// ErrNilACDFatalLogMsg is used if app or cfg or db var pointer is nil.
	ErrNilACDFatalLogMsg = "app, cfg or db is nil"
)
