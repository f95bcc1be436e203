package middleware

import (
	"github.com/commscope/backend/internal/queue"
	"github.com/commscope/backend/internal/storage"
	"github.com/commscope/backend/pkg/store"
	"github.com/commscope/backend/pkg/viz"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/labstack/echo/v4"
)

type AppUser struct {
	UserID      int64
	Role        string
	Permissions []string
}

// App holds the collaborators of the request handlers. Jobs, Queue and
// Results are nil when asynchronous jobs are disabled; Key is nil when no
// JWKS endpoint is configured.
type App struct {
	Registry *viz.Registry
	Deps     viz.Deps
	Jobs     store.JobStore
	Queue    queue.Publisher
	Results  storage.Results
	Key      keyfunc.Keyfunc

	MasterAPIKey   string
	MasterUserID   int64
	MasterUserRole string
}

// JobsEnabled reports whether jobs can be queued and looked up.
func (a *App) JobsEnabled() bool {
	return a.Jobs != nil && a.Queue != nil && a.Results != nil
}

type AppContext struct {
	echo.Context
	App  *App
	User *AppUser
}

func AppContextMiddleware(app *App) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cc := &AppContext{c, app, nil}
			return next(cc)
		}
	}
}
