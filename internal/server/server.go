package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/commscope/backend/internal/queue"
	mid "github.com/commscope/backend/internal/server/middleware"
	"github.com/commscope/backend/internal/setup"
	"github.com/commscope/backend/internal/storage"
	"github.com/commscope/backend/internal/util"
	"github.com/commscope/backend/pkg/logger"
	"github.com/commscope/backend/pkg/store"
	pgxstore "github.com/commscope/backend/pkg/store/pgx"
	"github.com/commscope/backend/pkg/viz"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i any) error {
	if err := cv.validator.Struct(i); err != nil {
		return err
	}
	return nil
}

// New builds the echo instance serving app.
func New(app *mid.App) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = &CustomValidator{validator: validator.New()}

	e.Use(mid.AppContextMiddleware(app))
	e.Use(middleware.CORS())
	e.Use(middleware.RequestLogger())
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit(util.GetEnvString("BODY_LIMIT", "64M")))

	RegisterRoutes(e)
	return e
}

func Init() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &mid.App{
		MasterAPIKey:   util.GetEnv("MASTER_API_KEY"),
		MasterUserRole: util.GetEnv("MASTER_USER_ROLE"),
	}
	app.MasterUserID, _ = strconv.ParseInt(util.GetEnv("MASTER_USER_ID"), 10, 64)

	if authURL := util.GetEnv("AUTH_URL"); authURL != "" {
		k, err := keyfunc.NewDefault([]string{authURL + "/jwks"})
		if err != nil {
			logger.Fatal("Failed to load jwks keys", "err", err)
		}
		app.Key = k
	}

	s3Client, err := storage.NewS3Client(ctx)
	if err != nil {
		logger.Fatal("Failed to create S3 client", "err", err)
	}

	conn, err := setup.Database(ctx)
	if err != nil {
		logger.Fatal("Failed to connect to database", "err", err)
	}
	var cache store.EmbeddingCache
	if conn != nil {
		defer conn.Close()
		db := pgxstore.NewDBStorageWithConnection(conn)
		cache = db

		que, err := queue.Init()
		if err != nil {
			logger.Fatal("Failed to connect to queue", "err", err)
		}
		defer que.Close()
		ch, err := que.Channel()
		if err != nil {
			logger.Fatal("Failed to open channel", "err", err)
		}
		defer ch.Close()
		if err := queue.SetupQueues(ch, queue.Queues); err != nil {
			logger.Fatal("Failed to set up queues", "err", err)
		}

		app.Jobs = db
		app.Queue = queue.ChannelPublisher{Channel: ch}
		if s3Client != nil {
			app.Results = storage.NewS3Results(s3Client)
		}
	}
	if !app.JobsEnabled() {
		logger.Info("Asynchronous jobs disabled; set DATABASE_URL, RABBITMQ_* and AWS_BUCKET to enable them")
	}

	embedder, err := setup.Embedder(cache)
	if err != nil {
		logger.Fatal("Failed to create embedder", "err", err)
	}
	app.Deps = setup.VizDeps(setup.Files(s3Client), embedder)
	app.Registry = viz.Default(app.Deps)

	e := New(app)

	go func() {
		port := util.GetEnvString("PORT", "8080")
		logger.Info("Starting server", "port", port)
		if err := e.Start(":" + port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed shutting down server", "err", err)
		}
	}()

	<-ctx.Done()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Error("Failed to shutdown server", "err", err)
	}
}
