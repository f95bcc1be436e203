// Package setup builds the collaborators shared by the server and the
// worker from environment settings.
package setup

import (
	"context"
	"fmt"
	"time"

	"github.com/commscope/backend/internal/util"
	"github.com/commscope/backend/pkg/ai"
	"github.com/commscope/backend/pkg/ai/lsa"
	oai "github.com/commscope/backend/pkg/ai/ollama"
	gai "github.com/commscope/backend/pkg/ai/openai"
	"github.com/commscope/backend/pkg/loader"
	ioloader "github.com/commscope/backend/pkg/loader/io"
	s3loader "github.com/commscope/backend/pkg/loader/s3"
	"github.com/commscope/backend/pkg/logger"
	"github.com/commscope/backend/pkg/logger/console"
	"github.com/commscope/backend/pkg/store"
	pgxstore "github.com/commscope/backend/pkg/store/pgx"
	"github.com/commscope/backend/pkg/topic"
	"github.com/commscope/backend/pkg/viz"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvec "github.com/pgvector/pgvector-go/pgx"
)

// Logger installs the console logger. DEBUG enables debug output.
func Logger() {
	logger.Init(console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: util.GetEnvBool("DEBUG", false),
		JSON:  util.GetEnvBool("LOG_JSON", false),
	}))
}

// VizConfig reads the input files and analysis settings.
func VizConfig() viz.Config {
	return viz.Config{
		DataFile:          util.GetEnv("DATA_FILE"),
		CommunicationFile: util.GetEnv("COMMUNICATION_FILE"),
		RelationshipsFile: util.GetEnv("RELATIONSHIPS_FILE"),
		SimilarityFile:    util.GetEnv("HEATMAP_SIMILARITY_FILE"),
		AnalysisYear:      util.GetEnvInt("ANALYSIS_YEAR", 2040),
		AnalysisMonth:     time.Month(util.GetEnvInt("ANALYSIS_MONTH", 10)),
		SuspectEntity:     util.GetEnv("SUSPECT_ENTITY"),
	}
}

// Files serves local paths and, when client is set, s3:// keys from
// AWS_BUCKET.
func Files(client *s3.Client) loader.FileLoader {
	var remote loader.FileLoader
	if client != nil {
		remote = s3loader.NewS3FileLoaderWithClient(util.GetEnv("AWS_BUCKET"), client)
	}
	return loader.NewSource(ioloader.NewIOFileLoader(), remote)
}

// Embedder selects the embedder by EMBED_ADAPTER. Remote embeddings are
// cached in cache when it is not nil; the local LSA embedder is fitted per
// corpus and never cached.
func Embedder(cache store.EmbeddingCache) (ai.Embedder, error) {
	adapter := util.GetEnvString("EMBED_ADAPTER", "local")
	model := util.GetEnv("AI_EMBED_MODEL")

	var e ai.Embedder
	switch adapter {
	case "local":
		return lsa.New(util.GetEnvInt("AI_EMBED_DIM", 0)), nil
	case "ollama":
		client, err := oai.NewOllamaEmbedder(oai.NewOllamaEmbedderParams{
			Model:                 model,
			BaseURL:               util.GetEnv("AI_EMBED_URL"),
			APIKey:                util.GetEnv("AI_EMBED_KEY"),
			Dimensions:            util.GetEnvInt("AI_EMBED_DIM", 0),
			MaxConcurrentRequests: int64(util.GetEnvNumeric("AI_PARALLEL_REQ", 15)),
			TimeoutMin:            util.GetEnvInt("AI_TIMEOUT_MIN", 5),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create Ollama embedder: %w", err)
		}
		e = client
	case "openai":
		e = gai.NewOpenAIEmbedder(gai.NewOpenAIEmbedderParams{
			Model:                 model,
			BaseURL:               util.GetEnv("AI_EMBED_URL"),
			APIKey:                util.GetEnv("AI_EMBED_KEY"),
			Dimensions:            util.GetEnvInt("AI_EMBED_DIM", 0),
			MaxConcurrentRequests: int64(util.GetEnvNumeric("AI_PARALLEL_REQ", 15)),
			TimeoutMin:            util.GetEnvInt("AI_TIMEOUT_MIN", 5),
		})
	default:
		return nil, fmt.Errorf("unknown EMBED_ADAPTER %q", adapter)
	}

	if cache == nil {
		return e, nil
	}
	return store.NewCachedEmbedder(e, cache, adapter+":"+model), nil
}

// VizDeps assembles the dependencies of the visualizations.
func VizDeps(files loader.FileLoader, embedder ai.Embedder) viz.Deps {
	return viz.Deps{
		Config: VizConfig(),
		Files:  files,
		Topics: topic.NewRunner(embedder),
	}
}

// Database connects to DATABASE_URL and applies the migrations in
// MIGRATIONS_PATH. It returns nil without DATABASE_URL.
func Database(ctx context.Context) (*pgxpool.Pool, error) {
	dsn := util.GetEnv("DATABASE_URL")
	if dsn == "" {
		return nil, nil
	}
	if err := pgxstore.Migrate(dsn, util.GetEnvString("MIGRATIONS_PATH", "migrations")); err != nil {
		return nil, err
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid DATABASE_URL: %w", err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return pool, nil
}
