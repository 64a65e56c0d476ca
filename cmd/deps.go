package cmd

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/spf13/viper"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/TayoO/embedchain/src/core/app"
	"github.com/TayoO/embedchain/src/core/embedder"
	"github.com/TayoO/embedchain/src/core/llm"
	"github.com/TayoO/embedchain/src/infrastructure/integrations/unstructured"
	"github.com/TayoO/embedchain/src/storage/minioctrl"
	"github.com/TayoO/embedchain/src/storage/postgres/datasourcectrl"
	"github.com/TayoO/embedchain/src/storage/postgres/historyctrl"
	"github.com/TayoO/embedchain/src/storage/vectordb"
)

func llmConfig() llm.Config {
	cfg := llm.Config{
		Model:           viper.GetString("llm.model"),
		Temperature:     viper.GetFloat64("llm.temperature"),
		MaxTokens:       viper.GetInt("llm.max_tokens"),
		SystemPrompt:    viper.GetString("llm.system_prompt"),
		Stream:          viper.GetBool("llm.stream"),
		NumberDocuments: viper.GetInt("llm.number_documents"),
		Template:        viper.GetString("llm.template"),
		HistoryTemplate: viper.GetString("llm.history_template"),
	}
	if viper.IsSet("llm.top_p") {
		cfg.TopP = llm.Float64(viper.GetFloat64("llm.top_p"))
	}
	return cfg
}

func appConfig() app.Config {
	return app.Config{
		ID:             viper.GetString("app.id"),
		CollectionName: viper.GetString("app.collection_name"),
		Chunker: app.ChunkerConfig{
			Size:    viper.GetInt("app.chunk_size"),
			Overlap: viper.GetInt("app.chunk_overlap"),
		},
		HistoryLimit: viper.GetInt("app.history_limit"),
		LLM:          llmConfig(),
	}
}

func newEmbedder() (embedder.Embedder, error) {
	return embedder.New(embedder.Config{
		Provider:  viper.GetString("embedder.provider"),
		Model:     viper.GetString("embedder.model"),
		Dimension: viper.GetInt("embedder.dimension"),
		APIKey:    viper.GetString("embedder.api_key"),
		BaseURL:   viper.GetString("embedder.base_url"),
	})
}

func newVectorDB(emb embedder.Embedder) (vectordb.VectorDB, error) {
	return vectordb.New(
		viper.GetString("vectordb.provider"),
		viper.GetStringMap("vectordb.config"),
		emb,
	)
}

func newChatModel() (llm.ChatModel, error) {
	return llm.NewChatModel(llm.ProviderConfig{
		Provider: viper.GetString("llm.provider"),
		Model:    viper.GetString("llm.model"),
		APIKey:   viper.GetString("llm.api_key"),
		BaseURL:  viper.GetString("llm.base_url"),
	})
}

func openPostgres() (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		viper.GetString("postgres.host"),
		viper.GetString("postgres.user"),
		viper.GetString("postgres.password"),
		viper.GetString("postgres.db"),
		viper.GetString("postgres.port"),
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %v", err)
	}
	return db, nil
}

func newMinio() (*minioctrl.MinioService, error) {
	return minioctrl.NewMinioService(
		viper.GetString("minio.endpoint"),
		viper.GetString("minio.access_key"),
		viper.GetString("minio.secret_key"),
		viper.GetBool("minio.use_ssl"),
	)
}

// Snowflake node numbers used when snowflake.node_id is not configured.
// Processes writing to the same database must not share a node.
const (
	nodeServe  int64 = 1
	nodeWorker int64 = 2
	nodeCLI    int64 = 3
)

func snowflakeNode(fallback int64) (*snowflake.Node, error) {
	id := fallback
	if viper.IsSet("snowflake.node_id") {
		id = viper.GetInt64("snowflake.node_id")
	}
	node, err := snowflake.NewNode(id)
	if err != nil {
		return nil, fmt.Errorf("failed to create snowflake node %d: %w", id, err)
	}
	return node, nil
}

// components is everything built from the config for one process
type components struct {
	app      *app.App
	embedder embedder.Embedder
	db       *gorm.DB
}

// buildApp wires the app. Data sources and chat history are kept in
// postgres when db is not nil, with ids from the given snowflake node.
func buildApp(ctx context.Context, db *gorm.DB, node int64) (*components, error) {
	emb, err := newEmbedder()
	if err != nil {
		return nil, err
	}

	store, err := newVectorDB(emb)
	if err != nil {
		return nil, err
	}

	model, err := newChatModel()
	if err != nil {
		return nil, err
	}

	opts := []app.Option{}
	if url := viper.GetString("unstructured.url"); url != "" {
		opts = append(opts, app.WithConverter(unstructured.NewUnstructuredService(url, &http.Client{
			Timeout: 5 * time.Minute,
		})))
	}

	if db != nil {
		idNode, err := snowflakeNode(node)
		if err != nil {
			return nil, err
		}
		sources := datasourcectrl.NewDataSourceService(db, idNode)
		history := historyctrl.NewHistoryService(db, idNode)
		if err := sources.AutoMigrate(); err != nil {
			return nil, fmt.Errorf("failed to migrate data sources: %w", err)
		}
		if err := history.AutoMigrate(); err != nil {
			return nil, fmt.Errorf("failed to migrate chat history: %w", err)
		}
		opts = append(opts, app.WithDataSourceStore(sources), app.WithHistoryStore(history))
	}

	a, err := app.New(ctx, appConfig(), llm.NewAdapter(model), store, opts...)
	if err != nil {
		return nil, err
	}

	return &components{app: a, embedder: emb, db: db}, nil
}

// buildLocalApp is buildApp for the CLI commands, which use postgres only
// when postgres.enabled is set.
func buildLocalApp(ctx context.Context, node int64) (*components, func(), error) {
	var db *gorm.DB
	cleanup := func() {}
	if viper.GetBool("postgres.enabled") {
		var err error
		db, err = openPostgres()
		if err != nil {
			return nil, nil, err
		}
		cleanup = func() {
			if sqlDB, err := db.DB(); err == nil {
				sqlDB.Close()
			}
		}
	}

	c, err := buildApp(ctx, db, node)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return c, cleanup, nil
}
