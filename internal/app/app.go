package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/somshekargr/studybuddy/internal/config"
	"github.com/somshekargr/studybuddy/internal/core"
	db "github.com/somshekargr/studybuddy/internal/core/database"
	"github.com/somshekargr/studybuddy/internal/core/graph"
	"github.com/somshekargr/studybuddy/internal/core/ingestion_engine"
	"github.com/somshekargr/studybuddy/internal/core/llm"
	"github.com/somshekargr/studybuddy/internal/core/notify"
	objectclient "github.com/somshekargr/studybuddy/internal/core/object-client"
	"github.com/somshekargr/studybuddy/internal/core/pdf"
	"github.com/somshekargr/studybuddy/internal/core/retrieval"
	"github.com/somshekargr/studybuddy/internal/core/websearch"
	"golang.org/x/sync/errgroup"
)

type App struct {
	DBClient     core.DbClient
	ObjectClient core.ObjectClient
	GraphClient  *graph.Neo4jClient
	Ingestor     *ingestion_engine.DocumentIngestor
	Server       *Server
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	appCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	dbClient, err := db.NewDatabaseClient(appCtx, cfg)
	if err != nil {
		return nil, err
	}
	log.Println("Database initialized and ready.")

	// The remaining clients are independent of each other; bring them up in
	// parallel and fail startup on the first error.
	var (
		objClient   core.ObjectClient
		embedder    *llm.GeminiEmbedder
		llmProvider *llm.GeminiLLM
		graphClient *graph.Neo4jClient
	)
	g, gctx := errgroup.WithContext(appCtx)
	g.Go(func() error {
		var err error
		objClient, err = objectclient.NewS3Client(gctx, cfg)
		return err
	})
	g.Go(func() error {
		var err error
		embedder, err = llm.NewGeminiEmbedder(gctx, cfg.AIAPIKey, cfg.EmbedModel, cfg.EmbedDim)
		if err != nil {
			return fmt.Errorf("couldn't initialize the embedder, %w", err)
		}
		llmProvider, err = llm.NewGeminiLLM(gctx, cfg.AIAPIKey, cfg.GenModel)
		if err != nil {
			return fmt.Errorf("couldn't initialize the llm provider, %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		graphClient, err = graph.NewNeo4jClient(gctx, cfg)
		if err != nil {
			return fmt.Errorf("couldn't connect to the graph store, %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	log.Println("Object, AI and graph clients initialized and ready.")

	localModel := llm.NewOllamaModel(cfg.OllamaBaseURL, cfg.OllamaTextModel, llmProvider)
	vision := llm.NewOllamaVision(cfg.OllamaBaseURL, cfg.OllamaVisionModel)

	graphStore := graph.NewStore(graphClient)

	parser := pdf.NewParser()
	notifier := notify.NewEmailNotifier(cfg)
	extractor := ingestion_engine.NewTripletExtractor(localModel)

	ingCfg := &ingestion_engine.IngestConfig{
		ChunkSize:      cfg.ChunkSize,
		ChunkOverlap:   cfg.ChunkOverlap,
		EmbedBatch:     cfg.EmbedBatch,
		GraphMinChars:  50,
		EnableVision:   cfg.EnableVision,
		EnableGraphRAG: cfg.EnableGraphRAG,
	}

	ingestor := ingestion_engine.NewDocumentIngestor(
		dbClient, objClient, parser, vision, extractor, graphStore, embedder, notifier, ingCfg)

	retriever := retrieval.NewHybridRetriever(embedder, dbClient, graphStore)
	web := websearch.NewDuckDuckGo()

	server := NewServer(cfg, dbClient, objClient, graphStore, ingestor, retriever, llmProvider, web)

	// Requeue work stranded by the last shutdown before workers start.
	if err := ingestor.RecoverStuck(appCtx); err != nil {
		return nil, fmt.Errorf("recovery sweep failed, %w", err)
	}
	ingestor.Start(ctx, cfg.IngestWorkers)

	return &App{
		DBClient:     dbClient,
		ObjectClient: objClient,
		GraphClient:  graphClient,
		Ingestor:     ingestor,
		Server:       server,
	}, nil
}

func (a *App) Close() {
	if a.GraphClient != nil {
		_ = a.GraphClient.Close(context.Background())
	}
	if a.DBClient != nil {
		_ = a.DBClient.Close()
	}
}
