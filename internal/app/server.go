package app

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/somshekargr/studybuddy/internal/api/handlers"
	appMiddleware "github.com/somshekargr/studybuddy/internal/api/middlewares"
	"github.com/somshekargr/studybuddy/internal/config"
	"github.com/somshekargr/studybuddy/internal/core"
	"github.com/somshekargr/studybuddy/internal/core/graph"
	"github.com/somshekargr/studybuddy/internal/core/ingestion_engine"
	"github.com/somshekargr/studybuddy/internal/core/retrieval"
	"github.com/somshekargr/studybuddy/internal/core/websearch"
	"github.com/somshekargr/studybuddy/internal/services"
)

// Server wraps the HTTP server instance and its handlers.
type Server struct {
	httpServer *http.Server
}

// NewServer builds and wires all routes.
func NewServer(
	cfg *config.Config,
	db core.DbClient,
	obj core.ObjectClient,
	graphStore *graph.Store,
	ing *ingestion_engine.DocumentIngestor,
	retriever *retrieval.HybridRetriever,
	llm core.LLMProvider,
	web *websearch.DuckDuckGo,
) *Server {
	userService := services.NewUserService(db)
	docService := services.NewDocumentService(db, obj, graphStore, cfg.BucketName)
	chatService := services.NewChatService(db, llm)
	quizService := services.NewQuizService(db, llm)

	authHandler := handlers.NewAuthHandler(userService, cfg)
	docHandler := handlers.NewDocumentHandler(docService, ing)
	chatHandler := handlers.NewChatHandler(chatService, docService, retriever, llm, web)
	quizHandler := handlers.NewQuizHandler(quizService, docService)
	graphHandler := handlers.NewGraphHandler(graphStore, docService)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	// No global timeout: the chat endpoint holds its connection open while
	// streaming tokens.

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8888"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	r.Route("/api", func(api chi.Router) {
		// public endpoints
		api.Post("/signup", authHandler.Signup)
		api.Post("/login", authHandler.Login)

		// protected endpoints
		api.Group(func(protected chi.Router) {
			protected.Use(appMiddleware.NewJWTMiddleware(cfg.JWTSecret))

			protected.Post("/documents/upload", docHandler.UploadDocument)
			protected.Get("/documents", docHandler.GetDocuments)
			protected.Get("/documents/{document_id}", docHandler.GetDocument)
			protected.Get("/documents/{document_id}/content", docHandler.GetDocumentContent)
			protected.Delete("/documents/{document_id}", docHandler.DeleteDocument)
			protected.Post("/documents/{document_id}/reprocess", docHandler.ReprocessDocument)
			protected.Get("/documents/{document_id}/graph", graphHandler.GetDocumentGraph)

			protected.Post("/chat", chatHandler.Chat)
			protected.Get("/chat/sessions", chatHandler.GetSessions)
			protected.Get("/chat/sessions/{session_id}/messages", chatHandler.GetSessionMessages)
			protected.Get("/chat/personas", chatHandler.GetPersonas)

			protected.Post("/quiz/generate", quizHandler.GenerateQuiz)
		})
	})

	httpSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &Server{httpServer: httpSrv}
}

// Start runs the HTTP server.
func (s *Server) Start() {
	log.Printf("HTTP server listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down HTTP server...")
	return s.httpServer.Shutdown(ctx)
}
