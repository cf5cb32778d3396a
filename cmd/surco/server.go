package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/impag-mx/surco/internal/api"
	"github.com/impag-mx/surco/internal/catalog"
	"github.com/impag-mx/surco/internal/config"
	"github.com/impag-mx/surco/internal/dedupe"
	"github.com/impag-mx/surco/internal/generate"
	"github.com/impag-mx/surco/internal/llm"
	"github.com/impag-mx/surco/internal/pipeline"
	"github.com/impag-mx/surco/internal/regiondocs"
	"github.com/impag-mx/surco/internal/retrieval"
	"github.com/impag-mx/surco/internal/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the surco server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

func runServer() error {
	fmt.Fprintf(os.Stderr, "surco version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Initialize structured logging.
	logLevel := slog.LevelInfo
	if strings.EqualFold(cfg.Log.Level, "debug") {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Open storage.
	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: closing storage: %v\n", err)
		}
	}()

	// Build the generation pipeline.
	completer := llm.NewAnthropicCompleter(cfg.LLM.AnthropicAPIKey, cfg.LLM.Model)
	embedder := llm.NewOpenAIEmbedder(cfg.LLM.OpenAIAPIKey, cfg.LLM.EmbedModel)
	vectorStore := retrieval.NewSQLiteStore(store.DB())
	retriever := retrieval.NewRetriever(embedder, vectorStore)
	regionCache := regiondocs.NewCache(cfg.Region.DocsDir)
	engine := dedupe.NewEngine(store, cfg.Dedupe.HardWindowDays, cfg.Dedupe.SoftWindowDays)
	matcher := catalog.NewMatcher(cfg.Catalog.MatchThreshold)
	invoker := generate.NewInvoker(completer, cfg.LLM.MaxTokens)
	pipe := pipeline.New(retriever, regionCache, engine, store, matcher, invoker, cfg.Retrieval.TopK)

	feed := catalog.NewFeedClient(cfg.Catalog.FeedURL, "MXN")
	syncer := api.SyncerFunc(func(syncCtx context.Context) (int, error) {
		return feed.Sync(syncCtx, store)
	})

	// Build HTTP handler and server.
	handler := api.NewHandler(api.Deps{
		Pipeline: pipe,
		Catalog:  syncer,
		Token:    os.Getenv("SURCO_API_TOKEN"),
	})

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	// Build and start MCP server (stdio transport in a goroutine).
	mcpSrv := api.NewMCPServer(api.MCPDeps{
		Pipeline: pipe,
		Catalog:  syncer,
		Products: catalog.NewSearcher(store, matcher),
	})
	stdioSrv := server.NewStdioServer(mcpSrv)
	go func() {
		if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("MCP stdio server error", "error", err)
		}
	}()
	slog.Info("MCP server started (stdio transport)")

	// Start server in a goroutine.
	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(os.Stderr, "surco listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for signal or server error.
	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "shutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	// Graceful shutdown with timeout.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
