package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/amikos-tech/chroma-go/pkg/embeddings"
	gemini "github.com/amikos-tech/chroma-go/pkg/embeddings/gemini"
	openai "github.com/amikos-tech/chroma-go/pkg/embeddings/openai"
	"github.com/gamma-omg/rag-context/docstore"
	"github.com/gamma-omg/rag-context/knowledge"
	"github.com/gamma-omg/rag-context/readers"
	"github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func createEmbeddingFunction(cfg *ChromaConfig) (embeddings.EmbeddingFunction, error) {
	if cfg.OpenAI != nil {
		ef, err := openai.NewOpenAIEmbeddingFunction(
			cfg.OpenAI.ApiKey,
			openai.WithModel(openai.EmbeddingModel(cfg.OpenAI.Model)))
		if err != nil {
			return nil, fmt.Errorf("failed to create OpenAI embedding function: %w", err)
		}

		return ef, nil
	}

	if cfg.Gemini != nil {
		ef, err := gemini.NewGeminiEmbeddingFunction(
			gemini.WithAPIKey(cfg.Gemini.ApiKey),
			gemini.WithDefaultModel(embeddings.EmbeddingModel(cfg.Gemini.Model)))
		if err != nil {
			return nil, fmt.Errorf("failed to create Gemini embedding function: %w", err)
		}

		return ef, nil
	}

	return nil, errors.New("invalid embeddings provider configuration")
}

func initMirror(ctx context.Context, cfg *ChromaConfig, logger *slog.Logger) (*docstore.ChromaMirror, error) {
	ef, err := createEmbeddingFunction(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding function: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	col, err := docstore.OpenChromaCollection(ctx, docstore.ChromaConfig{
		BaseURL:       cfg.Addr,
		Collection:    cfg.Collection,
		EmbeddingFunc: ef,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Chroma mirror: %w", err)
	}

	return docstore.NewChromaMirror(col, cfg.QueueSize, cfg.RequestSize, logger), nil
}

func openLogger(cfg *Config) (*slog.Logger, io.Closer, error) {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if cfg.LogFile == "" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts)), io.NopCloser(nil), nil
	}

	logFile, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}

	return slog.New(slog.NewJSONHandler(logFile, opts)), logFile, nil
}

// app is everything a command needs, composed from the config.
type app struct {
	cfg      *Config
	log      *slog.Logger
	engine   *knowledge.Engine
	registry *DocRegistry
	mirror   *docstore.ChromaMirror
}

func newApp(ctx context.Context, cfg *Config, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, log: logger}

	opts := []knowledge.Option{
		knowledge.WithLogger(logger),
		knowledge.WithMaxChunkChars(cfg.MaxChunkChars),
		knowledge.WithScenarioBaseDir(cfg.ScenariosBaseDir),
	}

	if cfg.Chroma != nil {
		mirror, err := initMirror(ctx, cfg.Chroma, logger)
		if err != nil {
			return nil, err
		}
		a.mirror = mirror
		opts = append(opts, knowledge.WithChunkSink(mirror))
	}

	a.engine = knowledge.New(opts...)

	if cfg.DocRoot != "" {
		a.registry = NewDocRegistry(cfg.DocRoot, a.engine, time.Duration(cfg.MergeEventsMs)*time.Millisecond, logger)
		a.registry.RegisterReader(&readers.TxtFileReader{}, &readers.UniversalFileReader{})
	}

	return a, nil
}

// load indexes the configured scenarios and knowledge folder once.
func (a *app) load(ctx context.Context) error {
	if a.cfg.ScenariosFile != "" {
		// a missing or broken scenarios file leaves the engine usable
		_, _ = a.engine.IndexScenariosFromFile(a.cfg.ScenariosFile)
	}

	if a.registry != nil {
		err := a.registry.Sync(ctx)
		if err != nil {
			return fmt.Errorf("failed to sync %s: %w", a.cfg.DocRoot, err)
		}
	}

	return nil
}

func (a *app) serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)

	// stop stops everything started so far before reporting err
	stop := func(err error) error {
		cancel()
		_ = g.Wait()
		return err
	}

	if a.mirror != nil {
		g.Go(func() error {
			return a.mirror.Run(ctx)
		})
	}

	err := a.load(ctx)
	if err != nil {
		return stop(err)
	}

	if a.registry != nil {
		err = a.registry.Watch(ctx)
		if err != nil {
			return stop(err)
		}
	}

	if a.cfg.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		err = a.engine.RegisterMetrics(reg)
		if err != nil {
			return stop(err)
		}

		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		metricsSrv := &http.Server{Addr: a.cfg.MetricsAddr, Handler: mux}

		g.Go(func() error {
			err := metricsSrv.ListenAndServe()
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		})
		g.Go(func() error {
			<-ctx.Done()
			return metricsSrv.Shutdown(context.Background())
		})
	}

	srv := NewRagServer(a.engine, a.cfg.TopK, a.log)
	sse := server.NewSSEServer(srv, server.WithBaseURL(fmt.Sprintf("http://%s", a.cfg.ServerAddr)))

	g.Go(func() error {
		a.log.Info("serving MCP", "addr", a.cfg.ServerAddr)
		err := sse.Start(a.cfg.ServerAddr)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-ctx.Done()
		return sse.Shutdown(context.Background())
	})

	return g.Wait()
}

func newRootCmd() *cobra.Command {
	var cfgPath string

	root := &cobra.Command{
		Use:          "ragctx",
		Short:        "In-memory context retrieval for interview prompts",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "cfg/config.yaml", "Configuration file")

	setup := func(cmd *cobra.Command) (*app, io.Closer, error) {
		cfg, err := readConfig(cfgPath)
		if err != nil {
			return nil, nil, err
		}

		logger, closer, err := openLogger(cfg)
		if err != nil {
			return nil, nil, err
		}

		a, err := newApp(cmd.Context(), cfg, logger)
		if err != nil {
			closer.Close()
			return nil, nil, err
		}

		return a, closer, nil
	}

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Serve the context tools over MCP",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, closer, err := setup(cmd)
			if err != nil {
				return err
			}
			defer closer.Close()

			return a.serve(cmd.Context())
		},
	})

	var topK int
	query := &cobra.Command{
		Use:   "query <question>",
		Short: "Load the configured corpus and print the context for a question",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, closer, err := setup(cmd)
			if err != nil {
				return err
			}
			defer closer.Close()

			err = a.load(cmd.Context())
			if err != nil {
				return err
			}

			if topK <= 0 {
				topK = a.cfg.TopK
			}
			res, err := a.engine.QueryContext(args[0], topK)
			if err != nil {
				return err
			}

			out := json.NewEncoder(cmd.OutOrStdout())
			out.SetIndent("", "  ")
			return out.Encode(struct {
				Context string         `json:"context"`
				Stats   docstore.Stats `json:"stats"`
			}{
				Context: res,
				Stats:   a.engine.Stats(),
			})
		},
	}
	query.Flags().IntVar(&topK, "top-k", 0, "Number of documents to return (config top_k when unset)")
	root.AddCommand(query)

	return root
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		log.Fatal(err)
	}
}
