package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonathan/procurement-caller/internal/catalog"
	"github.com/jonathan/procurement-caller/internal/db"
	"github.com/jonathan/procurement-caller/internal/dialogue"
	"github.com/jonathan/procurement-caller/internal/jobs"
	"github.com/jonathan/procurement-caller/internal/llm"
	"github.com/jonathan/procurement-caller/internal/logger"
	"github.com/jonathan/procurement-caller/internal/orchestrator"
	"github.com/jonathan/procurement-caller/internal/server"
	"github.com/jonathan/procurement-caller/internal/telephony"
	"github.com/jonathan/procurement-caller/internal/types"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	servePort      int
	servePublicURL string
	serveSuppliers string
	serveProducts  string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API and webhook server",
	Long:  `Start an HTTP server that accepts call jobs, receives telephony webhooks and sweeps stuck jobs.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides config)")
	serveCmd.Flags().StringVar(&servePublicURL, "public-url", "", "Public base URL for provider callbacks (overrides config)")
	serveCmd.Flags().StringVar(&serveSuppliers, "suppliers", "", "Supplier CSV to preload into the catalog")
	serveCmd.Flags().StringVar(&serveProducts, "products", "", "Product CSV to preload into the catalog")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if servePort != 0 {
		cfg.Port = servePort
	}
	if servePublicURL != "" {
		cfg.PublicBaseURL = servePublicURL
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := cfg.ValidateTelephony(); err != nil {
		return err
	}
	if cfg.GeminiAPIKey == "" {
		return fmt.Errorf("config error: missing gemini_api_key")
	}
	logger.Initialize(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := loadCatalog(serveSuppliers, serveProducts)
	if err != nil {
		return err
	}

	client, err := llm.NewClient(ctx, llm.DefaultConfig(), cfg.GeminiAPIKey)
	if err != nil {
		return fmt.Errorf("failed to create LLM client: %w", err)
	}
	defer func() { _ = client.Close() }()

	gateway, err := telephony.NewTwilioGateway(telephony.TwilioConfig{
		AccountSID:    cfg.TwilioAccountSID,
		AuthToken:     cfg.TwilioAuthToken,
		FromNumber:    cfg.TwilioFromNumber,
		PublicBaseURL: cfg.PublicBaseURL,
		GatherTimeout: cfg.GatherTimeoutSeconds,
	})
	if err != nil {
		return fmt.Errorf("failed to create telephony gateway: %w", err)
	}

	opts := orchestrator.Options{
		TurnTimeout:     cfg.TurnTimeout.Std(),
		ProviderTimeout: cfg.ProviderTimeout.Std(),
		DefaultLanguage: types.Language(cfg.DefaultLanguage),
	}
	srvCfg := server.Config{
		Port:            cfg.Port,
		Gateway:         gateway,
		Renderer:        gateway.Renderer(),
		Catalog:         store,
		PublicBaseURL:   cfg.PublicBaseURL,
		ProviderTimeout: cfg.ProviderTimeout.Std(),
	}
	if cfg.ValidateWebhooks {
		srvCfg.Signatures = telephony.NewSignatureValidator(cfg.TwilioAuthToken)
	}

	if cfg.DatabaseURL != "" {
		archive, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer archive.Close()
		if err := archive.EnsureSchema(ctx); err != nil {
			return err
		}
		opts.Archiver = archive
		srvCfg.History = archive
	} else {
		logger.L().Warn("DATABASE_URL not set, finished calls are not archived")
	}

	engine := dialogue.NewEngine(client,
		dialogue.WithTier(llm.ParseTier(cfg.ModelTier)),
		dialogue.WithMarker(cfg.TerminationMarker),
	)
	orch := orchestrator.New(jobs.NewMemoryStore(), gateway, engine, opts)
	defer orch.Wait()
	srvCfg.Orchestrator = orch

	srv, err := server.New(srvCfg)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx)
	})
	g.Go(func() error {
		return orch.WatchStuckJobs(gctx, cfg.StuckJobInterval.Std(), cfg.StuckJobAfter.Std())
	})
	return g.Wait()
}

// loadCatalog builds a catalog store from the optional CSV files.
func loadCatalog(suppliersPath, productsPath string) (*catalog.Store, error) {
	store := catalog.NewStore()
	if suppliersPath != "" {
		suppliers, err := readCSV(suppliersPath, catalog.ParseSuppliersCSV)
		if err != nil {
			return nil, err
		}
		store.ReplaceSuppliers(suppliers)
	}
	if productsPath != "" {
		products, err := readCSV(productsPath, catalog.ParseProductsCSV)
		if err != nil {
			return nil, err
		}
		store.ReplaceProducts(products)
	}
	return store, nil
}

func readCSV[T any](path string, parse func(r io.Reader) ([]T, error)) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	records, err := parse(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return records, nil
}
