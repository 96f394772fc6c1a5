package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"arkadia-host/janus/pkg/audit"
	"arkadia-host/janus/pkg/cli"
	"arkadia-host/janus/pkg/config"
	"arkadia-host/janus/pkg/proxy"
	"arkadia-host/janus/pkg/security/auth"
	janustls "arkadia-host/janus/pkg/security/tls"
	"arkadia-host/janus/pkg/site"
	"arkadia-host/janus/pkg/store"
	"arkadia-host/janus/pkg/telemetry/logging"
	"arkadia-host/janus/pkg/telemetry/metrics"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the Janus server",
	Long: `Start the Janus server with the specified configuration.

The proxy listens on the configured addresses and forwards requests to
site backends by Host header. Each configured site gets its own backend
listener, document store, and static root.

Examples:
  # Start with default config
  janus run

  # Start with custom config
  janus run --config /etc/janus/config.yaml

  # Override listen address
  janus run --listen 0.0.0.0:8080

  # Validate config without starting server
  janus run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting server")
}

func runServer(cmd *cobra.Command, args []string) error {
	// Secrets are commonly supplied via a .env file in development.
	// Missing files are fine; the environment wins either way.
	_ = godotenv.Load()

	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}

	// Apply flag overrides
	if runFlags.listenAddress != "" {
		cfg.Proxy.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
		cfg.Proxy.Verbose = true
	}

	logger, err := logging.New(logging.Config{
		Level:             cfg.Telemetry.Logging.Level,
		Format:            cfg.Telemetry.Logging.Format,
		AddSource:         cfg.Telemetry.Logging.AddSource,
		RedactCredentials: cfg.Telemetry.Logging.RedactCredentials,
	})
	if err != nil {
		return cli.NewConfigError("telemetry.logging", err.Error())
	}

	if runFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	printBanner(cfg)

	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)

	// The server refuses to start without a signing secret; tokens
	// minted under an ad-hoc secret would all die on restart.
	secret, err := cfg.Auth.ResolveSecret()
	if err != nil {
		return cli.NewConfigError("auth.secret", err.Error())
	}
	engine, err := auth.NewEngine(auth.Config{
		Secret:        secret,
		TokenLifetime: cfg.Auth.TokenLifetime,
		CodeLength:    cfg.Auth.CodeLength,
		CodeExpiry:    cfg.Auth.CodeExpiry,
		BcryptCost:    cfg.Auth.BcryptCost,
		Logger:        logger,
		Collector:     collector,
	})
	if err != nil {
		return cli.NewCommandError("run", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load every site's document store up front. A store that cannot
	// load is a fatal misconfiguration, not something to limp past.
	stores := make(map[string]*store.Store, len(cfg.Sites))
	for name, siteCfg := range cfg.Sites {
		st := store.New(store.Options{
			Name:      name,
			Path:      siteCfg.Store.Path,
			ReadOnly:  siteCfg.Store.ReadOnly,
			SaveDelay: siteCfg.Store.SaveDelay,
			Logger:    logger,
			Collector: collector,
		})
		if err := st.Load(ctx); err != nil {
			return cli.NewCommandError("run", fmt.Errorf("load store for site %s: %w", name, err))
		}
		stores[name] = st
	}
	defer func() {
		// Close flushes any pending debounced save.
		for _, st := range stores {
			st.Close()
		}
	}()
	fmt.Printf("✓ Document stores loaded (%d sites)\n", len(stores))

	var reloader *janustls.Reloader
	if cfg.Proxy.TLS.Enabled {
		reloader = janustls.NewReloader(cfg.Proxy.TLS.CertFile, cfg.Proxy.TLS.KeyFile, logger, collector)
		if err := reloader.Load(); err != nil {
			return cli.NewCommandError("run", fmt.Errorf("load TLS certificate: %w", err))
		}
		if cfg.Proxy.TLS.WatchFiles {
			if err := reloader.Watch(ctx); err != nil {
				logger.Warn("certificate watcher unavailable", "error", err)
			}
		}
		fmt.Println("✓ TLS certificate loaded")
	}

	var auditor site.Auditor
	if cfg.Audit.Enabled {
		recorder, err := audit.NewRecorder(cfg.Audit, logger)
		if err != nil {
			return cli.NewCommandError("run", fmt.Errorf("open audit trail: %w", err))
		}
		defer recorder.Close()
		auditor = recorder

		scheduler := audit.NewScheduler(recorder, cfg.Audit, logger)
		if err := scheduler.Start(ctx); err != nil {
			return cli.NewConfigError("audit.prune_schedule", err.Error())
		}
		fmt.Println("✓ Audit trail initialized")
	}

	deps := site.Deps{
		Stores:      stores,
		TLSReloader: reloader,
		Logger:      logger,
		Collector:   collector,
		Audit:       auditor,
		Version:     Version,
	}

	var wg sync.WaitGroup
	errChan := make(chan error, len(cfg.Sites)+1)

	for name, siteCfg := range cfg.Sites {
		s, err := site.New(name, siteCfg, stores[name], engine, deps)
		if err != nil {
			return cli.NewCommandError("run", err)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.Run(ctx); err != nil {
				errChan <- err
			}
		}()
	}

	pxy, err := proxy.New(cfg.Proxy, cfg.Sites, logger, collector, reloader)
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := pxy.Run(ctx); err != nil {
			errChan <- err
		}
	}()

	fmt.Println()
	fmt.Printf("✓ Proxy listening on %s\n", cfg.Proxy.ListenAddress)
	if cfg.Proxy.TLS.Enabled {
		fmt.Printf("✓ Secure proxy listening on %s\n", cfg.Proxy.SecureListenAddress)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	sigChan := cli.WaitForShutdown()

	select {
	case err := <-errChan:
		return cli.NewCommandError("run", err)
	case sig := <-sigChan:
		fmt.Printf("\nReceived signal %s, shutting down gracefully...\n", sig)
		cancel()

		if err := waitWithTimeout(&wg, cfg.Proxy.ShutdownTimeout); err != nil {
			logger.Error("shutdown incomplete", "error", err)
			return cli.NewCommandError("run", err)
		}

		fmt.Println("✓ Server stopped")
		return nil
	}
}

// waitWithTimeout waits for the listener goroutines to drain their
// in-flight requests, bounded by the configured shutdown timeout.
func waitWithTimeout(wg *sync.WaitGroup, timeout time.Duration) error {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("listeners did not stop within %s", timeout)
	}
}

func printBanner(cfg *config.Config) {
	fmt.Printf("Janus v%s\n", Version)
	fmt.Printf("Loading configuration from: %s\n", cfgFile)
	fmt.Println("✓ Configuration loaded")
	fmt.Printf("✓ Sites configured: %d\n", len(cfg.Sites))
}
