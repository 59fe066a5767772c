// veridocd is the veridoc analysis daemon: an HTTP API plus optional
// intake directory watching.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"veridoc/internal/config"
	"veridoc/internal/engine"
	"veridoc/internal/health"
	"veridoc/internal/logging"
	"veridoc/internal/report"
	"veridoc/internal/risk"
	"veridoc/internal/rules"
	"veridoc/internal/server"
	"veridoc/internal/service"
	"veridoc/internal/store"
	"veridoc/internal/watcher"
)

var version = "dev"

var (
	configPath  = flag.String("config", "", "path to config file")
	addrFlag    = flag.String("addr", "", "listen address override")
	watchFlag   = flag.Bool("watch", false, "enable intake watching regardless of config")
	versionFlag = flag.Bool("version", false, "print version and exit")
)

func main() {
	flag.Parse()

	if *versionFlag {
		fmt.Printf("veridocd %s\n", version)
		return
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "veridocd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	path := *configPath
	if path == "" {
		path = config.ConfigPath()
	}
	cfg, created, err := config.LoadOrCreate(path)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if *addrFlag != "" {
		cfg.Server.Addr = *addrFlag
	}
	if *watchFlag {
		cfg.Watch.Enabled = true
	}

	log, err := buildLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}
	logging.SetDefault(log)
	defer log.Close()

	if created {
		log.Info("wrote default config", "path", path)
	}
	log.Info("starting", "version", version, "addr", cfg.Server.Addr)

	eng := engine.New(engine.Options{
		Tolerance: cfg.Analysis.Tolerance(),
		Params: rules.Params{
			HighMismatchDelta: cfg.Analysis.HighMismatchDelta(),
			StrippedRatio:     cfg.Analysis.StrippedRatio,
			GenericTokens:     cfg.Analysis.GenericTokens,
			ExpectedFields:    rules.ExpectedFieldsFromTags(cfg.Analysis.ExpectedFields),
		},
		Thresholds: risk.Thresholds{
			CautionMin:    cfg.Analysis.CautionMin,
			SuspiciousMin: cfg.Analysis.SuspiciousMin,
		},
		MaxConcurrency: cfg.Analysis.MaxBatchConcurrency,
	})

	st, err := openStore(cfg.Storage)
	if err != nil {
		return err
	}
	defer st.Close()

	cacheSize := 0
	if cfg.Cache.Enabled {
		cacheSize = cfg.Cache.Size
	}

	svc, err := service.New(service.Options{
		Engine:         eng,
		Store:          st,
		Metrics:        service.NewMetrics(prometheus.DefaultRegisterer),
		Log:            log.WithComponent("service"),
		CacheSize:      cacheSize,
		MaxConcurrency: cfg.Analysis.MaxBatchConcurrency,
		UploadDir:      cfg.Server.UploadDir,
	})
	if err != nil {
		return err
	}

	checker := health.NewChecker()
	checker.RegisterFunc("store", true, health.StoreCheck(func(ctx context.Context) error {
		_, err := st.Count(ctx)
		return err
	}))

	if cfg.Watch.Enabled {
		stop, err := startIntake(cfg.Watch, svc, log.WithComponent("watcher"))
		if err != nil {
			return fmt.Errorf("start intake watcher: %w", err)
		}
		defer stop()
	}

	checker.SetReady(true)

	srv := server.New(cfg.Server, svc, checker, log.WithComponent("http"))
	return srv.Run()
}

func buildLogger(cfg config.LoggingConfig) (*logging.Logger, error) {
	level, err := logging.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	format, err := logging.ParseFormat(cfg.Format)
	if err != nil {
		return nil, err
	}
	return logging.New(&logging.Config{
		Level:     level,
		Format:    format,
		Output:    cfg.Output,
		FilePath:  cfg.FilePath,
		Component: "veridocd",
	})
}

func openStore(cfg config.StorageConfig) (store.Store, error) {
	if cfg.Type == "memory" {
		return store.NewMemory(), nil
	}
	st, err := store.Open(cfg.Path, store.Options{
		MaxConnections: cfg.MaxConnections,
		BusyTimeoutMs:  cfg.BusyTimeoutMs,
	})
	if err != nil {
		return nil, fmt.Errorf("open report store: %w", err)
	}
	return st, nil
}

// startIntake runs the directory watcher and feeds stable documents
// into the analysis service.
func startIntake(cfg config.WatchConfig, svc *service.Service, log *logging.Logger) (func(), error) {
	w, err := watcher.New(watcher.Options{
		Paths:           cfg.Paths,
		IncludePatterns: cfg.IncludePatterns,
		ExcludePatterns: cfg.ExcludePatterns,
		Debounce:        cfg.Debounce(),
		MaxFileSize:     cfg.MaxFileSize,
	})
	if err != nil {
		return nil, err
	}
	if err := w.Start(); err != nil {
		return nil, err
	}
	log.Info("intake watching started", "paths", cfg.Paths)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case ev, ok := <-w.Events():
				if !ok {
					return
				}
				out, err := svc.AnalyzeFile(context.Background(), ev.Path)
				if err != nil {
					log.Error("intake analysis failed", "path", ev.Path, "error", err)
					continue
				}
				log.Info("intake analyzed", "path", ev.Path, "summary", report.Summary(&out.Result))
			case err, ok := <-w.Errors():
				if !ok {
					return
				}
				log.Error("watcher error", "error", err)
			}
		}
	}()

	return func() {
		_ = w.Stop()
		<-done
	}, nil
}
