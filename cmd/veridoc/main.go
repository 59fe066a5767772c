// veridoc is the command line interface for document metadata analysis.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"veridoc/internal/config"
	"veridoc/internal/engine"
	"veridoc/internal/logging"
	"veridoc/internal/report"
	"veridoc/internal/risk"
	"veridoc/internal/rules"
	"veridoc/internal/service"
	"veridoc/internal/store"
)

var version = "dev"

var (
	configPath   = flag.String("config", "", "path to config file")
	formatFlag   = flag.String("format", "text", "report format: text, json, markdown")
	verboseFlag  = flag.Bool("verbose", false, "verbose report output")
	levelFlag    = flag.String("level", "", "filter reports by risk level")
	inMemoryFlag = flag.Bool("no-store", false, "do not persist reports")
)

func main() {
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
		os.Exit(1)
	}

	switch cmd := flag.Arg(0); cmd {
	case "analyze":
		if flag.NArg() < 2 {
			fmt.Fprintln(os.Stderr, "Usage: veridoc analyze <file> [file...]")
			os.Exit(1)
		}
		cmdAnalyze(flag.Args()[1:])
	case "reports":
		cmdReports()
	case "report":
		if flag.NArg() < 2 {
			fmt.Fprintln(os.Stderr, "Usage: veridoc report <id>")
			os.Exit(1)
		}
		cmdReport(flag.Arg(1))
	case "config":
		cmdConfig()
	case "version":
		fmt.Printf("veridoc %s\n", version)
	case "help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `veridoc - forensic document metadata analysis

Usage: veridoc [options] <command> [args]

Commands:
  analyze <file>...  Analyze one or more documents (PDF, DOCX, XLSX, PPTX)
  reports            List stored analysis reports
  report <id>        Print one stored report
  config             Print the effective configuration
  version            Print the version
  help               Show this help message

Options:
  -config <path>     Path to config file
  -format <fmt>      Report format: text, json, markdown (default: text)
  -verbose           Verbose report output
  -level <level>     Filter report listing by risk level
  -no-store          Do not persist reports`)
}

func loadConfig() *config.Config {
	loader := config.NewLoader(configLocation())
	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

func configLocation() string {
	if *configPath != "" {
		return *configPath
	}
	return config.ConfigPath()
}

// buildService wires the engine, store and service from configuration.
func buildService(cfg *config.Config) (*service.Service, func()) {
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

	var (
		st  store.Store
		err error
	)
	if *inMemoryFlag || cfg.Storage.Type == "memory" {
		st = store.NewMemory()
	} else {
		st, err = store.Open(cfg.Storage.Path, store.Options{
			MaxConnections: cfg.Storage.MaxConnections,
			BusyTimeoutMs:  cfg.Storage.BusyTimeoutMs,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening report store: %v\n", err)
			os.Exit(1)
		}
	}

	svc, err := service.New(service.Options{
		Engine:         eng,
		Store:          st,
		Log:            logging.Default().WithComponent("cli"),
		MaxConcurrency: cfg.Analysis.MaxBatchConcurrency,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	return svc, func() { _ = st.Close() }
}

func cmdAnalyze(paths []string) {
	format, err := report.ParseFormat(*formatFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	cfg := loadConfig()
	svc, cleanup := buildService(cfg)
	defer cleanup()

	ctx := context.Background()
	gen := report.NewGenerator(format).WithVerbose(*verboseFlag)

	suspicious := false
	if len(paths) == 1 {
		out, err := svc.AnalyzeFile(ctx, paths[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if err := gen.Generate(&out.Result, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		suspicious = report.Suspicious(&out.Result)
	} else {
		batch, err := svc.AnalyzeBatch(ctx, paths)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		for i := range batch.Results {
			res := &batch.Results[i].Result
			if format == report.FormatText {
				fmt.Println(report.Summary(res))
			} else if err := gen.Generate(res, os.Stdout); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			if report.Suspicious(res) {
				suspicious = true
			}
		}
		if format == report.FormatText {
			fmt.Printf("\n%d analyzed, %d succeeded, %d failed\n",
				batch.Total, batch.Succeeded, batch.Failed)
		}
	}

	// Nonzero exit when anything needs review, for scripting.
	if suspicious {
		os.Exit(2)
	}
}

func cmdReports() {
	cfg := loadConfig()
	svc, cleanup := buildService(cfg)
	defer cleanup()

	reports, err := svc.Reports(context.Background(), store.ListOptions{Level: *levelFlag})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if len(reports) == 0 {
		fmt.Println("No stored reports.")
		return
	}
	for _, r := range reports {
		level := r.RiskLevel
		if r.Failed {
			level = "FAILED"
		}
		fmt.Printf("%s  %-10s score=%-3d flags=%-2d %s  %s\n",
			r.CreatedAt.Format("2006-01-02 15:04:05"), level,
			r.RiskScore, r.FlagCount, r.ID, r.Filename)
	}
}

func cmdReport(id string) {
	cfg := loadConfig()
	svc, cleanup := buildService(cfg)
	defer cleanup()

	rep, err := svc.Report(context.Background(), id)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	var out json.RawMessage = rep.Result
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func cmdConfig() {
	cfg := loadConfig()
	if err := toml.NewEncoder(os.Stdout).Encode(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding config: %v\n", err)
		os.Exit(1)
	}
}
