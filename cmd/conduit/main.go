package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"conduit/internal/attach"
	"conduit/internal/config"
	"conduit/internal/knowledge"
	"conduit/internal/orchestrator"
	"conduit/internal/provider"
	"conduit/internal/tools"
	"conduit/internal/ui"
)

func main() {
	godotenv.Load()

	providerFlag := flag.String("provider", "", "provider to use (openai, anthropic, gemini)")
	modelFlag := flag.String("model", "", "model ID, defaults to the provider's configured model")
	checkFlag := flag.Bool("check", false, "verify the selected provider and model respond, then exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Defaults.LogLevel)

	registry := provider.NewRegistry(cfg)
	if registry.Count() == 0 {
		fmt.Fprintf(os.Stderr, "no providers configured; set an API key in %s or the environment\n", config.ConfigPath())
		os.Exit(1)
	}

	providerID := *providerFlag
	if providerID == "" {
		providerID = registry.Enabled()[0]
	}
	p := registry.Get(providerID)
	if p == nil {
		fmt.Fprintf(os.Stderr, "unknown provider %q (configured: %v)\n", providerID, registry.Enabled())
		os.Exit(1)
	}

	model := *modelFlag
	if model == "" {
		model = registry.DefaultModel(providerID)
	}

	if *checkFlag {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		result := provider.Check(ctx, p, model)
		if !result.Valid {
			fmt.Fprintf(os.Stderr, "%s/%s: %s\n", providerID, model, result.Error)
			os.Exit(1)
		}
		fmt.Printf("%s/%s: ok\n", providerID, model)
		return
	}

	orch := orchestrator.New(p, orchestrator.Config{
		Tools:         tools.NewLocalExecutor(tools.NewGuard()),
		Files:         attach.NewFileReader(),
		MaxToolRounds: cfg.Defaults.MaxToolRounds,
		Logger:        logger,
	})

	opts := ui.Options{
		ProviderID: providerID,
		Model:      model,
		ExportDir:  cfg.Defaults.ExportDir,
	}
	if cfg.Defaults.KnowledgeDB != "" {
		store, err := knowledge.Open(cfg.Defaults.KnowledgeDB)
		if err != nil {
			fmt.Fprintf(os.Stderr, "knowledge: %v\n", err)
			os.Exit(1)
		}
		defer store.Close()
		opts.Knowledge = store
	}

	app := ui.New(orch, opts)
	if _, err := tea.NewProgram(app, tea.WithAltScreen()).Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newLogger(level string) zerolog.Logger {
	logLevel, err := zerolog.ParseLevel(level)
	if err != nil {
		logLevel = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(logLevel).
		With().Timestamp().Logger()
}
