// Copyright (c) 2025 Verdora SAS
// SPDX-License-Identifier: AGPL-3.0-or-later

// verdora is the terminal client for the Verdora garden assistant. On an
// interactive terminal it runs the full-screen interface; piped or with
// --plain it falls back to a scrolling REPL.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verdora/verdora-tui/internal/assistant"
	"github.com/verdora/verdora-tui/internal/cli"
	"github.com/verdora/verdora-tui/internal/config"
	"github.com/verdora/verdora-tui/internal/storage"
	"github.com/verdora/verdora-tui/internal/ui/chat"
	"github.com/verdora/verdora-tui/internal/ui/styles"
	"github.com/verdora/verdora-tui/internal/voice"
)

// Build metadata, injected at link time.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func main() {
	var (
		configPath  = flag.String("config", "", "chemin du fichier de configuration")
		endpoint    = flag.String("endpoint", "", "URL de l'assistant (prioritaire sur la configuration)")
		plain       = flag.Bool("plain", false, "mode texte simple sans interface plein écran")
		showVersion = flag.Bool("version", false, "afficher la version")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("verdora %s (%s, %s)\n", Version, GitCommit, BuildDate)
		return
	}

	cfg, path, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration invalide : %v\n", err)
		os.Exit(1)
	}
	if *endpoint != "" {
		cfg.Assistant.BaseURL = *endpoint
	}

	logger, logClose := openLogger()
	defer logClose()

	client := assistant.NewClient(assistant.Options{
		BaseURL: cfg.Assistant.BaseURL,
		Timeout: time.Duration(cfg.Assistant.TimeoutSecs) * time.Second,
		Metadata: map[string]string{
			"page":    cfg.Assistant.Page,
			"version": Version,
		},
		Logger: logger,
	})

	var store *storage.TranscriptStore
	if cfg.Storage.Enabled {
		dbPath, dbErr := cfg.DatabasePath()
		if dbErr == nil {
			store, dbErr = storage.Open(dbPath, cfg.Storage.KeepSessions)
		}
		if dbErr != nil {
			// The assistant works without history; say so and go on.
			fmt.Fprintf(os.Stderr, "Historique indisponible : %v\n", dbErr)
			logger.Printf("transcript store open failed: %v", dbErr)
			store = nil
		} else {
			defer store.Close()
		}
	}

	engine := voice.NewCommandEngine(cfg.Voice.Command, cfg.Voice.Args...)

	if *plain || cfg.UI.Plain || !cli.IsStdoutTTY() {
		runPlain(cfg, client, store, engine, logger)
		return
	}
	runTUI(cfg, path, client, store, engine, logger)
}

// =============================================================================
// MODES
// =============================================================================

func runPlain(cfg *config.Config, client *assistant.Client, store *storage.TranscriptStore, engine voice.Engine, logger *log.Logger) {
	repl := cli.New(cfg, client, store, engine, logger)
	if err := repl.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Erreur : %v\n", err)
		os.Exit(1)
	}
}

func runTUI(cfg *config.Config, cfgPath string, client *assistant.Client, store *storage.TranscriptStore, engine *voice.CommandEngine, logger *log.Logger) {
	theme := styles.NewTheme(cfg.UI.Theme != "light")
	m := chat.New(cfg, client, nil, store, theme, logger)

	// The adapter delivers transcripts through the model's channel; it is
	// built after the model for that reason.
	adapter := voice.NewAdapter(engine, m.OnTranscript, logger)
	m.SetVoice(adapter)

	p := tea.NewProgram(m, tea.WithAltScreen())

	// Contact details and endpoint settings follow edits to the config
	// file without a restart. An unparsable edit is skipped.
	watcher, err := config.NewWatcher(cfgPath, func(next *config.Config) {
		p.Send(chat.ConfigReloadedMsg{Config: next})
	}, logger)
	if err == nil {
		if err := watcher.Watch(); err != nil {
			logger.Printf("config watch failed: %v", err)
		}
		defer watcher.Close()
	}

	final, err := p.Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Erreur : %v\n", err)
		os.Exit(1)
	}

	// Last chance to persist what the session accumulated.
	if store != nil {
		if fm, ok := final.(chat.Model); ok {
			sess := fm.Session()
			if len(sess.Messages) > 0 {
				if err := store.SaveSession(sess); err != nil {
					logger.Printf("final transcript save failed: %v", err)
				}
			}
		}
	}
}

// =============================================================================
// SETUP
// =============================================================================

// loadConfig resolves the effective configuration and the path the watcher
// should follow.
func loadConfig(explicit string) (*config.Config, string, error) {
	if explicit != "" {
		cfg, err := config.LoadFromPath(explicit)
		return cfg, explicit, err
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, "", err
	}
	path, err := config.ConfigPath()
	if err != nil {
		path = ""
	}
	return cfg, path, nil
}

// openLogger writes diagnostics to a file in the config directory. The
// terminal belongs to the interface; stderr logging would tear the screen.
func openLogger() (*log.Logger, func()) {
	dir, err := config.ConfigDir()
	if err != nil {
		return log.New(os.Stderr, "", log.LstdFlags), func() {}
	}
	if err := config.EnsureConfigDir(); err != nil {
		return log.New(os.Stderr, "", log.LstdFlags), func() {}
	}
	f, err := os.OpenFile(filepath.Join(dir, "verdora.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return log.New(os.Stderr, "", log.LstdFlags), func() {}
	}
	return log.New(f, "", log.LstdFlags), func() { f.Close() }
}
