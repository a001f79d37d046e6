// EscapeCore is the game-state orchestration engine for a timed
// escape-room visual novel, with terminal dev hosts standing in for
// the browser presentation layer.
// Usage: escapecore [--version] [--plain] [--new] [--scene <id>] [--script <file>] <story_directory>
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/kotonoha/escapecore/assets"
	"github.com/kotonoha/escapecore/cli"
	"github.com/kotonoha/escapecore/config"
	"github.com/kotonoha/escapecore/engine"
	"github.com/kotonoha/escapecore/engine/events"
	"github.com/kotonoha/escapecore/loader"
	"github.com/kotonoha/escapecore/logger"
	"github.com/kotonoha/escapecore/save"
	"github.com/kotonoha/escapecore/tui"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	plain := false
	fresh := false
	var storyDir, sceneID, scriptFile string

	args := os.Args[1:]
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--version":
			fmt.Printf("escapecore %s (commit %s, built %s)\n", version, commit, date)
			return
		case "--plain":
			plain = true
		case "--new":
			fresh = true
		case "--scene":
			if i+1 >= len(args) {
				fmt.Fprintf(os.Stderr, "--scene requires a scene id\n")
				os.Exit(1)
			}
			i++
			sceneID = args[i]
		case "--script":
			if i+1 >= len(args) {
				fmt.Fprintf(os.Stderr, "--script requires a file path\n")
				os.Exit(1)
			}
			i++
			scriptFile = args[i]
		default:
			if storyDir == "" {
				storyDir = args[i]
			}
		}
	}

	if storyDir == "" {
		fmt.Fprintf(os.Stderr, "Usage: escapecore [--version] [--plain] [--new] [--scene <id>] [--script <file>] <story_directory>\n")
		os.Exit(1)
	}

	// .env is optional; real environments set variables directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:      cfg.LogLevel,
		Encoding:   cfg.LogEncoding,
		OutputPath: cfg.LogPath,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	// Load and compile Lua story content.
	lib, err := loader.Load(storyDir, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading story: %v\n", err)
		os.Exit(1)
	}

	gw, err := openGateway(cfg, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening save store: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = gw.Close() }()

	resolver := assets.NewResolver(cfg.AssetRoot, log)
	// Each host installs its own dispatch before its loop starts, so
	// completions run on the loop rather than the request goroutine.
	manager := assets.NewManager(resolver, nil, log)

	bus := events.NewBus()
	sess := engine.New(lib, bus, gw, manager, log)

	if sceneID == "" {
		ids := lib.SceneIDs()
		if len(ids) == 0 {
			fmt.Fprintf(os.Stderr, "Story has no scenes\n")
			os.Exit(1)
		}
		sceneID = ids[0]
	}

	started := false
	if !fresh {
		resumed, err := sess.ResumeSaved()
		if err != nil {
			log.Warn("resume failed, starting fresh", zap.Error(err))
		}
		started = resumed
	}
	if !started {
		if err := sess.Start(sceneID); err != nil {
			fmt.Fprintf(os.Stderr, "Error starting scene %s: %v\n", sceneID, err)
			os.Exit(1)
		}
	}

	// Script mode: open file, force plain, echo commands.
	if scriptFile != "" {
		f, err := os.Open(scriptFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening script: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		c := cli.New(sess, lib, bus)
		c.In = f
		c.EchoInput = true
		manager.SetDispatch(c.Dispatch)
		c.Run()
		return
	}

	// Use plain CLI if --plain flag or stdout is not a terminal.
	if plain || !isTerminal() {
		c := cli.New(sess, lib, bus)
		manager.SetDispatch(c.Dispatch)
		c.Run()
		return
	}

	if err := tui.Run(sess, lib, bus, manager); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// openGateway builds the configured persistence backend.
func openGateway(cfg *config.Config, log *zap.Logger) (save.Gateway, error) {
	path := cfg.SavePath
	if path == "" {
		home, _ := os.UserHomeDir()
		if cfg.SaveBackend == "sqlite" {
			path = filepath.Join(home, ".escapecore", "saves.db")
		} else {
			path = filepath.Join(home, ".escapecore", "save.json")
		}
	}
	if cfg.SaveBackend == "sqlite" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
		return save.OpenSQLite(path, cfg.SaveSlot, cfg.StaleAfter, log)
	}
	return save.NewFileGateway(path, cfg.StaleAfter, log), nil
}

// isTerminal returns true if stdout is a terminal (not piped/redirected).
func isTerminal() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
