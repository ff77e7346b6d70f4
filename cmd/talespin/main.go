// TaleSpin is a data-driven, multilingual engine for text adventures.
// Usage: talespin [--version] [--plain] [--script <file>] [--trace]
// [--resume] [--language <code>] [--llm] [--model <m>] [--base-url <u>]
// [--llm-timeout <seconds>] <game_directory>
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/nathoo/talespin/cli"
	"github.com/nathoo/talespin/debug"
	"github.com/nathoo/talespin/engine"
	"github.com/nathoo/talespin/engine/norm"
	"github.com/nathoo/talespin/engine/parser"
	"github.com/nathoo/talespin/engine/save"
	"github.com/nathoo/talespin/engine/state"
	"github.com/nathoo/talespin/llm"
	"github.com/nathoo/talespin/loader"
	"github.com/nathoo/talespin/tui"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	plain := false
	trace := false
	resume := false
	useLLM := false
	language := "en"
	model := os.Getenv("TALESPIN_MODEL")
	baseURL := os.Getenv("TALESPIN_BASE_URL")
	llmTimeout := 30 * time.Second
	var gameDir string
	var scriptFile string

	nextArg := func(args []string, i *int, flag string) string {
		if *i+1 >= len(args) {
			fmt.Fprintf(os.Stderr, "%s requires a value\n", flag)
			os.Exit(1)
		}
		*i++
		return args[*i]
	}

	args := os.Args[1:]
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--version":
			fmt.Printf("talespin %s (commit %s, built %s)\n", version, commit, date)
			return
		case "--plain":
			plain = true
		case "--trace":
			trace = true
		case "--resume":
			resume = true
		case "--llm":
			useLLM = true
		case "--language":
			language = nextArg(args, &i, "--language")
		case "--model":
			model = nextArg(args, &i, "--model")
		case "--base-url":
			baseURL = nextArg(args, &i, "--base-url")
		case "--llm-timeout":
			secs, err := strconv.Atoi(nextArg(args, &i, "--llm-timeout"))
			if err != nil || secs <= 0 {
				fmt.Fprintf(os.Stderr, "--llm-timeout requires a positive number of seconds\n")
				os.Exit(1)
			}
			llmTimeout = time.Duration(secs) * time.Second
		case "--script":
			scriptFile = nextArg(args, &i, "--script")
		default:
			if gameDir == "" {
				gameDir = args[i]
			}
		}
	}

	if gameDir == "" {
		fmt.Fprintf(os.Stderr, "Usage: talespin [--version] [--plain] [--script <file>] [--trace] [--resume] [--language <code>] [--llm] [--model <m>] [--base-url <u>] [--llm-timeout <s>] <game_directory>\n")
		os.Exit(1)
	}

	log := debug.New(trace, os.Stderr)

	defs, err := loader.Load(gameDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading game: %v\n", err)
		os.Exit(1)
	}

	loc, warnings, err := loader.LoadLocale(gameDir, language, defs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading locale %q: %v\n", language, err)
		os.Exit(1)
	}
	for _, w := range warnings {
		log.Warn(w)
	}

	var backend llm.Backend
	if useLLM {
		if model == "" {
			fmt.Fprintf(os.Stderr, "--llm requires --model (or TALESPIN_MODEL)\n")
			os.Exit(1)
		}
		client, err := llm.NewClient(model,
			llm.WithBaseURL(baseURL),
			llm.WithAPIKey(os.Getenv("TALESPIN_API_KEY")),
			llm.WithTimeout(llmTimeout),
			llm.WithLogger(log),
		)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error configuring language backend: %v\n", err)
			os.Exit(1)
		}
		backend = client
	}

	eng := engine.New(defs, loc, norm.New(parser.New(loc), backend, log), log)

	if resume {
		sd, err := readAutosave()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error resuming: %v\n", err)
			os.Exit(1)
		}
		s := state.NewState(defs)
		save.ApplySave(s, sd)
		eng.Restore(s)
		if sd.Language != "" && sd.Language != language {
			loc, warnings, err = loader.LoadLocale(gameDir, sd.Language, defs)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error loading locale %q: %v\n", sd.Language, err)
				os.Exit(1)
			}
			for _, w := range warnings {
				log.Warn(w)
			}
			language = sd.Language
			eng.SetLocale(loc, norm.New(parser.New(loc), backend, log))
		}
	}

	ctx := context.Background()

	// Script mode: open file, force plain, echo commands.
	if scriptFile != "" {
		f, err := os.Open(scriptFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening script: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		fmt.Printf("%s v%s by %s\n\n", defs.Game.Title, defs.Game.Version, defs.Game.Author)
		c := cli.New(eng, defs, gameDir, language)
		c.In = f
		c.EchoInput = true
		c.Trace = trace
		c.Backend = backend
		c.Log = log
		c.Run(ctx)
		return
	}

	// Use plain CLI if --plain flag or stdout is not a terminal.
	if plain || !isTerminal() {
		fmt.Printf("%s v%s by %s\n\n", defs.Game.Title, defs.Game.Version, defs.Game.Author)
		c := cli.New(eng, defs, gameDir, language)
		c.Trace = trace
		c.Backend = backend
		c.Log = log
		c.Run(ctx)
		return
	}

	if err := tui.Run(eng, defs, gameDir, language, backend, log); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// readAutosave loads the autosave written on the last quit.
func readAutosave() (*save.SaveData, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(home, ".talespin", "saves", "autosave.json"))
	if err != nil {
		return nil, err
	}
	return save.Load(data)
}

// isTerminal returns true if stdout is a terminal (not piped/redirected).
func isTerminal() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
