// Package cli provides terminal I/O, output formatting, and meta-command
// dispatch for the TaleSpin engine.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/nathoo/talespin/debug"
	"github.com/nathoo/talespin/engine"
	"github.com/nathoo/talespin/engine/norm"
	"github.com/nathoo/talespin/engine/parser"
	"github.com/nathoo/talespin/engine/save"
	"github.com/nathoo/talespin/engine/state"
	"github.com/nathoo/talespin/llm"
	"github.com/nathoo/talespin/loader"
	"github.com/nathoo/talespin/types"
)

// CLI handles terminal interaction with the player.
type CLI struct {
	Engine    *engine.Engine
	Defs      *state.Defs
	GameDir   string
	Language  string
	Backend   llm.Backend
	In        io.Reader
	Out       io.Writer
	SaveDir   string
	Trace     bool
	EchoInput bool // echo each input line after the prompt (for script playback)
	Log       *debug.Logger

	lastCmd string // for "again"/"g" repeat
}

// New creates a CLI wired to the given engine.
func New(eng *engine.Engine, defs *state.Defs, gameDir, language string) *CLI {
	home, _ := os.UserHomeDir()
	return &CLI{
		Engine:   eng,
		Defs:     defs,
		GameDir:  gameDir,
		Language: language,
		In:       os.Stdin,
		Out:      os.Stdout,
		SaveDir:  filepath.Join(home, ".talespin", "saves"),
		Log:      debug.Nop(),
	}
}

// Run starts the game loop: intro, then prompt → input → dispatch → output.
// Quitting autosaves so the next start can resume.
func (c *CLI) Run(ctx context.Context) {
	for _, line := range c.Engine.Intro() {
		c.printLine(line)
	}

	scanner := bufio.NewScanner(c.In)
	for {
		c.print("> ")
		if !scanner.Scan() {
			c.autosave()
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		// Skip comment lines (for script files).
		if strings.HasPrefix(input, "#") {
			continue
		}
		if c.EchoInput {
			c.printLine(input)
		}

		if strings.HasPrefix(input, "/") {
			if c.handleMeta(ctx, input) {
				return // /quit
			}
			continue
		}

		lower := strings.ToLower(input)
		if lower == "again" || lower == "g" {
			if c.lastCmd == "" {
				c.printLine("Nothing to repeat.")
				continue
			}
			input = c.lastCmd
		} else {
			c.lastCmd = input
		}

		result, err := c.Engine.Execute(ctx, input)
		if errors.Is(err, engine.ErrSessionEnded) {
			c.printSystem("The story has ended. Use /load to restore a save or /quit to exit.")
			continue
		}
		c.printResult(result.Output)
		if c.Trace {
			c.printTrace(result.Effects)
		}
		if result.Ending != "" {
			c.printSystem(fmt.Sprintf("The End — %s (turn %d).", result.Ending, c.Engine.State.TurnCount))
		}
	}
}

// handleMeta dispatches meta-commands. Returns true if the game should exit.
func (c *CLI) handleMeta(ctx context.Context, input string) bool {
	parts := strings.Fields(input)
	cmd := parts[0]
	var arg string
	if len(parts) > 1 {
		arg = parts[1]
	}

	switch cmd {
	case "/quit", "/exit":
		c.autosave()
		c.printSystem("Goodbye.")
		return true

	case "/save":
		c.cmdSave(arg)

	case "/load":
		c.cmdLoad(ctx, arg)

	case "/lang":
		c.cmdLang(arg)

	case "/log":
		c.cmdLog(arg)

	case "/help":
		c.cmdHelp()

	case "/state":
		c.cmdState()

	case "/trace":
		c.Trace = !c.Trace
		if c.Trace {
			c.printSystem("Trace output enabled.")
		} else {
			c.printSystem("Trace output disabled.")
		}

	default:
		c.printSystem(fmt.Sprintf("Unknown command: %s. Type /help for available commands.", cmd))
	}

	return false
}

func (c *CLI) cmdSave(name string) {
	if name == "" {
		name = "quicksave"
	}
	if err := c.writeSave(name); err != nil {
		c.printSystem(fmt.Sprintf("Save failed: %v", err))
		return
	}
	c.printSystem(fmt.Sprintf("Game saved to %s.", name))
}

func (c *CLI) cmdLoad(ctx context.Context, name string) {
	if name == "" {
		name = "quicksave"
	}

	path := filepath.Join(c.SaveDir, name+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		c.printSystem(fmt.Sprintf("Load failed: %v", err))
		return
	}
	sd, err := save.Load(data)
	if err != nil {
		c.printSystem(fmt.Sprintf("Load failed: %v", err))
		return
	}

	s := state.NewState(c.Defs)
	save.ApplySave(s, sd)
	c.Engine.Restore(s)
	if sd.Language != "" && sd.Language != c.Language {
		c.cmdLang(sd.Language)
	}
	c.printSystem(fmt.Sprintf("Game loaded from %s (turn %d).", name, sd.Turn))

	result, err := c.Engine.Execute(ctx, "look")
	if err == nil {
		c.printResult(result.Output)
	}
}

// cmdLang reloads the locale catalog for another language. World state is
// preserved; only display data and the parser change.
func (c *CLI) cmdLang(lang string) {
	if lang == "" {
		langs, err := loader.Languages(c.GameDir)
		if err != nil {
			c.printSystem(fmt.Sprintf("No locales found: %v", err))
			return
		}
		c.printSystem(fmt.Sprintf("Current language: %s. Available: %s.", c.Language, strings.Join(langs, ", ")))
		return
	}

	loc, warnings, err := loader.LoadLocale(c.GameDir, lang, c.Defs)
	if err != nil {
		c.printSystem(fmt.Sprintf("Language switch failed: %v", err))
		return
	}
	for _, w := range warnings {
		c.Log.Warn(w)
	}
	c.Engine.SetLocale(loc, norm.New(parser.New(loc), c.Backend, c.Log))
	c.Language = lang
	c.printSystem(fmt.Sprintf("Language switched to %s.", lang))
}

// cmdLog mirrors debug output into a file for the rest of the session.
func (c *CLI) cmdLog(path string) {
	if path == "" {
		c.printSystem("Usage: /log <file>")
		return
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		c.printSystem(fmt.Sprintf("Log failed: %v", err))
		return
	}
	c.Log.Redirect(f)
	c.printSystem(fmt.Sprintf("Debug log writing to %s.", path))
}

func (c *CLI) cmdHelp() {
	help := []string{
		"System:",
		"  /save [name]  — Save game (default: quicksave)",
		"  /load [name]  — Load game (default: quicksave)",
		"  /lang [code]  — Show or switch the language",
		"  /log <file>   — Mirror debug output to a file",
		"  /quit         — Exit game (autosaves)",
		"  /help         — Show this help",
		"  /state        — Debug: dump current state",
		"  /trace        — Toggle debug trace output",
		"",
		"Game commands:",
		"  look (l)               — Describe the room",
		"  examine <thing> (x)    — Look closely at something",
		"  go <dir>               — Move through an exit",
		"  take/get <item>        — Pick something up",
		"  drop <item>            — Put something down",
		"  use <item> with <thing>",
		"  show <item> <npc>      — Show an item to someone",
		"  talk <npc>             — Talk to someone",
		"  inventory (i)          — Check what you're carrying",
		"  help                   — List the verbs this story knows",
		"  again (g)              — Repeat your last command",
	}
	for _, line := range help {
		c.printLine(line)
	}
}

func (c *CLI) cmdState() {
	s := c.Engine.State
	c.printSystem(fmt.Sprintf("Turn: %d", s.TurnCount))
	c.printSystem(fmt.Sprintf("Location: %s", s.Location))
	c.printSystem(fmt.Sprintf("Inventory: %v", s.Inventory))
	if len(s.Flags) > 0 {
		c.printSystem(fmt.Sprintf("Flags: %v", s.Flags))
	}
	if c.Engine.Status() == engine.StatusEnded {
		c.printSystem(fmt.Sprintf("Ended: %s", c.Engine.Ending()))
	}
}

func (c *CLI) autosave() {
	if err := c.writeSave("autosave"); err != nil {
		c.Log.Warn("autosave failed", "err", err)
	}
}

func (c *CLI) writeSave(name string) error {
	data, err := save.Save(c.Engine.State, c.Defs, c.Language)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(c.SaveDir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(c.SaveDir, name+".json"), data, 0o644)
}

func (c *CLI) printTrace(effects []types.Effect) {
	if len(effects) == 0 {
		return
	}
	c.printSystem(fmt.Sprintf("[trace] Effects: %d", len(effects)))
	for _, e := range effects {
		c.printSystem(fmt.Sprintf("[trace]   %s %v", e.Type, e.Params))
	}
}

func (c *CLI) printResult(output []string) {
	for _, line := range output {
		c.printLine(line)
	}
}

func (c *CLI) printLine(text string) {
	fmt.Fprintln(c.Out, text)
}

func (c *CLI) print(text string) {
	fmt.Fprint(c.Out, text)
}

func (c *CLI) printSystem(text string) {
	fmt.Fprintf(c.Out, "[%s]\n", text)
}
