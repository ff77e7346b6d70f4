// Package norm turns raw player text into an Intent. It always has the
// deterministic locale parser available; when an LLM backend is attached it
// consults it first and falls back to the parser on any failure.
package norm

import (
	"context"
	"strings"

	"github.com/nathoo/talespin/debug"
	"github.com/nathoo/talespin/engine/parser"
	"github.com/nathoo/talespin/llm"
	"github.com/nathoo/talespin/types"
)

// Source identifies which path produced an Intent.
type Source int

const (
	SourceParser Source = iota
	SourceLLM
)

// Outcome is the result of normalizing one line of input.
type Outcome struct {
	Intent types.Intent
	Source Source
	// Suggested is set when the backend was only fairly sure. The front end
	// should confirm the Intent with the player instead of executing it.
	Suggested bool
}

// Normalizer maps raw input to intents. The zero value is unusable; use New.
type Normalizer struct {
	parser  *parser.Parser
	backend llm.Backend
	log     *debug.Logger
}

// New builds a Normalizer around a locale parser. backend may be nil, in
// which case only fixed-grammar parsing is used.
func New(p *parser.Parser, backend llm.Backend, log *debug.Logger) *Normalizer {
	if log == nil {
		log = debug.Nop()
	}
	return &Normalizer{parser: p, backend: backend, log: log}
}

// SetContext forwards world context to the backend before the next call.
// No-op without a backend.
func (n *Normalizer) SetContext(c llm.Context) {
	if n.backend != nil {
		n.backend.SetContext(c)
	}
}

// Normalize maps raw input to an Outcome. The backend path is bounded by the
// deadline on ctx (the backend adds its own if none is set); every backend
// failure degrades silently to the parser.
func (n *Normalizer) Normalize(ctx context.Context, raw string) Outcome {
	raw = strings.TrimSpace(raw)
	if n.backend == nil {
		return Outcome{Intent: n.parser.Parse(raw), Source: SourceParser}
	}

	res, err := n.backend.Interpret(ctx, raw)
	if err != nil {
		n.log.Warn("llm interpret failed, falling back to parser", "err", err)
		return Outcome{Intent: n.parser.Parse(raw), Source: SourceParser}
	}

	switch res.Confidence {
	case llm.ConfidenceSure:
		return Outcome{Intent: intentOf(res), Source: SourceLLM}
	case llm.ConfidenceLikely:
		return Outcome{Intent: intentOf(res), Source: SourceLLM, Suggested: true}
	default:
		n.log.Debug("llm unsure, falling back to parser", "input", raw)
		return Outcome{Intent: n.parser.Parse(raw), Source: SourceParser}
	}
}

func intentOf(res llm.Result) types.Intent {
	return types.Intent{
		Verb:    strings.ToLower(strings.TrimSpace(res.Verb)),
		Object:  strings.ToLower(strings.TrimSpace(res.Object)),
		Object2: strings.ToLower(strings.TrimSpace(res.Object2)),
	}
}
