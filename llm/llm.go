// Package llm defines the backend interface used by the input normalizer
// to map free-text player input onto the command grammar.
//
// A backend is an external collaborator: it may be slow, unreachable or
// wrong. Callers must treat every failure mode — error, timeout, malformed
// output, low confidence — identically and fall back to deterministic
// parsing. Backend errors are never session-fatal.
package llm

import "context"

// Confidence levels returned by a backend, matching the prompt contract.
const (
	ConfidenceUnsure = 0 // mapping is a guess, discard
	ConfidenceLikely = 1 // plausible, surface as a suggestion
	ConfidenceSure   = 2 // use the mapping directly
)

// Context is the world snapshot supplied to the backend before each
// interpretation.
type Context struct {
	RoomDescription string
	Inventory       []string          // display names of carried items
	ItemStates      map[string]string // item name → state
	NPCStates       map[string]string // npc name → state
	Language        string
	AllowedVerbs    []string
	KnownNouns      []string
	RecentCommands  []string
	Guidance        string // locale-specific prompt hints
}

// Result is a backend's guess at the player's intent.
type Result struct {
	Confidence int
	Verb       string
	Object     string
	Object2    string
}

// Backend interprets raw player input against the current world context.
// Implementations must honor ctx cancellation and deadlines.
type Backend interface {
	SetContext(c Context)
	Interpret(ctx context.Context, raw string) (Result, error)
}

// NoOp is the deterministic stub backend: it never produces a mapping, so
// the normalizer always falls back to fixed-grammar parsing.
type NoOp struct{}

func (NoOp) SetContext(Context) {}

func (NoOp) Interpret(context.Context, string) (Result, error) {
	return Result{Confidence: ConfidenceUnsure}, nil
}
