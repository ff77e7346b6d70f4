// Package expr implements the boolean condition mini-language used by
// action preconditions, exit conditions and endings.
//
// Grammar:
//
//	expr := term (AND term)*
//	term := "inventory" "has" <item>
//	      | "at" <room>
//	      | "item" <id> "state" <name>
//	      | "flag" <key> ["==" <value>]
//	      | "npc" <id> "at" <room>
//
// Tokenization is case-insensitive on whitespace. Compile rejects anything
// outside the grammar so malformed condition strings are caught at world
// load time; a compiled Expr never fails at evaluation time.
package expr

import (
	"fmt"
	"strings"
)

// World is the read-only view an expression needs. The state package
// implements it; tests can supply a fake.
type World interface {
	HasItem(id string) bool
	AtRoom(id string) bool
	ItemState(id string) string
	Flag(key string) string
	NPCLocation(id string) string
}

// predicate kinds.
const (
	predInventoryHas = "inventory_has"
	predAt           = "at"
	predItemState    = "item_state"
	predFlagSet      = "flag_set"
	predFlagEquals   = "flag_equals"
	predNPCAt        = "npc_at"
)

// pred is a single atomic predicate.
type pred struct {
	kind string
	a, b string
}

// Expr is a compiled conjunction of predicates. The zero value is vacuously
// true, matching an empty condition string.
type Expr struct {
	source string
	preds  []pred
}

// SyntaxError reports a malformed condition string.
type SyntaxError struct {
	Source string
	Reason string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("invalid condition %q: %s", e.Source, e.Reason)
}

// Source returns the original condition string.
func (e Expr) Source() string { return e.source }

// References reports every entity id the expression mentions, keyed by kind
// ("item", "room", "npc"). The loader uses this for cross-reference checks.
func (e Expr) References() map[string][]string {
	refs := map[string][]string{}
	for _, p := range e.preds {
		switch p.kind {
		case predInventoryHas:
			refs["item"] = append(refs["item"], p.a)
		case predAt:
			refs["room"] = append(refs["room"], p.a)
		case predItemState:
			refs["item"] = append(refs["item"], p.a)
		case predNPCAt:
			refs["npc"] = append(refs["npc"], p.a)
			refs["room"] = append(refs["room"], p.b)
		}
	}
	return refs
}

// Compile parses source into an Expr. An empty or blank source compiles to
// the vacuously true expression.
func Compile(source string) (Expr, error) {
	trimmed := strings.TrimSpace(source)
	if trimmed == "" {
		return Expr{source: source}, nil
	}

	e := Expr{source: source}
	for _, clause := range splitAnd(trimmed) {
		p, err := compileTerm(source, clause)
		if err != nil {
			return Expr{}, err
		}
		e.preds = append(e.preds, p)
	}
	return e, nil
}

// MustCompile is a test helper: it panics on syntax errors.
func MustCompile(source string) Expr {
	e, err := Compile(source)
	if err != nil {
		panic(err)
	}
	return e
}

// Eval evaluates the expression against w. It is pure and never fails.
func (e Expr) Eval(w World) bool {
	for _, p := range e.preds {
		if !evalPred(p, w) {
			return false
		}
	}
	return true
}

func evalPred(p pred, w World) bool {
	switch p.kind {
	case predInventoryHas:
		return w.HasItem(p.a)
	case predAt:
		return w.AtRoom(p.a)
	case predItemState:
		return strings.EqualFold(w.ItemState(p.a), p.b)
	case predFlagSet:
		return w.Flag(p.a) != ""
	case predFlagEquals:
		return strings.EqualFold(w.Flag(p.a), p.b)
	case predNPCAt:
		return strings.EqualFold(w.NPCLocation(p.a), p.b)
	default:
		return false
	}
}

// splitAnd splits on the AND keyword (case-insensitive, whole token).
func splitAnd(s string) []string {
	fields := strings.Fields(s)
	var clauses []string
	var current []string
	for _, f := range fields {
		if strings.EqualFold(f, "and") {
			clauses = append(clauses, strings.Join(current, " "))
			current = nil
			continue
		}
		current = append(current, f)
	}
	clauses = append(clauses, strings.Join(current, " "))
	return clauses
}

func compileTerm(source, clause string) (pred, error) {
	toks := strings.Fields(strings.ToLower(clause))
	fail := func(reason string) (pred, error) {
		return pred{}, &SyntaxError{Source: source, Reason: reason}
	}
	if len(toks) == 0 {
		return fail("empty term")
	}

	switch toks[0] {
	case "inventory":
		if len(toks) != 3 || toks[1] != "has" {
			return fail("expected 'inventory has <item>'")
		}
		return pred{kind: predInventoryHas, a: toks[2]}, nil

	case "at":
		if len(toks) != 2 {
			return fail("expected 'at <room>'")
		}
		return pred{kind: predAt, a: toks[1]}, nil

	case "item":
		if len(toks) != 4 || toks[2] != "state" {
			return fail("expected 'item <id> state <name>'")
		}
		return pred{kind: predItemState, a: toks[1], b: toks[3]}, nil

	case "flag":
		switch len(toks) {
		case 2:
			return pred{kind: predFlagSet, a: toks[1]}, nil
		case 4:
			if toks[2] != "==" {
				return fail("expected 'flag <key> == <value>'")
			}
			return pred{kind: predFlagEquals, a: toks[1], b: toks[3]}, nil
		default:
			return fail("expected 'flag <key>' or 'flag <key> == <value>'")
		}

	case "npc":
		if len(toks) != 4 || toks[2] != "at" {
			return fail("expected 'npc <id> at <room>'")
		}
		return pred{kind: predNPCAt, a: toks[1], b: toks[3]}, nil

	default:
		return fail(fmt.Sprintf("unknown predicate %q", toks[0]))
	}
}
