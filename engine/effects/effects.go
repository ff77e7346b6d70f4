// Package effects implements centralized state mutation via the Apply
// function. Every effect type is one atomic operation. No logic in effects.
package effects

import (
	"fmt"
	"strings"

	"github.com/nathoo/talespin/engine/state"
	"github.com/nathoo/talespin/types"
)

// Context carries the resolved intent needed for message interpolation.
// Object and Target are display names; Object fills $a, Target fills $b.
type Context struct {
	Verb   string
	Object string
	Target string
}

// InvalidEffectError indicates an effect references something that does not
// exist or is missing a parameter. Apply reports it before any mutation.
type InvalidEffectError struct {
	Type   string
	Reason string
}

func (e *InvalidEffectError) Error() string {
	return fmt.Sprintf("effect %s: %s", e.Type, e.Reason)
}

// Apply validates every effect against the current world, then applies them
// in declared order. Validation failure means no mutation at all. Returns
// the output lines produced by say effects.
func Apply(s *types.State, defs *state.Defs, loc *types.Locale, effects []types.Effect, ctx Context) ([]string, error) {
	for _, eff := range effects {
		if err := validate(s, defs, eff); err != nil {
			return nil, err
		}
	}

	var output []string
	for _, eff := range effects {
		switch eff.Type {
		case "say":
			text, _ := eff.Params["text"].(string)
			output = append(output, interpolate(lookupMessage(loc, text), ctx))

		case "move_item":
			item := stringParam(eff, "item")
			dest := stringParam(eff, "to")
			if err := state.MoveItem(s, defs, item, dest); err != nil {
				return output, err
			}

		case "destroy_item":
			item := stringParam(eff, "item")
			if err := state.MoveItem(s, defs, item, types.LocNowhere); err != nil {
				return output, err
			}

		case "set_item_state":
			item := stringParam(eff, "item")
			if err := state.SetItemState(s, defs, item, stringParam(eff, "state")); err != nil {
				return output, err
			}

		case "set_npc_state":
			npc := stringParam(eff, "npc")
			if err := state.SetNPCState(s, defs, npc, stringParam(eff, "state")); err != nil {
				return output, err
			}

		case "set_flag":
			scope := stringParam(eff, "scope")
			if err := state.SetFlag(s, defs, scope, stringParam(eff, "flag"), stringParam(eff, "value")); err != nil {
				return output, err
			}

		case "add_exit":
			room := stringParam(eff, "room")
			dir := stringParam(eff, "direction")
			target := stringParam(eff, "target")
			cond := stringParam(eff, "condition")
			if err := state.AddExit(s, defs, room, dir, target, cond); err != nil {
				return output, err
			}

		case "remove_exit":
			if err := state.RemoveExit(s, defs, stringParam(eff, "room"), stringParam(eff, "direction")); err != nil {
				return output, err
			}

		case "move_player":
			s.Location = stringParam(eff, "room")
		}
	}
	return output, nil
}

// validate checks a single effect's references without mutating anything.
func validate(s *types.State, defs *state.Defs, eff types.Effect) error {
	requireItem := func(key string) error {
		id := stringParam(eff, key)
		if _, ok := defs.Items[id]; !ok {
			return &InvalidEffectError{Type: eff.Type, Reason: fmt.Sprintf("unknown item %q", id)}
		}
		return nil
	}
	requireRoom := func(key string) error {
		id := stringParam(eff, key)
		if _, ok := defs.Rooms[id]; !ok {
			return &InvalidEffectError{Type: eff.Type, Reason: fmt.Sprintf("unknown room %q", id)}
		}
		return nil
	}

	switch eff.Type {
	case "say":
		if _, ok := eff.Params["text"].(string); !ok {
			return &InvalidEffectError{Type: eff.Type, Reason: "missing text"}
		}
	case "move_item":
		if err := requireItem("item"); err != nil {
			return err
		}
		dest := stringParam(eff, "to")
		if dest != types.LocInventory && dest != types.LocNowhere {
			if _, ok := defs.Rooms[dest]; !ok {
				return &InvalidEffectError{Type: eff.Type, Reason: fmt.Sprintf("unknown destination %q", dest)}
			}
		}
	case "destroy_item", "set_item_state":
		if err := requireItem("item"); err != nil {
			return err
		}
	case "set_npc_state":
		id := stringParam(eff, "npc")
		if _, ok := defs.NPCs[id]; !ok {
			return &InvalidEffectError{Type: eff.Type, Reason: fmt.Sprintf("unknown npc %q", id)}
		}
	case "set_flag":
		scope := stringParam(eff, "scope")
		if !state.KnownScope(defs, scope) {
			return &InvalidEffectError{Type: eff.Type, Reason: fmt.Sprintf("unknown flag scope %q", scope)}
		}
	case "add_exit":
		if err := requireRoom("room"); err != nil {
			return err
		}
		if err := requireRoom("target"); err != nil {
			return err
		}
		if cond := stringParam(eff, "condition"); cond != "" {
			if _, ok := defs.Exprs[cond]; !ok {
				return &InvalidEffectError{Type: eff.Type, Reason: fmt.Sprintf("uncompiled condition %q", cond)}
			}
		}
	case "remove_exit":
		if err := requireRoom("room"); err != nil {
			return err
		}
	case "move_player":
		if err := requireRoom("room"); err != nil {
			return err
		}
	default:
		return &InvalidEffectError{Type: eff.Type, Reason: "unknown effect type"}
	}
	return nil
}

func stringParam(eff types.Effect, key string) string {
	v, _ := eff.Params[key].(string)
	return v
}

// lookupMessage treats text as a locale message key when one exists,
// otherwise as a literal.
func lookupMessage(loc *types.Locale, text string) string {
	if loc != nil {
		if msg, ok := loc.Messages[text]; ok {
			return msg
		}
	}
	return text
}

// interpolate substitutes $a with the object and $b with the target.
func interpolate(text string, ctx Context) string {
	text = strings.ReplaceAll(text, "$a", ctx.Object)
	text = strings.ReplaceAll(text, "$b", ctx.Target)
	return text
}
