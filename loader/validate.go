package loader

import (
	"fmt"
	"strings"

	"github.com/nathoo/talespin/engine/expr"
	"github.com/nathoo/talespin/engine/state"
	"github.com/nathoo/talespin/types"
)

// ValidationError collects all validation errors and warnings. Errors are
// fatal; warnings are reported and loading continues.
type ValidationError struct {
	Errors   []string
	Warnings []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed with %d error(s):\n  %s",
		len(e.Errors), strings.Join(e.Errors, "\n  "))
}

// Known effect types and the entity-reference parameters each carries.
var effectRefs = map[string]map[string]string{
	"say":            {},
	"move_item":      {"item": "item"},
	"destroy_item":   {"item": "item"},
	"set_item_state": {"item": "item"},
	"set_npc_state":  {"npc": "npc"},
	"set_flag":       {},
	"add_exit":       {"room": "room", "target": "room"},
	"remove_exit":    {"room": "room"},
	"move_player":    {"room": "room"},
}

// validate checks the compiled defs for referential integrity and compiles
// every condition expression into defs.Exprs. All problems are collected so
// authors see everything in one run.
func validate(defs *state.Defs, ve *ValidationError) {
	if defs.Game.Title == "" {
		ve.Errors = append(ve.Errors, "Game.title is required")
	}
	if defs.Game.Start == "" {
		ve.Errors = append(ve.Errors, "Game.start is required")
	} else if _, ok := defs.Rooms[defs.Game.Start]; !ok {
		ve.Errors = append(ve.Errors, fmt.Sprintf(
			"start room %q not found in defined rooms", defs.Game.Start))
	}

	for roomID, room := range defs.Rooms {
		for dir, exit := range room.Exits {
			if _, ok := defs.Rooms[exit.Target]; !ok {
				ve.Errors = append(ve.Errors, fmt.Sprintf(
					"room %q exit %q points to undefined room %q", roomID, dir, exit.Target))
			}
			compileCondition(defs, ve, exit.Condition,
				fmt.Sprintf("room %q exit %q", roomID, dir))
		}
		for _, id := range room.Items {
			if _, ok := defs.Items[id]; !ok {
				ve.Errors = append(ve.Errors, fmt.Sprintf(
					"room %q lists undefined item %q", roomID, id))
			}
		}
		for _, id := range room.NPCs {
			if _, ok := defs.NPCs[id]; !ok {
				ve.Errors = append(ve.Errors, fmt.Sprintf(
					"room %q lists undefined npc %q", roomID, id))
			}
		}
	}

	for itemID, item := range defs.Items {
		loc := item.Location
		if loc != types.LocInventory && loc != types.LocNowhere {
			if _, ok := defs.Rooms[loc]; !ok {
				ve.Warnings = append(ve.Warnings, fmt.Sprintf(
					"item %q location %q does not match any defined room", itemID, loc))
			}
		}
		if item.State != "" && len(item.States) > 0 && !containsStr(item.States, item.State) {
			ve.Errors = append(ve.Errors, fmt.Sprintf(
				"item %q initial state %q not in declared states", itemID, item.State))
		}
	}
	for npcID, npc := range defs.NPCs {
		if npc.Location != "" {
			if _, ok := defs.Rooms[npc.Location]; !ok {
				ve.Errors = append(ve.Errors, fmt.Sprintf(
					"npc %q location %q does not match any defined room", npcID, npc.Location))
			}
		}
		if npc.State != "" && len(npc.States) > 0 && !containsStr(npc.States, npc.State) {
			ve.Errors = append(ve.Errors, fmt.Sprintf(
				"npc %q initial state %q not in declared states", npcID, npc.State))
		}
		compileCondition(defs, ve, npc.Meet, fmt.Sprintf("npc %q meet", npcID))
	}

	for _, action := range defs.Actions {
		validateAction(defs, ve, action)
	}

	for _, ending := range defs.Endings {
		if ending.Condition == "" {
			ve.Errors = append(ve.Errors, fmt.Sprintf(
				"ending %q has no condition", ending.ID))
			continue
		}
		compileCondition(defs, ve, ending.Condition, fmt.Sprintf("ending %q", ending.ID))
	}
}

func validateAction(defs *state.Defs, ve *ValidationError, action types.ActionDef) {
	where := fmt.Sprintf("action %q", action.ID)
	if action.Verb == "" {
		ve.Errors = append(ve.Errors, where+" has no verb")
	}
	if action.Item == "" {
		ve.Errors = append(ve.Errors, where+" has no item")
	} else if _, ok := defs.Items[action.Item]; !ok {
		ve.Errors = append(ve.Errors, fmt.Sprintf(
			"%s references undefined item %q", where, action.Item))
	}
	if action.TargetItem != "" {
		if _, ok := defs.Items[action.TargetItem]; !ok {
			ve.Errors = append(ve.Errors, fmt.Sprintf(
				"%s references undefined target item %q", where, action.TargetItem))
		}
	}
	if action.TargetNPC != "" {
		if _, ok := defs.NPCs[action.TargetNPC]; !ok {
			ve.Errors = append(ve.Errors, fmt.Sprintf(
				"%s references undefined target npc %q", where, action.TargetNPC))
		}
	}
	switch action.Scope {
	case "", types.LocInventory, "room":
	default:
		ve.Errors = append(ve.Errors, fmt.Sprintf(
			"%s has unknown scope %q", where, action.Scope))
	}
	compileCondition(defs, ve, action.Precondition, where+" precondition")

	for i, eff := range action.Effects {
		effWhere := fmt.Sprintf("%s effect %d (%s)", where, i+1, eff.Type)
		refs, known := effectRefs[eff.Type]
		if !known {
			ve.Errors = append(ve.Errors, fmt.Sprintf(
				"%s effect %d has unknown type %q", where, i+1, eff.Type))
			continue
		}
		for param, kind := range refs {
			id, _ := eff.Params[param].(string)
			if id == "" {
				ve.Errors = append(ve.Errors, effWhere+": missing "+param)
				continue
			}
			if !knownEntity(defs, kind, id) {
				ve.Errors = append(ve.Errors, fmt.Sprintf(
					"%s: undefined %s %q", effWhere, kind, id))
			}
		}
		// move_item's destination may also be inventory or nowhere.
		if eff.Type == "move_item" {
			dest, _ := eff.Params["to"].(string)
			if dest == "" {
				ve.Errors = append(ve.Errors, effWhere+": missing to")
			} else if dest != types.LocInventory && dest != types.LocNowhere && !knownEntity(defs, "room", dest) {
				ve.Errors = append(ve.Errors, fmt.Sprintf(
					"%s: undefined destination %q", effWhere, dest))
			}
		}
		if eff.Type == "set_flag" {
			scope, _ := eff.Params["scope"].(string)
			if !state.KnownScope(defs, scope) {
				ve.Errors = append(ve.Errors, fmt.Sprintf(
					"%s: unknown flag scope %q", effWhere, scope))
			}
		}
		if cond, _ := eff.Params["condition"].(string); cond != "" {
			compileCondition(defs, ve, cond, effWhere)
		}
	}
}

// compileCondition compiles an expression source into defs.Exprs and checks
// its entity references. Empty sources are skipped.
func compileCondition(defs *state.Defs, ve *ValidationError, source, where string) {
	if strings.TrimSpace(source) == "" {
		return
	}
	if _, done := defs.Exprs[source]; done {
		return
	}
	compiled, err := expr.Compile(source)
	if err != nil {
		ve.Errors = append(ve.Errors, fmt.Sprintf("%s: %v", where, err))
		return
	}
	defs.Exprs[source] = compiled
	for kind, ids := range compiled.References() {
		for _, id := range ids {
			if !knownEntity(defs, kind, id) {
				ve.Errors = append(ve.Errors, fmt.Sprintf(
					"%s: condition references undefined %s %q", where, kind, id))
			}
		}
	}
}

func knownEntity(defs *state.Defs, kind, id string) bool {
	switch kind {
	case "item":
		_, ok := defs.Items[id]
		return ok
	case "room":
		_, ok := defs.Rooms[id]
		return ok
	case "npc":
		_, ok := defs.NPCs[id]
		return ok
	default:
		return false
	}
}
