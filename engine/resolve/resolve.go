// Package resolve maps normalized intents to entity IDs and world actions.
package resolve

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/nathoo/talespin/engine/state"
	"github.com/nathoo/talespin/types"
)

// Sentinel errors for the resolution failure classes. The typed errors below
// unwrap to these, so callers can branch with errors.Is and still read the
// details with errors.As.
var (
	ErrUnknownVerb   = errors.New("unknown verb")
	ErrUnknownObject = errors.New("unknown object")
	ErrNoSuchAction  = errors.New("no such action")
)

// UnknownVerbError indicates the verb is not in the locale's verb table.
type UnknownVerbError struct {
	Verb string
}

func (e *UnknownVerbError) Error() string {
	return fmt.Sprintf("I don't know how to %q", e.Verb)
}

func (e *UnknownVerbError) Unwrap() error { return ErrUnknownVerb }

// NotFoundError indicates no visible entity matched a name.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("you don't see %q here", e.Name)
}

func (e *NotFoundError) Unwrap() error { return ErrUnknownObject }

// NoActionError indicates the verb and objects resolved but no declared
// action matches the combination.
type NoActionError struct {
	Verb     string
	ObjectID string
	TargetID string
}

func (e *NoActionError) Error() string {
	if e.TargetID != "" {
		return fmt.Sprintf("you can't %s the %s with the %s", e.Verb, e.ObjectID, e.TargetID)
	}
	if e.ObjectID != "" {
		return fmt.Sprintf("you can't %s the %s", e.Verb, e.ObjectID)
	}
	return fmt.Sprintf("you can't %s here", e.Verb)
}

func (e *NoActionError) Unwrap() error { return ErrNoSuchAction }

// PreconditionError indicates a matched action whose precondition does not
// hold. Player-visible; the session continues.
type PreconditionError struct {
	ActionID  string
	Condition string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("action %s: precondition not met", e.ActionID)
}

// Kind classifies what a name resolved to.
type Kind int

const (
	KindItem Kind = iota
	KindNPC
	KindExit
)

// Match is one resolved object reference.
type Match struct {
	ID   string
	Kind Kind
}

// Object resolves a single object name against what the player can see.
// Buckets are scanned in fixed priority — items in the current room, then
// carried items, then NPCs in the room, then exits — and the first match
// wins, so a name shared across buckets resolves deterministically. Names
// come from the locale alias table; a raw entity ID is accepted too.
func Object(s *types.State, defs *state.Defs, loc *types.Locale, name string) (Match, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return Match{}, &NotFoundError{Name: name}
	}

	for _, id := range state.ItemsInRoom(s, s.Location) {
		if nameMatches(loc, id, name) {
			return Match{ID: id, Kind: KindItem}, nil
		}
	}
	for _, id := range s.Inventory {
		if nameMatches(loc, id, name) {
			return Match{ID: id, Kind: KindItem}, nil
		}
	}
	for _, id := range state.NPCsInRoom(s, s.Location) {
		if nameMatches(loc, id, name) {
			return Match{ID: id, Kind: KindNPC}, nil
		}
	}

	exits := state.RoomExits(s, defs, s.Location)
	dirs := make([]string, 0, len(exits))
	for dir := range exits {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)
	for _, dir := range dirs {
		if dir == name || nameMatches(loc, exits[dir].Target, name) {
			return Match{ID: dir, Kind: KindExit}, nil
		}
	}

	return Match{}, &NotFoundError{Name: name}
}

// Action finds the declared action matching a verb applied to resolved
// objects. Actions are checked in declaration order; the first structural
// match wins, then its precondition is evaluated.
func Action(s *types.State, defs *state.Defs, verb string, object, target Match) (*types.ActionDef, error) {
	var structural *types.ActionDef
	for i := range defs.Actions {
		a := &defs.Actions[i]
		if a.Verb != verb {
			continue
		}
		if a.Item != object.ID {
			continue
		}
		if !targetMatches(a, target) {
			continue
		}
		if !scopeMatches(s, defs, a, object) {
			continue
		}
		if structural == nil {
			structural = a
		}
		if state.Holds(s, defs, a.Precondition) {
			return a, nil
		}
	}
	if structural != nil {
		return nil, &PreconditionError{ActionID: structural.ID, Condition: structural.Precondition}
	}
	return nil, &NoActionError{Verb: verb, ObjectID: object.ID, TargetID: target.ID}
}

func targetMatches(a *types.ActionDef, target Match) bool {
	switch {
	case a.TargetItem != "":
		return target.Kind == KindItem && target.ID == a.TargetItem
	case a.TargetNPC != "":
		return target.Kind == KindNPC && target.ID == a.TargetNPC
	default:
		return target.ID == ""
	}
}

// scopeMatches checks where the action requires its item to be. An empty
// scope accepts both carried and in-room items.
func scopeMatches(s *types.State, defs *state.Defs, a *types.ActionDef, object Match) bool {
	if object.Kind != KindItem || a.Scope == "" {
		return true
	}
	loc := state.ItemLocation(s, object.ID)
	switch a.Scope {
	case types.LocInventory:
		return loc == types.LocInventory
	case "room":
		return loc == s.Location
	default:
		return true
	}
}

// nameMatches reports whether a query names the given entity, by ID or by
// any locale alias.
func nameMatches(loc *types.Locale, id, query string) bool {
	if strings.EqualFold(id, query) {
		return true
	}
	if loc == nil {
		return false
	}
	for _, alias := range loc.Names[id] {
		if strings.EqualFold(alias, query) {
			return true
		}
	}
	return false
}
