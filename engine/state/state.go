// Package state manages the immutable world definitions and the mutable
// session state, including the dynamic exit overlay and the transcript.
package state

import (
	"fmt"
	"sort"
	"strings"

	"github.com/nathoo/talespin/engine/expr"
	"github.com/nathoo/talespin/types"
)

// Defs holds the immutable world definitions produced by the loader.
// Actions and Endings keep their declaration order; ties among
// simultaneously satisfied endings go to the first declared.
type Defs struct {
	Game    types.GameDef
	Rooms   map[string]types.RoomDef
	Items   map[string]types.ItemDef
	NPCs    map[string]types.NPCDef
	Actions []types.ActionDef
	Endings []types.EndingDef

	// Exprs caches every condition string compiled at load time,
	// keyed by source. Evaluation never compiles.
	Exprs map[string]expr.Expr
}

// UnknownEntityError reports a reference to a nonexistent id. It indicates
// a data or logic bug: a validated world never produces one at runtime.
type UnknownEntityError struct {
	Kind string // "room", "item", "npc", "scope"
	ID   string
}

func (e *UnknownEntityError) Error() string {
	return fmt.Sprintf("unknown %s %q", e.Kind, e.ID)
}

// NewState creates a fresh session state from definitions.
func NewState(defs *Defs) *types.State {
	s := &types.State{
		Location:  defs.Game.Start,
		Inventory: []string{},
		Items:     map[string]types.ItemState{},
		NPCs:      map[string]types.NPCState{},
		Flags:     map[string]string{},
		Exits:     map[string]map[string]types.ExitOverride{},
		Fired:     map[string]bool{},
	}
	for id, def := range defs.Items {
		s.Items[id] = types.ItemState{Location: def.Location, State: def.State}
	}
	for id, def := range defs.NPCs {
		s.NPCs[id] = types.NPCState{Location: def.Location, State: def.State}
	}
	return s
}

// ItemLocation returns the current location of an item: a room id,
// types.LocInventory or types.LocNowhere.
func ItemLocation(s *types.State, id string) string {
	if is, ok := s.Items[id]; ok {
		return is.Location
	}
	return types.LocNowhere
}

// HasItem reports whether the item is in the player's inventory.
func HasItem(s *types.State, id string) bool {
	for _, held := range s.Inventory {
		if held == id {
			return true
		}
	}
	return false
}

// MoveItem moves an item to dest (room id, inventory or nowhere), keeping
// the inventory list and the location field consistent.
func MoveItem(s *types.State, defs *Defs, id, dest string) error {
	is, ok := s.Items[id]
	if !ok {
		return &UnknownEntityError{Kind: "item", ID: id}
	}
	if dest != types.LocInventory && dest != types.LocNowhere {
		if _, ok := defs.Rooms[dest]; !ok {
			return &UnknownEntityError{Kind: "room", ID: dest}
		}
	}

	if is.Location == types.LocInventory {
		s.Inventory = removeID(s.Inventory, id)
	}
	if dest == types.LocInventory && !HasItem(s, id) {
		s.Inventory = append(s.Inventory, id)
	}
	is.Location = dest
	s.Items[id] = is
	return nil
}

// SetItemState changes an item's named state. The name must come from the
// item's enumerated state set when one is declared.
func SetItemState(s *types.State, defs *Defs, id, name string) error {
	def, ok := defs.Items[id]
	if !ok {
		return &UnknownEntityError{Kind: "item", ID: id}
	}
	if len(def.States) > 0 && !containsFold(def.States, name) {
		return fmt.Errorf("item %q has no state %q", id, name)
	}
	is := s.Items[id]
	is.State = name
	s.Items[id] = is
	return nil
}

// NPCLocation returns the current room of an NPC, or "" if unknown.
func NPCLocation(s *types.State, id string) string {
	if ns, ok := s.NPCs[id]; ok {
		return ns.Location
	}
	return ""
}

// SetNPCState changes an NPC's named state.
func SetNPCState(s *types.State, defs *Defs, id, name string) error {
	def, ok := defs.NPCs[id]
	if !ok {
		return &UnknownEntityError{Kind: "npc", ID: id}
	}
	if len(def.States) > 0 && !containsFold(def.States, name) {
		return fmt.Errorf("npc %q has no state %q", id, name)
	}
	ns := s.NPCs[id]
	ns.State = name
	s.NPCs[id] = ns
	return nil
}

// MeetNPC marks an NPC as met.
func MeetNPC(s *types.State, id string) {
	ns := s.NPCs[id]
	ns.Met = true
	s.NPCs[id] = ns
}

// SetFlag sets a flag value. Scope "" addresses the global flag namespace;
// a non-empty scope must name an existing room, item or NPC, and the stored
// key becomes "<scope>.<key>".
func SetFlag(s *types.State, defs *Defs, scope, key, value string) error {
	if scope != "" {
		if _, ok := defs.Rooms[scope]; !ok {
			if _, ok := defs.Items[scope]; !ok {
				if _, ok := defs.NPCs[scope]; !ok {
					return &UnknownEntityError{Kind: "scope", ID: scope}
				}
			}
		}
		key = scope + "." + key
	}
	s.Flags[strings.ToLower(key)] = value
	return nil
}

// KnownScope reports whether scope is a valid flag scope: empty (global) or
// an existing room, item, or NPC.
func KnownScope(defs *Defs, scope string) bool {
	if scope == "" {
		return true
	}
	if _, ok := defs.Rooms[scope]; ok {
		return true
	}
	if _, ok := defs.Items[scope]; ok {
		return true
	}
	_, ok := defs.NPCs[scope]
	return ok
}

// Flag returns a flag value, "" when unset.
func Flag(s *types.State, key string) string {
	return s.Flags[strings.ToLower(key)]
}

// AddExit opens (or redirects) an exit at runtime. The target room must
// exist; dynamic exits created by actions are validated here, when created.
func AddExit(s *types.State, defs *Defs, room, direction, target, condition string) error {
	if _, ok := defs.Rooms[room]; !ok {
		return &UnknownEntityError{Kind: "room", ID: room}
	}
	if _, ok := defs.Rooms[target]; !ok {
		return &UnknownEntityError{Kind: "room", ID: target}
	}
	if s.Exits[room] == nil {
		s.Exits[room] = map[string]types.ExitOverride{}
	}
	s.Exits[room][strings.ToLower(direction)] = types.ExitOverride{Target: target, Condition: condition}
	return nil
}

// RemoveExit closes an exit at runtime (base or previously added).
func RemoveExit(s *types.State, defs *Defs, room, direction string) error {
	if _, ok := defs.Rooms[room]; !ok {
		return &UnknownEntityError{Kind: "room", ID: room}
	}
	if s.Exits[room] == nil {
		s.Exits[room] = map[string]types.ExitOverride{}
	}
	s.Exits[room][strings.ToLower(direction)] = types.ExitOverride{}
	return nil
}

// RoomExits returns the effective exits for a room: base exits with the
// dynamic overlay applied. Conditional exits are included; callers decide
// whether the condition currently holds.
func RoomExits(s *types.State, defs *Defs, room string) map[string]types.ExitDef {
	def, ok := defs.Rooms[room]
	if !ok {
		return nil
	}
	exits := make(map[string]types.ExitDef, len(def.Exits))
	for dir, exit := range def.Exits {
		exits[dir] = exit
	}
	for dir, ov := range s.Exits[room] {
		if ov.Target == "" {
			delete(exits, dir)
			continue
		}
		exits[dir] = types.ExitDef{Target: ov.Target, Condition: ov.Condition}
	}
	return exits
}

// ItemsInRoom returns the ids of items currently located in the room,
// sorted for determinism.
func ItemsInRoom(s *types.State, room string) []string {
	var ids []string
	for id, is := range s.Items {
		if is.Location == room {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// NPCsInRoom returns the ids of NPCs currently located in the room, sorted.
func NPCsInRoom(s *types.State, room string) []string {
	var ids []string
	for id, ns := range s.NPCs {
		if ns.Location == room {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// View adapts (Defs, State) to the expression evaluator's World interface.
type View struct {
	Defs *Defs
	S    *types.State
}

func (v View) HasItem(id string) bool { return HasItem(v.S, id) }

func (v View) AtRoom(id string) bool {
	return strings.EqualFold(v.S.Location, id)
}

func (v View) ItemState(id string) string {
	return v.S.Items[id].State
}

func (v View) Flag(key string) string { return Flag(v.S, key) }

func (v View) NPCLocation(id string) string { return NPCLocation(v.S, id) }

// Holds evaluates a compiled condition string against the session. Unknown
// sources (never compiled by the loader) evaluate to false, which only
// happens on a programming error.
func Holds(s *types.State, defs *Defs, source string) bool {
	if strings.TrimSpace(source) == "" {
		return true
	}
	e, ok := defs.Exprs[source]
	if !ok {
		return false
	}
	return e.Eval(View{Defs: defs, S: s})
}

func removeID(ids []string, id string) []string {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
