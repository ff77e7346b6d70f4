// Package loader loads Lua world content into Go structs at startup.
// The Lua VM is discarded after loading — zero Lua at runtime.
package loader

import (
	"fmt"
	"sort"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/nathoo/talespin/engine/expr"
	"github.com/nathoo/talespin/engine/state"
	"github.com/nathoo/talespin/types"
)

// getString returns a string field from a Lua table, or "" if missing.
func getString(tbl *lua.LTable, key string) string {
	if s, ok := tbl.RawGetString(key).(lua.LString); ok {
		return string(s)
	}
	return ""
}

// getBool returns a bool field from a Lua table, or the default if missing.
func getBool(tbl *lua.LTable, key string, def bool) bool {
	if b, ok := tbl.RawGetString(key).(lua.LBool); ok {
		return bool(b)
	}
	return def
}

// getInt returns an int field from a Lua table, or 0 if missing.
func getInt(tbl *lua.LTable, key string) int {
	if n, ok := tbl.RawGetString(key).(lua.LNumber); ok {
		return int(n)
	}
	return 0
}

// getTable returns a table field from a Lua table, or nil if missing.
func getTable(tbl *lua.LTable, key string) *lua.LTable {
	if t, ok := tbl.RawGetString(key).(*lua.LTable); ok {
		return t
	}
	return nil
}

// getStringList returns an array-style table field as []string.
func getStringList(tbl *lua.LTable, key string) []string {
	arr := getTable(tbl, key)
	if arr == nil {
		return nil
	}
	var out []string
	for i := 1; i <= arr.MaxN(); i++ {
		if s, ok := arr.RawGetInt(i).(lua.LString); ok {
			out = append(out, string(s))
		}
	}
	return out
}

// toGoValue converts a Lua value to a Go value recursively.
func toGoValue(v lua.LValue) any {
	switch val := v.(type) {
	case lua.LBool:
		return bool(val)
	case lua.LNumber:
		f := float64(val)
		if f == float64(int(f)) {
			return int(f)
		}
		return f
	case lua.LString:
		return string(val)
	case *lua.LTable:
		if maxN := val.MaxN(); maxN > 0 {
			arr := make([]any, 0, maxN)
			for i := 1; i <= maxN; i++ {
				arr = append(arr, toGoValue(val.RawGetInt(i)))
			}
			return arr
		}
		m := map[string]any{}
		val.ForEach(func(k, v lua.LValue) {
			if ks, ok := k.(lua.LString); ok {
				m[string(ks)] = toGoValue(v)
			}
		})
		return m
	default:
		return nil
	}
}

// compile converts all collected Lua data into a Defs struct. Structural
// problems (duplicate ids, missing Game) are collected, not fatal one at a
// time, so authors see everything at once.
func compile(coll *collector) (*state.Defs, *ValidationError) {
	ve := &ValidationError{}
	defs := &state.Defs{
		Rooms: map[string]types.RoomDef{},
		Items: map[string]types.ItemDef{},
		NPCs:  map[string]types.NPCDef{},
		Exprs: map[string]expr.Expr{},
	}

	if coll.game == nil {
		ve.Errors = append(ve.Errors, "no Game{} definition found")
	} else {
		defs.Game = types.GameDef{
			Title:   getString(coll.game, "title"),
			Author:  getString(coll.game, "author"),
			Version: getString(coll.game, "version"),
			Start:   getString(coll.game, "start"),
		}
	}

	for _, raw := range coll.rooms {
		if _, dup := defs.Rooms[raw.id]; dup {
			ve.Errors = append(ve.Errors, fmt.Sprintf("duplicate room id %q", raw.id))
			continue
		}
		defs.Rooms[raw.id] = compileRoom(raw, ve)
	}
	for _, raw := range coll.items {
		if _, dup := defs.Items[raw.id]; dup {
			ve.Errors = append(ve.Errors, fmt.Sprintf("duplicate item id %q", raw.id))
			continue
		}
		defs.Items[raw.id] = compileItem(raw)
	}
	for _, raw := range coll.npcs {
		if _, dup := defs.NPCs[raw.id]; dup {
			ve.Errors = append(ve.Errors, fmt.Sprintf("duplicate npc id %q", raw.id))
			continue
		}
		defs.NPCs[raw.id] = compileNPC(raw)
	}

	placeListedEntities(defs, ve)

	actionIDs := map[string]bool{}
	for _, raw := range coll.actions {
		if actionIDs[raw.id] {
			ve.Errors = append(ve.Errors, fmt.Sprintf("duplicate action id %q", raw.id))
			continue
		}
		actionIDs[raw.id] = true
		defs.Actions = append(defs.Actions, compileAction(raw, ve))
	}
	sort.Slice(defs.Actions, func(i, j int) bool {
		return defs.Actions[i].SourceOrder < defs.Actions[j].SourceOrder
	})

	endingIDs := map[string]bool{}
	for _, raw := range coll.endings {
		if endingIDs[raw.id] {
			ve.Errors = append(ve.Errors, fmt.Sprintf("duplicate ending id %q", raw.id))
			continue
		}
		endingIDs[raw.id] = true
		defs.Endings = append(defs.Endings, types.EndingDef{
			ID:          raw.id,
			Condition:   getString(raw.table, "condition"),
			Terminal:    getBool(raw.table, "terminal", true),
			SourceOrder: raw.order,
		})
	}
	sort.Slice(defs.Endings, func(i, j int) bool {
		return defs.Endings[i].SourceOrder < defs.Endings[j].SourceOrder
	})

	return defs, ve
}

// placeListedEntities seeds entity locations from the room item/npc lists.
// An entity may be placed by its own location field or by one room list,
// not both with different rooms: that mismatch is an authoring error.
// Missing ids are left to validate, which reports them.
func placeListedEntities(defs *state.Defs, ve *ValidationError) {
	for roomID, room := range defs.Rooms {
		for _, id := range room.Items {
			item, ok := defs.Items[id]
			if !ok {
				continue
			}
			if item.Location != types.LocNowhere && item.Location != roomID {
				ve.Errors = append(ve.Errors, fmt.Sprintf(
					"item %q listed in room %q but declares location %q", id, roomID, item.Location))
				continue
			}
			item.Location = roomID
			defs.Items[id] = item
		}
		for _, id := range room.NPCs {
			npc, ok := defs.NPCs[id]
			if !ok {
				continue
			}
			if npc.Location != "" && npc.Location != roomID {
				ve.Errors = append(ve.Errors, fmt.Sprintf(
					"npc %q listed in room %q but declares location %q", id, roomID, npc.Location))
				continue
			}
			npc.Location = roomID
			defs.NPCs[id] = npc
		}
	}
}

// compileRoom reads exits, items, and npcs. Exit values are either a plain
// target room string or a table { to = "...", condition = "..." }.
func compileRoom(raw rawDef, ve *ValidationError) types.RoomDef {
	room := types.RoomDef{
		ID:    raw.id,
		Exits: map[string]types.ExitDef{},
		Items: getStringList(raw.table, "items"),
		NPCs:  getStringList(raw.table, "npcs"),
	}
	if exits := getTable(raw.table, "exits"); exits != nil {
		exits.ForEach(func(k, v lua.LValue) {
			dir, ok := k.(lua.LString)
			if !ok {
				return
			}
			switch val := v.(type) {
			case lua.LString:
				room.Exits[strings.ToLower(string(dir))] = types.ExitDef{Target: string(val)}
			case *lua.LTable:
				room.Exits[strings.ToLower(string(dir))] = types.ExitDef{
					Target:    getString(val, "to"),
					Condition: getString(val, "condition"),
				}
			default:
				ve.Errors = append(ve.Errors, fmt.Sprintf(
					"room %q exit %q: expected room id or table", raw.id, string(dir)))
			}
		})
	}
	return room
}

func compileItem(raw rawDef) types.ItemDef {
	item := types.ItemDef{
		ID:       raw.id,
		States:   getStringList(raw.table, "states"),
		State:    getString(raw.table, "state"),
		Takeable: getBool(raw.table, "takeable", false),
		Location: getString(raw.table, "location"),
	}
	if item.Location == "" {
		item.Location = types.LocNowhere
	}
	return item
}

func compileNPC(raw rawDef) types.NPCDef {
	return types.NPCDef{
		ID:       raw.id,
		States:   getStringList(raw.table, "states"),
		State:    getString(raw.table, "state"),
		Location: getString(raw.table, "location"),
		Meet:     getString(raw.table, "meet"),
	}
}

// compileAction reads the action body. Effects are array-style tables whose
// first element is the effect type, with named keys as parameters:
//
//	effects = { { "say", text = "door_unlocked" }, ... }
func compileAction(raw rawDef, ve *ValidationError) types.ActionDef {
	action := types.ActionDef{
		ID:           raw.id,
		Verb:         getString(raw.table, "verb"),
		Item:         getString(raw.table, "item"),
		TargetItem:   getString(raw.table, "target_item"),
		TargetNPC:    getString(raw.table, "target_npc"),
		Scope:        getString(raw.table, "scope"),
		Precondition: getString(raw.table, "precondition"),
		Duration:     getInt(raw.table, "duration"),
		SourceOrder:  raw.order,
	}
	if action.TargetItem != "" && action.TargetNPC != "" {
		ve.Errors = append(ve.Errors, fmt.Sprintf(
			"action %q declares both target_item and target_npc", raw.id))
	}
	if effs := getTable(raw.table, "effects"); effs != nil {
		for i := 1; i <= effs.MaxN(); i++ {
			effTbl, ok := effs.RawGetInt(i).(*lua.LTable)
			if !ok {
				ve.Errors = append(ve.Errors, fmt.Sprintf(
					"action %q effect %d: expected table", raw.id, i))
				continue
			}
			effType, _ := effTbl.RawGetInt(1).(lua.LString)
			if effType == "" {
				ve.Errors = append(ve.Errors, fmt.Sprintf(
					"action %q effect %d: missing type", raw.id, i))
				continue
			}
			params := map[string]any{}
			effTbl.ForEach(func(k, v lua.LValue) {
				if ks, ok := k.(lua.LString); ok {
					params[string(ks)] = toGoValue(v)
				}
			})
			action.Effects = append(action.Effects, types.Effect{
				Type:   string(effType),
				Params: params,
			})
		}
	}
	return action
}

func containsStr(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
