package resolve

import (
	"errors"
	"testing"

	"github.com/nathoo/talespin/engine/expr"
	"github.com/nathoo/talespin/engine/state"
	"github.com/nathoo/talespin/types"
)

func testDefs() *state.Defs {
	return &state.Defs{
		Game: types.GameDef{Title: "Test", Start: "hut"},
		Rooms: map[string]types.RoomDef{
			"hut": {
				ID:    "hut",
				Exits: map[string]types.ExitDef{"west": {Target: "forest"}},
			},
			"forest": {
				ID:    "forest",
				Exits: map[string]types.ExitDef{"east": {Target: "hut"}},
			},
		},
		Items: map[string]types.ItemDef{
			"key":  {ID: "key", Takeable: true, Location: "hut"},
			"door": {ID: "door", States: []string{"closed", "open"}, State: "closed", Location: "hut"},
			"rock": {ID: "rock", Takeable: true, Location: "forest"},
		},
		NPCs: map[string]types.NPCDef{
			"elder": {ID: "elder", Location: "hut"},
		},
		Actions: []types.ActionDef{
			{
				ID: "unlock_door", Verb: "use", Item: "key", TargetItem: "door",
				Scope: types.LocInventory, Precondition: "item door state closed",
				Effects:     []types.Effect{{Type: "set_item_state", Params: map[string]any{"item": "door", "state": "open"}}},
				SourceOrder: 1,
			},
			{
				ID: "show_key", Verb: "show", Item: "key", TargetNPC: "elder",
				SourceOrder: 2,
			},
			{
				ID: "polish_key", Verb: "polish", Item: "key",
				Precondition: "flag has_cloth", SourceOrder: 3,
			},
		},
		Exprs: map[string]expr.Expr{
			"item door state closed": expr.MustCompile("item door state closed"),
			"flag has_cloth":         expr.MustCompile("flag has_cloth"),
		},
	}
}

func testLocale() *types.Locale {
	return &types.Locale{
		Language: "en",
		Names: map[string][]string{
			"key":   {"key", "rusty key"},
			"door":  {"door", "wooden door"},
			"rock":  {"rock"},
			"elder": {"elder", "old man"},
		},
	}
}

func TestObject_RoomItem(t *testing.T) {
	defs := testDefs()
	s := state.NewState(defs)

	m, err := Object(s, defs, testLocale(), "rusty key")
	if err != nil {
		t.Fatalf("Object: %v", err)
	}
	if m.ID != "key" || m.Kind != KindItem {
		t.Errorf("match = %+v, want key/item", m)
	}
}

func TestObject_InventoryItem(t *testing.T) {
	defs := testDefs()
	s := state.NewState(defs)
	if err := state.MoveItem(s, defs, "key", types.LocInventory); err != nil {
		t.Fatal(err)
	}

	m, err := Object(s, defs, testLocale(), "key")
	if err != nil {
		t.Fatalf("Object: %v", err)
	}
	if m.ID != "key" || m.Kind != KindItem {
		t.Errorf("match = %+v", m)
	}
}

func TestObject_NPC(t *testing.T) {
	defs := testDefs()
	s := state.NewState(defs)

	m, err := Object(s, defs, testLocale(), "old man")
	if err != nil {
		t.Fatalf("Object: %v", err)
	}
	if m.ID != "elder" || m.Kind != KindNPC {
		t.Errorf("match = %+v, want elder/npc", m)
	}
}

func TestObject_Exit(t *testing.T) {
	defs := testDefs()
	s := state.NewState(defs)

	m, err := Object(s, defs, testLocale(), "west")
	if err != nil {
		t.Fatalf("Object: %v", err)
	}
	if m.ID != "west" || m.Kind != KindExit {
		t.Errorf("match = %+v, want west/exit", m)
	}
}

func TestObject_NotVisible(t *testing.T) {
	defs := testDefs()
	s := state.NewState(defs)

	// rock is in the forest, player is in the hut.
	_, err := Object(s, defs, testLocale(), "rock")
	if !errors.Is(err, ErrUnknownObject) {
		t.Errorf("err = %v, want ErrUnknownObject", err)
	}
	var nf *NotFoundError
	if !errors.As(err, &nf) || nf.Name != "rock" {
		t.Errorf("err = %v, want NotFoundError{rock}", err)
	}
}

func TestObject_SharedNameBucketPriority(t *testing.T) {
	defs := testDefs()
	defs.Items["statue_item"] = types.ItemDef{ID: "statue_item", Location: "hut"}
	defs.NPCs["statue_npc"] = types.NPCDef{ID: "statue_npc", Location: "hut"}
	s := state.NewState(defs)

	loc := testLocale()
	loc.Names["statue_item"] = []string{"statue"}
	loc.Names["statue_npc"] = []string{"statue"}

	// Room items outrank NPCs when a name matches both.
	m, err := Object(s, defs, loc, "statue")
	if err != nil {
		t.Fatalf("Object: %v", err)
	}
	if m.ID != "statue_item" || m.Kind != KindItem {
		t.Errorf("match = %+v, want statue_item/item", m)
	}

	// With the item gone, the NPC is next in line.
	if err := state.MoveItem(s, defs, "statue_item", types.LocNowhere); err != nil {
		t.Fatal(err)
	}
	m, err = Object(s, defs, loc, "statue")
	if err != nil {
		t.Fatalf("Object: %v", err)
	}
	if m.ID != "statue_npc" || m.Kind != KindNPC {
		t.Errorf("match = %+v, want statue_npc/npc", m)
	}
}

func TestObject_CarriedOutranksNPC(t *testing.T) {
	defs := testDefs()
	s := state.NewState(defs)
	if err := state.MoveItem(s, defs, "key", types.LocInventory); err != nil {
		t.Fatal(err)
	}

	loc := testLocale()
	loc.Names["elder"] = append(loc.Names["elder"], "key")

	m, err := Object(s, defs, loc, "key")
	if err != nil {
		t.Fatalf("Object: %v", err)
	}
	if m.ID != "key" || m.Kind != KindItem {
		t.Errorf("match = %+v, want carried key over npc alias", m)
	}
}

func TestAction_Match(t *testing.T) {
	defs := testDefs()
	s := state.NewState(defs)
	if err := state.MoveItem(s, defs, "key", types.LocInventory); err != nil {
		t.Fatal(err)
	}

	a, err := Action(s, defs, "use", Match{ID: "key", Kind: KindItem}, Match{ID: "door", Kind: KindItem})
	if err != nil {
		t.Fatalf("Action: %v", err)
	}
	if a.ID != "unlock_door" {
		t.Errorf("action = %q, want unlock_door", a.ID)
	}
}

func TestAction_ScopeInventory(t *testing.T) {
	defs := testDefs()
	s := state.NewState(defs)

	// Key is in the room, not carried, and unlock_door requires inventory.
	_, err := Action(s, defs, "use", Match{ID: "key", Kind: KindItem}, Match{ID: "door", Kind: KindItem})
	if !errors.Is(err, ErrNoSuchAction) {
		t.Errorf("err = %v, want ErrNoSuchAction for out-of-scope item", err)
	}
}

func TestAction_Precondition(t *testing.T) {
	defs := testDefs()
	s := state.NewState(defs)
	if err := state.MoveItem(s, defs, "key", types.LocInventory); err != nil {
		t.Fatal(err)
	}

	_, err := Action(s, defs, "polish", Match{ID: "key", Kind: KindItem}, Match{})
	var pre *PreconditionError
	if !errors.As(err, &pre) {
		t.Fatalf("err = %v, want PreconditionError", err)
	}
	if pre.ActionID != "polish_key" {
		t.Errorf("ActionID = %q", pre.ActionID)
	}

	// Once the precondition holds, the same lookup succeeds.
	if err := state.SetFlag(s, defs, "", "has_cloth", "yes"); err != nil {
		t.Fatal(err)
	}
	a, err := Action(s, defs, "polish", Match{ID: "key", Kind: KindItem}, Match{})
	if err != nil {
		t.Fatalf("Action after flag set: %v", err)
	}
	if a.ID != "polish_key" {
		t.Errorf("action = %q", a.ID)
	}
}

func TestAction_TargetKindMatters(t *testing.T) {
	defs := testDefs()
	s := state.NewState(defs)
	if err := state.MoveItem(s, defs, "key", types.LocInventory); err != nil {
		t.Fatal(err)
	}

	// show_key requires an NPC target; an item target must not match.
	_, err := Action(s, defs, "show", Match{ID: "key", Kind: KindItem}, Match{ID: "door", Kind: KindItem})
	if !errors.Is(err, ErrNoSuchAction) {
		t.Errorf("err = %v, want ErrNoSuchAction", err)
	}

	a, err := Action(s, defs, "show", Match{ID: "key", Kind: KindItem}, Match{ID: "elder", Kind: KindNPC})
	if err != nil {
		t.Fatalf("Action: %v", err)
	}
	if a.ID != "show_key" {
		t.Errorf("action = %q", a.ID)
	}
}
