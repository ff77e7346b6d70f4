package save

import (
	"testing"

	"github.com/nathoo/talespin/engine/state"
	"github.com/nathoo/talespin/types"
)

func testDefs() *state.Defs {
	return &state.Defs{
		Game: types.GameDef{Title: "Crown Quest", Version: "1.2.0", Start: "village"},
		Rooms: map[string]types.RoomDef{
			"village": {ID: "village"},
			"forest":  {ID: "forest"},
		},
		Items: map[string]types.ItemDef{
			"key": {ID: "key", Takeable: true, Location: "village"},
		},
		NPCs: map[string]types.NPCDef{
			"elder": {ID: "elder", Location: "forest"},
		},
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	defs := testDefs()
	s := state.NewState(defs)
	s.Location = "forest"
	s.Inventory = []string{"key"}
	s.Items["key"] = types.ItemState{Location: types.LocInventory}
	s.NPCs["elder"] = types.NPCState{State: "pleased", Location: "forest", Met: true}
	s.Flags["village.visited"] = "yes"
	s.Exits = map[string]map[string]types.ExitOverride{
		"village": {"down": {Target: "forest", Condition: "flag trapdoor_found"}},
	}
	s.TurnCount = 7
	s.Fired = map[string]bool{"found_key": true}
	s.Transcript = []types.TranscriptEntry{
		{Input: "take key", Action: "take", Turn: 1, Output: []string{"You take the key."}},
	}

	data, err := Save(s, defs, "de")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	sd, err := Load(data)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if sd.Version != "1.2.0" || sd.Game != "Crown Quest" || sd.Language != "de" {
		t.Errorf("header = %q/%q/%q", sd.Version, sd.Game, sd.Language)
	}
	if sd.Turn != 7 || sd.Location != "forest" {
		t.Errorf("turn/location = %d/%q", sd.Turn, sd.Location)
	}

	restored := state.NewState(defs)
	ApplySave(restored, sd)

	if restored.Location != "forest" || restored.TurnCount != 7 {
		t.Errorf("restored location/turn = %q/%d", restored.Location, restored.TurnCount)
	}
	if len(restored.Inventory) != 1 || restored.Inventory[0] != "key" {
		t.Errorf("inventory = %v", restored.Inventory)
	}
	if !restored.NPCs["elder"].Met || restored.NPCs["elder"].State != "pleased" {
		t.Errorf("elder = %+v", restored.NPCs["elder"])
	}
	if restored.Flags["village.visited"] != "yes" {
		t.Errorf("flags = %v", restored.Flags)
	}
	ov := restored.Exits["village"]["down"]
	if ov.Target != "forest" || ov.Condition != "flag trapdoor_found" {
		t.Errorf("exit override = %+v", ov)
	}
	if len(restored.Transcript) != 1 || restored.Transcript[0].Action != "take" {
		t.Errorf("transcript = %v", restored.Transcript)
	}
	if !restored.Fired["found_key"] {
		t.Errorf("fired = %v", restored.Fired)
	}
}

func TestLoad_NormalizesMissingFields(t *testing.T) {
	sd, err := Load([]byte(`{"version":"1.0.0","game":"Bare","language":"en","location":"start"}`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if sd.Inventory == nil || sd.Items == nil || sd.NPCs == nil || sd.Flags == nil || sd.Exits == nil || sd.Fired == nil {
		t.Errorf("nil collections after load: %+v", sd)
	}
}

func TestLoad_RejectsMalformed(t *testing.T) {
	if _, err := Load([]byte(`{"turn": "seven"}`)); err == nil {
		t.Error("malformed save accepted")
	}
}
