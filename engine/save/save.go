// Package save implements JSON serialization and deserialization of session
// state, including the active language so a restore resumes the same locale.
package save

import (
	"encoding/json"

	"github.com/nathoo/talespin/engine/state"
	"github.com/nathoo/talespin/types"
)

// SaveData is the JSON-serializable save format.
type SaveData struct {
	Version    string                                   `json:"version"`
	Game       string                                   `json:"game"`
	Language   string                                   `json:"language"`
	Turn       int                                      `json:"turn"`
	Location   string                                   `json:"location"`
	Inventory  []string                                 `json:"inventory"`
	Items      map[string]types.ItemState               `json:"items"`
	NPCs       map[string]types.NPCState                `json:"npcs"`
	Flags      map[string]string                        `json:"flags"`
	Exits      map[string]map[string]types.ExitOverride `json:"exits"`
	Fired      map[string]bool                          `json:"fired"`
	Transcript []types.TranscriptEntry                  `json:"transcript"`
}

// Save serializes session state to JSON bytes.
func Save(s *types.State, defs *state.Defs, language string) ([]byte, error) {
	data := SaveData{
		Version:    defs.Game.Version,
		Game:       defs.Game.Title,
		Language:   language,
		Turn:       s.TurnCount,
		Location:   s.Location,
		Inventory:  s.Inventory,
		Items:      s.Items,
		NPCs:       s.NPCs,
		Flags:      s.Flags,
		Exits:      s.Exits,
		Fired:      s.Fired,
		Transcript: s.Transcript,
	}
	return json.MarshalIndent(data, "", "  ")
}

// Load deserializes JSON bytes into SaveData.
func Load(data []byte) (*SaveData, error) {
	var sd SaveData
	if err := json.Unmarshal(data, &sd); err != nil {
		return nil, err
	}
	// Ensure maps and slices are never nil after load.
	if sd.Inventory == nil {
		sd.Inventory = []string{}
	}
	if sd.Items == nil {
		sd.Items = map[string]types.ItemState{}
	}
	if sd.NPCs == nil {
		sd.NPCs = map[string]types.NPCState{}
	}
	if sd.Flags == nil {
		sd.Flags = map[string]string{}
	}
	if sd.Exits == nil {
		sd.Exits = map[string]map[string]types.ExitOverride{}
	}
	if sd.Fired == nil {
		sd.Fired = map[string]bool{}
	}
	return &sd, nil
}

// ApplySave applies loaded save data onto a state.
func ApplySave(s *types.State, sd *SaveData) {
	s.Location = sd.Location
	s.Inventory = sd.Inventory
	s.Items = sd.Items
	s.NPCs = sd.NPCs
	s.Flags = sd.Flags
	s.Exits = sd.Exits
	s.Fired = sd.Fired
	s.TurnCount = sd.Turn
	s.Transcript = sd.Transcript
}
