// Package types defines the shared data structures for the TaleSpin engine.
// This package contains only type definitions — no logic, no methods.
package types

// Item locations that are not room ids.
const (
	LocInventory = "inventory"
	LocNowhere   = "nowhere"
)

// Intent is the normalized representation of a player command.
type Intent struct {
	Verb    string
	Object  string // optional
	Object2 string // optional
}

// Effect is a single atomic state mutation instruction.
type Effect struct {
	Type   string
	Params map[string]any
}

// Result is the output of a single executed command.
type Result struct {
	Effects []Effect
	Output  []string
	Ending  string // ending id if this command ended the session
}

// ExitDef maps a direction to a destination room, optionally gated by a
// condition expression. An empty Condition means the exit is always open.
type ExitDef struct {
	Target    string
	Condition string
}

// RoomDef is the locale-neutral definition of a room.
type RoomDef struct {
	ID    string
	Exits map[string]ExitDef // direction → exit
	Items []string           // ids of items initially present
	NPCs  []string           // ids of NPCs initially present
}

// ItemDef is the locale-neutral definition of an item.
type ItemDef struct {
	ID       string
	States   []string // enumerated state names, may be empty
	State    string   // initial state
	Takeable bool
	Location string // initial location: room id, LocInventory or LocNowhere
}

// NPCDef is the locale-neutral definition of an NPC.
type NPCDef struct {
	ID       string
	States   []string
	State    string // initial state
	Location string // initial room id
	Meet     string // expression gating the first-meeting event, empty = on first encounter
}

// ActionDef is a verb-triggered rule with a precondition and an ordered
// effect list. At most one of TargetItem/TargetNPC may be set; both empty
// means the action takes a single object.
type ActionDef struct {
	ID           string
	Verb         string
	Item         string // object item id
	TargetItem   string
	TargetNPC    string
	Scope        string // where the object item must be: "inventory", "room", "" = either
	Precondition string // expression source, empty = always allowed
	Effects      []Effect
	Duration     int // turns consumed, 0 = default 1
	SourceOrder  int
}

// EndingDef is a named terminal condition checked after each executed command.
type EndingDef struct {
	ID          string
	Condition   string // expression source
	Terminal    bool
	SourceOrder int
}

// GameDef holds world metadata.
type GameDef struct {
	Title   string
	Author  string
	Version string
	Start   string // starting room id
}

// ItemState is the runtime state of an item.
type ItemState struct {
	Location string // room id, LocInventory or LocNowhere
	State    string
}

// NPCState is the runtime state of an NPC.
type NPCState struct {
	Location string
	State    string
	Met      bool
}

// ExitOverride is a dynamic exit layered over a room's base exits.
// An empty Target removes the base exit in that direction.
type ExitOverride struct {
	Target    string
	Condition string
}

// TranscriptEntry records one executed state-mutating command.
type TranscriptEntry struct {
	Input  string
	Action string // resolved action id or built-in verb
	Turn   int
	Output []string
}

// State is the complete mutable session state.
type State struct {
	Location   string
	Inventory  []string
	Items      map[string]ItemState
	NPCs       map[string]NPCState
	Flags      map[string]string
	Exits      map[string]map[string]ExitOverride // room → direction → override
	TurnCount  int
	Fired      map[string]bool // non-terminal endings whose text has been shown
	Transcript []TranscriptEntry
}

// Locale carries all language-specific display data, keyed by the same ids
// as the world definition.
type Locale struct {
	Language     string
	Names        map[string][]string // entity id → display names, first is primary
	Descriptions map[string]string   // entity id → description
	Messages     map[string]string   // message key → template
	Verbs        map[string][]string // canonical verb → synonyms
	Articles     []string            // stripped before object matching
	Linkers      []string            // split object1 from object2 ("with", "mit")
	Endings      map[string]string   // ending id → description
	Actions      map[string]string   // action id → success message
	Intro        string
}
