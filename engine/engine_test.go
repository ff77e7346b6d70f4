package engine

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/nathoo/talespin/engine/expr"
	"github.com/nathoo/talespin/engine/norm"
	"github.com/nathoo/talespin/engine/parser"
	"github.com/nathoo/talespin/engine/state"
	"github.com/nathoo/talespin/llm"
	"github.com/nathoo/talespin/types"
)

func testDefs(t *testing.T) *state.Defs {
	t.Helper()
	defs := &state.Defs{
		Game: types.GameDef{Title: "Crown Quest", Start: "village"},
		Rooms: map[string]types.RoomDef{
			"village": {ID: "village", Exits: map[string]types.ExitDef{
				"north": {Target: "forest"},
			}},
			"forest": {ID: "forest", Exits: map[string]types.ExitDef{
				"south": {Target: "village"},
				"east":  {Target: "hut", Condition: "item door state open"},
			}},
			"hut": {ID: "hut", Exits: map[string]types.ExitDef{
				"west": {Target: "forest"},
			}},
		},
		Items: map[string]types.ItemDef{
			"key":   {ID: "key", Takeable: true, Location: "forest"},
			"door":  {ID: "door", States: []string{"closed", "open"}, State: "closed", Location: "forest"},
			"crown": {ID: "crown", Takeable: true, Location: "hut"},
		},
		NPCs: map[string]types.NPCDef{
			"elder": {ID: "elder", Location: "forest"},
		},
		Actions: []types.ActionDef{
			{
				ID: "unlock_door", Verb: "use", Item: "key", TargetItem: "door",
				Scope: types.LocInventory, Precondition: "item door state closed",
				Effects: []types.Effect{
					{Type: "set_item_state", Params: map[string]any{"item": "door", "state": "open"}},
					{Type: "say", Params: map[string]any{"text": "door_unlocked"}},
				},
			},
		},
		Endings: []types.EndingDef{
			{ID: "victory", Condition: "inventory has crown AND at village", Terminal: true},
		},
		Exprs: map[string]expr.Expr{},
	}
	for _, src := range []string{
		"item door state open",
		"item door state closed",
		"inventory has crown AND at village",
	} {
		defs.Exprs[src] = expr.MustCompile(src)
	}
	return defs
}

func testLocale() *types.Locale {
	return &types.Locale{
		Language: "en",
		Names: map[string][]string{
			"key":   {"key", "brass key"},
			"door":  {"door"},
			"crown": {"crown"},
			"elder": {"elder", "old man"},
		},
		Descriptions: map[string]string{
			"village": "A quiet village square.",
			"forest":  "Tall pines crowd the path.",
			"hut":     "A cramped woodcutter's hut.",
			"key":     "A small brass key.",
		},
		Messages: map[string]string{
			"door_unlocked": "The $b creaks open.",
			"elder.meet":    "An elder steps out from behind a tree.",
		},
		Verbs: map[string][]string{
			"go": {"walk"}, "take": {"get", "grab"}, "drop": nil,
			"look": nil, "examine": {"inspect"}, "inventory": {"i"},
			"use": nil, "talk": nil, "help": nil,
		},
		Articles: []string{"the", "a"},
		Linkers:  []string{"on", "with"},
		Endings:  map[string]string{"victory": "You return the crown. The village cheers!"},
	}
}

func newTestEngine(t *testing.T, backend llm.Backend) *Engine {
	t.Helper()
	loc := testLocale()
	n := norm.New(parser.New(loc), backend, nil)
	return New(testDefs(t), loc, n, nil)
}

func run(t *testing.T, e *Engine, cmd string) types.Result {
	t.Helper()
	result, err := e.Execute(context.Background(), cmd)
	if err != nil {
		t.Fatalf("Execute(%q): %v", cmd, err)
	}
	return result
}

func TestExecute_FullPlaythrough(t *testing.T) {
	e := newTestEngine(t, nil)

	run(t, e, "go north")
	run(t, e, "take the key")

	// Door still closed: the conditional exit east is shut.
	result := run(t, e, "go east")
	if !containsLine(result.Output, "You can't go that way.") {
		t.Errorf("closed exit output = %v", result.Output)
	}

	result = run(t, e, "use key on door")
	if !containsLine(result.Output, "The door creaks open.") {
		t.Errorf("unlock output = %v", result.Output)
	}
	if e.State.Items["door"].State != "open" {
		t.Fatalf("door state = %q", e.State.Items["door"].State)
	}

	run(t, e, "go east")
	run(t, e, "grab crown")
	run(t, e, "go west")

	result = run(t, e, "go south")
	if result.Ending != "victory" {
		t.Fatalf("ending = %q, want victory", result.Ending)
	}
	if !containsLine(result.Output, "You return the crown. The village cheers!") {
		t.Errorf("ending output = %v", result.Output)
	}
	if e.Status() != StatusEnded || e.Ending() != "victory" {
		t.Errorf("status = %v, ending = %q", e.Status(), e.Ending())
	}

	if _, err := e.Execute(context.Background(), "look"); !errors.Is(err, ErrSessionEnded) {
		t.Errorf("post-ending err = %v, want ErrSessionEnded", err)
	}
}

func TestExecute_PureCommandsDontAdvanceTurn(t *testing.T) {
	e := newTestEngine(t, nil)

	run(t, e, "look")
	run(t, e, "inventory")
	run(t, e, "take banana") // fails: no such object
	run(t, e, "use crown on door")

	if e.State.TurnCount != 0 {
		t.Errorf("TurnCount = %d, want 0", e.State.TurnCount)
	}
	if len(e.State.Transcript) != 0 {
		t.Errorf("Transcript = %v, want empty", e.State.Transcript)
	}
}

func TestExecute_TranscriptRecordsMutations(t *testing.T) {
	e := newTestEngine(t, nil)

	run(t, e, "go north")
	run(t, e, "take key")

	if e.State.TurnCount != 2 {
		t.Fatalf("TurnCount = %d, want 2", e.State.TurnCount)
	}
	last := e.State.Transcript[len(e.State.Transcript)-1]
	if last.Input != "take key" || last.Action != "take" || last.Turn != 2 {
		t.Errorf("transcript entry = %+v", last)
	}
}

func TestExecute_ActionDurationAdvancesClock(t *testing.T) {
	e := newTestEngine(t, nil)
	e.Defs.Actions[0].Duration = 3

	run(t, e, "go north")
	run(t, e, "take key")
	result := run(t, e, "use key on door")

	if e.State.TurnCount != 5 {
		t.Fatalf("TurnCount = %d, want 5", e.State.TurnCount)
	}
	last := e.State.Transcript[len(e.State.Transcript)-1]
	if last.Action != "unlock_door" || last.Turn != 5 {
		t.Errorf("transcript entry = %+v", last)
	}
	if len(result.Output) == 0 {
		t.Error("no output from timed action")
	}
}

func TestExecute_EffectMessagesUseDisplayNames(t *testing.T) {
	e := newTestEngine(t, nil)
	e.Locale.Names["door"] = []string{"oak door", "door"}

	run(t, e, "go north")
	run(t, e, "take key")
	result := run(t, e, "use key on door")

	if !containsLine(result.Output, "The oak door creaks open.") {
		t.Errorf("output = %v", result.Output)
	}
	for _, line := range result.Output {
		if strings.Contains(line, "$b") {
			t.Errorf("unexpanded placeholder in %q", line)
		}
	}
}

func TestExecute_MilestoneEndingFiresOnce(t *testing.T) {
	e := newTestEngine(t, nil)
	e.Defs.Endings = append([]types.EndingDef{
		{ID: "key_found", Condition: "inventory has key"},
	}, e.Defs.Endings...)
	e.Defs.Exprs["inventory has key"] = expr.MustCompile("inventory has key")
	e.Locale.Endings["key_found"] = "That key must open something."

	run(t, e, "go north")
	result := run(t, e, "take key")
	if !containsLine(result.Output, "That key must open something.") {
		t.Fatalf("milestone text missing: %v", result.Output)
	}
	if result.Ending != "" || e.Status() != StatusRunning {
		t.Fatalf("milestone ended the session: ending=%q status=%v", result.Ending, e.Status())
	}

	// Still satisfied on later turns, but the text shows only once.
	run(t, e, "drop key")
	result = run(t, e, "take key")
	if containsLine(result.Output, "That key must open something.") {
		t.Errorf("milestone text repeated: %v", result.Output)
	}
}

func TestExecute_MeetingFiresOnce(t *testing.T) {
	e := newTestEngine(t, nil)

	result := run(t, e, "go north")
	if !containsLine(result.Output, "An elder steps out from behind a tree.") {
		t.Fatalf("meet message missing: %v", result.Output)
	}
	if !e.State.NPCs["elder"].Met {
		t.Fatal("elder not marked met")
	}

	run(t, e, "go south")
	result = run(t, e, "go north")
	if containsLine(result.Output, "An elder steps out from behind a tree.") {
		t.Errorf("meet message repeated: %v", result.Output)
	}
}

func TestExecute_BlockedAndMissingActions(t *testing.T) {
	e := newTestEngine(t, nil)
	run(t, e, "go north")

	// Key still on the ground: the action requires it carried.
	result := run(t, e, "use key on door")
	if !containsLine(result.Output, "You can't use that.") {
		t.Errorf("scope miss output = %v", result.Output)
	}

	run(t, e, "take key")
	run(t, e, "use key on door")

	// Door already open: structural match, failed precondition.
	result = run(t, e, "use key on door")
	if !containsLine(result.Output, "That doesn't work right now.") {
		t.Errorf("precondition output = %v", result.Output)
	}
}

func TestExecute_UnknownVerb(t *testing.T) {
	e := newTestEngine(t, nil)

	result := run(t, e, "dance wildly")
	if !containsLine(result.Output, "I don't know how to dance.") {
		t.Errorf("output = %v", result.Output)
	}
}

type suggestBackend struct {
	result llm.Result
}

func (b *suggestBackend) SetContext(llm.Context) {}

func (b *suggestBackend) Interpret(context.Context, string) (llm.Result, error) {
	return b.result, nil
}

func TestExecute_SuggestionDoesNotMutate(t *testing.T) {
	backend := &suggestBackend{result: llm.Result{
		Confidence: llm.ConfidenceLikely, Verb: "go", Object: "north",
	}}
	e := newTestEngine(t, backend)

	result := run(t, e, "head toward the trees")
	if !containsLine(result.Output, "Did you mean: go north?") {
		t.Errorf("output = %v", result.Output)
	}
	if e.State.Location != "village" || e.State.TurnCount != 0 {
		t.Errorf("suggestion mutated state: location=%q turns=%d", e.State.Location, e.State.TurnCount)
	}
}

func TestExecute_ConfidentBackendExecutes(t *testing.T) {
	backend := &suggestBackend{result: llm.Result{
		Confidence: llm.ConfidenceSure, Verb: "go", Object: "north",
	}}
	e := newTestEngine(t, backend)

	run(t, e, "head toward the trees")
	if e.State.Location != "forest" {
		t.Errorf("location = %q, want forest", e.State.Location)
	}
}

func TestDescribeRoom_HidesClosedExits(t *testing.T) {
	e := newTestEngine(t, nil)
	run(t, e, "go north")

	result := run(t, e, "look")
	if !containsLine(result.Output, "Exits: south.") {
		t.Errorf("exits before unlock = %v", result.Output)
	}

	run(t, e, "take key")
	run(t, e, "use key on door")

	result = run(t, e, "look")
	if !containsLine(result.Output, "Exits: east, south.") {
		t.Errorf("exits after unlock = %v", result.Output)
	}
}

func TestRestore_ResetsLifecycle(t *testing.T) {
	e := newTestEngine(t, nil)

	fresh := state.NewState(e.Defs)
	fresh.Location = "hut"
	e.Restore(fresh)

	if e.Status() != StatusRunning || e.State.Location != "hut" {
		t.Errorf("status = %v, location = %q", e.Status(), e.State.Location)
	}
}

func TestIntro(t *testing.T) {
	loc := testLocale()
	loc.Intro = "The crown has been stolen."
	n := norm.New(parser.New(loc), nil, nil)
	e := New(testDefs(t), loc, n, nil)

	out := e.Intro()
	if len(out) == 0 || out[0] != "The crown has been stolen." {
		t.Fatalf("intro = %v", out)
	}
	if !containsLine(out, "A quiet village square.") {
		t.Errorf("intro missing room description: %v", out)
	}
}

func containsLine(lines []string, want string) bool {
	for _, l := range lines {
		if strings.Contains(l, want) {
			return true
		}
	}
	return false
}
