// Package engine provides the Execute() orchestrator that wires together
// normalization, resolution, actions, effects, and endings into a single turn.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/nathoo/talespin/debug"
	"github.com/nathoo/talespin/engine/effects"
	"github.com/nathoo/talespin/engine/norm"
	"github.com/nathoo/talespin/engine/resolve"
	"github.com/nathoo/talespin/engine/state"
	"github.com/nathoo/talespin/llm"
	"github.com/nathoo/talespin/types"
)

// ErrSessionEnded is returned by Execute once an ending has been reached.
var ErrSessionEnded = errors.New("session has ended")

// Status is the session lifecycle state.
type Status int

const (
	StatusRunning Status = iota
	StatusEnded
)

// Engine holds the game definitions, locale, and mutable session state.
type Engine struct {
	Defs   *state.Defs
	State  *types.State
	Locale *types.Locale

	norm   *norm.Normalizer
	status Status
	ending string
	log    *debug.Logger
}

// New creates a running session from definitions and a locale.
func New(defs *state.Defs, loc *types.Locale, n *norm.Normalizer, log *debug.Logger) *Engine {
	if log == nil {
		log = debug.Nop()
	}
	return &Engine{
		Defs:   defs,
		State:  state.NewState(defs),
		Locale: loc,
		norm:   n,
		log:    log,
	}
}

// Status returns the session lifecycle state.
func (e *Engine) Status() Status { return e.status }

// Ending returns the ending id once the session has ended, "" before.
func (e *Engine) Ending() string { return e.ending }

// SetLocale swaps the display language. World state is untouched.
func (e *Engine) SetLocale(loc *types.Locale, n *norm.Normalizer) {
	e.Locale = loc
	e.norm = n
}

// Restore replaces the session state, e.g. after loading a save. The
// lifecycle resets to running; a loaded state at an ending re-ends on the
// next executed command.
func (e *Engine) Restore(s *types.State) {
	e.State = s
	e.status = StatusRunning
	e.ending = ""
}

// Intro returns the opening text: locale intro plus the starting room.
func (e *Engine) Intro() []string {
	var out []string
	if e.Locale != nil && e.Locale.Intro != "" {
		out = append(out, e.Locale.Intro)
	}
	out = append(out, e.describeRoom(e.State.Location)...)
	return out
}

// Execute processes one player command. Normalization happens here so the
// backend sees current world context; backend failures degrade silently to
// the deterministic parser.
func (e *Engine) Execute(ctx context.Context, raw string) (types.Result, error) {
	if e.status == StatusEnded {
		return types.Result{}, ErrSessionEnded
	}

	e.norm.SetContext(e.llmContext())
	outcome := e.norm.Normalize(ctx, raw)
	if outcome.Suggested {
		return types.Result{Output: []string{e.suggestMessage(outcome.Intent)}}, nil
	}
	intent := outcome.Intent
	e.log.Debug("intent", "verb", intent.Verb, "object", intent.Object, "object2", intent.Object2)

	if intent.Verb == "" {
		return types.Result{Output: []string{e.msg("prompt_empty", "What do you want to do?")}}, nil
	}

	result, actionID, turns := e.dispatch(intent)
	if turns == 0 {
		return result, nil
	}

	e.checkMeetings(&result)

	e.State.TurnCount += turns
	e.State.Transcript = append(e.State.Transcript, types.TranscriptEntry{
		Input:  raw,
		Action: actionID,
		Turn:   e.State.TurnCount,
		Output: result.Output,
	})

	if ending := e.checkEndings(&result); ending != "" {
		e.status = StatusEnded
		e.ending = ending
		result.Ending = ending
		if text, ok := e.Locale.Endings[ending]; ok {
			result.Output = append(result.Output, text)
		}
	}
	return result, nil
}

// dispatch routes one intent. turns is how far the clock advances — zero
// means world state did not change, which skips the transcript/turn/ending
// pipeline.
func (e *Engine) dispatch(intent types.Intent) (result types.Result, actionID string, turns int) {
	switch intent.Verb {
	case "look":
		if intent.Object == "" {
			return types.Result{Output: e.describeRoom(e.State.Location)}, "", 0
		}
		return e.examine(intent.Object), "", 0
	case "examine":
		if intent.Object == "" {
			return types.Result{Output: []string{e.msg("examine_what", "Examine what?")}}, "", 0
		}
		return e.examine(intent.Object), "", 0
	case "inventory":
		return e.inventory(), "", 0
	case "help":
		return e.help(), "", 0
	case "go":
		return e.goDirection(intent.Object)
	case "take":
		return e.take(intent.Object)
	case "drop":
		return e.drop(intent.Object)
	case "talk":
		return e.talk(intent.Object)
	default:
		return e.runAction(intent)
	}
}

// runAction handles verbs backed by declared actions (use, show, open,
// destroy, wear, and whatever else the world declares).
func (e *Engine) runAction(intent types.Intent) (types.Result, string, int) {
	if !e.knownVerb(intent.Verb) {
		return types.Result{Output: []string{e.msgf("unknown_verb", "I don't know how to %s.", intent.Verb)}}, "", 0
	}

	object, err := resolve.Object(e.State, e.Defs, e.Locale, intent.Object)
	if err != nil {
		return types.Result{Output: []string{e.resolveMessage(err, intent)}}, "", 0
	}
	var target resolve.Match
	if intent.Object2 != "" {
		target, err = resolve.Object(e.State, e.Defs, e.Locale, intent.Object2)
		if err != nil {
			return types.Result{Output: []string{e.resolveMessage(err, intent)}}, "", 0
		}
	}

	action, err := resolve.Action(e.State, e.Defs, intent.Verb, object, target)
	if err != nil {
		return types.Result{Output: []string{e.resolveMessage(err, intent)}}, "", 0
	}

	ctx := effects.Context{Verb: intent.Verb, Object: e.entityName(object.ID), Target: e.entityName(target.ID)}
	output, err := effects.Apply(e.State, e.Defs, e.Locale, action.Effects, ctx)
	if err != nil {
		// Load-time validation should make this unreachable; be loud, not silent.
		e.log.Warn("effect application failed", "action", action.ID, "err", err)
		return types.Result{Output: []string{e.msg("action_failed", "Nothing happens.")}}, "", 0
	}

	result := types.Result{Effects: action.Effects, Output: output}
	if text, ok := e.Locale.Actions[action.ID]; ok {
		result.Output = append(result.Output, e.interpolate(text, e.entityName(object.ID), e.entityName(target.ID)))
	}
	if len(result.Output) == 0 {
		result.Output = []string{e.msg("action_done", "Done.")}
	}
	turns := action.Duration
	if turns < 1 {
		turns = 1
	}
	return result, action.ID, turns
}

func (e *Engine) goDirection(direction string) (types.Result, string, int) {
	if direction == "" {
		return types.Result{Output: []string{e.msg("go_where", "Go where?")}}, "", 0
	}
	direction = strings.ToLower(direction)
	exits := state.RoomExits(e.State, e.Defs, e.State.Location)
	exit, ok := exits[direction]
	if !ok || !state.Holds(e.State, e.Defs, exit.Condition) {
		return types.Result{Output: []string{e.msg("cant_go", "You can't go that way.")}}, "", 0
	}
	e.State.Location = exit.Target
	out := e.describeRoom(exit.Target)
	return types.Result{
		Effects: []types.Effect{{Type: "move_player", Params: map[string]any{"room": exit.Target}}},
		Output:  out,
	}, "go", 1
}

func (e *Engine) take(name string) (types.Result, string, int) {
	if name == "" {
		return types.Result{Output: []string{e.msg("take_what", "Take what?")}}, "", 0
	}
	match, err := resolve.Object(e.State, e.Defs, e.Locale, name)
	if err != nil {
		return types.Result{Output: []string{e.resolveMessage(err, types.Intent{Verb: "take", Object: name})}}, "", 0
	}
	if match.Kind != resolve.KindItem {
		return types.Result{Output: []string{e.msgf("cant_take", "You can't take the %s.", e.entityName(match.ID))}}, "", 0
	}
	if state.HasItem(e.State, match.ID) {
		return types.Result{Output: []string{e.msg("already_have", "You already have that.")}}, "", 0
	}
	def := e.Defs.Items[match.ID]
	if !def.Takeable {
		return types.Result{Output: []string{e.msgf("cant_take", "You can't take the %s.", e.entityName(match.ID))}}, "", 0
	}
	if err := state.MoveItem(e.State, e.Defs, match.ID, types.LocInventory); err != nil {
		return types.Result{Output: []string{err.Error()}}, "", 0
	}
	return types.Result{
		Effects: []types.Effect{{Type: "move_item", Params: map[string]any{"item": match.ID, "to": types.LocInventory}}},
		Output:  []string{e.msgf("take_ok", "You take the %s.", e.entityName(match.ID))},
	}, "take", 1
}

func (e *Engine) drop(name string) (types.Result, string, int) {
	if name == "" {
		return types.Result{Output: []string{e.msg("drop_what", "Drop what?")}}, "", 0
	}
	match, err := resolve.Object(e.State, e.Defs, e.Locale, name)
	if err != nil || !state.HasItem(e.State, match.ID) {
		return types.Result{Output: []string{e.msg("dont_have", "You don't have that.")}}, "", 0
	}
	if err := state.MoveItem(e.State, e.Defs, match.ID, e.State.Location); err != nil {
		return types.Result{Output: []string{err.Error()}}, "", 0
	}
	return types.Result{
		Effects: []types.Effect{{Type: "move_item", Params: map[string]any{"item": match.ID, "to": e.State.Location}}},
		Output:  []string{e.msgf("drop_ok", "You drop the %s.", e.entityName(match.ID))},
	}, "drop", 1
}

func (e *Engine) talk(name string) (types.Result, string, int) {
	if name == "" {
		return types.Result{Output: []string{e.msg("talk_whom", "Talk to whom?")}}, "", 0
	}
	match, err := resolve.Object(e.State, e.Defs, e.Locale, name)
	if err != nil {
		return types.Result{Output: []string{e.resolveMessage(err, types.Intent{Verb: "talk", Object: name})}}, "", 0
	}
	if match.Kind != resolve.KindNPC {
		return types.Result{Output: []string{e.msg("cant_talk", "You can't talk to that.")}}, "", 0
	}
	// State-dependent dialogue line, keyed "<npc>.say.<state>" with a
	// plain "<npc>.say" fallback.
	ns := e.State.NPCs[match.ID]
	if line, ok := e.Locale.Messages[match.ID+".say."+ns.State]; ok {
		return types.Result{Output: []string{line}}, "", 0
	}
	if line, ok := e.Locale.Messages[match.ID+".say"]; ok {
		return types.Result{Output: []string{line}}, "", 0
	}
	return types.Result{Output: []string{e.msgf("nothing_to_say", "%s has nothing to say right now.", e.entityName(match.ID))}}, "", 0
}

func (e *Engine) examine(name string) types.Result {
	match, err := resolve.Object(e.State, e.Defs, e.Locale, name)
	if err != nil {
		return types.Result{Output: []string{e.resolveMessage(err, types.Intent{Verb: "examine", Object: name})}}
	}
	var desc string
	switch match.Kind {
	case resolve.KindItem:
		desc = e.stateDescription(match.ID, e.State.Items[match.ID].State)
	case resolve.KindNPC:
		desc = e.stateDescription(match.ID, e.State.NPCs[match.ID].State)
	case resolve.KindExit:
		exits := state.RoomExits(e.State, e.Defs, e.State.Location)
		if exit, ok := exits[match.ID]; ok {
			desc = e.Locale.Descriptions[exit.Target]
		}
	}
	if desc == "" {
		desc = e.msg("nothing_special", "You see nothing special about it.")
	}
	return types.Result{Output: []string{desc}}
}

func (e *Engine) inventory() types.Result {
	if len(e.State.Inventory) == 0 {
		return types.Result{Output: []string{e.msg("inventory_empty", "You are carrying nothing.")}}
	}
	names := make([]string, len(e.State.Inventory))
	for i, id := range e.State.Inventory {
		names[i] = e.entityName(id)
	}
	return types.Result{Output: []string{e.msgf("inventory_list", "You are carrying: %s.", strings.Join(names, ", "))}}
}

func (e *Engine) help() types.Result {
	verbs := make([]string, 0, len(e.Locale.Verbs))
	for v := range e.Locale.Verbs {
		verbs = append(verbs, v)
	}
	sort.Strings(verbs)
	return types.Result{Output: []string{e.msgf("help", "You can: %s.", strings.Join(verbs, ", "))}}
}

// checkMeetings fires first-meeting events for NPCs in the current room.
func (e *Engine) checkMeetings(result *types.Result) {
	for _, id := range state.NPCsInRoom(e.State, e.State.Location) {
		ns := e.State.NPCs[id]
		if ns.Met {
			continue
		}
		def := e.Defs.NPCs[id]
		if def.Meet != "" && !state.Holds(e.State, e.Defs, def.Meet) {
			continue
		}
		state.MeetNPC(e.State, id)
		if text, ok := e.Locale.Messages[id+".meet"]; ok {
			result.Output = append(result.Output, text)
		}
	}
}

// checkEndings evaluates endings in declaration order; the first satisfied
// terminal ending wins. A satisfied non-terminal ending is a milestone: its
// locale text is appended to the output once, the first time it holds.
func (e *Engine) checkEndings(result *types.Result) string {
	for _, ending := range e.Defs.Endings {
		if !state.Holds(e.State, e.Defs, ending.Condition) {
			continue
		}
		if ending.Terminal {
			return ending.ID
		}
		if e.State.Fired[ending.ID] {
			continue
		}
		e.State.Fired[ending.ID] = true
		if text, ok := e.Locale.Endings[ending.ID]; ok {
			result.Output = append(result.Output, text)
		}
	}
	return ""
}

// describeRoom produces room description, visible items and NPCs, and open
// exits, in a deterministic order.
func (e *Engine) describeRoom(roomID string) []string {
	var out []string
	if desc, ok := e.Locale.Descriptions[roomID]; ok {
		out = append(out, desc)
	}

	items := state.ItemsInRoom(e.State, roomID)
	if len(items) > 0 {
		names := make([]string, len(items))
		for i, id := range items {
			names[i] = e.entityName(id)
		}
		out = append(out, e.msgf("room_items", "You see: %s.", strings.Join(names, ", ")))
	}

	npcs := state.NPCsInRoom(e.State, roomID)
	if len(npcs) > 0 {
		names := make([]string, len(npcs))
		for i, id := range npcs {
			names[i] = e.entityName(id)
		}
		out = append(out, e.msgf("room_npcs", "Here: %s.", strings.Join(names, ", ")))
	}

	exits := state.RoomExits(e.State, e.Defs, roomID)
	dirs := make([]string, 0, len(exits))
	for dir, exit := range exits {
		if state.Holds(e.State, e.Defs, exit.Condition) {
			dirs = append(dirs, dir)
		}
	}
	if len(dirs) > 0 {
		sort.Strings(dirs)
		out = append(out, e.msgf("room_exits", "Exits: %s.", strings.Join(dirs, ", ")))
	}
	return out
}

// stateDescription looks up "<id>.<state>" first, then the plain id.
func (e *Engine) stateDescription(id, st string) string {
	if st != "" {
		if desc, ok := e.Locale.Descriptions[id+"."+st]; ok {
			return desc
		}
	}
	return e.Locale.Descriptions[id]
}

// entityName returns the primary locale name, falling back to the id.
func (e *Engine) entityName(id string) string {
	if names := e.Locale.Names[id]; len(names) > 0 {
		return names[0]
	}
	return id
}

func (e *Engine) knownVerb(verb string) bool {
	_, ok := e.Locale.Verbs[verb]
	return ok
}

// resolveMessage maps a resolution error to a player-facing locale message.
func (e *Engine) resolveMessage(err error, intent types.Intent) string {
	var pre *resolve.PreconditionError
	switch {
	case errors.Is(err, resolve.ErrUnknownVerb):
		return e.msgf("unknown_verb", "I don't know how to %s.", intent.Verb)
	case errors.Is(err, resolve.ErrUnknownObject):
		return e.msgf("unknown_object", "You don't see any %s here.", intent.Object)
	case errors.As(err, &pre):
		if text, ok := e.Locale.Messages[pre.ActionID+".blocked"]; ok {
			return text
		}
		return e.msg("blocked", "That doesn't work right now.")
	case errors.Is(err, resolve.ErrNoSuchAction):
		return e.msgf("no_such_action", "You can't %s that.", intent.Verb)
	default:
		return err.Error()
	}
}

func (e *Engine) suggestMessage(intent types.Intent) string {
	cmd := intent.Verb
	if intent.Object != "" {
		cmd += " " + intent.Object
	}
	if intent.Object2 != "" {
		cmd += " " + intent.Object2
	}
	return e.msgf("suggest", "Did you mean: %s?", cmd)
}

// llmContext snapshots world state for the language backend.
func (e *Engine) llmContext() llm.Context {
	inv := make([]string, len(e.State.Inventory))
	for i, id := range e.State.Inventory {
		inv[i] = e.entityName(id)
	}

	itemStates := map[string]string{}
	for id, st := range e.State.Items {
		if st.State != "" {
			itemStates[id] = st.State
		}
	}
	npcStates := map[string]string{}
	for id, st := range e.State.NPCs {
		if st.State != "" {
			npcStates[id] = st.State
		}
	}

	verbs := make([]string, 0, len(e.Locale.Verbs))
	for v := range e.Locale.Verbs {
		verbs = append(verbs, v)
	}
	var nouns []string
	for _, names := range e.Locale.Names {
		nouns = append(nouns, names...)
	}
	sort.Strings(nouns)

	var recent []string
	for i := max(0, len(e.State.Transcript)-5); i < len(e.State.Transcript); i++ {
		recent = append(recent, e.State.Transcript[i].Input)
	}

	return llm.Context{
		RoomDescription: e.Locale.Descriptions[e.State.Location],
		Inventory:       inv,
		ItemStates:      itemStates,
		NPCStates:       npcStates,
		Language:        e.Locale.Language,
		AllowedVerbs:    verbs,
		KnownNouns:      nouns,
		RecentCommands:  recent,
		Guidance:        e.Locale.Messages["llm.guidance"],
	}
}

func (e *Engine) msg(key, fallback string) string {
	if text, ok := e.Locale.Messages[key]; ok {
		return text
	}
	return fallback
}

// msgf formats a message. Locale overrides use $a/$b placeholders; the
// fallback is a plain format string.
func (e *Engine) msgf(key, fallback string, args ...any) string {
	if text, ok := e.Locale.Messages[key]; ok {
		strs := make([]string, len(args))
		for i, a := range args {
			strs[i] = fmt.Sprint(a)
		}
		a, b := "", ""
		if len(strs) > 0 {
			a = strs[0]
		}
		if len(strs) > 1 {
			b = strs[1]
		}
		return e.interpolate(text, a, b)
	}
	return fmt.Sprintf(fallback, args...)
}

func (e *Engine) interpolate(text, a, b string) string {
	text = strings.ReplaceAll(text, "$a", a)
	text = strings.ReplaceAll(text, "$b", b)
	return text
}
