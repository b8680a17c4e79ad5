// Package keymap translates keyboard chords into player actions. The
// mapping is externally configured data; windows consume it when turning
// key events into relayed commands.
package keymap

import (
	"fmt"
	"sort"
	"strings"

	"github.com/renotari/karaoke-player-sub002/internal/playback"
)

// ActionKind distinguishes playback commands from window verbs.
type ActionKind int

const (
	// ActionCommand relays a playback command on the bus.
	ActionCommand ActionKind = iota
	// ActionToggleFullscreen toggles the window's fullscreen state.
	ActionToggleFullscreen
)

// Action is what a chord resolves to.
type Action struct {
	Kind    ActionKind
	Command playback.Command // set when Kind == ActionCommand
}

// Map resolves normalized chords to actions.
type Map struct {
	bindings map[string]Action
}

// Default returns the built-in bindings used when the config carries none.
func Default() *Map {
	m := &Map{bindings: make(map[string]Action)}
	defaults := map[string]Action{
		"space": {Kind: ActionCommand, Command: playback.CmdPlayPause},
		"n":     {Kind: ActionCommand, Command: playback.CmdNext},
		"p":     {Kind: ActionCommand, Command: playback.CmdPrevious},
		"up":    {Kind: ActionCommand, Command: playback.CmdVolumeUp},
		"down":  {Kind: ActionCommand, Command: playback.CmdVolumeDown},
		"m":     {Kind: ActionCommand, Command: playback.CmdMute},
		"s":     {Kind: ActionCommand, Command: playback.CmdToggleSubtitles},
		"f":     {Kind: ActionToggleFullscreen},
	}
	for chord, action := range defaults {
		m.bindings[chord] = action
	}
	return m
}

// Load builds a Map from config data: chord -> action name, where an
// action name is either a playback command ("playpause", "volume-up", ...)
// or the window verb "fullscreen". Invalid entries produce an error rather
// than being silently ignored.
func Load(raw map[string]string) (*Map, error) {
	if len(raw) == 0 {
		return Default(), nil
	}

	m := &Map{bindings: make(map[string]Action, len(raw))}
	for chord, name := range raw {
		normalized, err := Normalize(chord)
		if err != nil {
			return nil, fmt.Errorf("invalid chord %q: %w", chord, err)
		}

		if name == "fullscreen" {
			m.bindings[normalized] = Action{Kind: ActionToggleFullscreen}
			continue
		}
		cmd, ok := playback.ParseCommand(name)
		if !ok {
			return nil, fmt.Errorf("unknown action %q for chord %q", name, chord)
		}
		m.bindings[normalized] = Action{Kind: ActionCommand, Command: cmd}
	}
	return m, nil
}

// Lookup resolves a chord. The chord is normalized first, so "Ctrl+Shift+F"
// and "shift+ctrl+f" resolve identically.
func (m *Map) Lookup(chord string) (Action, bool) {
	normalized, err := Normalize(chord)
	if err != nil {
		return Action{}, false
	}
	a, ok := m.bindings[normalized]
	return a, ok
}

// Normalize canonicalizes a chord string: lowercase, modifiers sorted,
// joined with "+". The last element is the key; preceding elements must be
// modifiers.
func Normalize(chord string) (string, error) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(chord)), "+")
	if len(parts) == 0 || parts[len(parts)-1] == "" {
		return "", fmt.Errorf("empty chord")
	}

	key := parts[len(parts)-1]
	mods := parts[:len(parts)-1]
	for _, mod := range mods {
		switch mod {
		case "ctrl", "alt", "shift", "super":
		default:
			return "", fmt.Errorf("unknown modifier %q", mod)
		}
	}
	sort.Strings(mods)

	return strings.Join(append(mods, key), "+"), nil
}
