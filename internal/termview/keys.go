package termview

import "github.com/gdamore/tcell/v2"

// Action is a playback command bound to a key.
type Action int

const (
	ActionNone Action = iota
	ActionQuit
	ActionTogglePause
	ActionSeekBack
	ActionSeekForward
	ActionFaster
	ActionSlower
	ActionReverse
	ActionToggleLoop
	ActionRestart
)

func (a Action) String() string {
	switch a {
	case ActionQuit:
		return "quit"
	case ActionTogglePause:
		return "toggle-pause"
	case ActionSeekBack:
		return "seek-back"
	case ActionSeekForward:
		return "seek-forward"
	case ActionFaster:
		return "faster"
	case ActionSlower:
		return "slower"
	case ActionReverse:
		return "reverse"
	case ActionToggleLoop:
		return "toggle-loop"
	case ActionRestart:
		return "restart"
	default:
		return "none"
	}
}

// KeyAction maps a key press to its action.
//
//	q, Esc, Ctrl-C  quit
//	space           pause / resume
//	←  →            seek 5s
//	+  -            speed up / down
//	r               reverse
//	l               toggle loop
//	Home            restart
func KeyAction(key tcell.Key, r rune) Action {
	switch key {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return ActionQuit
	case tcell.KeyLeft:
		return ActionSeekBack
	case tcell.KeyRight:
		return ActionSeekForward
	case tcell.KeyHome:
		return ActionRestart
	case tcell.KeyRune:
		switch r {
		case 'q', 'Q':
			return ActionQuit
		case ' ':
			return ActionTogglePause
		case '+', '=':
			return ActionFaster
		case '-', '_':
			return ActionSlower
		case 'r', 'R':
			return ActionReverse
		case 'l', 'L':
			return ActionToggleLoop
		}
	}
	return ActionNone
}
