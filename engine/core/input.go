package core

type Button uint16

const (
	BUTTON_LEFT Button = iota
	BUTTON_RIGHT
	BUTTON_MIDDLE
	BUTTON_MAX_BUTTONS
)

// Key code definitions
type KeyCode uint16

const (
	KEY_UNKNOWN KeyCode = 0x00
	KEY_ESCAPE  KeyCode = 0x1B
	KEY_SPACE   KeyCode = 0x20
	KEY_LEFT    KeyCode = 0x25
	KEY_UP      KeyCode = 0x26
	KEY_RIGHT   KeyCode = 0x27
	KEY_DOWN    KeyCode = 0x28
	KEY_N       KeyCode = 0x4E
	KEY_P       KeyCode = 0x50
	KEY_Q       KeyCode = 0x51
	KEY_R       KeyCode = 0x52
)

// Action tells presses, repeats and releases apart.
type Action uint8

const (
	ACTION_RELEASE Action = iota
	ACTION_PRESS
	ACTION_REPEAT
)

func (k KeyCode) String() string {
	switch k {
	case KEY_ESCAPE:
		return "Escape"
	case KEY_SPACE:
		return "Space"
	case KEY_LEFT:
		return "Left"
	case KEY_UP:
		return "Up"
	case KEY_RIGHT:
		return "Right"
	case KEY_DOWN:
		return "Down"
	case KEY_N, KEY_P, KEY_Q, KEY_R:
		return string(rune(k))
	default:
		return "Unknown"
	}
}
