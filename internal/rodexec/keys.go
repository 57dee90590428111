package rodexec

import (
	"fmt"
	"strings"

	"github.com/go-rod/rod/lib/input"
)

// keyFor maps a recorded key name to a CDP key. Names are matched
// case-insensitively so documents written by hand stay forgiving.
func keyFor(name string) (input.Key, error) {
	switch strings.ToLower(name) {
	case "enter", "return":
		return input.Enter, nil
	case "tab":
		return input.Tab, nil
	case "escape", "esc":
		return input.Escape, nil
	case "backspace":
		return input.Backspace, nil
	case "delete":
		return input.Delete, nil
	case "space":
		return input.Space, nil
	case "arrowup", "arrow_up", "up":
		return input.ArrowUp, nil
	case "arrowdown", "arrow_down", "down":
		return input.ArrowDown, nil
	case "arrowleft", "arrow_left", "left":
		return input.ArrowLeft, nil
	case "arrowright", "arrow_right", "right":
		return input.ArrowRight, nil
	case "home":
		return input.Home, nil
	case "end":
		return input.End, nil
	case "pageup", "page_up":
		return input.PageUp, nil
	case "pagedown", "page_down":
		return input.PageDown, nil
	}

	// Single printable characters press their own key.
	if r := []rune(name); len(r) == 1 {
		return input.Key(r[0]), nil
	}
	return 0, fmt.Errorf("unsupported key %q", name)
}
