package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

type Action string

const (
	ActionAddToCart      Action = "addToCart"
	ActionClearCart      Action = "clearCart"
	ActionPlaceOrder     Action = "placeOrder"
	ActionChangeAge      Action = "changeAge"
	ActionSelectCategory Action = "selectCategory"
	ActionShowMenu       Action = "showMenu"
	ActionRemoveFromCart Action = "removeFromCart"
)

// Params are the loosely typed arguments sent along with an action.
type Params map[string]any

// String returns the parameter formatted as text, or "" when absent.
func (p Params) String(key string) string {
	v, ok := p[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return fmt.Sprint(v)
}

// Int returns the parameter as an integer. Missing, zero or empty values
// yield def; values that cannot be read as a whole number return an error.
func (p Params) Int(key string, def int) (int, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return def, nil
	}
	var n int
	switch t := v.(type) {
	case float64:
		if t != math.Trunc(t) || math.Abs(t) > math.MaxInt32 {
			return 0, fmt.Errorf("%w: %s=%v is not a whole number", ErrInvalidParam, key, t)
		}
		n = int(t)
	case int:
		n = t
	case string:
		if strings.TrimSpace(t) == "" {
			return def, nil
		}
		parsed, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return 0, fmt.Errorf("%w: %s=%q is not a number", ErrInvalidParam, key, t)
		}
		n = parsed
	default:
		return 0, fmt.Errorf("%w: %s has type %T", ErrInvalidParam, key, v)
	}
	if n == 0 {
		return def, nil
	}
	return n, nil
}

// Intent is a command returned by the automation webhook.
type Intent struct {
	Action Action
	Params Params
}

// Reply is the decoded webhook answer.
type Reply struct {
	Message string
	Intent  *Intent
}
