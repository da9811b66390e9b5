package application

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/antzucaro/matchr"

	"kiosk-voice/internal/domain"
)

const (
	suggestionThreshold = 0.8
	maxQuantity         = 99
)

// Executor applies intents to the kiosk cart and screen.
type Executor struct {
	kiosk   KioskState
	metrics Metrics
	logger  *slog.Logger
}

func NewExecutor(kiosk KioskState, metrics Metrics, logger *slog.Logger) *Executor {
	if metrics == nil {
		metrics = NoopMetrics{}
	}
	return &Executor{
		kiosk:   kiosk,
		metrics: metrics,
		logger:  logger,
	}
}

// Execute runs one intent. Failures, including panics inside a handler, are
// logged and returned; they never propagate further.
func (e *Executor) Execute(intent domain.Intent) (err error) {
	params := intent.Params
	if params == nil {
		params = domain.Params{}
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("action %s panicked: %v", intent.Action, r)
		}
		result := "ok"
		if err != nil {
			result = "rejected"
			e.logger.Warn("action not applied", "action", intent.Action, "params", params, "error", err)
		}
		e.metrics.ActionExecuted(intent.Action, result)
	}()

	e.logger.Info("executing action", "action", intent.Action, "params", params)

	switch intent.Action {
	case domain.ActionAddToCart:
		return e.addToCart(params)
	case domain.ActionClearCart:
		return e.clearCart()
	case domain.ActionPlaceOrder:
		e.kiosk.UI.Order()
		return nil
	case domain.ActionChangeAge:
		return e.changeAge(params.String("ageGroup"))
	case domain.ActionSelectCategory:
		return e.selectCategory(params.String("category"))
	case domain.ActionShowMenu:
		return e.showMenu(params.String("menuName"))
	case domain.ActionRemoveFromCart:
		return e.removeFromCart(params.String("menuName"))
	default:
		return fmt.Errorf("%w: %q", domain.ErrUnknownAction, intent.Action)
	}
}

func (e *Executor) addToCart(params domain.Params) error {
	name := params.String("name")
	if name == "" {
		return fmt.Errorf("%w: name is required", domain.ErrInvalidParam)
	}

	qty, err := params.Int("quantity", 1)
	if err != nil {
		return err
	}
	if qty < 0 || qty > maxQuantity {
		return fmt.Errorf("%w: quantity %d", domain.ErrInvalidParam, qty)
	}

	product, ok := e.kiosk.Catalog.Match(name)
	if !ok {
		if suggestion := e.suggest(name); suggestion != "" {
			return fmt.Errorf("%w: no product matches %q (did you mean %q?)", domain.ErrInvalidParam, name, suggestion)
		}
		return fmt.Errorf("%w: no product matches %q", domain.ErrInvalidParam, name)
	}

	opts := domain.ParseOptions(params.String("size"), params.String("sweet"), params.String("ice"))
	e.kiosk.Cart.AddQty(*product, opts, qty)

	e.logger.Info("added to cart", "product", product.Name, "qty", qty, "size", opts.Size, "sweet", opts.Sweet, "ice", opts.Ice)
	e.kiosk.UI.RenderCart()
	return nil
}

func (e *Executor) clearCart() error {
	e.kiosk.Cart.Clear()
	e.kiosk.UI.RenderCart()
	return nil
}

func (e *Executor) changeAge(value string) error {
	group, err := domain.ParseAgeGroup(value)
	if err != nil {
		return err
	}
	e.kiosk.UI.SelectAge(group)
	return nil
}

func (e *Executor) selectCategory(category string) error {
	idx := slices.IndexFunc(e.kiosk.Categories, func(c string) bool {
		return strings.EqualFold(c, category)
	})
	if idx < 0 {
		return fmt.Errorf("%w: category %q", domain.ErrInvalidParam, category)
	}
	e.kiosk.UI.SelectCategory(e.kiosk.Categories[idx])
	return nil
}

func (e *Executor) showMenu(menuName string) error {
	product, ok := e.kiosk.Catalog.FindContaining(menuName)
	if !ok {
		return fmt.Errorf("%w: no product named %q", domain.ErrInvalidParam, menuName)
	}
	e.kiosk.UI.SelectMenu(product.ID)
	return nil
}

func (e *Executor) removeFromCart(menuName string) error {
	line, ok := e.kiosk.Cart.RemoveContaining(menuName)
	if !ok {
		return fmt.Errorf("%w: %q is not in the cart", domain.ErrInvalidParam, menuName)
	}
	e.logger.Info("removed from cart", "product", line.Name, "qty", line.Qty)
	e.kiosk.UI.RenderCart()
	return nil
}

// suggest returns the catalog name closest to name, or "" when nothing is close.
func (e *Executor) suggest(name string) string {
	best, bestScore := "", 0.0
	for _, candidate := range e.kiosk.Catalog.Names() {
		score := matchr.JaroWinkler(strings.ToLower(name), strings.ToLower(candidate), false)
		if score > bestScore {
			best, bestScore = candidate, score
		}
	}
	if bestScore < suggestionThreshold {
		return ""
	}
	return best
}
