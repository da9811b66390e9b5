package kiosk

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"kiosk-voice/internal/application"
	"kiosk-voice/internal/domain"
)

// Notifier sends a staff alert.
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

// Selection is what the kiosk screen currently shows.
type Selection struct {
	AgeGroup domain.AgeGroup `json:"age_group"`
	Category string          `json:"category"`
	MenuID   int             `json:"menu_id"`
	Orders   int             `json:"orders"`
}

// Store is an in-memory stand-in for the kiosk screen. The cart is owned by
// the pipeline goroutine; the selection can be read from anywhere.
type Store struct {
	menu     *Menu
	cart     *domain.Cart
	notifier Notifier
	logger   *slog.Logger

	mu        sync.Mutex
	selection Selection
}

func NewStore(menu *Menu, notifier Notifier, logger *slog.Logger) *Store {
	return &Store{
		menu:     menu,
		cart:     &domain.Cart{},
		notifier: notifier,
		logger:   logger,
	}
}

// State hands the catalog, cart and UI procedures to the executor.
func (s *Store) State() application.KioskState {
	return application.KioskState{
		Catalog:    s.menu.Products,
		Cart:       s.cart,
		UI:         s,
		Categories: s.menu.Categories,
	}
}

func (s *Store) RenderCart() {
	lines := make([]string, 0, len(s.cart.Lines))
	for _, l := range s.cart.Lines {
		lines = append(lines, fmt.Sprintf("%s(%s/%s/%s) x%d", l.Name, l.Size, l.Sweet, l.Ice, l.Qty))
	}
	s.logger.Info("cart updated",
		"items", s.cart.Units(),
		"total", s.cart.Total(),
		"lines", strings.Join(lines, ", "),
	)
}

// Order places the current cart. An empty cart is ignored.
func (s *Store) Order() {
	if s.cart.Units() == 0 {
		s.logger.Warn("order requested with an empty cart")
		return
	}

	s.mu.Lock()
	s.selection.Orders++
	number := s.selection.Orders
	s.mu.Unlock()

	summary := orderSummary(number, s.cart)
	s.logger.Info("order placed", "number", number, "items", s.cart.Units(), "total", s.cart.Total())

	if s.notifier != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if err := s.notifier.Notify(ctx, summary); err != nil {
				s.logger.Error("sending order alert", "number", number, "error", err)
			}
		}()
	}

	s.cart.Clear()
	s.RenderCart()
}

func (s *Store) SelectAge(group domain.AgeGroup) {
	s.mu.Lock()
	s.selection.AgeGroup = group
	s.mu.Unlock()
	s.logger.Info("age group selected", "group", group)
}

func (s *Store) SelectCategory(name string) {
	s.mu.Lock()
	s.selection.Category = name
	s.mu.Unlock()
	s.logger.Info("category selected", "category", name)
}

func (s *Store) SelectMenu(productID int) {
	s.mu.Lock()
	s.selection.MenuID = productID
	s.mu.Unlock()
	s.logger.Info("menu selected", "id", productID)
}

func (s *Store) Selection() Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selection
}

func orderSummary(number int, cart *domain.Cart) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Order #%d: %d items, total %d\n", number, cart.Units(), cart.Total())
	for _, l := range cart.Lines {
		fmt.Fprintf(&b, "- %s %s sweet %s ice %s x%d\n", l.Name, l.Size, l.Sweet, l.Ice, l.Qty)
	}
	return strings.TrimSuffix(b.String(), "\n")
}
