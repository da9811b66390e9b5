package application_test

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"kiosk-voice/internal/application"
	"kiosk-voice/internal/domain"
)

type mockUI struct {
	renders    int
	orders     int
	ages       []domain.AgeGroup
	categories []string
	menus      []int
	panicOn    string
}

func (m *mockUI) RenderCart() {
	if m.panicOn == "render" {
		panic("render failed")
	}
	m.renders++
}
func (m *mockUI) Order()                          { m.orders++ }
func (m *mockUI) SelectAge(group domain.AgeGroup) { m.ages = append(m.ages, group) }
func (m *mockUI) SelectCategory(name string)      { m.categories = append(m.categories, name) }
func (m *mockUI) SelectMenu(productID int)        { m.menus = append(m.menus, productID) }

func newTestExecutor(catalog domain.Catalog, cart *domain.Cart, ui *mockUI) *application.Executor {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return application.NewExecutor(application.KioskState{
		Catalog:    catalog,
		Cart:       cart,
		UI:         ui,
		Categories: []string{"coffee", "tea", "dessert"},
	}, nil, logger)
}

func TestExecutor_AddToCartQuantity(t *testing.T) {
	catalog := domain.Catalog{{ID: 1, Name: "Americano"}}
	cart := &domain.Cart{}
	ui := &mockUI{}
	exec := newTestExecutor(catalog, cart, ui)

	err := exec.Execute(domain.Intent{
		Action: domain.ActionAddToCart,
		Params: domain.Params{"name": "americano", "quantity": float64(2)},
	})
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}

	if len(cart.Lines) != 1 {
		t.Fatalf("lines: got %d, want 1", len(cart.Lines))
	}
	if cart.Lines[0].Qty != 2 {
		t.Errorf("qty: got %d, want 2", cart.Lines[0].Qty)
	}
	if ui.renders != 1 {
		t.Errorf("renders: got %d, want 1", ui.renders)
	}
}

func TestExecutor_AddToCartRejectsBadQuantity(t *testing.T) {
	tests := []struct {
		name     string
		quantity any
	}{
		{"above cap", float64(100)},
		{"huge", float64(3e8)},
		{"beyond int range", float64(1e20)},
		{"fractional", float64(1.5)},
		{"negative", float64(-2)},
		{"huge string", "300000000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			catalog := domain.Catalog{{ID: 1, Name: "Americano"}}
			cart := &domain.Cart{}
			exec := newTestExecutor(catalog, cart, &mockUI{})

			start := time.Now()
			err := exec.Execute(domain.Intent{
				Action: domain.ActionAddToCart,
				Params: domain.Params{"name": "americano", "quantity": tt.quantity},
			})
			if !errors.Is(err, domain.ErrInvalidParam) {
				t.Fatalf("expected ErrInvalidParam, got %v", err)
			}
			if elapsed := time.Since(start); elapsed > time.Second {
				t.Errorf("rejecting took %s", elapsed)
			}
			if len(cart.Lines) != 0 {
				t.Errorf("cart should be untouched, got %+v", cart.Lines)
			}
		})
	}
}

func TestExecutor_AddToCartAtCap(t *testing.T) {
	catalog := domain.Catalog{{ID: 1, Name: "Americano"}}
	cart := &domain.Cart{}
	exec := newTestExecutor(catalog, cart, &mockUI{})

	err := exec.Execute(domain.Intent{
		Action: domain.ActionAddToCart,
		Params: domain.Params{"name": "americano", "quantity": float64(99)},
	})
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if len(cart.Lines) != 1 || cart.Lines[0].Qty != 99 {
		t.Errorf("cart: got %+v, want one line of 99", cart.Lines)
	}
}

func TestExecutor_AddToCartMergesExistingLine(t *testing.T) {
	product := domain.Product{ID: 1, Name: "Americano"}
	catalog := domain.Catalog{product}
	cart := &domain.Cart{Lines: []domain.CartLine{{
		Product: product,
		Options: domain.Options{Size: "M", Sweet: "50", Ice: "normal"},
		Qty:     1,
	}}}
	exec := newTestExecutor(catalog, cart, &mockUI{})

	err := exec.Execute(domain.Intent{
		Action: domain.ActionAddToCart,
		Params: domain.Params{"name": "Americano", "size": "m", "sweet": "1", "ice": float64(1)},
	})
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}

	if len(cart.Lines) != 1 {
		t.Fatalf("lines: got %d, want 1", len(cart.Lines))
	}
	if cart.Lines[0].Qty != 2 {
		t.Errorf("qty: got %d, want 2", cart.Lines[0].Qty)
	}
}

func TestExecutor_AddToCartUnknownProduct(t *testing.T) {
	catalog := domain.Catalog{{ID: 1, Name: "Americano"}, {ID: 2, Name: "Latte"}}
	cart := &domain.Cart{}
	ui := &mockUI{}
	exec := newTestExecutor(catalog, cart, ui)

	err := exec.Execute(domain.Intent{
		Action: domain.ActionAddToCart,
		Params: domain.Params{"name": "Americana Mocha"},
	})
	if !errors.Is(err, domain.ErrInvalidParam) {
		t.Fatalf("expected ErrInvalidParam, got %v", err)
	}
	if len(cart.Lines) != 0 || ui.renders != 0 {
		t.Error("cart should not change")
	}
}

func TestExecutor_ChangeAge(t *testing.T) {
	ui := &mockUI{}
	exec := newTestExecutor(nil, &domain.Cart{}, ui)

	err := exec.Execute(domain.Intent{Action: domain.ActionChangeAge, Params: domain.Params{"ageGroup": "toddler"}})
	if !errors.Is(err, domain.ErrInvalidParam) {
		t.Errorf("expected ErrInvalidParam, got %v", err)
	}
	if len(ui.ages) != 0 {
		t.Errorf("invalid age should not be applied, got %v", ui.ages)
	}

	if err := exec.Execute(domain.Intent{Action: domain.ActionChangeAge, Params: domain.Params{"ageGroup": "senior"}}); err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if len(ui.ages) != 1 || ui.ages[0] != domain.AgeSenior {
		t.Errorf("ages: got %v", ui.ages)
	}
}

func TestExecutor_SelectCategory(t *testing.T) {
	ui := &mockUI{}
	exec := newTestExecutor(nil, &domain.Cart{}, ui)

	if err := exec.Execute(domain.Intent{Action: domain.ActionSelectCategory, Params: domain.Params{"category": "juice"}}); !errors.Is(err, domain.ErrInvalidParam) {
		t.Errorf("expected ErrInvalidParam, got %v", err)
	}
	if err := exec.Execute(domain.Intent{Action: domain.ActionSelectCategory, Params: domain.Params{"category": "Tea"}}); err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if len(ui.categories) != 1 || ui.categories[0] != "tea" {
		t.Errorf("categories: got %v", ui.categories)
	}
}

func TestExecutor_ShowMenu(t *testing.T) {
	catalog := domain.Catalog{{ID: 1, Name: "Americano"}, {ID: 7, Name: "Green Tea Latte"}}
	ui := &mockUI{}
	exec := newTestExecutor(catalog, &domain.Cart{}, ui)

	if err := exec.Execute(domain.Intent{Action: domain.ActionShowMenu, Params: domain.Params{"menuName": "green tea"}}); err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if len(ui.menus) != 1 || ui.menus[0] != 7 {
		t.Errorf("menus: got %v", ui.menus)
	}
}

func TestExecutor_RemoveFromEmptyCart(t *testing.T) {
	ui := &mockUI{}
	cart := &domain.Cart{}
	exec := newTestExecutor(nil, cart, ui)

	err := exec.Execute(domain.Intent{Action: domain.ActionRemoveFromCart, Params: domain.Params{"menuName": "Latte"}})
	if !errors.Is(err, domain.ErrInvalidParam) {
		t.Errorf("expected ErrInvalidParam, got %v", err)
	}
	if len(cart.Lines) != 0 || ui.renders != 0 {
		t.Error("empty cart should stay untouched")
	}
}

func TestExecutor_ClearCartAndPlaceOrder(t *testing.T) {
	catalog := domain.Catalog{{ID: 1, Name: "Americano"}}
	cart := &domain.Cart{}
	ui := &mockUI{}
	exec := newTestExecutor(catalog, cart, ui)

	_ = exec.Execute(domain.Intent{Action: domain.ActionAddToCart, Params: domain.Params{"name": "americano"}})
	if err := exec.Execute(domain.Intent{Action: domain.ActionClearCart}); err != nil {
		t.Fatalf("clearCart: %v", err)
	}
	if len(cart.Lines) != 0 {
		t.Errorf("cart should be empty, got %d lines", len(cart.Lines))
	}

	if err := exec.Execute(domain.Intent{Action: domain.ActionPlaceOrder}); err != nil {
		t.Fatalf("placeOrder: %v", err)
	}
	if ui.orders != 1 {
		t.Errorf("orders: got %d, want 1", ui.orders)
	}
}

func TestExecutor_UnknownAction(t *testing.T) {
	exec := newTestExecutor(nil, &domain.Cart{}, &mockUI{})

	err := exec.Execute(domain.Intent{Action: "makeCoffee"})
	if !errors.Is(err, domain.ErrUnknownAction) {
		t.Errorf("expected ErrUnknownAction, got %v", err)
	}
}

func TestExecutor_RecoversFromPanic(t *testing.T) {
	catalog := domain.Catalog{{ID: 1, Name: "Americano"}}
	ui := &mockUI{panicOn: "render"}
	exec := newTestExecutor(catalog, &domain.Cart{}, ui)

	err := exec.Execute(domain.Intent{Action: domain.ActionAddToCart, Params: domain.Params{"name": "americano"}})
	if err == nil {
		t.Fatal("expected the panic to be reported as an error")
	}
}
