package application

import "kiosk-voice/internal/domain"

// KioskUI is the set of procedures owned by the kiosk screen.
type KioskUI interface {
	RenderCart()
	Order()
	SelectAge(group domain.AgeGroup)
	SelectCategory(name string)
	SelectMenu(productID int)
}

// KioskState bundles what the executor borrows from the kiosk: the catalog,
// the cart and the UI procedures.
type KioskState struct {
	Catalog    domain.Catalog
	Cart       *domain.Cart
	UI         KioskUI
	Categories []string
}
