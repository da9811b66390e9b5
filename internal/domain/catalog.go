package domain

import (
	"fmt"
	"strings"
)

type Product struct {
	ID       int    `yaml:"id" json:"id"`
	Name     string `yaml:"name" json:"name"`
	Category string `yaml:"category" json:"category"`
	Price    int    `yaml:"price" json:"price"`
}

// Catalog is the ordered product list shown by the kiosk.
type Catalog []Product

// Match returns the first product whose name contains query or is contained
// in it, ignoring case.
func (c Catalog) Match(query string) (*Product, bool) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil, false
	}
	for i := range c {
		name := strings.ToLower(c[i].Name)
		if strings.Contains(name, q) || strings.Contains(q, name) {
			return &c[i], true
		}
	}
	return nil, false
}

// FindContaining returns the first product whose name contains query, ignoring case.
func (c Catalog) FindContaining(query string) (*Product, bool) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil, false
	}
	for i := range c {
		if strings.Contains(strings.ToLower(c[i].Name), q) {
			return &c[i], true
		}
	}
	return nil, false
}

func (c Catalog) Names() []string {
	names := make([]string, len(c))
	for i, p := range c {
		names[i] = p.Name
	}
	return names
}

// Options are the drink options chosen for a cart line.
type Options struct {
	Size  string `json:"size"`
	Sweet string `json:"sweet"`
	Ice   string `json:"ice"`
}

// ParseOptions maps the short option codes used by the webhook
// (s/m/l, 0/1/2, 0/1/2) onto kiosk option values. Unknown codes fall back to
// the middle value.
func ParseOptions(size, sweet, ice string) Options {
	opts := Options{Size: "M", Sweet: "50", Ice: "normal"}
	switch strings.ToLower(size) {
	case "s":
		opts.Size = "S"
	case "m":
		opts.Size = "M"
	case "l":
		opts.Size = "L"
	}
	switch sweet {
	case "0":
		opts.Sweet = "0"
	case "1":
		opts.Sweet = "50"
	case "2":
		opts.Sweet = "100"
	}
	switch ice {
	case "0":
		opts.Ice = "less"
	case "1":
		opts.Ice = "normal"
	case "2":
		opts.Ice = "more"
	}
	return opts
}

type CartLine struct {
	Product
	Options
	Qty int `json:"qty"`
}

// Key identifies lines that can be merged.
func (l CartLine) Key() string {
	return lineKey(l.ID, l.Options)
}

func lineKey(id int, o Options) string {
	return fmt.Sprintf("%d-%s-%s-%s", id, o.Size, o.Sweet, o.Ice)
}

type Cart struct {
	Lines []CartLine `json:"lines"`
}

// Add puts one unit of the product into the cart, merging with an existing
// line that has the same product and options.
func (c *Cart) Add(p Product, o Options) {
	c.AddQty(p, o, 1)
}

// AddQty adds n units in one step, merging into a line with the same
// product and options.
func (c *Cart) AddQty(p Product, o Options, n int) {
	if n <= 0 {
		return
	}
	key := lineKey(p.ID, o)
	for i := range c.Lines {
		if c.Lines[i].Key() == key {
			c.Lines[i].Qty += n
			return
		}
	}
	c.Lines = append(c.Lines, CartLine{Product: p, Options: o, Qty: n})
}

func (c *Cart) Clear() {
	c.Lines = c.Lines[:0]
}

// RemoveContaining drops the first line whose product name contains name,
// ignoring case. It reports whether a line was removed.
func (c *Cart) RemoveContaining(name string) (CartLine, bool) {
	q := strings.ToLower(strings.TrimSpace(name))
	if q == "" {
		return CartLine{}, false
	}
	for i, l := range c.Lines {
		if strings.Contains(strings.ToLower(l.Name), q) {
			c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
			return l, true
		}
	}
	return CartLine{}, false
}

func (c *Cart) Total() int {
	total := 0
	for _, l := range c.Lines {
		total += l.Price * l.Qty
	}
	return total
}

func (c *Cart) Units() int {
	n := 0
	for _, l := range c.Lines {
		n += l.Qty
	}
	return n
}

// Snapshot returns a copy that can leave the owning goroutine.
func (c *Cart) Snapshot() Cart {
	lines := make([]CartLine, len(c.Lines))
	copy(lines, c.Lines)
	return Cart{Lines: lines}
}
