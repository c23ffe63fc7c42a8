// Package badge describes the cart badge shown in every page location and
// the signal that keeps badges of different tabs and instances in step.
package badge

import (
	"context"
	"strconv"
)

// Selectors lists every element that renders the cart count
var Selectors = []string{".carrito-count", ".cart-count", "#carrito-contador"}

// State is the presentation of a badge for a given count
type State struct {
	Count     int      `json:"count"`
	Text      string   `json:"text"`
	Display   string   `json:"display"`
	Position  string   `json:"position"`
	Top       string   `json:"top"`
	Right     string   `json:"right"`
	ZIndex    int      `json:"zIndex"`
	Selectors []string `json:"selectors"`
}

// StateFor returns the badge presentation for count.
// The badge is visible iff count > 0.
func StateFor(count int) State {
	if count < 0 {
		count = 0
	}
	display := "none"
	if count > 0 {
		display = "flex"
	}
	return State{
		Count:     count,
		Text:      strconv.Itoa(count),
		Display:   display,
		Position:  "absolute",
		Top:       "-8px",
		Right:     "-8px",
		ZIndex:    1001,
		Selectors: Selectors,
	}
}

// Visible reports whether the badge is shown
func (s State) Visible() bool {
	return s.Display != "none"
}

// CountUpdate is the payload exchanged between tabs and instances.
// It carries the count itself so a receiver never needs to fetch it.
type CountUpdate struct {
	SessionID string `json:"session_id"`
	Count     int    `json:"count"`
	Origin    string `json:"origin,omitempty"` // instance that published the update
	Timestamp int64  `json:"timestamp"`
}

// CountSignal delivers count updates to every storefront instance.
// Subscribe blocks until ctx is cancelled or Close is called.
type CountSignal interface {
	Publish(ctx context.Context, update CountUpdate) error
	Subscribe(ctx context.Context, callback func(CountUpdate)) error
	Close() error
}
