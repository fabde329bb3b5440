package models

import (
	"errors"
	"strings"
)

var ErrInvalidItemID = errors.New("itemId is invalid")

// CartData maps a food id to a positive quantity. A missing key means zero.
type CartData map[string]int

// ValidateCartItemID rejects ids that cannot be used as a document field name.
func ValidateCartItemID(itemID string) error {
	trimmed := strings.TrimSpace(itemID)
	if trimmed == "" || trimmed != itemID {
		return ErrInvalidItemID
	}
	if strings.Contains(itemID, ".") || strings.HasPrefix(itemID, "$") {
		return ErrInvalidItemID
	}
	return nil
}

func (c *CartData) Add(itemID string) {
	if *c == nil {
		*c = CartData{}
	}
	(*c)[itemID]++
}

// Remove decrements the quantity and drops the key once it reaches zero.
// Removing an absent item is a no-op.
func (c CartData) Remove(itemID string) {
	qty, ok := c[itemID]
	if !ok {
		return
	}
	if qty <= 1 {
		delete(c, itemID)
		return
	}
	c[itemID] = qty - 1
}

// Normalize drops keys holding non-positive quantities and never returns nil.
func (c CartData) Normalize() CartData {
	out := make(CartData, len(c))
	for id, qty := range c {
		if qty > 0 {
			out[id] = qty
		}
	}
	return out
}

func (c CartData) Clone() CartData {
	out := make(CartData, len(c))
	for id, qty := range c {
		out[id] = qty
	}
	return out
}
