package model

import (
	"strings"
	"time"
)

// Item is a stock-keeping unit. Quantity is the on-hand amount and only
// changes through stock movements and loan transitions.
type Item struct {
	ID         int64     `json:"id" db:"id"`
	Code       string    `json:"code" db:"code"`
	Name       string    `json:"name" db:"name"`
	CategoryID int64     `json:"category_id" db:"category_id"`
	Unit       string    `json:"unit" db:"unit"`
	Quantity   int       `json:"quantity" db:"quantity"`
	HasImage   bool      `json:"has_image" db:"has_image"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`

	// Joined fields (not always populated).
	CategoryName string `json:"category_name,omitempty" db:"category_name"`
}

// NewItem holds the fields needed to create an item. OpeningQuantity is
// booked as an IN movement in the same transaction.
type NewItem struct {
	Code            string `json:"code"`
	Name            string `json:"name"`
	CategoryID      int64  `json:"category_id"`
	Unit            string `json:"unit"`
	OpeningQuantity int    `json:"quantity"`
}

// Validate checks the required fields.
func (n *NewItem) Validate() error {
	n.Code = strings.TrimSpace(n.Code)
	n.Name = strings.TrimSpace(n.Name)
	n.Unit = strings.TrimSpace(n.Unit)
	if n.Code == "" || n.Name == "" || n.Unit == "" {
		return Errorf(KindInvalidInput, "code, name and unit are required")
	}
	if n.CategoryID <= 0 {
		return Errorf(KindInvalidReference, "category_id is required")
	}
	if n.OpeningQuantity < 0 {
		return Errorf(KindInvalidQuantity, "quantity must be non-negative")
	}
	return nil
}

// ItemPatch is a partial item update. Nil fields are left unchanged.
// Quantity is deliberately absent.
type ItemPatch struct {
	Name       *string `json:"name,omitempty"`
	CategoryID *int64  `json:"category_id,omitempty"`
	Unit       *string `json:"unit,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p ItemPatch) Empty() bool {
	return p.Name == nil && p.CategoryID == nil && p.Unit == nil
}

// Validate trims string fields and rejects blanked required values.
func (p *ItemPatch) Validate() error {
	if p.Name != nil {
		v := strings.TrimSpace(*p.Name)
		if v == "" {
			return Errorf(KindInvalidInput, "name cannot be empty")
		}
		p.Name = &v
	}
	if p.Unit != nil {
		v := strings.TrimSpace(*p.Unit)
		if v == "" {
			return Errorf(KindInvalidInput, "unit cannot be empty")
		}
		p.Unit = &v
	}
	if p.CategoryID != nil && *p.CategoryID <= 0 {
		return Errorf(KindInvalidReference, "invalid category_id")
	}
	return nil
}

// ItemFilter narrows ListItems.
type ItemFilter struct {
	CategoryID int64
	Search     string
}
