package model

import "time"

// Direction is the sign of a stock movement.
type Direction string

// Movement directions.
const (
	DirectionIn  Direction = "IN"
	DirectionOut Direction = "OUT"
)

// Valid reports whether d is a known direction.
func (d Direction) Valid() bool {
	return d == DirectionIn || d == DirectionOut
}

// StockMovement is an immutable stock-in or stock-out record.
type StockMovement struct {
	ID         int64     `json:"id" db:"id"`
	ItemID     int64     `json:"item_id" db:"item_id"`
	Direction  Direction `json:"direction" db:"direction"`
	Quantity   int       `json:"quantity" db:"quantity"`
	SupplierID *int64    `json:"supplier_id,omitempty" db:"supplier_id"`
	Reason     *string   `json:"reason,omitempty" db:"reason"`
	CreatedBy  *int64    `json:"created_by,omitempty" db:"created_by"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`

	// Joined fields (not always populated).
	ItemName     string  `json:"item_name,omitempty" db:"item_name"`
	SupplierName *string `json:"supplier_name,omitempty" db:"supplier_name"`
}

// StockIn is the input for recording received stock.
type StockIn struct {
	ItemID     int64
	SupplierID int64
	Quantity   int
	CreatedBy  *int64
}

// StockOut is the input for recording withdrawn stock.
type StockOut struct {
	ItemID    int64
	Quantity  int
	Reason    string
	CreatedBy *int64
}

// MovementFilter narrows ListMovements. Zero values match everything.
type MovementFilter struct {
	Direction Direction
	ItemID    int64
}
