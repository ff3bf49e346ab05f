package model

// StockReportRow is one item's position in the stock report.
type StockReportRow struct {
	ItemID        int64  `json:"item_id" db:"item_id"`
	Code          string `json:"code" db:"code"`
	Name          string `json:"name" db:"name"`
	CurrentStock  int    `json:"current_stock" db:"current_stock"`
	TotalStockIn  int    `json:"total_stock_in" db:"total_stock_in"`
	TotalStockOut int    `json:"total_stock_out" db:"total_stock_out"`
	TotalLoans    int    `json:"total_loans" db:"total_loans"`
}

// Summary holds record counts.
type Summary struct {
	TotalItems     int `json:"total_items" db:"total_items"`
	TotalSuppliers int `json:"total_suppliers" db:"total_suppliers"`
	TotalStockIn   int `json:"total_stock_in" db:"total_stock_in"`
	TotalStockOut  int `json:"total_stock_out" db:"total_stock_out"`
	TotalLoans     int `json:"total_loans" db:"total_loans"`
}

// Reconciliation compares an item's stored quantity with the quantity derived
// from its movements and held loans.
type Reconciliation struct {
	ItemID   int64  `json:"item_id" db:"item_id"`
	Code     string `json:"code" db:"code"`
	Stored   int    `json:"stored" db:"stored"`
	StockIn  int    `json:"stock_in" db:"stock_in"`
	StockOut int    `json:"stock_out" db:"stock_out"`
	Held     int    `json:"held" db:"held"`
}

// Derived is in - out - held.
func (r Reconciliation) Derived() int {
	return r.StockIn - r.StockOut - r.Held
}

// Drift reports whether stored and derived quantities disagree.
func (r Reconciliation) Drift() bool {
	return r.Stored != r.Derived()
}
