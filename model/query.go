package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Export state filter for billable items.
type ExportedState int

const (
	StateAll ExportedState = iota
	StateNotExported
	StateExported
)

// Timesheet state filter: running entries have no end date yet and must not
// be invoiced.
type TimesheetState int

const (
	TimesheetAll TimesheetState = iota
	TimesheetStopped
)

const (
	OrderAsc  = "ASC"
	OrderDesc = "DESC"
)

// InvoiceQuery carries the filter criteria for collecting billable items.
type InvoiceQuery struct {
	Begin          *time.Time
	End            *time.Time
	Exported       ExportedState
	State          TimesheetState
	Order          string
	Customer       *Customer
	User           *User // restricts results to this user when set
	Template       *InvoiceTemplate
	MarkAsExported bool
	OwnerID        uint
}

// NormalizeDayRange widens Begin to 00:00:00 and End to 23:59:59 so the
// effective range always spans full calendar days.
func (q *InvoiceQuery) NormalizeDayRange() {
	if q.Begin != nil {
		b := time.Date(q.Begin.Year(), q.Begin.Month(), q.Begin.Day(), 0, 0, 0, 0, q.Begin.Location())
		q.Begin = &b
	}
	if q.End != nil {
		e := time.Date(q.End.Year(), q.End.Month(), q.End.Day(), 23, 59, 59, 0, q.End.Location())
		q.End = &e
	}
}

// ExportItem is a unit of billable work collected for an invoice. Items are
// owned by their source repository and are only mutated through it.
type ExportItem interface {
	ItemDescription() string
	ItemBegin() time.Time
	ItemEnd() time.Time
	// Quantity in the unit of the item (hours for timesheets, pieces for
	// expenses), Rate per unit and the resulting line total.
	ItemQuantity() decimal.Decimal
	ItemRate() decimal.Decimal
	ItemTotal() decimal.Decimal
	ItemType() string
}

// InvoiceItemRepository is a source of billable items. Matching returns the
// items for the query in the repository's own order; MarkExported flags the
// given items as exported through the repository's own update path.
type InvoiceItemRepository interface {
	Name() string
	Matching(query *InvoiceQuery) ([]ExportItem, error)
	MarkExported(items []ExportItem) error
}
