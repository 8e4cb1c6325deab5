package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Expense is a billable cost (travel, hardware, ...) that can be put on an
// invoice next to timesheet entries.
type Expense struct {
	gorm.Model
	Date        time.Time `gorm:"not null;index"`
	Description string
	Cost        decimal.Decimal `sql:"type:decimal(20,8);"`
	Quantity    decimal.Decimal `sql:"type:decimal(20,8);"`
	Exported    bool            `gorm:"not null;default:false;index"`
	UserID      uint            `gorm:"index"`
	CustomerID  uint            `gorm:"index"`
	OwnerID     uint            `gorm:"index"`
}

func (Expense) TableName() string { return "expenses" }

func (e *Expense) ItemDescription() string       { return e.Description }
func (e *Expense) ItemBegin() time.Time          { return e.Date }
func (e *Expense) ItemEnd() time.Time            { return e.Date }
func (e *Expense) ItemQuantity() decimal.Decimal { return e.Quantity }
func (e *Expense) ItemRate() decimal.Decimal     { return e.Cost }
func (e *Expense) ItemTotal() decimal.Decimal    { return e.Quantity.Mul(e.Cost) }
func (e *Expense) ItemType() string              { return "expense" }

// SaveExpense creates or updates an expense.
func (zdb *ZeitDatenbank) SaveExpense(e *Expense, ownerID uint) error {
	if e.OwnerID != ownerID {
		return fmt.Errorf("save expense: ownerid mismatch")
	}
	return zdb.db.Save(e).Error
}

// ExpenseRepository serves expenses as invoice items.
type ExpenseRepository struct {
	zdb *ZeitDatenbank
}

// Expenses returns the expense item repository.
func (zdb *ZeitDatenbank) Expenses() *ExpenseRepository {
	return &ExpenseRepository{zdb: zdb}
}

func (r *ExpenseRepository) Name() string { return "expense" }

// Matching returns billable expenses for the query, ordered by date. The
// timesheet state filter does not apply to expenses.
func (r *ExpenseRepository) Matching(query *InvoiceQuery) ([]ExportItem, error) {
	if query.Customer == nil {
		return nil, nil
	}

	db := r.zdb.db.Model(&Expense{}).
		Where("owner_id = ? AND customer_id = ?", query.OwnerID, query.Customer.ID)

	if query.Begin != nil {
		db = db.Where("date >= ?", *query.Begin)
	}
	if query.End != nil {
		db = db.Where("date <= ?", *query.End)
	}
	if query.User != nil {
		db = db.Where("user_id = ?", query.User.ID)
	}
	switch query.Exported {
	case StateNotExported:
		db = db.Where("exported = ?", false)
	case StateExported:
		db = db.Where("exported = ?", true)
	}

	order := "date ASC"
	if query.Order == OrderDesc {
		order = "date DESC"
	}

	var expenses []Expense
	if err := db.Order(order).Find(&expenses).Error; err != nil {
		return nil, err
	}
	items := make([]ExportItem, 0, len(expenses))
	for i := range expenses {
		items = append(items, &expenses[i])
	}
	return items, nil
}

// MarkExported flags the given expenses as exported.
func (r *ExpenseRepository) MarkExported(items []ExportItem) error {
	ids := make([]uint, 0, len(items))
	for _, item := range items {
		if e, ok := item.(*Expense); ok {
			ids = append(ids, e.ID)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	return r.zdb.db.Model(&Expense{}).Where("id IN ?", ids).
		Update("exported", true).Error
}
