package model

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type InvoiceStatus string

const (
	InvoiceStatusNew     InvoiceStatus = "new"
	InvoiceStatusPending InvoiceStatus = "pending"
	InvoiceStatusPaid    InvoiceStatus = "paid"
)

// ParseInvoiceStatus maps a request value onto a status. The second return
// value is false for unknown names.
func ParseInvoiceStatus(s string) (InvoiceStatus, bool) {
	switch InvoiceStatus(s) {
	case InvoiceStatusNew, InvoiceStatusPending, InvoiceStatusPaid:
		return InvoiceStatus(s), true
	default:
		return "", false
	}
}

// Invoice is the persisted record of a generated invoice. The rendered file
// is kept on disk; Filename references it relative to the invoice directory.
type Invoice struct {
	gorm.Model
	Number       string `gorm:"not null"`
	Counter      uint
	CustomerID   uint `gorm:"index"`
	CustomerName string
	UserID       uint
	TemplateName string `gorm:"index"`
	Date         time.Time
	DueDate      time.Time
	Currency     string
	NetTotal     decimal.Decimal `sql:"type:decimal(20,8);"`
	TaxTotal     decimal.Decimal `sql:"type:decimal(20,8);"`
	GrossTotal   decimal.Decimal `sql:"type:decimal(20,8);"`
	VAT          decimal.Decimal `sql:"type:decimal(20,8);"`
	Filename     string
	Status       InvoiceStatus `gorm:"type:text;not null;default:new;check:status IN ('new','pending','paid');index;index:idx_owner_status"`
	PaidAt       *time.Time
	OwnerID      uint `gorm:"index:idx_owner_status"`
}

// SaveInvoice persists an invoice record.
func (zdb *ZeitDatenbank) SaveInvoice(inv *Invoice, ownerID uint) error {
	if inv.OwnerID != ownerID {
		return fmt.Errorf("save invoice: ownerid mismatch")
	}
	return zdb.db.Save(inv).Error
}

// LoadInvoice loads an invoice record, scoped to the owner.
func (zdb *ZeitDatenbank) LoadInvoice(id any, ownerID uint) (*Invoice, error) {
	var inv Invoice
	result := zdb.db.Where("owner_id = ?", ownerID).First(&inv, id)
	if err := result.Error; err != nil {
		return nil, fmt.Errorf("load invoice %v: %w", id, err)
	}
	return &inv, nil
}

// NextInvoiceCounter returns the highest counter of the owner plus one.
func (zdb *ZeitDatenbank) NextInvoiceCounter(ownerID uint) (uint, error) {
	var max sql.NullInt64
	if err := zdb.db.Model(&Invoice{}).Where("owner_id = ?", ownerID).
		Select("COALESCE(MAX(counter), 0)").Scan(&max).Error; err != nil {
		return 0, err
	}
	return uint(max.Int64) + 1, nil
}

// SetInvoiceStatus switches the invoice to the given status. Transitions are
// direct and unconditional; setting the current status again is a no-op.
// PaidAt is set when entering "paid" and cleared when leaving it.
func (zdb *ZeitDatenbank) SetInvoiceStatus(id uint, ownerID uint, to InvoiceStatus, t time.Time) error {
	return zdb.db.Transaction(func(tx *gorm.DB) error {
		var inv Invoice

		// Lock the row (Postgres: FOR UPDATE; SQLite: no-op)
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND owner_id = ?", id, ownerID).
			First(&inv).Error; err != nil {
			return err
		}

		if inv.Status == to {
			return nil
		}

		updates := map[string]any{
			"status": to,
		}
		if to == InvoiceStatusPaid {
			updates["paid_at"] = t
		} else if inv.Status == InvoiceStatusPaid {
			updates["paid_at"] = nil
		}

		return tx.Model(&Invoice{}).
			Where("id = ? AND owner_id = ?", id, ownerID).
			Updates(updates).Error
	})
}

// FindInvoices returns a page of invoice records plus the total count.
func (zdb *ZeitDatenbank) FindInvoices(ownerID uint, statuses []InvoiceStatus, customerID *uint, limit, offset int, order string) ([]Invoice, int64, error) {
	var (
		rows  []Invoice
		total int64
	)

	db := zdb.db.Model(&Invoice{}).Where("owner_id = ?", ownerID)
	if len(statuses) > 0 {
		db = db.Where("status IN ?", statuses)
	}
	if customerID != nil {
		db = db.Where("customer_id = ?", *customerID)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if order == "" {
		order = "date DESC, id DESC"
	}
	if err := db.Order(order).Limit(limit).Offset(offset).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}
