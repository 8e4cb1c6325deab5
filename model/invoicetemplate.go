package model

import (
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ErrTemplateInUse is returned when a template that is still referenced by
// invoices should be removed.
var ErrTemplateInUse = fmt.Errorf("template is still in use")

// InvoiceTemplate is a reusable configuration describing layout, numbering
// and calculation rules for generated invoices.
type InvoiceTemplate struct {
	gorm.Model
	Name            string `gorm:"not null"`
	Title           string
	Company         string
	VATID           string
	Address         string
	Contact         string
	DueDays         int             `gorm:"not null;default:14"`
	VAT             decimal.Decimal `sql:"type:decimal(20,8);"`
	Calculator      string          `gorm:"not null;default:default"`
	NumberGenerator string          `gorm:"not null;default:default"`
	NumberPattern   string          // used by the "pattern" generator, e.g. RE-%YYYY%-%04C%
	Renderer        string          `gorm:"not null"` // name of the invoice document
	PaymentTerms    string
	PaymentDetails  string
	OwnerID         uint `gorm:"index"`
}

// Copy returns a new unsaved template with all configurable fields taken
// from the receiver and the name prefixed with "Copy of ".
func (t *InvoiceTemplate) Copy() *InvoiceTemplate {
	return &InvoiceTemplate{
		Name:            "Copy of " + t.Name,
		Title:           t.Title,
		Company:         t.Company,
		VATID:           t.VATID,
		Address:         t.Address,
		Contact:         t.Contact,
		DueDays:         t.DueDays,
		VAT:             t.VAT,
		Calculator:      t.Calculator,
		NumberGenerator: t.NumberGenerator,
		NumberPattern:   t.NumberPattern,
		Renderer:        t.Renderer,
		PaymentTerms:    t.PaymentTerms,
		PaymentDetails:  t.PaymentDetails,
		OwnerID:         t.OwnerID,
	}
}

// HasTemplate reports whether the owner has at least one invoice template.
func (zdb *ZeitDatenbank) HasTemplate(ownerID uint) (bool, error) {
	var count int64
	if err := zdb.db.Model(&InvoiceTemplate{}).Where("owner_id = ?", ownerID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// SaveTemplate creates or updates an invoice template.
func (zdb *ZeitDatenbank) SaveTemplate(t *InvoiceTemplate, ownerID uint) error {
	if t.OwnerID != ownerID {
		return fmt.Errorf("save template: ownerid mismatch")
	}
	return zdb.db.Save(t).Error
}

// LoadTemplate loads a template by id, scoped to the owner.
func (zdb *ZeitDatenbank) LoadTemplate(id any, ownerID uint) (*InvoiceTemplate, error) {
	var t InvoiceTemplate
	result := zdb.db.Where("owner_id = ?", ownerID).First(&t, id)
	if err := result.Error; err != nil {
		return nil, fmt.Errorf("load template %v: %w", id, err)
	}
	return &t, nil
}

// ListTemplates returns all templates of the owner, ordered by name.
func (zdb *ZeitDatenbank) ListTemplates(ownerID uint) ([]InvoiceTemplate, error) {
	var templates []InvoiceTemplate
	if err := zdb.db.Where("owner_id = ?", ownerID).Order("name").
		Find(&templates).Error; err != nil {
		return nil, err
	}
	return templates, nil
}

// RemoveTemplate deletes a template. Templates that are still referenced by
// an invoice cannot be removed and cause ErrTemplateInUse.
func (zdb *ZeitDatenbank) RemoveTemplate(t *InvoiceTemplate, ownerID uint) error {
	return zdb.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&Invoice{}).
			Where("template_name = ? AND owner_id = ?", t.Name, ownerID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrTemplateInUse
		}
		return tx.Where("owner_id = ?", ownerID).Delete(t).Error
	})
}
