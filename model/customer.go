package model

import (
	"fmt"

	"gorm.io/gorm"
)

// Customer is the billing target of an invoice. The currency of a generated
// invoice is always taken from the customer.
type Customer struct {
	gorm.Model
	Name     string `gorm:"not null"`
	Number   string // customer number, used by the pattern number generator
	Currency string `gorm:"not null;default:EUR"`
	Address1 string
	Address2 string
	ZIP      string
	City     string
	Country  string
	VATID    string
	Contact  string
	EMail    string
	OwnerID  uint `gorm:"index"`
}

// SaveCustomer creates or updates a customer.
func (zdb *ZeitDatenbank) SaveCustomer(c *Customer, ownerID uint) error {
	if c.OwnerID != ownerID {
		return fmt.Errorf("save customer: ownerid mismatch")
	}
	return zdb.db.Save(c).Error
}

// LoadCustomer loads a customer by id, scoped to the owner.
func (zdb *ZeitDatenbank) LoadCustomer(id any, ownerID uint) (*Customer, error) {
	var c Customer
	result := zdb.db.Where("owner_id = ?", ownerID).First(&c, id)
	if err := result.Error; err != nil {
		return nil, fmt.Errorf("load customer %v: %w", id, err)
	}
	return &c, nil
}

// ListCustomers returns all customers of the owner, ordered by name.
func (zdb *ZeitDatenbank) ListCustomers(ownerID uint) ([]Customer, error) {
	var customers []Customer
	if err := zdb.db.Where("owner_id = ?", ownerID).Order("name").Find(&customers).Error; err != nil {
		return nil, err
	}
	return customers, nil
}
