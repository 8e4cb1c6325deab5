package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var secondsPerHour = decimal.NewFromInt(3600)

// Timesheet is one tracked working period. Duration is kept in seconds,
// redundantly to Begin/End, so stopped entries survive later edits of the
// raw times.
type Timesheet struct {
	gorm.Model
	Begin       time.Time `gorm:"not null;index"`
	End         *time.Time
	Duration    int64 // seconds
	Description string
	HourlyRate  decimal.Decimal  `sql:"type:decimal(20,8);"`
	FixedRate   *decimal.Decimal `sql:"type:decimal(20,8);"`
	Exported    bool             `gorm:"not null;default:false;index"`
	UserID      uint             `gorm:"index"`
	CustomerID  uint             `gorm:"index"`
	OwnerID     uint             `gorm:"index"`
}

func (Timesheet) TableName() string { return "timesheets" }

func (t *Timesheet) ItemDescription() string { return t.Description }
func (t *Timesheet) ItemBegin() time.Time    { return t.Begin }

func (t *Timesheet) ItemEnd() time.Time {
	if t.End != nil {
		return *t.End
	}
	return t.Begin
}

// ItemQuantity returns the worked hours.
func (t *Timesheet) ItemQuantity() decimal.Decimal {
	return decimal.NewFromInt(t.Duration).Div(secondsPerHour)
}

func (t *Timesheet) ItemRate() decimal.Decimal {
	return t.HourlyRate
}

// ItemTotal returns the fixed rate when set, otherwise hours times the
// hourly rate.
func (t *Timesheet) ItemTotal() decimal.Decimal {
	if t.FixedRate != nil {
		return *t.FixedRate
	}
	return t.ItemQuantity().Mul(t.HourlyRate)
}

func (t *Timesheet) ItemType() string { return "timesheet" }

// SaveTimesheet creates or updates a timesheet entry.
func (zdb *ZeitDatenbank) SaveTimesheet(t *Timesheet, ownerID uint) error {
	if t.OwnerID != ownerID {
		return fmt.Errorf("save timesheet: ownerid mismatch")
	}
	return zdb.db.Save(t).Error
}

// TimesheetRepository serves timesheet entries as invoice items.
type TimesheetRepository struct {
	zdb *ZeitDatenbank
}

// Timesheets returns the timesheet item repository.
func (zdb *ZeitDatenbank) Timesheets() *TimesheetRepository {
	return &TimesheetRepository{zdb: zdb}
}

func (r *TimesheetRepository) Name() string { return "timesheet" }

// Matching returns billable timesheet entries for the query, ordered by begin.
func (r *TimesheetRepository) Matching(query *InvoiceQuery) ([]ExportItem, error) {
	if query.Customer == nil {
		return nil, nil
	}

	db := r.zdb.db.Model(&Timesheet{}).
		Where("owner_id = ? AND customer_id = ?", query.OwnerID, query.Customer.ID)

	if query.Begin != nil {
		db = db.Where(`"begin" >= ?`, *query.Begin)
	}
	if query.End != nil {
		db = db.Where(`"begin" <= ?`, *query.End)
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
	if query.State == TimesheetStopped {
		db = db.Where(`"end" IS NOT NULL`)
	}

	order := `"begin" ASC`
	if query.Order == OrderDesc {
		order = `"begin" DESC`
	}

	var sheets []Timesheet
	if err := db.Order(order).Find(&sheets).Error; err != nil {
		return nil, err
	}
	items := make([]ExportItem, 0, len(sheets))
	for i := range sheets {
		items = append(items, &sheets[i])
	}
	return items, nil
}

// MarkExported flags the given timesheet entries as exported.
func (r *TimesheetRepository) MarkExported(items []ExportItem) error {
	ids := make([]uint, 0, len(items))
	for _, item := range items {
		if t, ok := item.(*Timesheet); ok {
			ids = append(ids, t.ID)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	return r.zdb.db.Model(&Timesheet{}).Where("id IN ?", ids).
		Update("exported", true).Error
}
