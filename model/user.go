package model

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// NormalizeEmail lowercases and trims the email string
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

var (
	ErrInvalidPassword = fmt.Errorf("invalid password")
	ErrUnauthorized    = fmt.Errorf("unauthorized")
)

// Role determines which permissions a user holds.
type Role string

const (
	RoleUser     Role = "user"
	RoleTeamlead Role = "teamlead"
	RoleAdmin    Role = "admin"
)

// Named permissions, checked explicitly per handler.
const (
	PermViewInvoice    = "view_invoice"
	PermCreateInvoice  = "create_invoice"
	PermHistoryInvoice = "history_invoice"
	PermManageTemplate = "manage_invoice_template"
	PermUploadTemplate = "upload_invoice_template"
	PermViewOtherTimes = "view_other_timesheet"
)

var rolePermissions = map[Role]map[string]bool{
	RoleUser: {
		PermViewInvoice:   true,
		PermCreateInvoice: true,
	},
	RoleTeamlead: {
		PermViewInvoice:    true,
		PermCreateInvoice:  true,
		PermHistoryInvoice: true,
		PermViewOtherTimes: true,
	},
	RoleAdmin: {
		PermViewInvoice:    true,
		PermCreateInvoice:  true,
		PermHistoryInvoice: true,
		PermManageTemplate: true,
		PermUploadTemplate: true,
		PermViewOtherTimes: true,
	},
}

// User represents an application user
type User struct {
	gorm.Model
	Email       string `gorm:"uniqueIndex;not null"` // always stored lowercase
	FullName    string
	Password    string `gorm:"not null"`
	Role        Role   `gorm:"type:text;not null;default:user"`
	LastLoginAt *time.Time
	OwnerID     uint
}

// Can reports whether the user holds the named permission.
func (u *User) Can(permission string) bool {
	if u == nil {
		return false
	}
	return rolePermissions[u.Role][permission]
}

// Normalize email before saving
func (u *User) BeforeSave(tx *gorm.DB) error {
	u.Email = NormalizeEmail(u.Email)
	return nil
}

func (zdb *ZeitDatenbank) TouchLastLogin(u *User) error {
	now := time.Now().UTC()
	u.LastLoginAt = &now
	return zdb.db.Model(u).Update("last_login_at", now).Error
}

// ---- User Authentication / Password ----

func (zdb *ZeitDatenbank) AuthenticateUser(email, password string) (*User, error) {
	email = NormalizeEmail(email)
	user, err := zdb.GetUserByEMail(email)
	if err != nil {
		return nil, err
	}
	if !zdb.CheckPassword(user, password) {
		return nil, ErrInvalidPassword
	}
	return user, nil
}

func (zdb *ZeitDatenbank) GetUserByID(id any) (*User, error) {
	var user User
	if id == nil {
		return nil, fmt.Errorf("user ID cannot be nil")
	}
	if err := zdb.db.First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (zdb *ZeitDatenbank) GetUserByEMail(email string) (*User, error) {
	var user User
	if err := zdb.db.Where("email = ?", NormalizeEmail(email)).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (zdb *ZeitDatenbank) SetPassword(u *User, password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hashedPassword)
	return zdb.db.Model(u).Update("password", u.Password).Error
}

func (zdb *ZeitDatenbank) CheckPassword(u *User, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)) == nil
}

// CreateUser inserts a new user with a bcrypt-hashed password.
func (zdb *ZeitDatenbank) CreateUser(email, fullname, password string, role Role) (*User, error) {
	pwHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	u := &User{
		Email:    NormalizeEmail(email),
		FullName: fullname,
		Password: string(pwHash),
		Role:     role,
	}
	if err := zdb.db.Create(u).Error; err != nil {
		return nil, err
	}
	// a user is its own owner unless attached to a team later
	if u.OwnerID == 0 {
		u.OwnerID = u.ID
		if err := zdb.db.Model(u).Update("owner_id", u.OwnerID).Error; err != nil {
			return nil, err
		}
	}
	return u, nil
}
