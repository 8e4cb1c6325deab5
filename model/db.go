package model

import (
	"fmt"
	"path/filepath"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ZeitDatenbank ist die Hauptstruktur des Modells
type ZeitDatenbank struct {
	db     *gorm.DB
	Config *Config
}

type Config struct {
	Basedir                  string
	CookieSecret             string
	CustomDocumentDir        string // uploaded invoice documents, relative to Basedir
	DocumentDir              string // built-in invoice documents, relative to Basedir
	InvoiceDir               string // generated invoice files, relative to Basedir
	MailAPIKey               string
	MailSecret               string
	MailInvoiceCopyTo        string // optional: mail a copy of every created invoice
	Mode                     string
	Port                     int
	PublishingServerAddress  string
	PublishingServerUsername string
	Servers                  map[string]server
}

type server struct {
	Database   string
	DBName     string
	DBUser     string
	DBPassword string
	DBHost     string
}

// DocumentDirs returns the directories scanned for invoice documents. Custom
// documents come first so they shadow built-in ones with the same name.
func (cfg *Config) DocumentDirs() []string {
	return []string{
		filepath.Join(cfg.Basedir, cfg.CustomDocumentDir),
		filepath.Join(cfg.Basedir, cfg.DocumentDir),
	}
}

// InvoicePath returns the absolute directory for generated invoice files.
func (cfg *Config) InvoicePath() string {
	return filepath.Join(cfg.Basedir, cfg.InvoiceDir)
}

func (zdb *ZeitDatenbank) autoMigrate() error {
	var err error
	if err = zdb.db.AutoMigrate(&User{}); err != nil {
		return err
	}
	if err = zdb.db.AutoMigrate(&Customer{}); err != nil {
		return err
	}
	if err = zdb.db.AutoMigrate(&Timesheet{}); err != nil {
		return err
	}
	if err = zdb.db.AutoMigrate(&Expense{}); err != nil {
		return err
	}
	if err = zdb.db.AutoMigrate(&InvoiceTemplate{}); err != nil {
		return err
	}
	if err = zdb.db.AutoMigrate(&Invoice{}); err != nil {
		return err
	}
	zdb.db.Exec(`CREATE INDEX IF NOT EXISTS idx_timesheets_owner_customer_begin
         ON timesheets(owner_id, customer_id, "begin")`)
	zdb.db.Exec(`CREATE INDEX IF NOT EXISTS idx_expenses_owner_customer_date
         ON expenses(owner_id, customer_id, date)`)
	return nil
}

// InitDatabase starts the database
func InitDatabase(cfg *Config) (*ZeitDatenbank, error) {
	var err error

	zdb := &ZeitDatenbank{Config: cfg}
	svr := cfg.Servers[cfg.Mode]
	gormConfig := &gorm.Config{}
	if cfg.Mode == "development" {
		gormConfig.Logger = logger.Default.LogMode(logger.Info)
	} else {
		gormConfig.Logger = logger.Default.LogMode(logger.Silent)
	}

	switch svr.Database {
	case "sqlite3":
		filename := svr.DBName
		if filename != ":memory:" {
			filename = filepath.Join("db", filename)
		}
		fmt.Println("Use server sqlite3 and database", filename)
		zdb.db, err = gorm.Open(sqlite.Open(filename), gormConfig)
		if err != nil {
			return nil, err
		}
	case "postgresql":
		fmt.Println("Use server postgresql and database", svr.DBName)
		dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=5432 sslmode=disable TimeZone=UTC",
			svr.DBHost, svr.DBUser, svr.DBPassword, svr.DBName)
		zdb.db, err = gorm.Open(postgres.Open(dsn), gormConfig)
	default:
		return nil, fmt.Errorf("not implemented yet")
	}
	if err = zdb.autoMigrate(); err != nil {
		return nil, err
	}
	return zdb, nil
}

// InitTestDatabase opens a private in-memory sqlite database with a fresh
// schema. Intended for tests.
func InitTestDatabase(cfg *Config) (*ZeitDatenbank, error) {
	if cfg == nil {
		cfg = &Config{Mode: "test"}
	}
	zdb := &ZeitDatenbank{Config: cfg}
	var err error
	zdb.db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err = zdb.autoMigrate(); err != nil {
		return nil, err
	}
	return zdb, nil
}
