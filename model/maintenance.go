package model

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// RunMaintenance executes housekeeping tasks. All tasks are idempotent and
// safe to run multiple times.
func RunMaintenance(ctx context.Context, zdb *ZeitDatenbank) error {
	start := time.Now()
	log.Println("maintenance: start")

	// Try to acquire a DB-level singleton lock (Postgres only).
	unlock, err := tryAcquireLock(ctx, zdb)
	if err != nil {
		return err
	}
	if unlock != nil {
		defer unlock()
	}

	// 1) Delete leftover upload temp files (aborted document uploads)
	uploadDir := filepath.Join(zdb.Config.Basedir, zdb.Config.CustomDocumentDir)
	if err := pruneUploadTempFiles(uploadDir, 24*time.Hour); err != nil {
		log.Printf("maintenance: prune upload temp files: %v", err)
	}

	// 2) Run VACUUM/ANALYZE depending on the DB engine
	if err := vacuumAnalyze(ctx, zdb); err != nil {
		return fmt.Errorf("vacuum/analyze: %w", err)
	}

	log.Printf("maintenance: done in %s", time.Since(start).Truncate(time.Millisecond))
	return nil
}

func tryAcquireLock(ctx context.Context, zdb *ZeitDatenbank) (func(), error) {
	sqlDB, err := zdb.db.DB()
	if err != nil {
		return nil, err
	}

	switch zdb.db.Dialector.Name() {
	case "postgres":
		var got bool
		if err := sqlDB.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", 74120055).Scan(&got); err != nil {
			return nil, err
		}
		if !got {
			return nil, errors.New("another maintenance run is in progress")
		}
		return func() {
			_, _ = sqlDB.ExecContext(context.Background(), "SELECT pg_advisory_unlock($1)", 74120055)
		}, nil
	default:
		// No locking available in SQLite
		return nil, nil
	}
}

// pruneUploadTempFiles deletes stale ".upload" temp files that a crashed or
// aborted document upload left behind. Does nothing if the directory does not
// exist.
func pruneUploadTempFiles(dir string, olderThan time.Duration) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	cutoff := time.Now().Add(-olderThan)
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".upload") {
			continue
		}
		p := filepath.Join(dir, e.Name())
		fi, err := os.Stat(p)
		if err != nil {
			continue
		}
		if fi.ModTime().Before(cutoff) {
			_ = os.Remove(p)
		}
	}
	return nil
}

// vacuumAnalyze runs database cleanup commands depending on the DB engine.
func vacuumAnalyze(ctx context.Context, zdb *ZeitDatenbank) error {
	sqlDB, err := zdb.db.DB()
	if err != nil {
		return err
	}
	switch zdb.db.Dialector.Name() {
	case "postgres":
		_, err = sqlDB.ExecContext(ctx, "VACUUM (ANALYZE)")
	case "sqlite":
		_, err = sqlDB.ExecContext(ctx, "VACUUM")
		if err == nil {
			_, _ = sqlDB.ExecContext(ctx, "PRAGMA optimize")
		}
	}
	return err
}
