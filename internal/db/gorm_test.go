package db

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSQLiteFilePath(t *testing.T) {
	cases := []struct {
		dsn  string
		path string
		ok   bool
	}{
		{dsn: "hunt.db", path: "hunt.db", ok: true},
		{dsn: "data/hunt.db?_pragma=busy_timeout(5000)", path: "data/hunt.db", ok: true},
		{dsn: ":memory:", ok: false},
		{dsn: "file::memory:?cache=shared", ok: false},
		{dsn: "file:/tmp/hunt.db?mode=memory", ok: false},
		{dsn: "file:/var/lib/hunt/hunt.db", path: "/var/lib/hunt/hunt.db", ok: true},
	}
	for _, tc := range cases {
		path, ok := sqliteFilePath(tc.dsn)
		if ok != tc.ok || path != tc.path {
			t.Fatalf("sqliteFilePath(%q) = %q, %v; want %q, %v", tc.dsn, path, ok, tc.path, tc.ok)
		}
	}
}

func TestOpenGormCreatesSQLiteDirectory(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "nested", "hunt.db")
	gormDB, err := OpenGorm("sqlite", dsn)
	if err != nil {
		t.Fatalf("open gorm: %v", err)
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	defer sqlDB.Close()

	if _, err := os.Stat(filepath.Dir(dsn)); err != nil {
		t.Fatalf("expected directory to exist: %v", err)
	}
	if got := sqlDB.Stats().MaxOpenConnections; got != 1 {
		t.Fatalf("expected a single sqlite connection, got %d", got)
	}
}

func TestOpenGormSharesInMemoryDatabase(t *testing.T) {
	gormDB, err := OpenGorm("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open gorm: %v", err)
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	defer sqlDB.Close()

	type note struct {
		ID   uint
		Body string
	}
	if err := gormDB.AutoMigrate(&note{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := gormDB.Create(&note{Body: "hunt"}).Error; err != nil {
		t.Fatalf("create: %v", err)
	}
	var count int64
	if err := gormDB.Model(&note{}).Count(&count).Error; err != nil || count != 1 {
		t.Fatalf("expected one row, got %d (%v)", count, err)
	}
}

func TestOpenGormRejectsUnknownDriver(t *testing.T) {
	if _, err := OpenGorm("mysql", "x"); err == nil {
		t.Fatalf("expected unsupported driver error")
	}
	if _, err := OpenGorm("postgres", ""); err == nil {
		t.Fatalf("expected dsn required error")
	}
}
