// Package testutil stellt Testdoppel und eine migrierte In-Memory-Datenbank bereit.
package testutil

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"

	"reprise/repository"
)

// NewDB öffnet eine migrierte In-Memory-SQLite-Datenbank, die am Testende geschlossen wird.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := repository.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := repository.Migrate(db); err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// StubClock liefert immer dieselbe Zeit, bis sie verstellt wird.
type StubClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewStubClock(now time.Time) *StubClock {
	return &StubClock{now: now}
}

func (c *StubClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance stellt die Uhr um d vor.
func (c *StubClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// SequentialIDs erzeugt vorhersagbare Kennungen: prefix-1, prefix-2, ...
type SequentialIDs struct {
	mu     sync.Mutex
	Prefix string
	n      int
}

func (g *SequentialIDs) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	prefix := g.Prefix
	if prefix == "" {
		prefix = "id"
	}
	return fmt.Sprintf("%s-%d", prefix, g.n)
}
