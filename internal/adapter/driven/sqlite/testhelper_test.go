package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"testing"
)

// testStores is one migrated in-memory database with both repositories
// bound to it.
type testStores struct {
	db       *DB
	accounts *AccountRepo
	runs     *ProvisioningRepo
}

func newTestStores(t *testing.T) testStores {
	t.Helper()

	db := newTestDB(t)
	return testStores{
		db:       db,
		accounts: NewAccountRepo(db),
		runs:     NewProvisioningRepo(db),
	}
}

// newTestDB opens writer and reader pools on a shared-cache in-memory
// database named after the test, then applies the embedded migrations.
func newTestDB(t *testing.T) *DB {
	t.Helper()

	// Journal mode is left alone; memory databases cannot use WAL.
	dsn := fmt.Sprintf(
		"file:%s?mode=memory&cache=shared&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)",
		url.PathEscape("secretpipe-"+t.Name()),
	)

	db := &DB{
		Writer: openTestPool(t, dsn, 1),
		Reader: openTestPool(t, dsn, 4),
		path:   dsn,
	}
	if err := RunMigrations(db.Writer); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

func openTestPool(t *testing.T, dsn string, maxConns int) *sql.DB {
	t.Helper()

	pool, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("open %s: %v", dsn, err)
	}
	t.Cleanup(func() { _ = pool.Close() })

	pool.SetMaxOpenConns(maxConns)
	if err := pool.PingContext(context.Background()); err != nil {
		t.Fatalf("ping %s: %v", dsn, err)
	}
	return pool
}

// seedAccount creates accountID with salt or fails the test.
func seedAccount(t *testing.T, accounts *AccountRepo, accountID, salt string) {
	t.Helper()

	if _, err := accounts.CreateAccount(context.Background(), accountID, salt); err != nil {
		t.Fatalf("seed account %s: %v", accountID, err)
	}
}
