// Package testutil provides test utilities for mailflow: isolated in-memory
// databases, email fixtures and a scripted completion client.
package testutil

import (
	"context"
	"testing"

	"github.com/Veraticus/mailflow/internal/model"
	"github.com/Veraticus/mailflow/internal/prompts"
	"github.com/Veraticus/mailflow/internal/service"
	"github.com/Veraticus/mailflow/internal/storage"
)

// TestDB represents a test database with associated test utilities.
type TestDB struct {
	Storage service.Storage
	t       *testing.T
	Emails  []model.Email
}

// SetupTestDB creates a new migrated in-memory database seeded with emails.
// It automatically handles cleanup.
//
// Example:
//
//	db := testutil.SetupTestDB(t, testutil.NewEmailBuilder().WithID("e1").Build())
func SetupTestDB(t *testing.T, emails ...model.Email) *TestDB {
	t.Helper()
	return SetupTestDBWithOptions(t, TestDBOptions{Emails: emails})
}

// TestDBOptions provides configuration options for test database setup.
type TestDBOptions struct {
	CustomSetup func(context.Context, service.Storage) error
	Emails      []model.Email
	// SeedPrompts loads the default prompt templates.
	SeedPrompts bool
}

// SetupTestDBWithOptions creates a test database with custom options.
func SetupTestDBWithOptions(t *testing.T, opts TestDBOptions) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	for i := range opts.Emails {
		if err := store.SaveEmail(ctx, &opts.Emails[i]); err != nil {
			t.Fatalf("failed to seed email %q: %v", opts.Emails[i].ID, err)
		}
	}

	if opts.SeedPrompts {
		if _, err := prompts.NewService(store).EnsureDefaults(ctx, ""); err != nil {
			t.Fatalf("failed to seed prompts: %v", err)
		}
	}

	if opts.CustomSetup != nil {
		if err := opts.CustomSetup(ctx, store); err != nil {
			t.Fatalf("custom setup failed: %v", err)
		}
	}

	return &TestDB{
		Storage: store,
		Emails:  opts.Emails,
		t:       t,
	}
}

// MustGetEmail returns the stored email with the given ID or fails the test.
func (db *TestDB) MustGetEmail(id string) *model.Email {
	db.t.Helper()
	email, err := db.Storage.GetEmail(context.Background(), id)
	if err != nil {
		db.t.Fatalf("failed to get email %q: %v", id, err)
	}
	return email
}

// MustGetCategory returns the category recorded for an email or fails the test.
func (db *TestDB) MustGetCategory(emailID string) model.Category {
	db.t.Helper()
	result, err := db.Storage.GetCategory(context.Background(), emailID)
	if err != nil {
		db.t.Fatalf("failed to get category for %q: %v", emailID, err)
	}
	return result.Category
}
