package service_test

import (
	"testing"

	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/testutil"
	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/version"
)

// TestSystemService_CheckHealth tests the database health probe.
func TestSystemService_CheckHealth(t *testing.T) {
	t.Run("healthy database", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestSystemService(t, db)

		if err := svc.CheckHealth(t.Context()); err != nil {
			t.Errorf("CheckHealth() returned unexpected error: %v", err)
		}
	})

	t.Run("closed database", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestSystemService(t, db)
		db.Close()

		if err := svc.CheckHealth(t.Context()); err == nil {
			t.Error("Expected error when database is closed, got nil")
		}
	})
}

// TestSystemService_CheckVersion tests version and schema reporting.
func TestSystemService_CheckVersion(t *testing.T) {
	t.Run("migrated database needs no migration", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestSystemService(t, db)

		info, err := svc.CheckVersion(t.Context())

		if err != nil {
			t.Fatalf("CheckVersion() returned unexpected error: %v", err)
		}
		if info.AppVersion != version.Version {
			t.Errorf("Expected app version %s, got %s", version.Version, info.AppVersion)
		}
		if info.MigrationNeeded || info.MigrationMessage != nil {
			t.Errorf("Expected no pending migration, got %+v", info)
		}
		if info.DbVersion == "" || info.DbVersion == "0" {
			t.Errorf("Expected a schema version, got %q", info.DbVersion)
		}
		if !info.Features["alerts"] || info.Features["mail"] {
			t.Errorf("Unexpected features: %v", info.Features)
		}
	})

	t.Run("closed database", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestSystemService(t, db)
		db.Close()

		if _, err := svc.CheckVersion(t.Context()); err == nil {
			t.Error("Expected error when database is closed, got nil")
		}
	})
}
