// Package db provides the database driver factory.
package db

import (
	"github.com/pkg/errors"

	"github.com/hrygo/groupmate/internal/profile"
	"github.com/hrygo/groupmate/store"
	"github.com/hrygo/groupmate/store/db/postgres"
	"github.com/hrygo/groupmate/store/db/sqlite"
)

// NewDBDriver creates a new database driver based on the profile.
func NewDBDriver(profile *profile.Profile) (store.Driver, error) {
	switch profile.Driver {
	case "sqlite":
		return sqlite.NewDB(profile)
	case "postgres":
		return postgres.NewDB(profile)
	default:
		return nil, errors.Errorf("unknown db driver: %s", profile.Driver)
	}
}
