// Package repos holds the gorm-backed persistence layer. Every method
// takes an optional per-call transaction; nil means the repo's own handle.
package repos

import "gorm.io/gorm"

// handleFor resolves the gorm handle for one call. Both the transaction
// and the repo handle may be nil when the database never came up; that
// surfaces as gorm.ErrInvalidDB so the services can degrade instead of
// dereferencing a nil handle.
func handleFor(tx, db *gorm.DB) (*gorm.DB, error) {
	if tx != nil {
		return tx, nil
	}
	if db != nil {
		return db, nil
	}
	return nil, gorm.ErrInvalidDB
}
