// Package storage defines the persistence port used by the command handlers.
package storage

import (
	"context"

	"github.com/harrylevesque/commandapi/internal/models"
)

// CommandStore owns the lifetime of Command records.
//
// Implementations return *Error values so callers can branch on the
// failure kind without inspecting driver errors.
type CommandStore interface {
	// List returns every command in insertion order.
	List(ctx context.Context) ([]models.Command, error)
	// Get returns the command with the given id.
	Get(ctx context.Context, id int64) (models.Command, error)
	// Create inserts cmd, ignoring cmd.ID, and returns the stored record.
	Create(ctx context.Context, cmd models.Command) (models.Command, error)
	// Update replaces every field of the record keyed by cmd.ID.
	Update(ctx context.Context, cmd models.Command) error
	// Delete removes the record and returns what was stored.
	Delete(ctx context.Context, id int64) (models.Command, error)
	Ping(ctx context.Context) error
	Close() error
}
