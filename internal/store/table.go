package store

import (
	"context"

	"github.com/jun/watchlist/internal/model"
)

// Table performs single-key operations on the watch list table.
// Every operation is scoped to one userID; implementations never look across users.
type Table interface {
	// Query returns all items of userID via the userId index, in store order.
	Query(ctx context.Context, userID string) ([]model.WatchListItem, error)

	// Get returns the item or ErrNotFound.
	Get(ctx context.Context, userID, itemID string) (*model.WatchListItem, error)

	// Put writes the item unconditionally.
	Put(ctx context.Context, item model.WatchListItem) error

	// UpdateName sets the name of an existing item. Missing keys yield ErrNotFound.
	UpdateName(ctx context.Context, userID, itemID, name string) (*model.WatchListItem, error)

	// Delete removes the item and returns its previous state, or nil if there was none.
	Delete(ctx context.Context, userID, itemID string) (*model.WatchListItem, error)

	// SetAttachmentURL records the public attachment URL of an existing item.
	SetAttachmentURL(ctx context.Context, userID, itemID, url string) error
}
