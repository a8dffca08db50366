// Package store holds the data-access layer: the watch list table and the
// attachment bucket, composed into ItemStore.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jun/watchlist/internal/model"
	"github.com/rs/zerolog"
)

// DefaultAttachmentDomain is the public host suffix of S3 virtual-hosted buckets.
const DefaultAttachmentDomain = "s3.amazonaws.com"

// ItemStore performs every watch list operation on behalf of one caller.
type ItemStore struct {
	table      Table
	signer     Signer
	bucket     string
	domain     string
	expiration time.Duration
}

// Options configures the attachment side of an ItemStore.
type Options struct {
	Bucket        string
	Domain        string
	URLExpiration time.Duration
}

// NewItemStore creates an ItemStore over table and signer.
func NewItemStore(table Table, signer Signer, opts Options) *ItemStore {
	if opts.Domain == "" {
		opts.Domain = DefaultAttachmentDomain
	}
	if opts.URLExpiration <= 0 {
		opts.URLExpiration = 5 * time.Minute
	}
	return &ItemStore{
		table:      table,
		signer:     signer,
		bucket:     opts.Bucket,
		domain:     opts.Domain,
		expiration: opts.URLExpiration,
	}
}

// ListItems returns all items owned by userID. The result is never nil.
func (s *ItemStore) ListItems(ctx context.Context, userID string) ([]model.WatchListItem, error) {
	zerolog.Ctx(ctx).Info().Str("userId", userID).Msg("Getting all items in watch list")

	items, err := s.table.Query(ctx, userID)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []model.WatchListItem{}
	}
	return items, nil
}

// GetItem returns one item or ErrNotFound.
func (s *ItemStore) GetItem(ctx context.Context, userID, itemID string) (*model.WatchListItem, error) {
	return s.table.Get(ctx, userID, itemID)
}

// CreateItem stores a fully populated item.
func (s *ItemStore) CreateItem(ctx context.Context, item model.WatchListItem) (*model.WatchListItem, error) {
	if item.UserID == "" || item.ItemID == "" {
		return nil, fmt.Errorf("create item: userId and itemId are required")
	}
	if err := s.table.Put(ctx, item); err != nil {
		return nil, err
	}
	zerolog.Ctx(ctx).Info().Str("userId", item.UserID).Str("itemId", item.ItemID).Msg("Created watch list item")
	return &item, nil
}

// UpdateItem renames an existing item. Missing items yield ErrNotFound.
func (s *ItemStore) UpdateItem(ctx context.Context, userID, itemID string, update model.UpdateItemRequest) (*model.WatchListItem, error) {
	return s.table.UpdateName(ctx, userID, itemID, update.Name)
}

// DeleteItem removes an item. Deleting a missing item is not an error;
// the returned item is nil in that case.
func (s *ItemStore) DeleteItem(ctx context.Context, userID, itemID string) (*model.WatchListItem, error) {
	return s.table.Delete(ctx, userID, itemID)
}

// ItemExists reports whether userID owns itemID.
func (s *ItemStore) ItemExists(ctx context.Context, userID, itemID string) (bool, error) {
	_, err := s.table.Get(ctx, userID, itemID)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// AttachmentURL is the long-lived public URL of an item's attachment.
func (s *ItemStore) AttachmentURL(itemID string) string {
	return fmt.Sprintf("https://%s.%s/%s", s.bucket, s.domain, itemID)
}

// GenerateUploadURL mints a short-lived upload URL for the item's attachment
// and records the public URL on the item. The signed URL is returned once and
// never stored. Missing items yield ErrNotFound with nothing minted or written.
func (s *ItemStore) GenerateUploadURL(ctx context.Context, userID, itemID string) (string, error) {
	logger := zerolog.Ctx(ctx).With().Str("userId", userID).Str("itemId", itemID).Logger()

	exists, err := s.ItemExists(ctx, userID, itemID)
	if err != nil {
		return "", err
	}
	if !exists {
		logger.Info().Msg("could not generate url, item does not exist")
		return "", ErrNotFound
	}

	uploadURL, err := s.signer.PresignPut(ctx, itemID, s.expiration)
	if err != nil {
		return "", wrap("presign", err)
	}

	if err := s.table.SetAttachmentURL(ctx, userID, itemID, s.AttachmentURL(itemID)); err != nil {
		return "", err
	}

	logger.Info().Dur("expires", s.expiration).Msg("Generated attachment upload url")
	return uploadURL, nil
}
