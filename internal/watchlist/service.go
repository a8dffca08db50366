// Package watchlist holds the use cases of the watch list: each method resolves
// the caller from a bearer token and delegates to the item store.
package watchlist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jun/watchlist/internal/model"
	"github.com/jun/watchlist/internal/store"
)

// ErrInvalidRequest is the root of every payload validation failure.
var ErrInvalidRequest = errors.New("invalid request")

// ValidationError describes which fields of a payload were rejected.
type ValidationError struct {
	Fields []string
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%v: %v", ErrInvalidRequest, e.Err)
}

func (e *ValidationError) Unwrap() []error {
	return []error{ErrInvalidRequest, e.Err}
}

// IdentityVerifier resolves a bearer token to the verified user id.
type IdentityVerifier interface {
	UserID(ctx context.Context, token string) (string, error)
}

// ItemStore is the subset of store.ItemStore the service depends on.
type ItemStore interface {
	ListItems(ctx context.Context, userID string) ([]model.WatchListItem, error)
	GetItem(ctx context.Context, userID, itemID string) (*model.WatchListItem, error)
	CreateItem(ctx context.Context, item model.WatchListItem) (*model.WatchListItem, error)
	UpdateItem(ctx context.Context, userID, itemID string, update model.UpdateItemRequest) (*model.WatchListItem, error)
	DeleteItem(ctx context.Context, userID, itemID string) (*model.WatchListItem, error)
	GenerateUploadURL(ctx context.Context, userID, itemID string) (string, error)
}

var _ ItemStore = (*store.ItemStore)(nil)

// Service implements the watch list use cases.
type Service struct {
	store    ItemStore
	verifier IdentityVerifier
	validate *validator.Validate
	newID    func() string
	now      func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithIDGenerator replaces uuid.NewString as the item id source.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) { s.newID = fn }
}

// WithClock replaces time.Now as the createdAt source.
func WithClock(fn func() time.Time) Option {
	return func(s *Service) { s.now = fn }
}

// NewService wires a Service from its collaborators.
func NewService(items ItemStore, verifier IdentityVerifier, opts ...Option) *Service {
	s := &Service{
		store:    items,
		verifier: verifier,
		validate: validator.New(),
		newID:    uuid.NewString,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) userID(ctx context.Context, token string) (string, error) {
	userID, err := s.verifier.UserID(ctx, token)
	if err != nil {
		zerolog.Ctx(ctx).Debug().Err(err).Msg("token rejected")
		return "", err
	}
	return userID, nil
}

func (s *Service) check(payload any) error {
	err := s.validate.Struct(payload)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		fields := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			fields = append(fields, fe.Field())
		}
		return &ValidationError{Fields: fields, Err: err}
	}
	return &ValidationError{Err: err}
}

// ListItems returns every item owned by the caller.
func (s *Service) ListItems(ctx context.Context, token string) ([]model.WatchListItem, error) {
	userID, err := s.userID(ctx, token)
	if err != nil {
		return nil, err
	}
	return s.store.ListItems(ctx, userID)
}

// GetItem returns one of the caller's items.
func (s *Service) GetItem(ctx context.Context, token, itemID string) (*model.WatchListItem, error) {
	userID, err := s.userID(ctx, token)
	if err != nil {
		return nil, err
	}
	return s.store.GetItem(ctx, userID, itemID)
}

// CreateItem adds a new item for the caller. The id and creation time are
// assigned here; the owner is always the verified caller.
func (s *Service) CreateItem(ctx context.Context, token string, req model.CreateItemRequest) (*model.WatchListItem, error) {
	userID, err := s.userID(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := s.check(req); err != nil {
		return nil, err
	}

	return s.store.CreateItem(ctx, model.WatchListItem{
		UserID:    userID,
		ItemID:    s.newID(),
		Name:      req.Name,
		CreatedAt: s.now().UTC().Format(time.RFC3339),
	})
}

// UpdateItem renames one of the caller's items.
func (s *Service) UpdateItem(ctx context.Context, token, itemID string, req model.UpdateItemRequest) (*model.WatchListItem, error) {
	userID, err := s.userID(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := s.check(req); err != nil {
		return nil, err
	}
	return s.store.UpdateItem(ctx, userID, itemID, req)
}

// DeleteItem removes one of the caller's items. The returned item is nil when
// nothing was stored under itemID.
func (s *Service) DeleteItem(ctx context.Context, token, itemID string) (*model.WatchListItem, error) {
	userID, err := s.userID(ctx, token)
	if err != nil {
		return nil, err
	}
	return s.store.DeleteItem(ctx, userID, itemID)
}

// GenerateUploadURL returns a short-lived URL the caller can PUT an attachment to.
func (s *Service) GenerateUploadURL(ctx context.Context, token, itemID string) (string, error) {
	userID, err := s.userID(ctx, token)
	if err != nil {
		return "", err
	}
	return s.store.GenerateUploadURL(ctx, userID, itemID)
}
