// Package ui holds the view state of the terminal client: the watch list and
// the attachment upload form. Views keep only ephemeral state; the server is
// the source of truth.
package ui

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/jun/watchlist/internal/model"
)

var (
	// ErrNoFile is returned by EditView.Submit when no file was chosen.
	ErrNoFile = errors.New("file should be selected")

	// ErrNoItem is returned when a successful response carried no item.
	ErrNoItem = errors.New("server returned no item")
)

// API is the subset of client.Client the views call.
type API interface {
	ListItems(ctx context.Context, token string) ([]model.WatchListItem, error)
	CreateItem(ctx context.Context, token string, req model.CreateItemRequest) (*model.WatchListItem, error)
	UpdateItem(ctx context.Context, token, itemID string, req model.UpdateItemRequest) (*model.WatchListItem, error)
	DeleteItem(ctx context.Context, token, itemID string) error
	GetUploadURL(ctx context.Context, token, itemID string) (string, error)
	UploadFile(ctx context.Context, uploadURL string, file io.Reader) error
}

// ListView is the state behind the watch list screen.
type ListView struct {
	api   API
	token string

	Items       []model.WatchListItem
	NewItemName string
	Loading     bool
}

// NewListView returns a view that is loading until Load succeeds.
func NewListView(api API, token string) *ListView {
	return &ListView{api: api, token: token, Items: []model.WatchListItem{}, Loading: true}
}

// Load replaces the local items with the server's list.
func (v *ListView) Load(ctx context.Context) error {
	items, err := v.api.ListItems(ctx, v.token)
	if err != nil {
		return fmt.Errorf("failed to fetch watch list: %w", err)
	}
	v.Items = items
	v.Loading = false
	return nil
}

// Create adds name to the server and appends the stored item locally. The
// pending input is cleared only on success.
func (v *ListView) Create(ctx context.Context, name string) error {
	v.NewItemName = name
	item, err := v.api.CreateItem(ctx, v.token, model.CreateItemRequest{Name: name})
	if err != nil {
		return fmt.Errorf("item creation failed: %w", err)
	}
	if item == nil {
		return fmt.Errorf("item creation failed: %w", ErrNoItem)
	}
	v.Items = append(v.Items, *item)
	v.NewItemName = ""
	return nil
}

// Delete removes an item on the server, then drops it from the local list.
func (v *ListView) Delete(ctx context.Context, itemID string) error {
	if err := v.api.DeleteItem(ctx, v.token, itemID); err != nil {
		return fmt.Errorf("item deletion failed: %w", err)
	}
	kept := v.Items[:0]
	for _, item := range v.Items {
		if item.ItemID != itemID {
			kept = append(kept, item)
		}
	}
	v.Items = kept
	return nil
}

// Rename updates the item at pos and replaces it with the server's copy.
func (v *ListView) Rename(ctx context.Context, pos int, name string) error {
	if pos < 0 || pos >= len(v.Items) {
		return fmt.Errorf("no item at position %d", pos)
	}
	updated, err := v.api.UpdateItem(ctx, v.token, v.Items[pos].ItemID, model.UpdateItemRequest{Name: name})
	if err != nil {
		return fmt.Errorf("item update failed: %w", err)
	}
	if updated == nil {
		return fmt.Errorf("item update failed: %w", ErrNoItem)
	}
	v.Items[pos] = *updated
	return nil
}

// Index returns the position of itemID in the local list, or -1.
func (v *ListView) Index(itemID string) int {
	for i, item := range v.Items {
		if item.ItemID == itemID {
			return i
		}
	}
	return -1
}

// Edit opens the attachment form of a listed item.
func (v *ListView) Edit(itemID string) (*EditView, error) {
	if v.Index(itemID) < 0 {
		return nil, fmt.Errorf("no item %s", itemID)
	}
	return NewEditView(v.api, v.token, itemID), nil
}

// UploadState is the progress of an attachment upload.
type UploadState int

const (
	UploadIdle UploadState = iota
	FetchingPresignedURL
	UploadingFile
)

func (s UploadState) String() string {
	switch s {
	case FetchingPresignedURL:
		return "Uploading image metadata"
	case UploadingFile:
		return "Uploading file"
	default:
		return "Idle"
	}
}

// EditView is the state behind the attachment upload form of one item.
type EditView struct {
	api    API
	token  string
	itemID string
	file   io.Reader
	state  UploadState

	// OnStateChange is called on every phase transition.
	OnStateChange func(UploadState)
}

// NewEditView returns an idle upload form for itemID.
func NewEditView(api API, token, itemID string) *EditView {
	return &EditView{api: api, token: token, itemID: itemID}
}

// SetFile selects the content to upload.
func (v *EditView) SetFile(file io.Reader) {
	v.file = file
}

func (v *EditView) setState(s UploadState) {
	v.state = s
	if v.OnStateChange != nil {
		v.OnStateChange(s)
	}
}

// Submit fetches an upload URL and sends the selected file to it. The view
// returns to UploadIdle whether or not the upload succeeded.
func (v *EditView) Submit(ctx context.Context) error {
	if v.file == nil {
		return ErrNoFile
	}
	defer v.setState(UploadIdle)

	v.setState(FetchingPresignedURL)
	uploadURL, err := v.api.GetUploadURL(ctx, v.token, v.itemID)
	if err != nil {
		return fmt.Errorf("could not upload a file: %w", err)
	}

	v.setState(UploadingFile)
	if err := v.api.UploadFile(ctx, uploadURL, v.file); err != nil {
		return fmt.Errorf("could not upload a file: %w", err)
	}
	return nil
}
