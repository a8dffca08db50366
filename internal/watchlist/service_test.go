package watchlist_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jun/watchlist/internal/auth"
	"github.com/jun/watchlist/internal/model"
	"github.com/jun/watchlist/internal/store"
	"github.com/jun/watchlist/internal/watchlist"
)

// tokenVerifier treats the token itself as the user id.
type tokenVerifier struct{}

func (tokenVerifier) UserID(_ context.Context, token string) (string, error) {
	if token == "" || token == "bad" {
		return "", auth.ErrInvalidToken
	}
	return token, nil
}

type fakeSigner struct{ calls int }

func (f *fakeSigner) PresignPut(_ context.Context, key string, _ time.Duration) (string, error) {
	f.calls++
	return "https://signed.example/" + key + "?X-Amz-Signature=abc", nil
}

func newService(t *testing.T) (*watchlist.Service, *store.MemoryTable, *fakeSigner) {
	t.Helper()
	table := store.NewMemoryTable()
	signer := &fakeSigner{}
	items := store.NewItemStore(table, signer, store.Options{Bucket: "videos"})

	n := 0
	svc := watchlist.NewService(items, tokenVerifier{},
		watchlist.WithIDGenerator(func() string {
			n++
			return "item-" + string(rune('0'+n))
		}),
		watchlist.WithClock(func() time.Time {
			return time.Date(2024, 5, 1, 12, 0, 0, 0, time.FixedZone("CEST", 2*3600))
		}),
	)
	return svc, table, signer
}

func TestService_CreateListDelete(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	created, err := svc.CreateItem(ctx, "u1", model.CreateItemRequest{Name: "Dune"})
	require.NoError(t, err)
	assert.Equal(t, "u1", created.UserID)
	assert.Equal(t, "item-1", created.ItemID)
	assert.Equal(t, "2024-05-01T10:00:00Z", created.CreatedAt)
	assert.Empty(t, created.AttachmentURL)

	items, err := svc.ListItems(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Dune", items[0].Name)

	deleted, err := svc.DeleteItem(ctx, "u1", created.ItemID)
	require.NoError(t, err)
	require.NotNil(t, deleted)

	items, err = svc.ListItems(ctx, "u1")
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestService_ListIsScopedToCaller(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	_, err := svc.CreateItem(ctx, "u1", model.CreateItemRequest{Name: "Dune"})
	require.NoError(t, err)
	_, err = svc.CreateItem(ctx, "u2", model.CreateItemRequest{Name: "Heat"})
	require.NoError(t, err)

	items, err := svc.ListItems(ctx, "u2")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "u2", items[0].UserID)
}

func TestService_DeleteTwice(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	created, err := svc.CreateItem(ctx, "u1", model.CreateItemRequest{Name: "Dune"})
	require.NoError(t, err)

	_, err = svc.DeleteItem(ctx, "u1", created.ItemID)
	require.NoError(t, err)
	deleted, err := svc.DeleteItem(ctx, "u1", created.ItemID)
	require.NoError(t, err)
	assert.Nil(t, deleted)
}

func TestService_UpdateMissingItem(t *testing.T) {
	svc, table, _ := newService(t)
	ctx := context.Background()

	_, err := svc.UpdateItem(ctx, "u1", "nope", model.UpdateItemRequest{Name: "x"})
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = table.Get(ctx, "u1", "nope")
	assert.ErrorIs(t, err, store.ErrNotFound, "update must not create the item")
}

func TestService_UpdateCannotTouchOtherUsersItem(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	created, err := svc.CreateItem(ctx, "u1", model.CreateItemRequest{Name: "Dune"})
	require.NoError(t, err)

	_, err = svc.UpdateItem(ctx, "u2", created.ItemID, model.UpdateItemRequest{Name: "stolen"})
	assert.ErrorIs(t, err, store.ErrNotFound)

	got, err := svc.GetItem(ctx, "u1", created.ItemID)
	require.NoError(t, err)
	assert.Equal(t, "Dune", got.Name)
}

func TestService_Validation(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	tests := []struct {
		name string
		run  func() error
	}{
		{"create empty name", func() error {
			_, err := svc.CreateItem(ctx, "u1", model.CreateItemRequest{})
			return err
		}},
		{"create long name", func() error {
			_, err := svc.CreateItem(ctx, "u1", model.CreateItemRequest{Name: strings.Repeat("a", 256)})
			return err
		}},
		{"update empty name", func() error {
			_, err := svc.UpdateItem(ctx, "u1", "item-1", model.UpdateItemRequest{})
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			require.ErrorIs(t, err, watchlist.ErrInvalidRequest)
			var vErr *watchlist.ValidationError
			require.True(t, errors.As(err, &vErr))
			assert.Equal(t, []string{"Name"}, vErr.Fields)
		})
	}
}

func TestService_RejectsBadToken(t *testing.T) {
	svc, table, _ := newService(t)
	ctx := context.Background()

	_, err := svc.CreateItem(ctx, "bad", model.CreateItemRequest{Name: "Dune"})
	assert.ErrorIs(t, err, auth.ErrUnauthorized)

	_, err = svc.ListItems(ctx, "")
	assert.ErrorIs(t, err, auth.ErrUnauthorized)

	items, err := table.Query(ctx, "bad")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestService_GenerateUploadURL(t *testing.T) {
	svc, table, signer := newService(t)
	ctx := context.Background()

	_, err := svc.GenerateUploadURL(ctx, "u1", "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Zero(t, signer.calls)

	created, err := svc.CreateItem(ctx, "u1", model.CreateItemRequest{Name: "Dune"})
	require.NoError(t, err)

	uploadURL, err := svc.GenerateUploadURL(ctx, "u1", created.ItemID)
	require.NoError(t, err)

	stored, err := table.Get(ctx, "u1", created.ItemID)
	require.NoError(t, err)
	assert.Equal(t, "https://videos.s3.amazonaws.com/"+created.ItemID, stored.AttachmentURL)
	assert.NotEqual(t, uploadURL, stored.AttachmentURL)
}
