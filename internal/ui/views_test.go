package ui_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jun/watchlist/internal/client"
	"github.com/jun/watchlist/internal/model"
	"github.com/jun/watchlist/internal/ui"
)

var _ ui.API = (*client.Client)(nil)

// fakeAPI keeps items in memory and records uploads.
type fakeAPI struct {
	items    []model.WatchListItem
	next     int
	err      error
	uploaded string
	renamed  string
}

func (f *fakeAPI) ListItems(context.Context, string) ([]model.WatchListItem, error) {
	if f.err != nil {
		return nil, f.err
	}
	return append([]model.WatchListItem{}, f.items...), nil
}

func (f *fakeAPI) CreateItem(_ context.Context, _ string, req model.CreateItemRequest) (*model.WatchListItem, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.next++
	item := model.WatchListItem{UserID: "u1", ItemID: fmt.Sprintf("id-%d", f.next), Name: req.Name}
	f.items = append(f.items, item)
	return &item, nil
}

func (f *fakeAPI) UpdateItem(_ context.Context, _ string, itemID string, req model.UpdateItemRequest) (*model.WatchListItem, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.renamed = itemID
	return &model.WatchListItem{UserID: "u1", ItemID: itemID, Name: req.Name, AttachmentURL: "https://videos/" + itemID}, nil
}

func (f *fakeAPI) DeleteItem(context.Context, string, string) error {
	return f.err
}

func (f *fakeAPI) GetUploadURL(_ context.Context, _ string, itemID string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "https://signed/" + itemID, nil
}

func (f *fakeAPI) UploadFile(_ context.Context, _ string, file io.Reader) error {
	b, _ := io.ReadAll(file)
	f.uploaded = string(b)
	return nil
}

func TestListView_LoadCreateDelete(t *testing.T) {
	api := &fakeAPI{items: []model.WatchListItem{{ItemID: "old", Name: "Heat"}}}
	v := ui.NewListView(api, "tok")
	ctx := context.Background()
	assert.True(t, v.Loading)

	require.NoError(t, v.Load(ctx))
	assert.False(t, v.Loading)
	require.Len(t, v.Items, 1)

	require.NoError(t, v.Create(ctx, "Dune"))
	require.Len(t, v.Items, 2)
	assert.Equal(t, "Dune", v.Items[1].Name)
	assert.Empty(t, v.NewItemName)

	require.NoError(t, v.Delete(ctx, "old"))
	require.Len(t, v.Items, 1)
	assert.Equal(t, "Dune", v.Items[0].Name)
	assert.Equal(t, -1, v.Index("old"))
	assert.Equal(t, 0, v.Index(v.Items[0].ItemID))
}

func TestListView_FailuresKeepState(t *testing.T) {
	api := &fakeAPI{items: []model.WatchListItem{{ItemID: "a", Name: "Heat"}}}
	v := ui.NewListView(api, "tok")
	ctx := context.Background()
	require.NoError(t, v.Load(ctx))

	api.err = errors.New("boom")

	assert.ErrorContains(t, v.Create(ctx, "Dune"), "item creation failed")
	assert.Equal(t, "Dune", v.NewItemName, "pending name survives a failed create")
	assert.Len(t, v.Items, 1)

	assert.ErrorContains(t, v.Delete(ctx, "a"), "item deletion failed")
	assert.Len(t, v.Items, 1)

	assert.Error(t, v.Load(ctx))
	assert.Len(t, v.Items, 1)
}

func TestListView_Rename(t *testing.T) {
	api := &fakeAPI{items: []model.WatchListItem{{ItemID: "a", Name: "Heat"}, {ItemID: "b", Name: "Alien"}}}
	v := ui.NewListView(api, "tok")
	ctx := context.Background()
	require.NoError(t, v.Load(ctx))

	require.NoError(t, v.Rename(ctx, 1, "Aliens"))
	assert.Equal(t, "b", api.renamed)
	assert.Equal(t, "Aliens", v.Items[1].Name)
	assert.Equal(t, "https://videos/b", v.Items[1].AttachmentURL)
	assert.Equal(t, "Heat", v.Items[0].Name)

	assert.Error(t, v.Rename(ctx, 5, "x"))
}

func TestListView_Edit(t *testing.T) {
	api := &fakeAPI{items: []model.WatchListItem{{ItemID: "a", Name: "Heat"}}}
	v := ui.NewListView(api, "tok")
	require.NoError(t, v.Load(context.Background()))

	edit, err := v.Edit("a")
	require.NoError(t, err)
	edit.SetFile(strings.NewReader("clip"))
	require.NoError(t, edit.Submit(context.Background()))
	assert.Equal(t, "clip", api.uploaded)

	_, err = v.Edit("missing")
	assert.Error(t, err)
}

func TestEditView_Submit(t *testing.T) {
	api := &fakeAPI{}
	v := ui.NewEditView(api, "tok", "a")

	var phases []ui.UploadState
	v.OnStateChange = func(s ui.UploadState) { phases = append(phases, s) }

	assert.ErrorIs(t, v.Submit(context.Background()), ui.ErrNoFile)
	assert.Empty(t, phases)

	v.SetFile(strings.NewReader("video-bytes"))
	require.NoError(t, v.Submit(context.Background()))

	assert.Equal(t, []ui.UploadState{ui.FetchingPresignedURL, ui.UploadingFile, ui.UploadIdle}, phases)
	assert.Equal(t, "video-bytes", api.uploaded)
}

func TestEditView_SubmitFailureReturnsToIdle(t *testing.T) {
	api := &fakeAPI{err: errors.New("denied")}
	v := ui.NewEditView(api, "tok", "a")
	v.SetFile(strings.NewReader("x"))

	var phases []ui.UploadState
	v.OnStateChange = func(s ui.UploadState) { phases = append(phases, s) }

	err := v.Submit(context.Background())
	assert.ErrorContains(t, err, "could not upload a file")
	assert.Equal(t, []ui.UploadState{ui.FetchingPresignedURL, ui.UploadIdle}, phases)
}

func TestListView_EmptyServerResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			io.WriteString(w, `{"items":[{"userId":"u1","itemId":"a","name":"Heat"}]}`)
		case http.MethodPost:
			w.WriteHeader(http.StatusCreated)
			io.WriteString(w, `{}`)
		case http.MethodPatch:
			io.WriteString(w, `{"updatedItem":null}`)
		}
	}))
	defer srv.Close()

	v := ui.NewListView(client.New(srv.URL), "tok")
	ctx := context.Background()
	require.NoError(t, v.Load(ctx))

	err := v.Create(ctx, "Dune")
	assert.ErrorIs(t, err, ui.ErrNoItem)
	assert.Equal(t, "Dune", v.NewItemName)
	require.Len(t, v.Items, 1)

	err = v.Rename(ctx, 0, "Heat 2")
	assert.ErrorIs(t, err, ui.ErrNoItem)
	assert.Equal(t, "Heat", v.Items[0].Name)
}
