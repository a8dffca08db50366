package main

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jun/watchlist/internal/app"
	"github.com/jun/watchlist/internal/auth"
	"github.com/jun/watchlist/internal/client"
	"github.com/jun/watchlist/internal/handler"
	"github.com/jun/watchlist/internal/store"
	"github.com/jun/watchlist/internal/watchlist"
)

type staticVerifier struct{}

func (staticVerifier) UserID(_ context.Context, token string) (string, error) {
	if token == "" {
		return "", auth.ErrMissingToken
	}
	return token, nil
}

// urlSigner points upload URLs at the test server's /upload/ path.
type urlSigner struct{ base *string }

func (s urlSigner) PresignPut(_ context.Context, key string, _ time.Duration) (string, error) {
	return *s.base + "/upload/" + key + "?X-Amz-Signature=sig", nil
}

// newTestServer serves a over HTTP, forwarding each request as a proxy event.
// PUTs under /upload/ stand in for the bucket and are stored in uploads.
func newTestServer(t *testing.T, a *app.App, uploads map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut && strings.HasPrefix(r.URL.Path, "/upload/") {
			if r.ContentLength < 0 {
				http.Error(w, "chunked upload not supported", http.StatusNotImplemented)
				return
			}
			b, _ := io.ReadAll(r.Body)
			uploads[strings.TrimPrefix(r.URL.Path, "/upload/")] = string(b)
			return
		}
		body, _ := io.ReadAll(r.Body)
		resp, err := a.HandleRequest(r.Context(), events.APIGatewayProxyRequest{
			HTTPMethod: r.Method,
			Path:       r.URL.Path,
			Headers:    map[string]string{"Authorization": r.Header.Get("Authorization")},
			Body:       string(body),
		})
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		for k, v := range resp.Headers {
			w.Header().Set(k, v)
		}
		w.WriteHeader(resp.StatusCode)
		io.WriteString(w, resp.Body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRun_Commands(t *testing.T) {
	var base string
	uploads := map[string]string{}
	items := store.NewItemStore(store.NewMemoryTable(), urlSigner{&base}, store.Options{Bucket: "videos"})
	svc := watchlist.NewService(items, staticVerifier{})
	srv := newTestServer(t, app.NewApp(handler.NewWatchListHandler(svc), app.Options{Logger: zerolog.Nop()}), uploads)
	base = srv.URL

	api := client.New(srv.URL)
	ctx := context.Background()

	var out bytes.Buffer
	require.NoError(t, run(ctx, api, "u1", []string{"list"}, &out))
	assert.Equal(t, "watch list is empty\n", out.String())

	out.Reset()
	require.NoError(t, run(ctx, api, "u1", []string{"add", "Dune"}, &out))
	assert.Contains(t, out.String(), "Dune")

	listed, err := api.ListItems(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, listed, 1)
	id := listed[0].ItemID

	out.Reset()
	require.NoError(t, run(ctx, api, "u1", []string{"rename", id, "Dune: Part Two"}, &out))
	assert.Contains(t, out.String(), "Dune: Part Two")

	out.Reset()
	require.Error(t, run(ctx, api, "u1", []string{"rename", "missing", "x"}, &out))

	clip := filepath.Join(t.TempDir(), "clip.mp4")
	require.NoError(t, os.WriteFile(clip, []byte("video-bytes"), 0o600))

	out.Reset()
	require.NoError(t, run(ctx, api, "u1", []string{"upload", id, clip}, &out))
	assert.Equal(t, "Uploading image metadata\nUploading file\nFile was uploaded!\n", out.String())
	assert.Equal(t, "video-bytes", uploads[id])

	out.Reset()
	require.Error(t, run(ctx, api, "u1", []string{"upload", "missing", clip}, &out))

	out.Reset()
	require.NoError(t, run(ctx, api, "u1", []string{"rm", id}, &out))
	assert.Equal(t, "deleted "+id+"\n", out.String())

	assert.ErrorIs(t, run(ctx, api, "u1", nil, &out), errUsage)
	assert.ErrorIs(t, run(ctx, api, "u1", []string{"add"}, &out), errUsage)
}

func TestRun_UploadMissingFile(t *testing.T) {
	err := run(context.Background(), client.New("http://127.0.0.1:0"), "u1",
		[]string{"upload", "a", filepath.Join(t.TempDir(), "nope.mp4")}, &bytes.Buffer{})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestWarnEnv(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	_, missing := os.Open(filepath.Join(t.TempDir(), ".env"))
	warnEnv(logger, missing)
	assert.Empty(t, buf.String())

	warnEnv(logger, godotenv.Load(t.TempDir()))
	assert.Contains(t, buf.String(), "failed to read .env")
}
