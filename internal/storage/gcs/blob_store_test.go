package gcs_test

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/JakeFAU/hoops-harvester/internal/storage/gcs"
)

const bucket = "archive-bucket"

func newTestStore(t *testing.T, handler http.Handler) *gcs.BlobStore {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	store, err := gcs.Dial(context.Background(), gcs.Config{Bucket: bucket},
		option.WithEndpoint(server.URL),
		option.WithoutAuthentication(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestPutObjectUploads(t *testing.T) {
	t.Parallel()

	objectName := "raw/stats.example.com/players/j/jordan01/abc.html"
	body := []byte("<html>jordan</html>")

	// Simulates the JSON API multipart upload.
	store := newTestStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, fmt.Sprintf("/upload/storage/v1/b/%s/o", bucket))
		assert.Equal(t, objectName, r.URL.Query().Get("name"))
		payload, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.Contains(t, string(payload), string(body))
		assert.Contains(t, string(payload), "text/html")
		fmt.Fprintln(w, `{"name": "`+objectName+`", "bucket": "`+bucket+`"}`)
	}))

	uri, err := store.PutObject(context.Background(), "/"+objectName, "text/html; charset=utf-8", body)
	require.NoError(t, err)
	require.Equal(t, "gs://"+bucket+"/"+objectName, uri)
}

func TestPutObjectServerError(t *testing.T) {
	t.Parallel()

	store := newTestStore(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))

	_, err := store.PutObject(context.Background(), "page.html", "text/html", []byte("x"))
	require.Error(t, err)
}

func TestPutObjectRejectsEmptyPath(t *testing.T) {
	t.Parallel()

	store := newTestStore(t, http.NotFoundHandler())
	_, err := store.PutObject(context.Background(), "  ", "text/html", []byte("x"))
	require.Error(t, err)
}

func TestNewValidates(t *testing.T) {
	t.Parallel()

	_, err := gcs.New(nil, gcs.Config{Bucket: bucket})
	require.Error(t, err)

	_, err = gcs.Dial(context.Background(), gcs.Config{}, option.WithoutAuthentication())
	require.Error(t, err)
}
