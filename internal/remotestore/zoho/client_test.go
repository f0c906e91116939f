package zoho_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scottgl9/android-google-drive-sync-sub001/internal/remotestore/zoho"
	"github.com/scottgl9/android-google-drive-sync-sub001/pkg/types"
)

type staticTokenSource struct{ token string }

func (s staticTokenSource) AccessToken(ctx context.Context) (string, error) { return s.token, nil }

// fakeWorkDrive is a minimal in-memory stand-in for the Zoho WorkDrive REST
// API surface the client touches, in the style of the teacher's
// httptest-based sync_test.go mock server.
type fakeWorkDrive struct {
	t        *testing.T
	mu       sync.Mutex
	nextID   int
	parentOf map[string]string
	nameOf   map[string]string
	typeOf   map[string]string
	bodyOf   map[string][]byte
}

func newFakeWorkDrive(t *testing.T) *fakeWorkDrive {
	f := &fakeWorkDrive{
		t:        t,
		parentOf: map[string]string{"root": ""},
		nameOf:   map[string]string{"root": ""},
		typeOf:   map[string]string{"root": "folder"},
		bodyOf:   map[string][]byte{},
	}
	return f
}

func (f *fakeWorkDrive) newID() string {
	f.nextID++
	return fmt.Sprintf("id-%d", f.nextID)
}

func (f *fakeWorkDrive) item(id string) map[string]interface{} {
	size := len(f.bodyOf[id])
	return map[string]interface{}{
		"id": id,
		"attributes": map[string]interface{}{
			"name":          f.nameOf[id],
			"type":          f.typeOf[id],
			"storage_info":  map[string]interface{}{"size": strconv.Itoa(size)},
			"modified_time": "2026-01-01T00:00:00Z",
			"md5_checksum":  "",
			"parent_id":     f.parentOf[id],
		},
	}
}

func (f *fakeWorkDrive) server() *httptest.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/files/", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		rest := strings.TrimPrefix(r.URL.Path, "/files/")

		switch {
		case strings.HasSuffix(rest, "/files") && r.Method == http.MethodGet:
			folderID := strings.TrimSuffix(rest, "/files")
			var data []interface{}
			for id, parent := range f.parentOf {
				if parent == folderID {
					data = append(data, f.item(id))
				}
			}
			json.NewEncoder(w).Encode(map[string]interface{}{"data": data})
		case r.Method == http.MethodDelete:
			id := rest
			if _, ok := f.nameOf[id]; !ok {
				w.WriteHeader(http.StatusNotFound)
				json.NewEncoder(w).Encode(map[string]interface{}{"errors": []map[string]string{{"title": "not found"}}})
				return
			}
			delete(f.nameOf, id)
			delete(f.parentOf, id)
			delete(f.typeOf, id)
			delete(f.bodyOf, id)
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	mux.HandleFunc("/files", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var payload struct {
			Data struct {
				Attributes struct {
					Name     string `json:"name"`
					ParentID string `json:"parent_id"`
				} `json:"attributes"`
			} `json:"data"`
		}
		require.NoError(f.t, json.NewDecoder(r.Body).Decode(&payload))

		f.mu.Lock()
		id := f.newID()
		f.nameOf[id] = payload.Data.Attributes.Name
		f.parentOf[id] = payload.Data.Attributes.ParentID
		f.typeOf[id] = "folder"
		f.mu.Unlock()

		json.NewEncoder(w).Encode(map[string]interface{}{"data": f.item(id)})
	})

	mux.HandleFunc("/upload", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(f.t, r.ParseMultipartForm(10<<20))
		parentID := r.FormValue("parent_id")

		file, header, err := r.FormFile("content")
		require.NoError(f.t, err)
		defer file.Close()
		content, err := io.ReadAll(file)
		require.NoError(f.t, err)

		f.mu.Lock()
		id := f.newID()
		f.nameOf[id] = header.Filename
		f.parentOf[id] = parentID
		f.typeOf[id] = "file"
		f.bodyOf[id] = content
		f.mu.Unlock()

		json.NewEncoder(w).Encode(map[string]interface{}{"data": f.item(id)})
	})

	mux.HandleFunc("/download/", func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/download/")
		f.mu.Lock()
		body, ok := f.bodyOf[id]
		f.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write(body)
	})

	return httptest.NewServer(mux)
}

func newTestClient(t *testing.T, srv *httptest.Server) *zoho.Client {
	t.Helper()
	c := zoho.New(staticTokenSource{token: "test-token"}, "root")
	c.SetBaseURLForTest(srv.URL)
	return c
}

func TestEnsureFolderStructure_CreatesMissingFolders(t *testing.T) {
	fake := newFakeWorkDrive(t)
	srv := fake.server()
	defer srv.Close()
	c := newTestClient(t, srv)

	id, err := c.EnsureFolderStructure(context.Background(), "a/b/c")
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	id2, err := c.EnsureFolderStructure(context.Background(), "a/b/c")
	require.NoError(t, err)
	assert.Equal(t, id, id2, "second call should find the same folders, not recreate them")
}

func TestUploadThenListRecursive(t *testing.T) {
	fake := newFakeWorkDrive(t)
	srv := fake.server()
	defer srv.Close()
	c := newTestClient(t, srv)

	entry, err := c.Upload(context.Background(), "docs/readme.txt", strings.NewReader("hello world"), 11)
	require.NoError(t, err)
	assert.Equal(t, "readme.txt", entry.Name)

	entries, err := c.ListRecursive(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, types.Path("docs/readme.txt"), entries[0].RelativePath)
}

func TestUploadThenDownload(t *testing.T) {
	fake := newFakeWorkDrive(t)
	srv := fake.server()
	defer srv.Close()
	c := newTestClient(t, srv)

	entry, err := c.Upload(context.Background(), "file.bin", strings.NewReader("payload bytes"), 13)
	require.NoError(t, err)

	rc, err := c.Download(context.Background(), entry.RemoteID)
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "payload bytes", string(data))
}

func TestFindByName(t *testing.T) {
	fake := newFakeWorkDrive(t)
	srv := fake.server()
	defer srv.Close()
	c := newTestClient(t, srv)

	_, err := c.Upload(context.Background(), "notes.txt", strings.NewReader("x"), 1)
	require.NoError(t, err)

	entry, found, err := c.FindByName(context.Background(), "notes.txt")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "notes.txt", entry.Name)

	_, found, err = c.FindByName(context.Background(), "missing.txt")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestDelete_MissingIDIsNotAnError(t *testing.T) {
	fake := newFakeWorkDrive(t)
	srv := fake.server()
	defer srv.Close()
	c := newTestClient(t, srv)

	err := c.Delete(context.Background(), "does-not-exist")
	assert.NoError(t, err)
}

func TestDelete_RemovesFile(t *testing.T) {
	fake := newFakeWorkDrive(t)
	srv := fake.server()
	defer srv.Close()
	c := newTestClient(t, srv)

	entry, err := c.Upload(context.Background(), "gone.txt", strings.NewReader("x"), 1)
	require.NoError(t, err)

	require.NoError(t, c.Delete(context.Background(), entry.RemoteID))

	_, found, err := c.FindByName(context.Background(), "gone.txt")
	require.NoError(t, err)
	assert.False(t, found)
}
