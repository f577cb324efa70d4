package backup

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/webdav"

	"github.com/mesh-intelligence/ccmanager/pkg/types"
)

// newDAVServer starts an in-memory WebDAV server. wrap, when non-nil,
// decorates the handler.
func newDAVServer(t *testing.T, wrap func(http.Handler) http.Handler) (*httptest.Server, webdav.FileSystem) {
	t.Helper()
	fs := webdav.NewMemFS()
	var h http.Handler = &webdav.Handler{FileSystem: fs, LockSystem: webdav.NewMemLS()}
	if wrap != nil {
		h = wrap(h)
	}
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv, fs
}

func basicAuth(user, pass string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, p, ok := r.BasicAuth()
			if !ok || u != user || p != pass {
				w.Header().Set("WWW-Authenticate", `Basic realm="test"`)
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func readRemote(t *testing.T, fs webdav.FileSystem, name string) string {
	t.Helper()
	f, err := fs.OpenFile(context.Background(), name, os.O_RDONLY, 0)
	require.NoError(t, err)
	defer f.Close()
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	return string(data)
}

func writeRemote(t *testing.T, fs webdav.FileSystem, name, content string) {
	t.Helper()
	f, err := fs.OpenFile(context.Background(), name, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	require.NoError(t, err)
	_, err = f.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

func TestNormalizeBase(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "/"},
		{"/", "/"},
		{"foo", "/foo"},
		{"foo/", "/foo"},
		{"/foo/", "/foo"},
		{"//foo//bar//", "/foo/bar"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeBase(tt.in))
		})
	}
}

func TestObjectPathShape(t *testing.T) {
	for _, base := range []string{"", "/", "foo", "foo/", "/foo/"} {
		t.Run(base, func(t *testing.T) {
			p := ObjectPath(base, "x.json")
			assert.True(t, strings.HasPrefix(p, "/"))
			assert.False(t, strings.HasPrefix(p, "//"))
			assert.NotContains(t, p, "//")
			assert.True(t, strings.HasSuffix(p, "/x.json"))
		})
	}
	assert.Equal(t, "/x.json", ObjectPath("", "x.json"))
	assert.Equal(t, "/foo/x.json", ObjectPath("/foo/", "x.json"))
}

func TestClientUploadListDownloadRemove(t *testing.T) {
	srv, fs := newDAVServer(t, nil)
	c := NewClient(&types.WebDAVProfile{URL: srv.URL, RemotePath: "backups/"})
	assert.Equal(t, "/backups", c.Base())

	require.NoError(t, c.Ping())

	doc := map[string]any{"accounts": []any{}, "base_urls": []any{}, "exported_at": "2025-01-01T00:00:00Z"}
	require.NoError(t, c.Upload("a.json", doc))
	// A second upload into the existing directory still succeeds.
	require.NoError(t, c.Upload("b.json", doc))

	body := readRemote(t, fs, "/backups/a.json")
	assert.Contains(t, body, "\n  \"accounts\"")

	names, err := c.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"a.json", "b.json"}, names)

	snap, err := c.Download("a.json")
	require.NoError(t, err)
	assert.Equal(t, "2025-01-01T00:00:00Z", snap.ExportedAt)
	assert.Empty(t, snap.Accounts)

	require.NoError(t, c.Remove("a.json"))
	names, err = c.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"b.json"}, names)
}

func TestCheckObjectName(t *testing.T) {
	tests := []struct {
		name string
		ok   bool
	}{
		{"claude-config-20250101-000000.json", true},
		{"..json", true},
		{"", false},
		{".", false},
		{"..", false},
		{"../other/x.json", false},
		{"sub/x.json", false},
		{"/x.json", false},
		{`..\x.json`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckObjectName(tt.name)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, types.ErrInvalidObject)
			assert.True(t, types.IsKind(err, types.KindValidation))
		})
	}
}

func TestClientStaysInsideBase(t *testing.T) {
	srv, fs := newDAVServer(t, nil)
	require.NoError(t, fs.Mkdir(context.Background(), "/other", 0o755))
	require.NoError(t, fs.Mkdir(context.Background(), "/backups", 0o755))
	writeRemote(t, fs, "/other/x.json", `{"accounts":[],"base_urls":[]}`)
	c := NewClient(&types.WebDAVProfile{URL: srv.URL, RemotePath: "/backups"})

	err := c.Remove("../other/x.json")
	assert.ErrorIs(t, err, types.ErrInvalidObject)
	_, err = c.Download("../other/x.json")
	assert.ErrorIs(t, err, types.ErrInvalidObject)
	err = c.Upload("../other/x.json", map[string]any{})
	assert.ErrorIs(t, err, types.ErrInvalidObject)

	assert.JSONEq(t, `{"accounts":[],"base_urls":[]}`, readRemote(t, fs, "/other/x.json"))
}

func TestClientDownloadErrors(t *testing.T) {
	srv, fs := newDAVServer(t, nil)
	require.NoError(t, fs.Mkdir(context.Background(), "/d", 0o755))
	writeRemote(t, fs, "/d/array.json", `[1,2]`)
	writeRemote(t, fs, "/d/binary.json", "\xff\xfe{}")
	c := NewClient(&types.WebDAVProfile{URL: srv.URL, RemotePath: "/d"})

	tests := []struct {
		name   string
		object string
		sentry error
	}{
		{"missing object", "nope.json", nil},
		{"not an object", "array.json", types.ErrInvalidSnapshot},
		{"not utf-8", "binary.json", types.ErrInvalidSnapshot},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Download(tt.object)
			require.Error(t, err)
			assert.True(t, types.IsKind(err, types.KindRemoteSync))
			if tt.sentry != nil {
				assert.ErrorIs(t, err, tt.sentry)
			}
		})
	}
}

func TestClientPingAuth(t *testing.T) {
	srv, _ := newDAVServer(t, basicAuth("alice", "secret"))

	good := NewClient(&types.WebDAVProfile{URL: srv.URL, Username: "alice", Password: "secret"})
	assert.NoError(t, good.Ping())

	bad := NewClient(&types.WebDAVProfile{URL: srv.URL, Username: "alice", Password: "wrong"})
	err := bad.Ping()
	require.Error(t, err)
	assert.True(t, types.IsKind(err, types.KindRemoteSync))
}
