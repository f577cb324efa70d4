// Package backup snapshots the profile set to a WebDAV server and restores it
// by full replacement.
package backup

import (
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/studio-b12/gowebdav"

	"github.com/mesh-intelligence/ccmanager/pkg/types"
)

// NormalizeBase returns p with exactly one leading slash, no trailing slash,
// and no repeated slashes. An empty path is the server root.
func NormalizeBase(p string) string {
	return path.Clean("/" + p)
}

// ObjectPath joins a remote base path and an object name.
func ObjectPath(base, name string) string {
	return path.Join(NormalizeBase(base), strings.TrimLeft(name, "/"))
}

// CheckObjectName rejects names that are empty or would resolve outside the
// remote directory.
func CheckObjectName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return types.E(types.KindValidation, fmt.Sprintf("object name %q", name), types.ErrInvalidObject)
	}
	return nil
}

// Client talks to one WebDAV profile's remote directory.
type Client struct {
	dav     *gowebdav.Client
	base    string
	timeout time.Duration
	log     zerolog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithTimeout bounds every request. Zero keeps the HTTP client default.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.timeout = d }
}

// WithClientLogger sets the client's logger.
func WithClientLogger(l zerolog.Logger) ClientOption {
	return func(c *Client) { c.log = l }
}

// NewClient returns a Client for profile.
func NewClient(profile *types.WebDAVProfile, opts ...ClientOption) *Client {
	c := &Client{
		dav:  gowebdav.NewClient(profile.URL, profile.Username, profile.Password),
		base: NormalizeBase(profile.RemotePath),
		log:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout > 0 {
		c.dav.SetTimeout(c.timeout)
	}
	c.log = c.log.With().Str("component", "webdav").Str("url", profile.URL).Str("remote_path", c.base).Logger()
	return c
}

// Base returns the normalized remote directory.
func (c *Client) Base() string {
	return c.base
}

func remoteErr(op string, err error) error {
	return types.E(types.KindRemoteSync, op, err)
}

// Ping checks that the server answers and accepts the credentials.
func (c *Client) Ping() error {
	if _, err := c.dav.Stat("/"); err != nil {
		return remoteErr("test connection", err)
	}
	c.log.Debug().Msg("connection ok")
	return nil
}

// Upload writes doc as indented JSON to name under the remote directory.
// Creating the directory is advisory; a failure there is logged and the
// write is attempted anyway.
func (c *Client) Upload(name string, doc any) error {
	if err := CheckObjectName(name); err != nil {
		return err
	}
	op := fmt.Sprintf("upload %s", name)
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return remoteErr(op, fmt.Errorf("encoding snapshot: %w", err))
	}

	if c.base != "/" {
		if err := c.dav.MkdirAll(c.base, 0o755); err != nil {
			c.log.Warn().Err(err).Msg("creating remote directory failed; it may already exist")
		}
	}

	target := ObjectPath(c.base, name)
	if err := c.dav.Write(target, data, 0o644); err != nil {
		return remoteErr(op, err)
	}
	c.log.Info().Str("object", target).Int("bytes", len(data)).Msg("uploaded")
	return nil
}

// Download reads name and decodes it into a Snapshot.
func (c *Client) Download(name string) (*Snapshot, error) {
	if err := CheckObjectName(name); err != nil {
		return nil, err
	}
	op := fmt.Sprintf("download %s", name)
	target := ObjectPath(c.base, name)

	data, err := c.dav.Read(target)
	if err != nil {
		return nil, remoteErr(op, err)
	}
	if !utf8.Valid(data) {
		return nil, remoteErr(op, fmt.Errorf("%w: not UTF-8 text", types.ErrInvalidSnapshot))
	}
	snap, err := DecodeSnapshot(data)
	if err != nil {
		return nil, remoteErr(op, err)
	}
	c.log.Info().Str("object", target).Int("bytes", len(data)).Msg("downloaded")
	return snap, nil
}

// List returns the names of the files directly under the remote directory,
// sorted.
func (c *Client) List() ([]string, error) {
	infos, err := c.dav.ReadDir(c.base)
	if err != nil {
		return nil, remoteErr("list remote files", err)
	}
	var names []string
	for _, fi := range infos {
		if fi.IsDir() {
			continue
		}
		names = append(names, fi.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Remove deletes name from the remote directory.
func (c *Client) Remove(name string) error {
	if err := CheckObjectName(name); err != nil {
		return err
	}
	target := ObjectPath(c.base, name)
	if err := c.dav.Remove(target); err != nil {
		return remoteErr(fmt.Sprintf("remove %s", name), err)
	}
	c.log.Info().Str("object", target).Msg("removed")
	return nil
}
