package backup

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mesh-intelligence/ccmanager/pkg/types"
)

// objectNameLayout formats default snapshot names.
const objectNameLayout = "20060102-150405"

// DefaultObjectName returns claude-config-YYYYMMDD-HHMMSS.json for t.
func DefaultObjectName(t time.Time) string {
	return fmt.Sprintf("claude-config-%s.json", t.Format(objectNameLayout))
}

// ServiceStore is the part of types.Store the sync service uses.
type ServiceStore interface {
	SnapshotStore
	GetWebDAVProfile(id int64) (*types.WebDAVProfile, error)
	ListWebDAVProfiles() ([]types.WebDAVProfile, error)
	TouchLastSync(id int64) error
	AppendSyncLog(e types.SyncLogEntry) (*types.SyncLogEntry, error)
}

// Service runs uploads and restores against stored WebDAV profiles and
// records each run in the sync log.
type Service struct {
	store   ServiceStore
	log     zerolog.Logger
	now     func() time.Time
	timeout time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service's logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithClock overrides the time used for object names and exports.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithRequestTimeout bounds each WebDAV request.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Service) { s.timeout = d }
}

// NewService returns a Service over store.
func NewService(store ServiceStore, opts ...Option) *Service {
	s := &Service{store: store, log: zerolog.Nop(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Client returns a client for the profile with the given id.
func (s *Service) Client(profileID int64) (*Client, *types.WebDAVProfile, error) {
	p, err := s.store.GetWebDAVProfile(profileID)
	if err != nil {
		return nil, nil, err
	}
	return s.clientFor(p), p, nil
}

func (s *Service) clientFor(p *types.WebDAVProfile) *Client {
	return NewClient(p, WithTimeout(s.timeout), WithClientLogger(s.log))
}

// Test pings the profile's server.
func (s *Service) Test(profileID int64) error {
	c, _, err := s.Client(profileID)
	if err != nil {
		return err
	}
	return c.Ping()
}

// List returns the object names in the profile's remote directory.
func (s *Service) List(profileID int64) ([]string, error) {
	c, _, err := s.Client(profileID)
	if err != nil {
		return nil, err
	}
	return c.List()
}

// Remove deletes one object from the profile's remote directory.
func (s *Service) Remove(profileID int64, name string) error {
	c, _, err := s.Client(profileID)
	if err != nil {
		return err
	}
	return c.Remove(name)
}

// Fetch downloads a snapshot without restoring it. The run is recorded as a
// download and the snapshot is returned in Run.Snapshot.
func (s *Service) Fetch(ctx context.Context, profileID int64, name string) (*Run, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := s.store.GetWebDAVProfile(profileID)
	if err != nil {
		return nil, err
	}
	run := &Run{ID: newRunID(), Object: name}
	log := s.runLogger(p, run, types.SyncDownload)

	run.Snapshot, err = NewClient(p, WithTimeout(s.timeout), WithClientLogger(log)).Download(name)
	if err := s.record(p, run, types.SyncDownload, err, fmt.Sprintf("downloaded %s", name)); err != nil {
		return run, err
	}
	return run, nil
}

// Run identifies one recorded sync run. Report is set by restores and
// Snapshot by fetches.
type Run struct {
	ID       string
	Object   string
	Report   *RestoreReport
	Snapshot *Snapshot
}

// Upload exports the store and writes it to the profile's remote
// directory. An empty name takes DefaultObjectName.
func (s *Service) Upload(ctx context.Context, profileID int64, name string) (*Run, error) {
	p, err := s.store.GetWebDAVProfile(profileID)
	if err != nil {
		return nil, err
	}
	return s.upload(ctx, p, name, types.SyncUpload)
}

func (s *Service) upload(ctx context.Context, p *types.WebDAVProfile, name, direction string) (*Run, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if name == "" {
		name = DefaultObjectName(s.now())
	}
	run := &Run{ID: newRunID(), Object: name}
	log := s.runLogger(p, run, direction)

	snap, err := Export(s.store, s.now())
	if err == nil {
		err = NewClient(p, WithTimeout(s.timeout), WithClientLogger(log)).Upload(name, snap)
	}
	if err := s.record(p, run, direction, err, fmt.Sprintf("uploaded %s", name)); err != nil {
		return run, err
	}
	return run, nil
}

// Restore downloads name from the profile's remote directory and replaces
// every account and base URL with its contents.
func (s *Service) Restore(ctx context.Context, profileID int64, name string) (*Run, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := s.store.GetWebDAVProfile(profileID)
	if err != nil {
		return nil, err
	}
	run := &Run{ID: newRunID(), Object: name}
	log := s.runLogger(p, run, types.SyncDownload)

	snap, err := NewClient(p, WithTimeout(s.timeout), WithClientLogger(log)).Download(name)
	if err == nil {
		run.Report, err = Restore(s.store, snap, log)
	}
	msg := fmt.Sprintf("restored %s", name)
	if run.Report != nil {
		msg = fmt.Sprintf("restored %s: %s", name, run.Report)
	}
	if err := s.record(p, run, types.SyncDownload, err, msg); err != nil {
		return run, err
	}
	return run, nil
}

func (s *Service) runLogger(p *types.WebDAVProfile, run *Run, direction string) zerolog.Logger {
	return s.log.With().
		Str("component", "backup").
		Int64("profile_id", p.ID).
		Str("run_id", run.ID).
		Str("direction", direction).
		Logger()
}

// record appends the run's sync log entry and, on success, touches the
// profile's last sync time. It returns runErr, or the bookkeeping error
// when the run itself succeeded.
func (s *Service) record(p *types.WebDAVProfile, run *Run, direction string, runErr error, okMsg string) error {
	entry := types.SyncLogEntry{ProfileID: p.ID, Direction: direction, RunID: run.ID, Status: types.SyncSuccess, Message: okMsg}
	if runErr != nil {
		entry.Status = types.SyncFailed
		entry.Message = runErr.Error()
	}

	if _, err := s.store.AppendSyncLog(entry); err != nil {
		s.log.Error().Err(err).Str("run_id", run.ID).Msg("appending sync log failed")
		if runErr == nil {
			return err
		}
	}
	if runErr != nil {
		s.log.Error().Err(runErr).Str("run_id", run.ID).Str("direction", direction).Msg("sync run failed")
		return runErr
	}
	if err := s.store.TouchLastSync(p.ID); err != nil {
		return err
	}
	s.log.Info().Str("run_id", run.ID).Str("direction", direction).Str("object", run.Object).Msg("sync run finished")
	return nil
}

func newRunID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
