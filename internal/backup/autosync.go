package backup

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mesh-intelligence/ccmanager/pkg/types"
)

// AutoSync uploads a snapshot for every auto-sync profile on that profile's
// interval until the context ends.
type AutoSync struct {
	svc *Service
	// OnRun, when set, is called after every run.
	OnRun func(profileID int64, run *Run, err error)
}

// NewAutoSync returns an AutoSync driven by svc.
func NewAutoSync(svc *Service) *AutoSync {
	return &AutoSync{svc: svc}
}

// Profiles returns the profiles with auto sync enabled.
func (a *AutoSync) Profiles() ([]types.WebDAVProfile, error) {
	all, err := a.svc.store.ListWebDAVProfiles()
	if err != nil {
		return nil, err
	}
	var out []types.WebDAVProfile
	for _, p := range all {
		if p.AutoSync {
			out = append(out, p)
		}
	}
	return out, nil
}

// Run blocks until ctx is done. Each profile uploads once at start and then
// every SyncInterval seconds. A failed run is logged and recorded; it does
// not stop the loop. Run returns nil on cancellation.
func (a *AutoSync) Run(ctx context.Context) error {
	profiles, err := a.Profiles()
	if err != nil {
		return err
	}
	if len(profiles) == 0 {
		a.svc.log.Info().Msg("no profiles with auto sync enabled")
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)
	for i := range profiles {
		p := profiles[i]
		g.Go(func() error {
			a.loop(ctx, &p)
			return nil
		})
	}
	return g.Wait()
}

func (a *AutoSync) loop(ctx context.Context, p *types.WebDAVProfile) {
	interval := time.Duration(p.SyncInterval) * time.Second
	if interval <= 0 {
		interval = types.DefaultSyncInterval * time.Second
	}
	log := a.svc.log.With().Str("component", "autosync").Int64("profile_id", p.ID).Dur("interval", interval).Logger()
	log.Info().Msg("auto sync started")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		run, err := a.svc.upload(ctx, p, "", types.SyncAuto)
		if ctx.Err() != nil {
			log.Info().Msg("auto sync stopped")
			return
		}
		if a.OnRun != nil {
			a.OnRun(p.ID, run, err)
		}

		select {
		case <-ctx.Done():
			log.Info().Msg("auto sync stopped")
			return
		case <-ticker.C:
		}
	}
}
