package backup

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/mesh-intelligence/ccmanager/internal/settings"
	"github.com/mesh-intelligence/ccmanager/pkg/types"
)

// Snapshot is the document stored on the remote. Records stay raw so a bad
// record can be skipped without rejecting the rest.
type Snapshot struct {
	Accounts       []json.RawMessage `json:"accounts"`
	BaseURLs       []json.RawMessage `json:"base_urls"`
	ClaudeSettings json.RawMessage   `json:"claude_settings,omitempty"`
	ExportedAt     string            `json:"exported_at"`
}

// SnapshotStore is the part of types.Store that export and restore use.
type SnapshotStore interface {
	ListAccounts(f types.AccountFilter) ([]types.Account, error)
	ListBaseURLs() ([]types.BaseURL, error)
	GetSettings() (*types.SettingsBlob, error)
	SaveSettings(doc string) (*types.SettingsBlob, error)
	CreateAccount(n types.NewAccount) (*types.Account, error)
	CreateBaseURL(n types.NewBaseURL) (*types.BaseURL, error)
	ClearAccountsAndBaseURLs() error
}

// DecodeSnapshot parses a snapshot document. The top level must be a JSON
// object; records are validated later, one by one, during restore.
func DecodeSnapshot(data []byte) (*Snapshot, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, types.E(types.KindValidation, "decode snapshot", fmt.Errorf("%w: %v", types.ErrInvalidSnapshot, err))
	}
	if top == nil {
		return nil, types.E(types.KindValidation, "decode snapshot", fmt.Errorf("%w: not an object", types.ErrInvalidSnapshot))
	}

	var snap Snapshot
	for key, dst := range map[string]*[]json.RawMessage{"accounts": &snap.Accounts, "base_urls": &snap.BaseURLs} {
		raw, ok := top[key]
		if !ok || isNull(raw) {
			continue
		}
		if err := json.Unmarshal(raw, dst); err != nil {
			return nil, types.E(types.KindValidation, "decode snapshot", fmt.Errorf("%w: %s is not an array", types.ErrInvalidSnapshot, key))
		}
	}
	if raw, ok := top["claude_settings"]; ok && !isNull(raw) {
		snap.ClaudeSettings = raw
	}
	if raw, ok := top["exported_at"]; ok {
		_ = json.Unmarshal(raw, &snap.ExportedAt)
	}
	return &snap, nil
}

func isNull(raw json.RawMessage) bool {
	return len(bytes.TrimSpace(raw)) == 0 || string(bytes.TrimSpace(raw)) == "null"
}

// Export captures every account, every base URL, and the stored policy. The
// built-in policy is exported when none is stored.
func Export(store SnapshotStore, now time.Time) (*Snapshot, error) {
	accounts, err := store.ListAccounts(types.AccountFilter{})
	if err != nil {
		return nil, err
	}
	baseURLs, err := store.ListBaseURLs()
	if err != nil {
		return nil, err
	}

	policy := settings.DefaultPolicyJSON()
	blob, err := store.GetSettings()
	switch {
	case err == nil:
		policy = blob.JSON
	case !errors.Is(err, types.ErrNotFound):
		return nil, err
	}

	snap := &Snapshot{
		Accounts:       make([]json.RawMessage, 0, len(accounts)),
		BaseURLs:       make([]json.RawMessage, 0, len(baseURLs)),
		ClaudeSettings: json.RawMessage(policy),
		ExportedAt:     now.UTC().Format(time.RFC3339),
	}
	for i := range accounts {
		raw, err := json.Marshal(accounts[i])
		if err != nil {
			return nil, fmt.Errorf("encoding account %d: %w", accounts[i].ID, err)
		}
		snap.Accounts = append(snap.Accounts, raw)
	}
	for i := range baseURLs {
		raw, err := json.Marshal(baseURLs[i])
		if err != nil {
			return nil, fmt.Errorf("encoding base url %d: %w", baseURLs[i].ID, err)
		}
		snap.BaseURLs = append(snap.BaseURLs, raw)
	}
	return snap, nil
}

// RestoreReport counts what a restore imported and skipped.
type RestoreReport struct {
	AccountsImported int
	AccountsSkipped  int
	BaseURLsImported int
	BaseURLsSkipped  int
	SettingsRestored bool
	// Problems describes each skipped record and a skipped policy.
	Problems []string
}

func (r *RestoreReport) String() string {
	return fmt.Sprintf("accounts %d imported, %d skipped; base urls %d imported, %d skipped; settings restored: %t",
		r.AccountsImported, r.AccountsSkipped, r.BaseURLsImported, r.BaseURLsSkipped, r.SettingsRestored)
}

type accountRecord struct {
	Name          *string         `json:"name"`
	Token         *string         `json:"token"`
	BaseURL       *string         `json:"base_url"`
	Model         string          `json:"model"`
	CustomEnvVars json.RawMessage `json:"custom_env_vars"`
}

type baseURLRecord struct {
	Name           *string         `json:"name"`
	URL            *string         `json:"url"`
	Description    string          `json:"description"`
	APIKey         string          `json:"api_key"`
	IsDefault      bool            `json:"is_default"`
	DefaultEnvVars json.RawMessage `json:"default_env_vars"`
}

// envMap decodes an optional env map, dropping it when it is not a map of
// strings.
func envMap(raw json.RawMessage) map[string]string {
	if isNull(raw) {
		return nil
	}
	var m map[string]string
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	return m
}

// Restore replaces every account and base URL with the snapshot's records.
// Base URLs are recreated first, then accounts, each through the store's
// create path. A record that fails to decode or create is counted and
// skipped. Directories and associations of surviving rows are left alone.
func Restore(store SnapshotStore, snap *Snapshot, log zerolog.Logger) (*RestoreReport, error) {
	if snap == nil {
		return nil, types.E(types.KindValidation, "restore snapshot", types.ErrInvalidSnapshot)
	}
	if err := store.ClearAccountsAndBaseURLs(); err != nil {
		return nil, err
	}
	log.Info().Int("accounts", len(snap.Accounts)).Int("base_urls", len(snap.BaseURLs)).Msg("cleared accounts and base urls; restoring")

	report := &RestoreReport{}
	skip := func(kind string, i int, err error) {
		log.Warn().Err(err).Str("record", kind).Int("index", i).Msg("skipping snapshot record")
		report.Problems = append(report.Problems, fmt.Sprintf("%s %d: %v", kind, i, err))
	}

	for i, raw := range snap.BaseURLs {
		var rec baseURLRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			report.BaseURLsSkipped++
			skip("base url", i, err)
			continue
		}
		if rec.Name == nil || rec.URL == nil {
			report.BaseURLsSkipped++
			skip("base url", i, errors.New("missing name or url"))
			continue
		}
		_, err := store.CreateBaseURL(types.NewBaseURL{
			Name:           *rec.Name,
			URL:            *rec.URL,
			Description:    rec.Description,
			APIKey:         rec.APIKey,
			IsDefault:      rec.IsDefault,
			DefaultEnvVars: envMap(rec.DefaultEnvVars),
		})
		if err != nil {
			report.BaseURLsSkipped++
			skip("base url", i, err)
			continue
		}
		report.BaseURLsImported++
	}

	for i, raw := range snap.Accounts {
		var rec accountRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			report.AccountsSkipped++
			skip("account", i, err)
			continue
		}
		if rec.Name == nil || rec.Token == nil || rec.BaseURL == nil {
			report.AccountsSkipped++
			skip("account", i, errors.New("missing name, token or base_url"))
			continue
		}
		_, err := store.CreateAccount(types.NewAccount{
			Name:          *rec.Name,
			Token:         *rec.Token,
			BaseURL:       *rec.BaseURL,
			Model:         rec.Model,
			CustomEnvVars: envMap(rec.CustomEnvVars),
		})
		if err != nil {
			report.AccountsSkipped++
			skip("account", i, err)
			continue
		}
		report.AccountsImported++
	}

	if len(snap.ClaudeSettings) > 0 {
		var buf bytes.Buffer
		err := json.Compact(&buf, snap.ClaudeSettings)
		if err == nil {
			_, err = store.SaveSettings(buf.String())
		}
		if err != nil {
			log.Warn().Err(err).Msg("skipping snapshot policy")
			report.Problems = append(report.Problems, fmt.Sprintf("claude_settings: %v", err))
		} else {
			report.SettingsRestored = true
		}
	}

	log.Info().
		Int("accounts_imported", report.AccountsImported).
		Int("accounts_skipped", report.AccountsSkipped).
		Int("base_urls_imported", report.BaseURLsImported).
		Int("base_urls_skipped", report.BaseURLsSkipped).
		Msg("restore finished")
	return report, nil
}
