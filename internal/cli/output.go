package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/mesh-intelligence/ccmanager/pkg/types"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
)

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// renderTable prints rows under headers, or a muted note when there are none.
func renderTable(w io.Writer, headers []string, rows [][]string) {
	if len(rows) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("(none)"))
		return
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	fmt.Fprintln(w, t.Render())
}

func success(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, successStyle.Render(fmt.Sprintf(format, args...)))
}

func warn(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, warnStyle.Render(fmt.Sprintf(format, args...)))
}

func mark(b bool) string {
	if b {
		return "*"
	}
	return ""
}

// huhConfirm asks a yes/no question on the terminal.
func huhConfirm(title string) (bool, error) {
	var ok bool
	err := huh.NewConfirm().
		Title(title).
		Affirmative("Yes").
		Negative("No").
		Value(&ok).
		Run()
	return ok, err
}

// confirmAction returns errDeclined unless --yes was given or the user agrees.
func (a *app) confirmAction(title string) error {
	if a.yes {
		return nil
	}
	ok, err := a.confirm(title)
	if err != nil {
		return fmt.Errorf("confirm: %w", err)
	}
	if !ok {
		return errDeclined
	}
	return nil
}

// parseEnvPairs turns KEY=VALUE flags into a map.
func parseEnvPairs(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, types.E(types.KindValidation, "parse env", fmt.Errorf("%q is not KEY=VALUE", p))
		}
		out[k] = v
	}
	return out, nil
}

// envUpdate builds the tri-state update from --env and --clear-env.
func envUpdate(pairs []string, clear bool) (types.EnvUpdate, error) {
	if clear {
		if len(pairs) > 0 {
			return types.EnvUpdate{}, types.E(types.KindValidation, "parse env", fmt.Errorf("--env and --clear-env are exclusive"))
		}
		return types.ClearEnv(), nil
	}
	vars, err := parseEnvPairs(pairs)
	if err != nil {
		return types.EnvUpdate{}, err
	}
	return types.EnvUpdateFrom(vars), nil
}

// formatEnv renders a map as sorted KEY=VALUE pairs.
func formatEnv(m map[string]string) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + m[k]
	}
	return strings.Join(parts, " ")
}

// maskToken shows the first and last four characters of a credential.
func maskToken(tok string) string {
	if len(tok) <= 8 {
		return strings.Repeat("*", len(tok))
	}
	return tok[:4] + strings.Repeat("*", 4) + tok[len(tok)-4:]
}

func parseID(s string) (int64, bool) {
	id, err := strconv.ParseInt(s, 10, 64)
	return id, err == nil && id > 0
}

// Lookups accept a numeric id or an exact name.

func (a *app) findAccount(ref string) (*types.Account, error) {
	if id, ok := parseID(ref); ok {
		return a.store.GetAccount(id)
	}
	accounts, err := a.store.ListAccounts(types.AccountFilter{Search: ref})
	if err != nil {
		return nil, err
	}
	for i := range accounts {
		if accounts[i].Name == ref {
			return &accounts[i], nil
		}
	}
	return nil, types.E(types.KindStore, fmt.Sprintf("find account %q", ref), types.ErrNotFound)
}

func (a *app) findDirectory(ref string) (*types.Directory, error) {
	if id, ok := parseID(ref); ok {
		return a.store.GetDirectory(id)
	}
	dirs, err := a.store.ListDirectories()
	if err != nil {
		return nil, err
	}
	for i := range dirs {
		if dirs[i].Name == ref || dirs[i].Path == ref {
			return &dirs[i], nil
		}
	}
	return nil, types.E(types.KindStore, fmt.Sprintf("find directory %q", ref), types.ErrNotFound)
}

func (a *app) findBaseURL(ref string) (*types.BaseURL, error) {
	if id, ok := parseID(ref); ok {
		return a.store.GetBaseURL(id)
	}
	urls, err := a.store.ListBaseURLs()
	if err != nil {
		return nil, err
	}
	for i := range urls {
		if urls[i].Name == ref || urls[i].URL == ref {
			return &urls[i], nil
		}
	}
	return nil, types.E(types.KindStore, fmt.Sprintf("find base url %q", ref), types.ErrNotFound)
}

func (a *app) findProfile(ref string) (*types.WebDAVProfile, error) {
	profiles, err := a.store.ListWebDAVProfiles()
	if err != nil {
		return nil, err
	}
	id, byID := parseID(ref)
	for i := range profiles {
		p := &profiles[i]
		switch {
		case byID && p.ID == id, !byID && p.Name == ref:
			return p, nil
		case ref == "" && p.IsActive:
			return p, nil
		}
	}
	if ref == "" {
		return nil, types.E(types.KindStore, "find active webdav profile", types.ErrNotFound)
	}
	return nil, types.E(types.KindStore, fmt.Sprintf("find webdav profile %q", ref), types.ErrNotFound)
}
