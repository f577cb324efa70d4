package sqlite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/ccmanager/pkg/types"
)

func ptr[T any](v T) *T { return &v }

func mustAccount(t *testing.T, b *Backend, name, baseURL string) *types.Account {
	t.Helper()
	a, err := b.CreateAccount(types.NewAccount{Name: name, Token: "tok-" + name, BaseURL: baseURL})
	require.NoError(t, err)
	return a
}

func mustDirectory(t *testing.T, b *Backend, path string) *types.Directory {
	t.Helper()
	d, err := b.CreateDirectory(types.NewDirectory{Path: path, Name: path})
	require.NoError(t, err)
	return d
}

func TestCreateAccount(t *testing.T) {
	b := setupBackend(t)

	a, err := b.CreateAccount(types.NewAccount{
		Name:          "work",
		Token:         "tok1",
		BaseURL:       "https://api.x.com",
		Model:         "m1",
		CustomEnvVars: map[string]string{"X": "2"},
	})
	require.NoError(t, err)
	assert.NotZero(t, a.ID)
	assert.Equal(t, "work", a.Name)
	assert.False(t, a.IsActive)
	assert.Equal(t, map[string]string{"X": "2"}, a.CustomEnvVars)
	assert.False(t, a.CreatedAt.IsZero())

	t.Run("duplicate name", func(t *testing.T) {
		_, err := b.CreateAccount(types.NewAccount{Name: "work", Token: "t", BaseURL: "https://y"})
		assert.ErrorIs(t, err, types.ErrDuplicate)
		assert.True(t, types.IsKind(err, types.KindStore))
	})

	t.Run("missing token", func(t *testing.T) {
		_, err := b.CreateAccount(types.NewAccount{Name: "other", BaseURL: "https://y"})
		assert.ErrorIs(t, err, types.ErrInvalidToken)
	})

	t.Run("empty model gets the default", func(t *testing.T) {
		a, err := b.CreateAccount(types.NewAccount{Name: "nomodel", Token: "t", BaseURL: "https://y", Model: "  "})
		require.NoError(t, err)
		assert.Equal(t, types.DefaultModel, a.Model)
	})
}

func TestGetAccountNotFound(t *testing.T) {
	b := setupBackend(t)
	_, err := b.GetAccount(42)
	assert.ErrorIs(t, err, types.ErrNotFound)
	assert.True(t, types.IsKind(err, types.KindStore))
}

func TestListAccountsFilter(t *testing.T) {
	b := setupBackend(t)
	mustAccount(t, b, "alpha", "https://a")
	mustAccount(t, b, "beta", "https://a")
	mustAccount(t, b, "gamma", "https://g")

	tests := []struct {
		name   string
		filter types.AccountFilter
		want   []string
	}{
		{"all newest first", types.AccountFilter{}, []string{"gamma", "beta", "alpha"}},
		{"search by name", types.AccountFilter{Search: "et"}, []string{"beta"}},
		{"search by token", types.AccountFilter{Search: "tok-gam"}, []string{"gamma"}},
		{"by base url", types.AccountFilter{BaseURL: "https://a"}, []string{"beta", "alpha"}},
		{"paged", types.AccountFilter{Limit: 1, Offset: 1}, []string{"beta"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := b.ListAccounts(tt.filter)
			require.NoError(t, err)
			var names []string
			for _, a := range got {
				names = append(names, a.Name)
			}
			assert.Equal(t, tt.want, names)
		})
	}

	urls, err := b.ListAccountBaseURLs()
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a", "https://g"}, urls)
}

func TestUpdateAccount(t *testing.T) {
	b := setupBackend(t)
	a, err := b.CreateAccount(types.NewAccount{
		Name: "work", Token: "tok", BaseURL: "https://a",
		CustomEnvVars: map[string]string{"X": "1"},
	})
	require.NoError(t, err)

	t.Run("partial update keeps env map", func(t *testing.T) {
		got, err := b.UpdateAccount(a.ID, types.AccountUpdate{Token: ptr("tok2")})
		require.NoError(t, err)
		assert.Equal(t, "tok2", got.Token)
		assert.Equal(t, "work", got.Name)
		assert.Equal(t, map[string]string{"X": "1"}, got.CustomEnvVars)
	})

	t.Run("empty bare map keeps env map", func(t *testing.T) {
		got, err := b.UpdateAccount(a.ID, types.AccountUpdate{CustomEnvVars: types.EnvUpdateFrom(map[string]string{})})
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"X": "1"}, got.CustomEnvVars)
	})

	t.Run("set replaces env map", func(t *testing.T) {
		got, err := b.UpdateAccount(a.ID, types.AccountUpdate{CustomEnvVars: types.SetEnv(map[string]string{"Y": "2"})})
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"Y": "2"}, got.CustomEnvVars)
	})

	t.Run("explicit clear empties env map", func(t *testing.T) {
		got, err := b.UpdateAccount(a.ID, types.AccountUpdate{CustomEnvVars: types.ClearEnv()})
		require.NoError(t, err)
		assert.Empty(t, got.CustomEnvVars)
	})

	t.Run("blank name rejected", func(t *testing.T) {
		_, err := b.UpdateAccount(a.ID, types.AccountUpdate{Name: ptr("  ")})
		assert.ErrorIs(t, err, types.ErrInvalidName)
	})

	t.Run("missing account", func(t *testing.T) {
		_, err := b.UpdateAccount(999, types.AccountUpdate{Token: ptr("x")})
		assert.ErrorIs(t, err, types.ErrNotFound)
	})
}

func TestDeleteAccountRemovesAssociations(t *testing.T) {
	b := setupBackend(t)
	a := mustAccount(t, b, "work", "https://a")
	other := mustAccount(t, b, "home", "https://a")
	d := mustDirectory(t, b, "/tmp/proj")

	require.NoError(t, b.Switch(a.ID, d.ID))
	require.NoError(t, b.Switch(other.ID, d.ID))

	require.NoError(t, b.DeleteAccount(a.ID))

	assocs, err := b.ListAssociations()
	require.NoError(t, err)
	require.Len(t, assocs, 1)
	assert.Equal(t, other.ID, assocs[0].AccountID)

	err = b.DeleteAccount(a.ID)
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestClearAccountsAndBaseURLs(t *testing.T) {
	b := setupBackend(t)
	a := mustAccount(t, b, "work", seedBaseURLURL)
	d := mustDirectory(t, b, "/tmp/proj")
	require.NoError(t, b.Switch(a.ID, d.ID))

	require.NoError(t, b.ClearAccountsAndBaseURLs())

	accounts, err := b.ListAccounts(types.AccountFilter{})
	require.NoError(t, err)
	assert.Empty(t, accounts)
	urls, err := b.ListBaseURLs()
	require.NoError(t, err)
	assert.Empty(t, urls)
	dirs, err := b.ListDirectories()
	require.NoError(t, err)
	assert.Len(t, dirs, 1, "directories survive a restore clear")
}
