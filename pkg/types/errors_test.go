package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError(t *testing.T) {
	t.Run("nil cause yields nil", func(t *testing.T) {
		assert.NoError(t, E(KindStore, "get account", nil))
	})

	t.Run("message carries op and cause", func(t *testing.T) {
		err := E(KindStore, "get account 7", ErrNotFound)
		assert.EqualError(t, err, "get account 7: not found")
	})

	t.Run("errors.Is sees through wrapping", func(t *testing.T) {
		err := fmt.Errorf("switch: %w", E(KindStore, "get account", ErrNotFound))
		assert.ErrorIs(t, err, ErrNotFound)
		assert.True(t, IsKind(err, KindStore))
		assert.False(t, IsKind(err, KindFileIO))
	})

	t.Run("outermost kind wins", func(t *testing.T) {
		inner := E(KindStore, "save", errors.New("disk full"))
		outer := E(KindRemoteSync, "restore", inner)
		assert.Equal(t, KindRemoteSync, KindOf(outer))
	})

	t.Run("plain errors have no kind", func(t *testing.T) {
		assert.Equal(t, Kind(""), KindOf(errors.New("boom")))
		assert.False(t, IsKind(nil, KindStore))
	})
}
