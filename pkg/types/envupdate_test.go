package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnvUpdateApply(t *testing.T) {
	stored := map[string]string{"A": "1"}

	tests := []struct {
		name   string
		update EnvUpdate
		want   map[string]string
	}{
		{"zero value keeps", EnvUpdate{}, stored},
		{"keep", KeepEnv(), stored},
		{"clear", ClearEnv(), map[string]string{}},
		{"set replaces", SetEnv(map[string]string{"B": "2"}), map[string]string{"B": "2"}},
		{"set with empty map clears", SetEnv(nil), map[string]string{}},
		{"bare empty map keeps", EnvUpdateFrom(map[string]string{}), stored},
		{"bare nil map keeps", EnvUpdateFrom(nil), stored},
		{"bare non-empty map replaces", EnvUpdateFrom(map[string]string{"C": "3"}), map[string]string{"C": "3"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.update.Apply(stored))
		})
	}
}

func TestEnvUpdateApplyCopies(t *testing.T) {
	vars := map[string]string{"A": "1"}
	got := SetEnv(vars).Apply(nil)
	vars["A"] = "changed"
	assert.Equal(t, "1", got["A"])
}
