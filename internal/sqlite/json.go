package sqlite

import (
	"encoding/json"
	"fmt"
)

// encodeEnv serializes an environment map for a TEXT column. A nil map is
// stored as "{}".
func encodeEnv(vars map[string]string) (string, error) {
	if len(vars) == 0 {
		return "{}", nil
	}
	data, err := json.Marshal(vars)
	if err != nil {
		return "", fmt.Errorf("encoding env vars: %w", err)
	}
	return string(data), nil
}

// decodeEnv parses an environment map column. Empty text and JSON null decode
// to an empty map.
func decodeEnv(text string) (map[string]string, error) {
	vars := map[string]string{}
	if text == "" || text == "null" {
		return vars, nil
	}
	if err := json.Unmarshal([]byte(text), &vars); err != nil {
		return nil, fmt.Errorf("decoding env vars: %w", err)
	}
	if vars == nil {
		vars = map[string]string{}
	}
	return vars, nil
}
