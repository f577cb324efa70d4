package types

// EnvUpdateMode selects how an update touches a stored environment map.
type EnvUpdateMode int

// Update modes for opaque environment maps.
const (
	EnvKeep  EnvUpdateMode = iota // leave the stored map unchanged
	EnvClear                      // store an empty map
	EnvSet                        // replace the stored map
)

// EnvUpdate is a tri-state update for an opaque string map column. The zero
// value keeps the stored map, so partial updates never erase it by accident.
type EnvUpdate struct {
	Mode EnvUpdateMode
	Vars map[string]string
}

// KeepEnv leaves the stored map unchanged.
func KeepEnv() EnvUpdate { return EnvUpdate{Mode: EnvKeep} }

// ClearEnv replaces the stored map with an empty one.
func ClearEnv() EnvUpdate { return EnvUpdate{Mode: EnvClear} }

// SetEnv replaces the stored map with vars. An empty vars is the same as
// ClearEnv.
func SetEnv(vars map[string]string) EnvUpdate {
	if len(vars) == 0 {
		return ClearEnv()
	}
	return EnvUpdate{Mode: EnvSet, Vars: vars}
}

// EnvUpdateFrom adapts a bare map from callers that cannot express intent:
// an empty or nil map keeps the stored value, a non-empty map replaces it.
func EnvUpdateFrom(vars map[string]string) EnvUpdate {
	if len(vars) == 0 {
		return KeepEnv()
	}
	return EnvUpdate{Mode: EnvSet, Vars: vars}
}

// Apply returns the map that results from applying u to current.
func (u EnvUpdate) Apply(current map[string]string) map[string]string {
	switch u.Mode {
	case EnvClear:
		return map[string]string{}
	case EnvSet:
		out := make(map[string]string, len(u.Vars))
		for k, v := range u.Vars {
			out[k] = v
		}
		return out
	default:
		return current
	}
}
