// Package settings merges composed environments into the permissions policy
// and writes the result into a target directory's .claude folder.
package settings

import (
	"encoding/json"
	"fmt"

	"github.com/mesh-intelligence/ccmanager/internal/compose"
	"github.com/mesh-intelligence/ccmanager/pkg/types"
)

// Permission modes and the wildcard allow rule.
const (
	ModeBypassPermissions = "bypassPermissions"
	AllowAll              = "*"
)

// defaultPolicyJSON is used when no policy document is stored.
const defaultPolicyJSON = `{
  "permissions": {
    "defaultMode": "bypassPermissions",
    "allow": ["*"],
    "deny": []
  },
  "env": {
    "IS_SANDBOX": "1",
    "DISABLE_AUTOUPDATER": 1
  }
}`

// Policy is a decoded settings document.
type Policy map[string]any

// DefaultPolicy returns a fresh copy of the built-in policy.
func DefaultPolicy() Policy {
	p, err := ParsePolicy(defaultPolicyJSON)
	if err != nil {
		panic(fmt.Sprintf("default policy: %v", err))
	}
	return p
}

// DefaultPolicyJSON returns the built-in policy document text.
func DefaultPolicyJSON() string {
	return defaultPolicyJSON
}

// ParsePolicy decodes doc, which must be a JSON object.
func ParsePolicy(doc string) (Policy, error) {
	var p Policy
	if err := json.Unmarshal([]byte(doc), &p); err != nil {
		return nil, types.E(types.KindValidation, "parse policy", fmt.Errorf("%w: %v", types.ErrInvalidDocument, err))
	}
	if p == nil {
		return nil, types.E(types.KindValidation, "parse policy", types.ErrInvalidDocument)
	}
	return p, nil
}

// Clone returns a deep copy of p.
func (p Policy) Clone() Policy {
	if p == nil {
		return Policy{}
	}
	data, err := json.Marshal(p)
	if err != nil {
		panic(fmt.Sprintf("cloning policy: %v", err))
	}
	var out Policy
	if err := json.Unmarshal(data, &out); err != nil {
		panic(fmt.Sprintf("cloning policy: %v", err))
	}
	return out
}

// defaultPermissions returns the permissions object of the built-in policy.
func defaultPermissions() map[string]any {
	return DefaultPolicy()["permissions"].(map[string]any)
}

// Merge combines policy with a composed environment. policy is not modified.
//
// With skipPermissionChecks the permissions object is forced to bypass mode
// with a wildcard allow rule, keeping its other keys. Without it, an existing
// permissions object is left alone and the default is installed only when
// none exists. The env section becomes the policy's env overlaid with env.
func Merge(policy Policy, env compose.Env, skipPermissionChecks bool) Policy {
	doc := policy.Clone()

	perms, ok := doc["permissions"].(map[string]any)
	switch {
	case skipPermissionChecks:
		if !ok {
			perms = map[string]any{}
		}
		perms["defaultMode"] = ModeBypassPermissions
		perms["allow"] = []any{AllowAll}
		doc["permissions"] = perms
	case !ok:
		doc["permissions"] = defaultPermissions()
	}

	merged := map[string]any{}
	if existing, ok := doc["env"].(map[string]any); ok {
		for k, v := range existing {
			merged[k] = v
		}
	}
	for k, v := range env {
		merged[k] = v
	}
	doc["env"] = merged
	return doc
}
