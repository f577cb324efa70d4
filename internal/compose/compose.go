// Package compose builds the flat environment map written into a target
// directory when a profile is switched in.
//
// Layers apply in a fixed order and later layers win on key collision:
// endpoint and credential, base URL defaults, account overrides, sandbox
// flags, then the fixed policy keys.
package compose

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/mesh-intelligence/ccmanager/pkg/types"
)

// Keys set by the endpoint and sandbox layers.
const (
	KeyBaseURL   = "ANTHROPIC_BASE_URL"
	KeySandbox   = "IS_SANDBOX"
	KeyIsolation = "CLAUDE_CODE_BUBBLEWRAP"
)

// PolicyKeys are force-set to integer 1 after every other layer.
var PolicyKeys = []string{
	"CLAUDE_CODE_DISABLE_NONESSENTIAL_TRAFFIC",
	"DISABLE_TELEMETRY",
	"DISABLE_ERROR_REPORTING",
	"DISABLE_BUG_COMMAND",
	"DISABLE_AUTOUPDATER",
}

// Options selects the optional layers.
type Options struct {
	// Sandbox sets IS_SANDBOX.
	Sandbox bool
	// Isolation also sets CLAUDE_CODE_BUBBLEWRAP. Only honored with Sandbox.
	Isolation bool
}

// Env is a composed environment. Values are string, bool, int64, or Float.
type Env map[string]any

// Build composes the environment for account against endpoint. endpoint may
// be nil when no base URL row matches the account's url; the credential is
// then written under types.DefaultAPIKeyName.
func Build(account *types.Account, endpoint *types.BaseURL, opts Options) Env {
	env := Env{}

	env[KeyBaseURL] = account.BaseURL
	env[endpoint.KeyName()] = account.Token

	if endpoint != nil {
		for k, v := range endpoint.DefaultEnvVars {
			env[k] = Infer(v)
		}
	}
	for k, v := range account.CustomEnvVars {
		env[k] = Infer(v)
	}

	if opts.Sandbox {
		env[KeySandbox] = "1"
		if opts.Isolation {
			env[KeyIsolation] = "1"
		}
	}

	for _, k := range PolicyKeys {
		env[k] = int64(1)
	}
	return env
}

// Infer converts a stored string to the JSON type it reads as: boolean
// literal (any case), then integer, then finite float, else the string.
func Infer(raw string) any {
	switch strings.ToLower(raw) {
	case "true":
		return true
	case "false":
		return false
	}
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
		return Float(f)
	}
	return raw
}

// Float is an inferred floating-point value. It always encodes with a
// fraction or exponent so "3.0" is not written back as the integer 3.
type Float float64

// MarshalJSON formats f the way encoding/json does, appending ".0" when
// the result would otherwise read as an integer.
func (f Float) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return nil, fmt.Errorf("unsupported float value %v", v)
	}
	format := byte('f')
	if abs := math.Abs(v); abs != 0 && (abs < 1e-6 || abs >= 1e21) {
		format = 'e'
	}
	b := strconv.AppendFloat(nil, v, format, -1, 64)
	if format == 'e' {
		// e-07 becomes e-7
		if n := len(b); n >= 4 && b[n-4] == 'e' && b[n-3] == '-' && b[n-2] == '0' {
			b[n-2] = b[n-1]
			b = b[:n-1]
		}
	}
	if !bytes.ContainsAny(b, ".eE") {
		b = append(b, ".0"...)
	}
	return b, nil
}
