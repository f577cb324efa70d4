package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewEntityValidate(t *testing.T) {
	tests := []struct {
		name    string
		check   func() error
		wantErr error
	}{
		{"account ok", NewAccount{Name: "work", Token: "t", BaseURL: "https://x"}.Validate, nil},
		{"account blank name", NewAccount{Name: " ", Token: "t", BaseURL: "https://x"}.Validate, ErrInvalidName},
		{"account missing token", NewAccount{Name: "work", BaseURL: "https://x"}.Validate, ErrInvalidToken},
		{"account missing base url", NewAccount{Name: "work", Token: "t"}.Validate, ErrInvalidURL},
		{"directory ok", NewDirectory{Path: "/tmp/p", Name: "p"}.Validate, nil},
		{"directory missing path", NewDirectory{Name: "p"}.Validate, ErrInvalidPath},
		{"directory missing name", NewDirectory{Path: "/tmp/p"}.Validate, ErrInvalidName},
		{"base url ok", NewBaseURL{Name: "x", URL: "https://x"}.Validate, nil},
		{"base url missing url", NewBaseURL{Name: "x"}.Validate, ErrInvalidURL},
		{"webdav ok", NewWebDAVProfile{Name: "nas", URL: "https://dav"}.Validate, nil},
		{"webdav missing name", NewWebDAVProfile{URL: "https://dav"}.Validate, ErrInvalidName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.check()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
			assert.True(t, IsKind(err, KindValidation))
		})
	}
}

func TestBaseURLKeyName(t *testing.T) {
	var nilURL *BaseURL
	assert.Equal(t, DefaultAPIKeyName, nilURL.KeyName())
	assert.Equal(t, DefaultAPIKeyName, (&BaseURL{}).KeyName())
	assert.Equal(t, "OPENAI_API_KEY", (&BaseURL{APIKey: "OPENAI_API_KEY"}).KeyName())
}
