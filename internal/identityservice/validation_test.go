package identityservice

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/inkwell-cms/inkwell/internal/common"
)

func TestValidateUsername(t *testing.T) {
	tests := []struct {
		name     string
		username string
		valid    bool
	}{
		{name: "valid", username: "blogger1", valid: true},
		{name: "empty", username: "", valid: false},
		{name: "too short", username: "ab", valid: false},
		{name: "symbols", username: "user!name", valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := common.NewValidator()
			validateUsername(v, tt.username)
			assert.Equal(t, tt.valid, v.Valid())
		})
	}
}

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		name  string
		email string
		valid bool
	}{
		{name: "valid", email: "a@example.com", valid: true},
		{name: "empty", email: "", valid: false},
		{name: "no domain", email: "a@", valid: false},
		{name: "no tld", email: "a@example", valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := common.NewValidator()
			validateEmail(v, tt.email)
			assert.Equal(t, tt.valid, v.Valid())
		})
	}
}

func TestValidatePassword(t *testing.T) {
	v := common.NewValidator()
	validatePassword(v, "short")
	assert.False(t, v.Valid())

	v = common.NewValidator()
	validatePassword(v, "longenough")
	assert.True(t, v.Valid())
}
