// Copyright (c) 2026 Tikra. All rights reserved.

package validate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tikra-app/tikra/internal/platform/apperr"
	"github.com/tikra-app/tikra/internal/platform/validate"
)

/*
TestValidator_Required tests the mandatory field validation logic.
*/
func TestValidator_Required(t *testing.T) {
	tests := []struct {
		name     string
		field    string
		value    string
		hasError bool
	}{
		{"valid_string", "name", "Tikra", false},
		{"empty_string", "name", "", true},
		{"whitespace_only", "name", "   ", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &validate.Validator{}
			v.Required(tt.field, tt.value)

			if tt.hasError {
				assert.True(t, v.HasErrors())
				err := v.Err()
				require.NotNil(t, err)

				ae := apperr.As(err)
				require.NotNil(t, ae)
				assert.Equal(t, apperr.CodeValidation, ae.Code)

				details, ok := ae.Details.([]apperr.FieldError)
				require.True(t, ok)
				assert.Equal(t, tt.field, details[0].Field)
			} else {
				assert.False(t, v.HasErrors())
				assert.Nil(t, v.Err())
			}
		})
	}
}

/*
TestValidator_Email checks the email format validation rule.
*/
func TestValidator_Email(t *testing.T) {
	tests := []struct {
		name    string
		email   string
		isValid bool
	}{
		{"valid_email", "test@example.com", true},
		{"invalid_format", "invalid-email", false},
		{"missing_domain", "test@", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &validate.Validator{}
			v.Email("email", tt.email)

			assert.Equal(t, !tt.isValid, v.HasErrors())
		})
	}
}

/*
TestValidator_Password checks the account password policy rule.
*/
func TestValidator_Password(t *testing.T) {
	tests := []struct {
		name     string
		password string
		isValid  bool
	}{
		{"meets_policy", "Sup3r-Secret!", true},
		{"too_short", "Ab1!xyz", false},
		{"no_upper_case", "sup3r-secret!", false},
		{"no_lower_case", "SUP3R-SECRET!", false},
		{"no_digit", "Super-Secret!", false},
		{"no_symbol", "Sup3rSecret1", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &validate.Validator{}
			v.Password("password", tt.password)

			assert.Equal(t, !tt.isValid, v.HasErrors())
		})
	}
}

/*
TestValidator_UUID checks the identifier format rule.
*/
func TestValidator_UUID(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		isValid bool
	}{
		{"valid_v4", "9f8b1c2d-3e4f-4a5b-8c7d-0e1f2a3b4c5d", true},
		{"valid_upper_case", "9F8B1C2D-3E4F-4A5B-8C7D-0E1F2A3B4C5D", true},
		{"missing_dashes", "9f8b1c2d3e4f4a5b8c7d0e1f2a3b4c5d", false},
		{"not_a_uuid", "user-1", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &validate.Validator{}
			v.UUID("id", tt.value)

			assert.Equal(t, !tt.isValid, v.HasErrors())
		})
	}
}

/*
TestValidator_HexColor checks the project display color rule.
*/
func TestValidator_HexColor(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		isValid bool
	}{
		{"six_digit", "#1a2b3c", true},
		{"three_digit", "#fff", true},
		{"no_hash", "1a2b3c", false},
		{"wrong_length", "#1a2b", false},
		{"not_hex", "#zzzzzz", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &validate.Validator{}
			v.HexColor("color", tt.value)

			assert.Equal(t, !tt.isValid, v.HasErrors())
		})
	}
}

/*
TestValidator_RFC3339 checks the timestamp format rule used by the sync
cursor and timer end-time parameters.
*/
func TestValidator_RFC3339(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		isValid bool
	}{
		{"utc", "2026-08-24T09:00:00Z", true},
		{"with_offset", "2026-08-24T09:00:00+07:00", true},
		{"date_only", "2026-08-24", false},
		{"unix_seconds", "1787907600", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &validate.Validator{}
			v.RFC3339("since", tt.value)

			assert.Equal(t, !tt.isValid, v.HasErrors())
		})
	}
}

/*
TestValidator_OneOf checks the enumeration rule used for conflict actions and
preference values.
*/
func TestValidator_OneOf(t *testing.T) {
	v := &validate.Validator{}
	v.OneOf("action", "stop_existing", "stop_existing", "cancel_new")
	assert.False(t, v.HasErrors())

	v = &validate.Validator{}
	v.OneOf("action", "drop_tables", "stop_existing", "cancel_new")
	assert.True(t, v.HasErrors())
}

/*
TestValidator_Range checks the inclusive bounds rule.
*/
func TestValidator_Range(t *testing.T) {
	tests := []struct {
		name    string
		value   int
		isValid bool
	}{
		{"lower_bound", 0, true},
		{"upper_bound", 6, true},
		{"below", -1, false},
		{"above", 7, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &validate.Validator{}
			v.Range("weekStartDay", tt.value, 0, 6)

			assert.Equal(t, !tt.isValid, v.HasErrors())
		})
	}
}

/*
TestValidator_Chain tests the fluent API (chaining multiple rules).
*/
func TestValidator_Chain(t *testing.T) {
	v := &validate.Validator{}

	err := v.
		Required("name", "Deep Work").
		MinLen("name", "Deep Work", 2).
		MaxLen("name", "Deep Work", 100).
		HexColor("color", "#1a2b3c").
		Err()

	assert.NoError(t, err)
	assert.False(t, v.HasErrors())
}

/*
TestValidator_Chain_Failure tests error accumulation in the chain.
*/
func TestValidator_Chain_Failure(t *testing.T) {
	v := &validate.Validator{}

	err := v.
		Required("name", "").             // Fails
		MinLen("name", "a", 2).           // Fails
		HexColor("color", "not-a-color"). // Fails
		Err()

	require.Error(t, err)
	ae := apperr.As(err)
	require.NotNil(t, ae)

	details, ok := ae.Details.([]apperr.FieldError)
	require.True(t, ok)
	assert.Len(t, details, 3)
}
