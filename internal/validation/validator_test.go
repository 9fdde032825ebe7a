package validation_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spellcardmanager/spellcards/internal/errors"
	"github.com/spellcardmanager/spellcards/internal/validation"
)

type testRow struct {
	Key *string `json:"Key" validate:"required"`
}

type testRecord struct {
	Name *string   `json:"Name,omitzero" validate:"required"`
	Kind string    `json:"Kind" validate:"omitempty,oneof=json scdeck"`
	Rows []testRow `json:"Rows" validate:"dive"`
}

func ptr(s string) *string { return &s }

func TestValidator_ValidateSuccess(t *testing.T) {
	v := validation.New()

	err := v.Validate(testRecord{Name: ptr(""), Kind: "json", Rows: []testRow{{Key: ptr("Level")}}})
	assert.NoError(t, err, "required on a pointer checks presence, not emptiness")
}

func TestValidator_ValidateErrors(t *testing.T) {
	v := validation.New()

	tests := []struct {
		name     string
		rec      testRecord
		wantPath string
		wantMsg  string
	}{
		{"missing name", testRecord{}, "Name", "is required"},
		{"bad kind", testRecord{Name: ptr("x"), Kind: "xml"}, "Kind", "must be one of: json scdeck"},
		{"nested row", testRecord{Name: ptr("x"), Rows: []testRow{{Key: ptr("a")}, {}}}, "Rows[1].Key", "is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.rec)
			require.Error(t, err)

			var domainErr *errors.Error
			require.True(t, errors.As(err, &domainErr))
			assert.Equal(t, errors.CodeValidation, domainErr.Code)
			assert.Contains(t, domainErr.Message, tt.wantPath)

			details, ok := domainErr.Details.(map[string]string)
			require.True(t, ok)
			assert.Equal(t, tt.wantMsg, details[tt.wantPath])
		})
	}
}
