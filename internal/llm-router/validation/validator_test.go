package validation

import (
	"strings"
	"testing"

	"site-ai-gateway/internal/llm-router/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateProjectID(t *testing.T) {
	for _, id := range []string{"", "   ", "\t\n"} {
		_, err := ValidateProjectID(id)
		assert.Equal(t, apperr.KindMissingProject, apperr.KindOf(err), "id %q", id)
	}

	id, err := ValidateProjectID("  pricing-tool ")
	require.NoError(t, err)
	assert.Equal(t, "pricing-tool", id)
}

func TestValidateMessage(t *testing.T) {
	strict := Policy{MinLength: 10, MaxLength: 2000}

	tests := []struct {
		name     string
		policy   Policy
		message  string
		expected string
		reasons  []string
	}{
		{
			name:     "within bounds",
			policy:   strict,
			message:  "  tell me about pricing  ",
			expected: "tell me about pricing",
		},
		{
			name:    "empty",
			policy:  strict,
			message: "",
			reasons: []string{"Message cannot be empty"},
		},
		{
			name:    "whitespace only",
			policy:  DefaultPolicy,
			message: "   \n\t",
			reasons: []string{"Message cannot be empty"},
		},
		{
			name:    "below minimum",
			policy:  strict,
			message: "too short",
			reasons: []string{"Message is too short (minimum 10 characters)"},
		},
		{
			name:    "above maximum",
			policy:  strict,
			message: strings.Repeat("a", 2001),
			reasons: []string{"Message is too long (maximum 2000 characters)"},
		},
		{
			name:     "exactly maximum",
			policy:   strict,
			message:  strings.Repeat("a", 2000),
			expected: strings.Repeat("a", 2000),
		},
		{
			name:     "lenient default accepts one character",
			policy:   DefaultPolicy,
			message:  "x",
			expected: "x",
		},
		{
			name:     "lengths count runes",
			policy:   Policy{MinLength: 3, MaxLength: 3},
			message:  "héé",
			expected: "héé",
		},
	}

	for _, tt := range tests {
		t.Run(
			tt.name, func(t *testing.T) {
				got, err := tt.policy.ValidateMessage(tt.message)
				if len(tt.reasons) > 0 {
					var appErr *apperr.Error
					require.ErrorAs(t, err, &appErr)
					assert.Equal(t, apperr.KindInvalidInput, appErr.Kind)
					assert.Equal(t, tt.reasons, appErr.Details)
					assert.Empty(t, got)
					return
				}
				require.NoError(t, err)
				assert.Equal(t, tt.expected, got)
			},
		)
	}
}

func TestValidateStructuredFieldsListsEveryMissingKey(t *testing.T) {
	required := []string{"businessName", "services"}

	_, err := DefaultPolicy.ValidateStructuredFields(map[string]string{"services": "  "}, required)
	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperr.KindInvalidFormData, appErr.Kind)
	assert.Equal(t, []string{"businessName is required", "services is required"}, appErr.Details)

	_, err = DefaultPolicy.ValidateStructuredFields(nil, required)
	require.ErrorAs(t, err, &appErr)
	assert.Len(t, appErr.Details, 2)
}

func TestValidateStructuredFields(t *testing.T) {
	fields, err := DefaultPolicy.ValidateStructuredFields(
		map[string]string{
			"businessName": " Acme Design ",
			"services":     "web design and branding\n",
			"tone":         "friendly",
		},
		[]string{"businessName", "services"},
	)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"businessName": "Acme Design",
		"services":     "web design and branding",
		"tone":         "friendly",
	}, fields)
}

func TestValidateStructuredFieldsTooLong(t *testing.T) {
	_, err := Policy{MaxLength: 5}.ValidateStructuredFields(
		map[string]string{"businessName": "Acme Design", "services": "web"},
		[]string{"businessName", "services"},
	)
	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, []string{"businessName is too long (maximum 5 characters)"}, appErr.Details)
}

func TestValidateStructuredFieldsWithoutRequiredKeys(t *testing.T) {
	_, err := DefaultPolicy.ValidateStructuredFields(map[string]string{"a": " "}, nil)
	assert.Equal(t, apperr.KindInvalidFormData, apperr.KindOf(err))

	fields, err := DefaultPolicy.ValidateStructuredFields(map[string]string{"a": "b"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "b", fields["a"])
}
