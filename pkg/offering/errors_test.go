package offering

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslateValidationError(t *testing.T) {
	verr := &ValidationError{}
	verr.Add("title", KeywordRequired, "is required")
	verr.Add("market_value", KeywordType, "must be a number")
	verr.Add("market_value", KeywordBusiness, "must be positive")

	env := Translate(verr)

	require.Contains(t, env, "title")
	require.Contains(t, env, "market_value")
	// required-kind violations are rewritten to the fixed message
	assert.Equal(t, "This field is required.", env["title"][0].Message)
	// everything else passes through unchanged
	assert.Equal(t, "must be a number", env["market_value"][0].Message)
	assert.Equal(t, "must be positive", env["market_value"][1].Message)
}

func TestTranslateWrappedValidationError(t *testing.T) {
	verr := &ValidationError{}
	verr.Add("pictures", KeywordBusiness, "Please upload one or more pictures.")
	wrapped := fmt.Errorf("apply edit: %w", verr)

	env := Translate(wrapped)
	require.Contains(t, env, "pictures")
	assert.NotContains(t, env, NonFieldErrors)
}

func TestTranslateOtherErrors(t *testing.T) {
	env := Translate(errors.New("connection refused"))
	require.Contains(t, env, NonFieldErrors)
	require.Len(t, env[NonFieldErrors], 1)
	assert.Equal(t, "connection refused", env[NonFieldErrors][0].Message)
}

func TestValidationErrorOrNil(t *testing.T) {
	verr := &ValidationError{}
	assert.NoError(t, verr.OrNil())
	verr.Add("f", KeywordType, "bad")
	assert.Error(t, verr.OrNil())
}
