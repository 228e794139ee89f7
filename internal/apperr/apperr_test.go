package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindsSurviveWrapping(t *testing.T) {
	base := errors.New("connection refused")
	qe := &QueryExecutionError{Op: "dql query", Err: base}
	wrapped := fmt.Errorf("jaccard similar parents: %w", qe)

	assert.True(t, IsQueryExecution(wrapped))
	assert.False(t, IsDecode(wrapped))
	assert.ErrorIs(t, wrapped, base)
	assert.Contains(t, wrapped.Error(), "dql query failed: connection refused")
}

func TestValidationError(t *testing.T) {
	err := error(Invalid("parentId", "must not be empty"))
	assert.True(t, IsValidation(err))
	assert.Equal(t, "validation failed: parentId must not be empty", err.Error())

	ident := &ValidationError{Field: "parentType", Reason: "has quotes", Err: ErrInvalidIdentifier}
	assert.ErrorIs(t, ident, ErrInvalidIdentifier)
}

func TestDecodeErrorMessage(t *testing.T) {
	err := &DecodeError{Key: "items", Err: ErrMissingKey}
	assert.True(t, IsDecode(err))
	assert.ErrorIs(t, err, ErrMissingKey)
	assert.Equal(t, `decode response (key "items"): missing result key`, err.Error())
}

func TestStatusError(t *testing.T) {
	err := &StatusError{Op: "upsert", Collection: "docs", Status: "boom", Message: "Error upserting to Text index."}
	assert.True(t, IsStatus(fmt.Errorf("wrap: %w", err)))
	assert.Contains(t, err.Error(), `collection "docs"`)
}
