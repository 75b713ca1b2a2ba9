package util_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/spec-kit/repair-service/pkg/util"
)

func TestToDomainError(t *testing.T) {
	t.Parallel()

	cause := errors.New("connection refused")
	tests := []struct {
		name   string
		err    error
		code   string
		status int
	}{
		{"not found", apperrors.NewNotFound("device", nil), "NOT_FOUND", http.StatusNotFound},
		{"wrapped transition", fmt.Errorf("submit: %w", apperrors.NewInvalidTransition("nope", nil, nil)), "INVALID_TRANSITION", http.StatusConflict},
		{"corrupted", apperrors.NewCorruptedStatus(map[string]any{"value": "x"}, nil), "CORRUPTED_STATUS", http.StatusUnprocessableEntity},
		{"persistence", apperrors.NewPersistenceFailure(nil, cause), "PERSISTENCE_FAILURE", http.StatusServiceUnavailable},
		{"plain", cause, "INTERNAL_ERROR", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			de := apperrors.ToDomainError(tt.err)
			require.NotNil(t, de)
			assert.Equal(t, tt.code, de.Code)
			assert.Equal(t, tt.status, de.HTTPStatus)
		})
	}
}

func TestDomainErrorUnwraps(t *testing.T) {
	t.Parallel()

	cause := errors.New("timeout")
	err := apperrors.NewPersistenceFailure(map[string]any{"device_id": "d-1"}, cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "device store unavailable: timeout", err.Error())
	assert.Nil(t, apperrors.ToDomainError(nil))
}
