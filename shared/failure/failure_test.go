package failure_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"carhive/shared/failure"
)

func TestGetCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"bad request", failure.BadRequestFromString("invalid dates"), http.StatusBadRequest},
		{"not found", failure.NotFound("booking not found"), http.StatusNotFound},
		{"conflict", failure.Conflict("vehicle already booked"), http.StatusConflict},
		{"unavailable", failure.Unavailable("vehicle is delisted"), http.StatusUnprocessableEntity},
		{"invalid transition", failure.InvalidTransition("completed", "active"), http.StatusConflict},
		{"stale state", failure.StaleState("booking"), http.StatusConflict},
		{"transient", failure.Transient("storage timeout"), http.StatusServiceUnavailable},
		{"gateway verification", failure.GatewayVerification("bad signature"), http.StatusBadRequest},
		{"untyped error", errors.New("boom"), http.StatusInternalServerError},
		{"wrapped failure", fmt.Errorf("creating booking: %w", failure.Conflict("overlap")), http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, failure.GetCode(tt.err))
		})
	}
}

func TestGetKind(t *testing.T) {
	assert.Equal(t, failure.KindConflict, failure.GetKind(failure.Conflict("overlap")))
	assert.Equal(t, failure.KindInvalidTransition, failure.GetKind(failure.InvalidTransition("pending", "completed")))
	assert.Equal(t, failure.Kind(""), failure.GetKind(errors.New("boom")))

	assert.True(t, failure.IsKind(failure.StaleState("booking"), failure.KindStaleState))
	assert.False(t, failure.IsKind(failure.StaleState("booking"), failure.KindConflict))
}

func TestInvalidTransitionMessage(t *testing.T) {
	err := failure.InvalidTransition("completed", "active")
	assert.Contains(t, err.Error(), "completed")
	assert.Contains(t, err.Error(), "active")
}
