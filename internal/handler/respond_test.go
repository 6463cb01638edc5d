package handler

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tchatsouvenir/bookshop/internal/chatexport"
	"tchatsouvenir/bookshop/internal/model"
)

func TestStatusFor(t *testing.T) {
	cases := map[error]int{
		fmt.Errorf("x: %w", model.ErrValidation):           http.StatusBadRequest,
		fmt.Errorf("x: %w", model.ErrUnauthorized):         http.StatusUnauthorized,
		fmt.Errorf("x: %w", model.ErrForbidden):            http.StatusForbidden,
		fmt.Errorf("x: %w", model.ErrNotFound):             http.StatusNotFound,
		fmt.Errorf("x: %w", model.ErrConflict):             http.StatusConflict,
		fmt.Errorf("x: %w", model.ErrInvalidState):         http.StatusConflict,
		fmt.Errorf("x: %w", chatexport.ErrMalformedExport): http.StatusBadRequest,
		fmt.Errorf("x: %w", chatexport.ErrArchiveTooLarge): http.StatusRequestEntityTooLarge,
		errors.New("db down"):                              http.StatusInternalServerError,
	}
	for err, want := range cases {
		assert.Equal(t, want, statusFor(err), err.Error())
	}
}

func TestParseTime(t *testing.T) {
	got, err := parseTime("", false)
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = parseTime("2024-03-12", true)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 12, 23, 59, 59, 999999999, time.UTC), *got)

	got, err = parseTime("2024-03-12T10:30", true)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 12, 10, 30, 0, 0, time.UTC), *got)

	_, err = parseTime("12/03/2024", false)
	assert.ErrorIs(t, err, model.ErrValidation)
}
