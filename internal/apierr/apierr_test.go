package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestFrom_MapsSentinels(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("load module: %w", ErrNotFound), http.StatusForbidden},
		{fmt.Errorf("owner mismatch: %w", ErrForbidden), http.StatusForbidden},
		{fmt.Errorf("week 2: %w", ErrConflict), http.StatusConflict},
		{ErrUnauthorized, http.StatusUnauthorized},
		{Validation("weekNumber must be 1..6"), http.StatusBadRequest},
		{fmt.Errorf("stripe: %w", ErrUpstream), http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		got := From(tc.err)
		if got.Status != tc.status {
			t.Errorf("From(%v).Status = %d, want %d", tc.err, got.Status, tc.status)
		}
	}
}

func TestFrom_NotFoundHidesExistence(t *testing.T) {
	got := From(fmt.Errorf("module abc: %w", ErrNotFound))
	if got.Error() != ErrForbidden.Error() {
		t.Fatalf("expected forbidden message, got %q", got.Error())
	}
}

func TestFrom_Nil(t *testing.T) {
	if From(nil) != nil {
		t.Fatalf("expected nil")
	}
}
