package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		want Kind
	}{
		{Validation("bad"), KindValidation},
		{NotFound("gone"), KindNotFound},
		{Authorization("no"), KindAuthorization},
		{State("sold"), KindState},
		{Unauthenticated("who"), KindUnauthenticated},
		{Internal("op", errors.New("boom")), KindInternal},
		{errors.New("plain"), KindInternal},
		{fmt.Errorf("wrapped: %w", State("sold")), KindState},
	}

	for _, tt := range tests {
		if got := KindOf(tt.err); got != tt.want {
			t.Errorf("KindOf(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestErrorsIsMatchesKind(t *testing.T) {
	err := fmt.Errorf("creating transaction: %w", State("Item is no longer for sale."))
	if !errors.Is(err, ErrState) {
		t.Error("expected errors.Is to match ErrState")
	}
	if errors.Is(err, ErrValidation) {
		t.Error("did not expect errors.Is to match ErrValidation")
	}
}

func TestMessageHidesInternalDetails(t *testing.T) {
	err := Internal("getting item", errors.New("disk I/O error"))
	if got := Message(err); got != "Server Error" {
		t.Errorf("Message = %q, want %q", got, "Server Error")
	}
	if got := Message(Validation("Incorrect price request.")); got != "Incorrect price request." {
		t.Errorf("Message = %q", got)
	}
}
