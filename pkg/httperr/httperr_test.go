package httperr

import (
	"errors"
	"testing"
)

func TestBadRequest(t *testing.T) {
	err := NewBadRequest("boom")
	if err.Error() != "boom" {
		t.Fatalf("msg=%q", err.Error())
	}
	if !IsBadRequest(err) {
		t.Fatal("expected bad request")
	}
	if IsBadRequest(errors.New("boom")) {
		t.Fatal("plain error must not be bad request")
	}
	if IsForbidden(err) {
		t.Fatal("bad request must not be forbidden")
	}
}

func TestForbidden(t *testing.T) {
	err := NewForbidden("RULE_NOT_OWNED")
	if err.Error() != "RULE_NOT_OWNED" {
		t.Fatalf("msg=%q", err.Error())
	}
	if !IsForbidden(err) {
		t.Fatal("expected forbidden")
	}
	if IsBadRequest(err) {
		t.Fatal("forbidden must not be bad request")
	}
}
