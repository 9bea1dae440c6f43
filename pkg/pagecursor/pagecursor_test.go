package pagecursor

import (
	"errors"
	"testing"
	"time"
)

func TestRoundTrip(t *testing.T) {
	at := time.Date(2026, 3, 14, 9, 26, 53, 589793000, time.UTC)
	token := Encode(Cursor{ModifiedAt: at, Key: "0195f6a2-1111-7222-8333-444455556666"})

	got, err := Decode(token)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if !got.ModifiedAt.Equal(at) {
		t.Fatalf("modifiedAt=%v", got.ModifiedAt)
	}
	if got.Key != "0195f6a2-1111-7222-8333-444455556666" {
		t.Fatalf("key=%q", got.Key)
	}
}

func TestDecodeInvalid(t *testing.T) {
	for _, token := range []string{
		"",
		"!!!not-base64!!!",
		"bm8tc2VwYXJhdG9y",     // "no-separator"
		"bm90LWEtdGltZXwuLg",   // "not-a-time|.."
		"MjAyNi0wMS0wMVQwMDowMDowMFp8", // valid time, empty key
	} {
		if _, err := Decode(token); !errors.Is(err, ErrInvalidCursor) {
			t.Fatalf("token=%q err=%v", token, err)
		}
	}
}

func TestEncodeNonUTCNormalized(t *testing.T) {
	loc := time.FixedZone("X", 3600)
	at := time.Date(2026, 3, 14, 10, 0, 0, 0, loc)
	got, err := Decode(Encode(Cursor{ModifiedAt: at, Key: "k"}))
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if !got.ModifiedAt.Equal(at) {
		t.Fatalf("modifiedAt=%v want instant %v", got.ModifiedAt, at)
	}
}
