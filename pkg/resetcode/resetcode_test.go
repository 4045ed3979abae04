package resetcode

import (
	"errors"
	"strings"
	"testing"
	"time"
)

var secret = []byte("test-secret")

func testState() State {
	return State{
		ID:           "1f2e3d4c-0000-0000-0000-000000000000",
		Email:        "investor@example.com",
		PasswordHash: "$2a$10$abcdefghijklmnopqrstuv",
	}
}

func TestRoundTrip(t *testing.T) {
	st := testState()
	token := Generate(secret, st)

	id, err := SubjectID(token)
	if err != nil {
		t.Fatalf("SubjectID: %v", err)
	}
	if id != st.ID {
		t.Errorf("SubjectID = %q, want %q", id, st.ID)
	}
	if err := Verify(secret, token, st, time.Now()); err != nil {
		t.Errorf("Verify: %v", err)
	}
}

func TestExpiry(t *testing.T) {
	st := testState()
	token := Generate(secret, st)
	if err := Verify(secret, token, st, time.Now().Add(MaxAge+time.Minute)); !errors.Is(err, ErrExpired) {
		t.Errorf("Verify after expiry = %v, want ErrExpired", err)
	}
}

func TestStateChangeInvalidates(t *testing.T) {
	st := testState()
	token := Generate(secret, st)

	// password change
	changed := st
	changed.PasswordHash = "$2a$10$differenthashvalue000000"
	if err := Verify(secret, token, changed, time.Now()); !errors.Is(err, ErrInvalid) {
		t.Errorf("Verify after password change = %v, want ErrInvalid", err)
	}

	// sign-in
	now := time.Now()
	loggedIn := st
	loggedIn.LastLoginAt = &now
	if err := Verify(secret, token, loggedIn, time.Now()); !errors.Is(err, ErrInvalid) {
		t.Errorf("Verify after login = %v, want ErrInvalid", err)
	}
}

func TestTamperedTokenRejected(t *testing.T) {
	st := testState()
	token := Generate(secret, st)

	// flip the last MAC character
	last := token[len(token)-1]
	repl := byte('0')
	if last == '0' {
		repl = '1'
	}
	tampered := token[:len(token)-1] + string(repl)
	if err := Verify(secret, tampered, st, time.Now()); !errors.Is(err, ErrInvalid) {
		t.Errorf("Verify tampered = %v, want ErrInvalid", err)
	}
}

func TestWrongSecretRejected(t *testing.T) {
	st := testState()
	token := Generate(secret, st)
	if err := Verify([]byte("other-secret"), token, st, time.Now()); !errors.Is(err, ErrInvalid) {
		t.Errorf("Verify with wrong secret = %v, want ErrInvalid", err)
	}
}

func TestMalformedTokens(t *testing.T) {
	st := testState()
	for _, token := range []string{"", "garbage", "a/b", "///---", strings.Repeat("x", 200)} {
		if err := Verify(secret, token, st, time.Now()); !errors.Is(err, ErrInvalid) {
			t.Errorf("Verify(%q) = %v, want ErrInvalid", token, err)
		}
	}
}
