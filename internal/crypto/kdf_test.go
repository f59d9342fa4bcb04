package crypto

import (
	"bytes"
	"testing"
)

func TestRandBytes_LengthAndUniqueness(t *testing.T) {
	t.Parallel()

	const n = 64
	a, err := RandBytes(n)
	if err != nil {
		t.Fatalf("RandBytes: %v", err)
	}
	if len(a) != n {
		t.Fatalf("len=%d, want=%d", len(a), n)
	}
	b, err := RandBytes(n)
	if err != nil {
		t.Fatalf("RandBytes(2): %v", err)
	}
	if bytes.Equal(a, b) {
		t.Fatalf("two subsequent RandBytes(%d) are equal", n)
	}
}

func TestDeriveKey_DeterministicAndSaltDependent(t *testing.T) {
	t.Parallel()

	pw := []byte("vault passphrase")
	salt := []byte("NaCl-16-bytes?!!")

	k1 := DeriveKey(pw, salt)
	k2 := DeriveKey(pw, salt)
	if len(k1) != 32 {
		t.Fatalf("len=%d, want=32", len(k1))
	}
	if !bytes.Equal(k1, k2) {
		t.Fatalf("key not deterministic for same input")
	}
	if bytes.Equal(k1, DeriveKey(pw, []byte("another-salt----"))) {
		t.Fatalf("key should differ when salt differs")
	}
	if bytes.Equal(k1, DeriveKey([]byte("other"), salt)) {
		t.Fatalf("key should differ when passphrase differs")
	}
}

func TestPINEqual(t *testing.T) {
	t.Parallel()

	if !PINEqual("1234", "1234") {
		t.Fatalf("expected equal PINs to match")
	}
	for _, c := range []string{"", "123", "12345", "4321"} {
		if PINEqual(c, "1234") {
			t.Fatalf("PINEqual(%q, 1234) = true", c)
		}
	}
}
