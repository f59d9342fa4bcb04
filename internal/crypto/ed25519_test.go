package crypto

import (
	"bytes"
	"encoding/hex"
	"errors"
	"testing"

	"github.com/and161185/seedvault/internal/errs"
)

// RFC 8032 section 7.1, test 1.
const (
	rfcSecret = "9d61b19deffd5a60ba844af492ec2cc44449c5697b326919703bac031cae7f60"
	rfcPublic = "d75a980182b10ab7d54bfed3c964073a0ee172f3daa62325af021a68f707511a"
	rfcSig    = "e5564300c360ac729086e2cc806e828a84877f1eb8e5d974d873e06522490155" +
		"5fb8821590a33bacc61e39701cf9b46bd25bf5f0595bbe24655141438e7a100b"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("hex: %v", err)
	}
	return b
}

func TestCirclEd25519_RFC8032(t *testing.T) {
	t.Parallel()

	p := NewEd25519()
	priv, pub, err := p.KeyPairFromSeed(mustHex(t, rfcSecret))
	if err != nil {
		t.Fatalf("KeyPairFromSeed: %v", err)
	}
	if len(priv) != Ed25519PrivateKeySize {
		t.Fatalf("priv len=%d", len(priv))
	}
	if !bytes.Equal(pub, mustHex(t, rfcPublic)) {
		t.Fatalf("pub=%x", pub)
	}
	if !bytes.Equal(priv[Ed25519SeedSize:], pub) {
		t.Fatalf("private key must end with the public key")
	}

	sig, err := p.SignDetached(priv, nil)
	if err != nil {
		t.Fatalf("SignDetached: %v", err)
	}
	if !bytes.Equal(sig, mustHex(t, rfcSig)) {
		t.Fatalf("sig=%x", sig)
	}
	if !p.Verify(pub, nil, sig) {
		t.Fatalf("Verify: expected true")
	}
	if p.Verify(pub, []byte("x"), sig) {
		t.Fatalf("Verify: expected false for other message")
	}
}

func TestCirclEd25519_BadInputs(t *testing.T) {
	t.Parallel()

	p := NewEd25519()
	if _, _, err := p.KeyPairFromSeed(make([]byte, 31)); !errors.Is(err, errs.ErrKeyDoesNotExist) {
		t.Fatalf("err=%v, want ErrKeyDoesNotExist", err)
	}
	if _, err := p.SignDetached(make([]byte, 32), []byte("m")); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("err=%v, want ErrValidation", err)
	}
	if p.Verify(make([]byte, 3), []byte("m"), make([]byte, 64)) {
		t.Fatalf("Verify with short key must be false")
	}
}
