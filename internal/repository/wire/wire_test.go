package wire

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/and161185/seedvault/internal/crypto/sealer"
	"github.com/and161185/seedvault/internal/errs"
	"github.com/and161185/seedvault/internal/repository"
)

func sampleDoc() repository.Document {
	return repository.Document{
		NextSeedID:    1002,
		NextAuthToken: 4001,
		NextAccountID: 7003,
		Seeds: []repository.SeedEntry{
			{
				SeedID: 1000,
				Seed: repository.SeedRecord{
					Seed:                 bytes.Repeat([]byte{0xab}, 64),
					PhraseWordIndices:    []int{0, 1, 2047, 300, 4, 5, 6, 7, 8, 9, 10, 11},
					Name:                 "main",
					PIN:                  "123456",
					UnlockWithBiometrics: true,
				},
				Authorizations: []repository.AuthorizationRecord{{UID: 10, AuthToken: 4000, Purpose: 0}},
				KnownAccounts: []repository.AccountRecord{
					{AccountID: 7000, Bip32URI: "bip32:/m/44'/501'/0'", PublicKey: bytes.Repeat([]byte{1}, 32), IsValid: true},
					{AccountID: 7002, Bip32URI: "bip32:/m/44'/501'/1'", PublicKey: bytes.Repeat([]byte{2}, 32), Name: "savings", IsUserWallet: true},
				},
			},
			{
				SeedID: 1001,
				Seed:   repository.SeedRecord{Seed: bytes.Repeat([]byte{0xcd}, 64), PhraseWordIndices: []int{1, 2, 3}, PIN: "0000", IsBackedUp: true},
			},
		},
	}
}

func TestCodec_PlainRoundTrip(t *testing.T) {
	t.Parallel()

	c := NewCodec(nil)
	blob, err := c.Encode(sampleDoc(), 17)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(blob, []byte("SVDB")))

	doc, ver, err := c.Decode(blob)
	require.NoError(t, err)
	require.EqualValues(t, 17, ver)
	require.Equal(t, sampleDoc(), doc)
}

func TestCodec_SealedRoundTrip(t *testing.T) {
	t.Parallel()

	c := NewCodec(sealer.New([]byte("pass")))
	blob, err := c.Encode(sampleDoc(), 3)
	require.NoError(t, err)
	require.False(t, bytes.Contains(blob, []byte("123456")), "PIN must not appear in a sealed blob")

	doc, ver, err := c.Decode(blob)
	require.NoError(t, err)
	require.EqualValues(t, 3, ver)
	require.Equal(t, sampleDoc(), doc)

	_, _, err = NewCodec(nil).Decode(blob)
	require.ErrorIs(t, err, errs.ErrAuthenticationFailed)
	_, _, err = NewCodec(sealer.New([]byte("wrong"))).Decode(blob)
	require.ErrorIs(t, err, errs.ErrAuthenticationFailed)
}

func TestCodec_Corrupt(t *testing.T) {
	t.Parallel()

	c := NewCodec(nil)
	for name, blob := range map[string][]byte{
		"empty":       nil,
		"bad magic":   []byte("XXXX\x01\x00"),
		"bad format":  []byte("SVDB\x09\x00"),
		"bad payload": append([]byte("SVDB\x01\x00"), 0x22, 0x05, 0x01),
	} {
		_, _, err := c.Decode(blob)
		require.ErrorIs(t, err, ErrCorrupt, name)
	}
}

func TestCodec_SkipsUnknownFields(t *testing.T) {
	t.Parallel()

	c := NewCodec(nil)
	blob, err := c.Encode(repository.Document{NextSeedID: 1000}, 1)
	require.NoError(t, err)
	// field 9, varint 1
	blob = append(blob, 0x48, 0x01)
	doc, ver, err := c.Decode(blob)
	require.NoError(t, err)
	require.EqualValues(t, 1, ver)
	require.EqualValues(t, 1000, doc.NextSeedID)
}
