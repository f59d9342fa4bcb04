package wire

import (
	"errors"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/and161185/seedvault/internal/repository"
)

// Field numbers. Never reuse a retired number.
const (
	docNextSeedID    protowire.Number = 1
	docNextAuthToken protowire.Number = 2
	docNextAccountID protowire.Number = 3
	docSeed          protowire.Number = 4
	docVersion       protowire.Number = 15

	entrySeedID  protowire.Number = 1
	entryDetails protowire.Number = 2
	entryAuth    protowire.Number = 3
	entryAccount protowire.Number = 4

	detSeed       protowire.Number = 1
	detWords      protowire.Number = 2
	detName       protowire.Number = 3
	detPIN        protowire.Number = 4
	detBiometrics protowire.Number = 5
	detBackedUp   protowire.Number = 6

	authUID     protowire.Number = 1
	authToken   protowire.Number = 2
	authPurpose protowire.Number = 3

	accID           protowire.Number = 1
	accPurpose      protowire.Number = 2
	accURI          protowire.Number = 3
	accPublicKey    protowire.Number = 4
	accName         protowire.Number = 5
	accIsUserWallet protowire.Number = 6
	accIsValid      protowire.Number = 7
)

func appendVarint(b []byte, n protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, n, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendBytes(b []byte, n protowire.Number, v []byte) []byte {
	b = protowire.AppendTag(b, n, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func appendString(b []byte, n protowire.Number, v string) []byte {
	b = protowire.AppendTag(b, n, protowire.BytesType)
	return protowire.AppendString(b, v)
}

func marshalDocument(d repository.Document, version uint64) []byte {
	var b []byte
	b = appendVarint(b, docNextSeedID, uint64(d.NextSeedID))
	b = appendVarint(b, docNextAuthToken, uint64(d.NextAuthToken))
	b = appendVarint(b, docNextAccountID, uint64(d.NextAccountID))
	for _, s := range d.Seeds {
		b = appendBytes(b, docSeed, marshalEntry(s))
	}
	return appendVarint(b, docVersion, version)
}

func marshalEntry(s repository.SeedEntry) []byte {
	var b []byte
	b = appendVarint(b, entrySeedID, uint64(s.SeedID))
	b = appendBytes(b, entryDetails, marshalDetails(s.Seed))
	for _, a := range s.Authorizations {
		var ab []byte
		ab = appendVarint(ab, authUID, uint64(a.UID))
		ab = appendVarint(ab, authToken, uint64(a.AuthToken))
		ab = appendVarint(ab, authPurpose, uint64(a.Purpose))
		b = appendBytes(b, entryAuth, ab)
	}
	for _, a := range s.KnownAccounts {
		var ab []byte
		ab = appendVarint(ab, accID, uint64(a.AccountID))
		ab = appendVarint(ab, accPurpose, uint64(a.Purpose))
		ab = appendString(ab, accURI, a.Bip32URI)
		ab = appendBytes(ab, accPublicKey, a.PublicKey)
		ab = appendString(ab, accName, a.Name)
		ab = appendVarint(ab, accIsUserWallet, protowire.EncodeBool(a.IsUserWallet))
		ab = appendVarint(ab, accIsValid, protowire.EncodeBool(a.IsValid))
		b = appendBytes(b, entryAccount, ab)
	}
	return b
}

func marshalDetails(d repository.SeedRecord) []byte {
	var b []byte
	b = appendBytes(b, detSeed, d.Seed)
	var packed []byte
	for _, w := range d.PhraseWordIndices {
		packed = protowire.AppendVarint(packed, uint64(w))
	}
	b = appendBytes(b, detWords, packed)
	b = appendString(b, detName, d.Name)
	b = appendString(b, detPIN, d.PIN)
	b = appendVarint(b, detBiometrics, protowire.EncodeBool(d.UnlockWithBiometrics))
	return appendVarint(b, detBackedUp, protowire.EncodeBool(d.IsBackedUp))
}

var errWireType = errors.New("unexpected wire type")

// walk calls fn for every field in b. fn consumes the value and returns its length.
func walk(b []byte, fn func(n protowire.Number, t protowire.Type, v []byte) (int, error)) error {
	for len(b) > 0 {
		n, t, l := protowire.ConsumeTag(b)
		if l < 0 {
			return protowire.ParseError(l)
		}
		b = b[l:]
		m, err := fn(n, t, b)
		if err != nil {
			return err
		}
		if m == 0 {
			m = protowire.ConsumeFieldValue(n, t, b)
		}
		if m < 0 {
			return protowire.ParseError(m)
		}
		b = b[m:]
	}
	return nil
}

func varint(t protowire.Type, b []byte, dst *uint64) (int, error) {
	if t != protowire.VarintType {
		return 0, errWireType
	}
	v, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return 0, protowire.ParseError(n)
	}
	*dst = v
	return n, nil
}

func bytesField(t protowire.Type, b []byte, dst *[]byte) (int, error) {
	if t != protowire.BytesType {
		return 0, errWireType
	}
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return 0, protowire.ParseError(n)
	}
	*dst = append([]byte(nil), v...)
	return n, nil
}

func unmarshalDocument(b []byte) (repository.Document, uint64, error) {
	var (
		d       repository.Document
		version uint64
		u       uint64
		raw     []byte
	)
	err := walk(b, func(n protowire.Number, t protowire.Type, v []byte) (int, error) {
		switch n {
		case docNextSeedID:
			m, err := varint(t, v, &u)
			d.NextSeedID = int64(u)
			return m, err
		case docNextAuthToken:
			m, err := varint(t, v, &u)
			d.NextAuthToken = int64(u)
			return m, err
		case docNextAccountID:
			m, err := varint(t, v, &u)
			d.NextAccountID = int64(u)
			return m, err
		case docVersion:
			return varint(t, v, &version)
		case docSeed:
			m, err := bytesField(t, v, &raw)
			if err != nil {
				return 0, err
			}
			e, err := unmarshalEntry(raw)
			if err != nil {
				return 0, err
			}
			d.Seeds = append(d.Seeds, e)
			return m, nil
		}
		return 0, nil
	})
	return d, version, err
}

func unmarshalEntry(b []byte) (repository.SeedEntry, error) {
	var (
		e   repository.SeedEntry
		u   uint64
		raw []byte
	)
	err := walk(b, func(n protowire.Number, t protowire.Type, v []byte) (int, error) {
		switch n {
		case entrySeedID:
			m, err := varint(t, v, &u)
			e.SeedID = int64(u)
			return m, err
		case entryDetails:
			m, err := bytesField(t, v, &raw)
			if err != nil {
				return 0, err
			}
			e.Seed, err = unmarshalDetails(raw)
			return m, err
		case entryAuth:
			m, err := bytesField(t, v, &raw)
			if err != nil {
				return 0, err
			}
			a, err := unmarshalAuth(raw)
			e.Authorizations = append(e.Authorizations, a)
			return m, err
		case entryAccount:
			m, err := bytesField(t, v, &raw)
			if err != nil {
				return 0, err
			}
			a, err := unmarshalAccount(raw)
			e.KnownAccounts = append(e.KnownAccounts, a)
			return m, err
		}
		return 0, nil
	})
	return e, err
}

func unmarshalDetails(b []byte) (repository.SeedRecord, error) {
	var (
		d   repository.SeedRecord
		u   uint64
		raw []byte
	)
	err := walk(b, func(n protowire.Number, t protowire.Type, v []byte) (int, error) {
		switch n {
		case detSeed:
			return bytesField(t, v, &d.Seed)
		case detWords:
			m, err := bytesField(t, v, &raw)
			if err != nil {
				return 0, err
			}
			d.PhraseWordIndices = make([]int, 0, len(raw))
			for len(raw) > 0 {
				w, k := protowire.ConsumeVarint(raw)
				if k < 0 {
					return 0, protowire.ParseError(k)
				}
				d.PhraseWordIndices = append(d.PhraseWordIndices, int(w))
				raw = raw[k:]
			}
			return m, nil
		case detName:
			m, err := bytesField(t, v, &raw)
			d.Name = string(raw)
			return m, err
		case detPIN:
			m, err := bytesField(t, v, &raw)
			d.PIN = string(raw)
			return m, err
		case detBiometrics:
			m, err := varint(t, v, &u)
			d.UnlockWithBiometrics = protowire.DecodeBool(u)
			return m, err
		case detBackedUp:
			m, err := varint(t, v, &u)
			d.IsBackedUp = protowire.DecodeBool(u)
			return m, err
		}
		return 0, nil
	})
	return d, err
}

func unmarshalAuth(b []byte) (repository.AuthorizationRecord, error) {
	var (
		a repository.AuthorizationRecord
		u uint64
	)
	err := walk(b, func(n protowire.Number, t protowire.Type, v []byte) (int, error) {
		switch n {
		case authUID:
			m, err := varint(t, v, &u)
			a.UID = int(int64(u))
			return m, err
		case authToken:
			m, err := varint(t, v, &u)
			a.AuthToken = int64(u)
			return m, err
		case authPurpose:
			m, err := varint(t, v, &u)
			a.Purpose = int(int64(u))
			return m, err
		}
		return 0, nil
	})
	return a, err
}

func unmarshalAccount(b []byte) (repository.AccountRecord, error) {
	var (
		a   repository.AccountRecord
		u   uint64
		raw []byte
	)
	err := walk(b, func(n protowire.Number, t protowire.Type, v []byte) (int, error) {
		switch n {
		case accID:
			m, err := varint(t, v, &u)
			a.AccountID = int64(u)
			return m, err
		case accPurpose:
			m, err := varint(t, v, &u)
			a.Purpose = int(int64(u))
			return m, err
		case accURI:
			m, err := bytesField(t, v, &raw)
			a.Bip32URI = string(raw)
			return m, err
		case accPublicKey:
			return bytesField(t, v, &a.PublicKey)
		case accName:
			m, err := bytesField(t, v, &raw)
			a.Name = string(raw)
			return m, err
		case accIsUserWallet:
			m, err := varint(t, v, &u)
			a.IsUserWallet = protowire.DecodeBool(u)
			return m, err
		case accIsValid:
			m, err := varint(t, v, &u)
			a.IsValid = protowire.DecodeBool(u)
			return m, err
		}
		return 0, nil
	})
	return a, err
}
