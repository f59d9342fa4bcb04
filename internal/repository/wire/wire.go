// Package wire encodes the vault document for byte-oriented stores using the
// protobuf wire format, with an optional sealed envelope.
package wire

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/and161185/seedvault/internal/crypto/sealer"
	"github.com/and161185/seedvault/internal/errs"
	"github.com/and161185/seedvault/internal/repository"
)

// ErrCorrupt marks a blob that cannot be parsed as a vault document.
var ErrCorrupt = errors.New("wire: corrupt vault document")

const (
	formatVersion byte = 1
	flagSealed    byte = 1 << 0
)

var magic = []byte("SVDB")

func header(flags byte) []byte {
	return append(append([]byte(nil), magic...), formatVersion, flags)
}

// Codec converts documents to and from envelopes. A nil sealer writes plaintext.
type Codec struct {
	sealer *sealer.Sealer
}

// NewCodec returns a codec; pass nil to disable sealing.
func NewCodec(s *sealer.Sealer) *Codec { return &Codec{sealer: s} }

// Encode serializes doc with its store version.
func (c *Codec) Encode(doc repository.Document, version uint64) ([]byte, error) {
	payload := marshalDocument(doc, version)
	if c.sealer == nil {
		return append(header(0), payload...), nil
	}
	hdr := header(flagSealed)
	body, err := c.sealer.Seal(payload, hdr)
	if err != nil {
		return nil, fmt.Errorf("seal: %w", err)
	}
	return append(hdr, body...), nil
}

// Decode parses an envelope. Structural damage yields ErrCorrupt; a sealed
// envelope that cannot be opened yields errs.ErrAuthenticationFailed.
func (c *Codec) Decode(blob []byte) (repository.Document, uint64, error) {
	hl := len(magic) + 2
	if len(blob) < hl || !bytes.Equal(blob[:len(magic)], magic) {
		return repository.Document{}, 0, fmt.Errorf("%w: bad header", ErrCorrupt)
	}
	hdr := blob[:hl]
	if hdr[len(magic)] != formatVersion {
		return repository.Document{}, 0, fmt.Errorf("%w: unsupported format %d", ErrCorrupt, hdr[len(magic)])
	}
	payload := blob[hl:]
	if hdr[len(magic)+1]&flagSealed != 0 {
		if c.sealer == nil {
			return repository.Document{}, 0, fmt.Errorf("%w: document is sealed and no passphrase is configured", errs.ErrAuthenticationFailed)
		}
		pt, err := c.sealer.Open(payload, hdr)
		if err != nil {
			return repository.Document{}, 0, fmt.Errorf("%w: %v", errs.ErrAuthenticationFailed, err)
		}
		payload = pt
	}
	doc, ver, err := unmarshalDocument(payload)
	if err != nil {
		return repository.Document{}, 0, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return doc, ver, nil
}
