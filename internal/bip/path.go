// Package bip models BIP32 and BIP44 derivation paths, their URI form, and the
// purpose-specific normalization rules applied before key derivation.
package bip

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/and161185/seedvault/internal/errs"
)

// URI vocabulary.
const (
	SchemeBip32        = "bip32"
	SchemeBip44        = "bip44"
	MasterKeyIndicator = "m"
	HardenedIdentifier = "'"

	// MaxDepth is the deepest BIP32 path accepted.
	MaxDepth = 20

	// MaxIndex is the largest child index; the hardened bit is carried separately.
	MaxIndex = 1<<31 - 1
)

// Level is one step of a derivation path.
type Level struct {
	Index    uint32
	Hardened bool
}

// NewLevel validates the index range.
func NewLevel(index uint32, hardened bool) (Level, error) {
	if index > MaxIndex {
		return Level{}, fmt.Errorf("%w: index %d must be in the range [0, 2^31)", errs.ErrValidation, index)
	}
	return Level{Index: index, Hardened: hardened}, nil
}

// Hardened is shorthand for a hardened level with a known-good index.
func Hardened(index uint32) Level { return Level{Index: index, Hardened: true} }

func (l Level) String() string {
	s := strconv.FormatUint(uint64(l.Index), 10)
	if l.Hardened {
		return s + HardenedIdentifier
	}
	return s
}

// Path is either a Bip32Path or a Bip44Path.
type Path interface {
	// Levels returns a copy of the path levels.
	Levels() []Level
	// URI renders the canonical URI form.
	URI() string
	isPath()
}

// Bip32Path is a general derivation path rooted at the master key.
type Bip32Path struct {
	levels []Level
}

// NewBip32Path builds a path from levels, enforcing depth and index range.
func NewBip32Path(levels ...Level) (Bip32Path, error) {
	if len(levels) > MaxDepth {
		return Bip32Path{}, fmt.Errorf("%w: BIP32 max supported depth (%d) exceeded", errs.ErrValidation, MaxDepth)
	}
	for i, l := range levels {
		if l.Index > MaxIndex {
			return Bip32Path{}, fmt.Errorf("%w: level [%d] index %d out of range", errs.ErrValidation, i, l.Index)
		}
	}
	return Bip32Path{levels: append([]Level(nil), levels...)}, nil
}

func (Bip32Path) isPath() {}

// Levels returns a copy of the levels.
func (p Bip32Path) Levels() []Level { return append([]Level(nil), p.levels...) }

// Depth is the number of levels below the master key.
func (p Bip32Path) Depth() int { return len(p.levels) }

// Append returns a new path with levels appended.
func (p Bip32Path) Append(levels ...Level) (Bip32Path, error) {
	return NewBip32Path(append(p.Levels(), levels...)...)
}

// IsHardened reports whether every level is hardened.
func (p Bip32Path) IsHardened() bool {
	for _, l := range p.levels {
		if !l.Hardened {
			return false
		}
	}
	return true
}

// Equal compares level by level.
func (p Bip32Path) Equal(o Bip32Path) bool {
	if len(p.levels) != len(o.levels) {
		return false
	}
	for i := range p.levels {
		if p.levels[i] != o.levels[i] {
			return false
		}
	}
	return true
}

// URI renders e.g. bip32:/m/44'/501'/0'.
func (p Bip32Path) URI() string {
	var b strings.Builder
	b.WriteString(SchemeBip32)
	b.WriteString(":/")
	b.WriteString(MasterKeyIndicator)
	for _, l := range p.levels {
		b.WriteByte('/')
		b.WriteString(l.String())
	}
	return b.String()
}

func (p Bip32Path) String() string { return p.URI() }

// Bip44Path holds the caller-chosen tail of purpose'/coinType'/account'/change/addressIndex.
// Purpose and coin type are implied by the authorization purpose.
type Bip44Path struct {
	Account      Level
	Change       *Level
	AddressIndex *Level
}

// NewBip44Path validates the BIP44 shape: account hardened, addressIndex only with change.
func NewBip44Path(account Level, change, addressIndex *Level) (Bip44Path, error) {
	if !account.Hardened {
		return Bip44Path{}, fmt.Errorf("%w: account must be hardened", errs.ErrValidation)
	}
	if change == nil && addressIndex != nil {
		return Bip44Path{}, fmt.Errorf("%w: addressIndex must be absent when change is absent", errs.ErrValidation)
	}
	for _, l := range []*Level{&account, change, addressIndex} {
		if l != nil && l.Index > MaxIndex {
			return Bip44Path{}, fmt.Errorf("%w: index %d out of range", errs.ErrValidation, l.Index)
		}
	}
	p := Bip44Path{Account: account}
	if change != nil {
		c := *change
		p.Change = &c
	}
	if addressIndex != nil {
		a := *addressIndex
		p.AddressIndex = &a
	}
	return p, nil
}

func (Bip44Path) isPath() {}

// Levels returns account, change and addressIndex in order, omitting absent ones.
func (p Bip44Path) Levels() []Level {
	out := []Level{p.Account}
	if p.Change != nil {
		out = append(out, *p.Change)
		if p.AddressIndex != nil {
			out = append(out, *p.AddressIndex)
		}
	}
	return out
}

// URI renders e.g. bip44:/0'/0'.
func (p Bip44Path) URI() string {
	var b strings.Builder
	b.WriteString(SchemeBip44)
	b.WriteByte(':')
	for _, l := range p.Levels() {
		b.WriteByte('/')
		b.WriteString(l.String())
	}
	return b.String()
}

func (p Bip44Path) String() string { return p.URI() }

// Parse accepts a bip32 URI (absolute or relative "m/...") or an absolute bip44 URI.
func Parse(uri string) (Path, error) {
	u, err := parseHierarchical(uri)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "", SchemeBip32:
		return parseBip32Segments(segments(u.Path))
	case SchemeBip44:
		return parseBip44Segments(segments(u.Path))
	default:
		return nil, fmt.Errorf("%w: unknown derivation path scheme %q", errs.ErrValidation, u.Scheme)
	}
}

// ParseBip32 parses only the bip32 form.
func ParseBip32(uri string) (Bip32Path, error) {
	u, err := parseHierarchical(uri)
	if err != nil {
		return Bip32Path{}, err
	}
	if u.Scheme != "" && u.Scheme != SchemeBip32 {
		return Bip32Path{}, fmt.Errorf("%w: BIP32 URI absolute scheme must be %s", errs.ErrValidation, SchemeBip32)
	}
	return parseBip32Segments(segments(u.Path))
}

func parseHierarchical(uri string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(uri))
	if err != nil {
		return nil, fmt.Errorf("%w: derivation path: %v", errs.ErrValidation, err)
	}
	switch {
	case u.Opaque != "":
		return nil, fmt.Errorf("%w: derivation path URI must be hierarchical", errs.ErrValidation)
	case u.User != nil || u.Host != "":
		return nil, fmt.Errorf("%w: derivation path URI authority must be empty", errs.ErrValidation)
	case u.RawQuery != "" || u.ForceQuery:
		return nil, fmt.Errorf("%w: derivation path URI query must be empty", errs.ErrValidation)
	case u.Fragment != "":
		return nil, fmt.Errorf("%w: derivation path URI fragment must be empty", errs.ErrValidation)
	}
	return u, nil
}

func segments(p string) []string {
	return strings.FieldsFunc(p, func(r rune) bool { return r == '/' })
}

func parseBip32Segments(segs []string) (Bip32Path, error) {
	if len(segs) == 0 || segs[0] != MasterKeyIndicator {
		return Bip32Path{}, fmt.Errorf("%w: BIP32 URI path must start with a master key indicator", errs.ErrValidation)
	}
	levels := make([]Level, 0, len(segs)-1)
	for i, s := range segs[1:] {
		l, err := parseLevel(s)
		if err != nil {
			return Bip32Path{}, fmt.Errorf("path element [%d](%s): %w", i+1, s, err)
		}
		levels = append(levels, l)
	}
	return NewBip32Path(levels...)
}

func parseBip44Segments(segs []string) (Bip44Path, error) {
	if len(segs) < 1 || len(segs) > 3 {
		return Bip44Path{}, fmt.Errorf("%w: BIP44 URI path must contain between 1 and 3 elements", errs.ErrValidation)
	}
	levels := make([]Level, len(segs))
	for i, s := range segs {
		l, err := parseLevel(s)
		if err != nil {
			return Bip44Path{}, fmt.Errorf("path element [%d](%s): %w", i, s, err)
		}
		levels[i] = l
	}
	var change, addr *Level
	if len(levels) > 1 {
		change = &levels[1]
	}
	if len(levels) > 2 {
		addr = &levels[2]
	}
	return NewBip44Path(levels[0], change, addr)
}

func parseLevel(s string) (Level, error) {
	hardened := strings.HasSuffix(s, HardenedIdentifier)
	num := strings.TrimSuffix(s, HardenedIdentifier)
	if num == "" {
		return Level{}, fmt.Errorf("%w: empty level", errs.ErrValidation)
	}
	idx, err := strconv.ParseUint(num, 10, 32)
	if err != nil {
		return Level{}, fmt.Errorf("%w: could not be parsed as a BIP32 level", errs.ErrValidation)
	}
	return NewLevel(uint32(idx), hardened)
}
