// Package phrase converts between BIP39 mnemonics, word indices and seeds.
package phrase

import (
	"fmt"
	"strings"
	"sync"

	"github.com/tyler-smith/go-bip39"

	"github.com/and161185/seedvault/internal/errs"
)

// Supported phrase lengths and their entropy sizes in bits.
const (
	WordsShort = 12
	WordsLong  = 24

	entropyShort = 128
	entropyLong  = 256
)

var (
	indexOnce sync.Once
	wordIndex map[string]int
)

func index() map[string]int {
	indexOnce.Do(func() {
		list := bip39.GetWordList()
		wordIndex = make(map[string]int, len(list))
		for i, w := range list {
			wordIndex[w] = i
		}
	})
	return wordIndex
}

// New generates a fresh mnemonic of 12 or 24 words.
func New(words int) (string, error) {
	var bits int
	switch words {
	case WordsShort:
		bits = entropyShort
	case WordsLong:
		bits = entropyLong
	default:
		return "", fmt.Errorf("%w: phrase must have %d or %d words", errs.ErrValidation, WordsShort, WordsLong)
	}
	entropy, err := bip39.NewEntropy(bits)
	if err != nil {
		return "", fmt.Errorf("entropy: %w", err)
	}
	m, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", fmt.Errorf("mnemonic: %w", err)
	}
	return m, nil
}

func normalize(mnemonic string) []string {
	return strings.Fields(strings.ToLower(mnemonic))
}

// Validate checks word count, vocabulary and checksum.
func Validate(mnemonic string) error {
	words := normalize(mnemonic)
	if len(words) != WordsShort && len(words) != WordsLong {
		return fmt.Errorf("%w: phrase has %d words, want %d or %d", errs.ErrValidation, len(words), WordsShort, WordsLong)
	}
	idx := index()
	for i, w := range words {
		if _, ok := idx[w]; !ok {
			return fmt.Errorf("%w: word %d is not in the BIP39 word list", errs.ErrValidation, i+1)
		}
	}
	if !bip39.IsMnemonicValid(strings.Join(words, " ")) {
		return fmt.Errorf("%w: phrase checksum mismatch", errs.ErrValidation)
	}
	return nil
}

// WordIndices returns the word list index of every word.
func WordIndices(mnemonic string) ([]int, error) {
	if err := Validate(mnemonic); err != nil {
		return nil, err
	}
	idx := index()
	words := normalize(mnemonic)
	out := make([]int, len(words))
	for i, w := range words {
		out[i] = idx[w]
	}
	return out, nil
}

// Mnemonic renders word indices back to a validated mnemonic.
func Mnemonic(indices []int) (string, error) {
	list := bip39.GetWordList()
	words := make([]string, len(indices))
	for i, n := range indices {
		if n < 0 || n >= len(list) {
			return "", fmt.Errorf("%w: word index %d out of range", errs.ErrValidation, n)
		}
		words[i] = list[n]
	}
	m := strings.Join(words, " ")
	if err := Validate(m); err != nil {
		return "", err
	}
	return m, nil
}

// Seed returns the 64-byte BIP39 seed for mnemonic and an optional passphrase.
func Seed(mnemonic, passphrase string) ([]byte, error) {
	if err := Validate(mnemonic); err != nil {
		return nil, err
	}
	seed, err := bip39.NewSeedWithErrorChecking(strings.Join(normalize(mnemonic), " "), passphrase)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrValidation, err)
	}
	return seed, nil
}
