// Package domain provides the core compression logic: source units, the
// transform pipeline, and the identifier generator shared by transforms.
package domain

import (
	"strings"

	"pyshrink.dev/pkg/pyshrink/internal/pysrc"
)

// Alphabets for generated identifiers.
const (
	LowerAlphabet = "abcdefghijklmnopqrstuvwxyz"
	UpperAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

// NameSeq lazily yields short names over a fixed alphabet: every length-1
// combination first, then every length-2 combination, and so on. The
// sequence is infinite for practical purposes and restartable via Reset.
//
// Names that collide with reserved words of the subject language are
// skipped, so renamed output always re-parses.
type NameSeq struct {
	alphabet string
	next     uint64
}

// NewNameSeq creates a sequence over the given alphabet.
func NewNameSeq(alphabet string) *NameSeq {
	return &NameSeq{alphabet: alphabet}
}

// Next returns the following name in the sequence.
func (s *NameSeq) Next() string {
	for {
		name := s.nameAt(s.next)
		s.next++

		if !pysrc.IsKeyword(name) {
			return name
		}
	}
}

// Reset restarts the sequence from its first name.
func (s *NameSeq) Reset() {
	s.next = 0
}

// nameAt maps an ordinal to its name: ordinals 0..B-1 are the length-1
// names, the next B^2 ordinals the length-2 names, and so on.
func (s *NameSeq) nameAt(ordinal uint64) string {
	base := uint64(len(s.alphabet))

	size := 1
	count := base

	for ordinal >= count {
		ordinal -= count
		count *= base
		size++
	}

	var b strings.Builder

	for i := size - 1; i >= 0; i-- {
		div := pow(base, i)
		b.WriteByte(s.alphabet[ordinal/div%base])
	}

	return b.String()
}

func pow(base uint64, exp int) uint64 {
	result := uint64(1)
	for i := 0; i < exp; i++ {
		result *= base
	}

	return result
}
