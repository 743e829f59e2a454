package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNameSeqSingleThenDoubleLetters(t *testing.T) {
	seq := NewNameSeq(LowerAlphabet)

	got := make([]string, 0, 28)
	for i := 0; i < 28; i++ {
		got = append(got, seq.Next())
	}

	assert.Equal(t, "a", got[0])
	assert.Equal(t, "z", got[25])
	assert.Equal(t, "aa", got[26])
	assert.Equal(t, "ab", got[27])
}

func TestNameSeqUppercase(t *testing.T) {
	seq := NewNameSeq(UpperAlphabet)

	assert.Equal(t, "A", seq.Next())
	assert.Equal(t, "B", seq.Next())
}

func TestNameSeqSkipsReservedWords(t *testing.T) {
	// Over the alphabet "if", the fourth combination would be the
	// reserved word "if" itself and must be skipped.
	seq := NewNameSeq("if")

	got := make([]string, 0, 6)
	for i := 0; i < 6; i++ {
		got = append(got, seq.Next())
	}

	require.Equal(t, []string{"i", "f", "ii", "fi", "ff", "iii"}, got)
}

func TestNameSeqReset(t *testing.T) {
	seq := NewNameSeq(LowerAlphabet)

	first := seq.Next()
	seq.Next()
	seq.Reset()

	assert.Equal(t, first, seq.Next())
}
