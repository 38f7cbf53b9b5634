package cards

import (
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShuffle_Deterministic(t *testing.T) {
	deck := StandardDeck()
	seed := "deadbeef0123456789abcdef"

	first := Shuffle(deck, seed)
	second := Shuffle(deck, seed)

	assert.Equal(t, first, second)
	assert.NotEqual(t, deck, first, "a 52 card shuffle should move cards")
}

func TestShuffle_IsPermutation(t *testing.T) {
	deck := StandardDeck()
	shuffled := Shuffle(deck, "00112233445566778899aabbccddeeff")

	require.Len(t, shuffled, len(deck))

	want := append([]string{}, deck...)
	got := append([]string{}, shuffled...)
	sort.Strings(want)
	sort.Strings(got)
	assert.Equal(t, want, got)
}

func TestShuffle_DoesNotModifyInput(t *testing.T) {
	deck := StandardDeck()
	original := append([]string{}, deck...)

	Shuffle(deck, "abc123")

	assert.Equal(t, original, deck)
}

func TestShuffle_DifferentSeedsDiffer(t *testing.T) {
	deck := StandardDeck()

	a := Shuffle(deck, "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	b := Shuffle(deck, "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")

	assert.NotEqual(t, a, b)
}

func TestShuffle_EdgeDecks(t *testing.T) {
	assert.Empty(t, Shuffle(nil, "seed"))
	assert.Equal(t, []string{"A♠"}, Shuffle([]string{"A♠"}, "seed"))
}

func TestShuffle_LargeDeckCrossesStreamBlocks(t *testing.T) {
	// More than one HKDF block worth of draws
	deck := make([]string, 0, 2500)
	for i := 0; i < 2500; i++ {
		deck = append(deck, strings.Repeat("x", i%7)+string(rune('a'+i%26)))
	}

	first := Shuffle(deck, "feedface")
	second := Shuffle(deck, "feedface")

	assert.Equal(t, first, second)
	assert.Len(t, first, len(deck))
}

func TestShuffle_ReplayReproducesDeal(t *testing.T) {
	seed, err := NewSeed()
	require.NoError(t, err)

	hands, _, err := Deal(Shuffle(StandardDeck(), seed), 4, 5)
	require.NoError(t, err)

	replayed, _, err := Deal(Shuffle(StandardDeck(), seed), 4, 5)
	require.NoError(t, err)

	assert.Equal(t, hands, replayed)
}

func TestNewSeed(t *testing.T) {
	a, err := NewSeed()
	require.NoError(t, err)
	b, err := NewSeed()
	require.NoError(t, err)

	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)
}

func TestCommitSeed(t *testing.T) {
	c1 := CommitSeed("deadbeef", "secret")
	c2 := CommitSeed("deadbeef", "secret")
	c3 := CommitSeed("deadbeef", "other")

	assert.Equal(t, c1, c2)
	assert.NotEqual(t, c1, c3)
	assert.Len(t, c1, 64)
}
