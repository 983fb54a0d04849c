package cipher

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const englishSample = "It was the best of times, it was the worst of times, it was the age of wisdom, " +
	"it was the age of foolishness, it was the epoch of belief, it was the epoch of incredulity, " +
	"it was the season of Light, it was the season of Darkness, it was the spring of hope, " +
	"it was the winter of despair, we had everything before us, we had nothing before us."

func TestCaesarBruteForceFindsShift(t *testing.T) {
	for _, shift := range []int{1, 13, 42, 200, 255} {
		ct, err := CaesarEncrypt([]byte(englishSample), shift)
		require.NoError(t, err)

		candidates, err := CaesarBruteForce(context.Background(), ct, 4)
		require.NoError(t, err)
		require.Len(t, candidates, ShiftCount)

		best, ok := BestCandidate(candidates)
		require.True(t, ok)
		assert.Equal(t, shift, best.Shift)
		assert.Equal(t, englishSample, string(best.Plaintext))
	}
}

func TestCaesarBruteForceOrderedByShift(t *testing.T) {
	ct := []byte("Khoor")
	candidates, err := CaesarBruteForce(context.Background(), ct, 0)
	require.NoError(t, err)
	for i, c := range candidates {
		require.Equal(t, i, c.Shift)
		want, err := CaesarDecrypt(ct, i)
		require.NoError(t, err)
		require.Equal(t, want, c.Plaintext)
	}
	assert.Equal(t, "Hello", string(candidates[3].Plaintext))
}

func TestCaesarBruteForceCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := CaesarBruteForce(ctx, []byte("abc"), 2)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBestCandidatePrefersSmallerShiftOnTie(t *testing.T) {
	best, ok := BestCandidate([]ShiftCandidate{
		{Shift: 9, Score: 1},
		{Shift: 4, Score: 1},
		{Shift: 7, Score: 2},
	})
	require.True(t, ok)
	assert.Equal(t, 4, best.Shift)

	_, ok = BestCandidate(nil)
	assert.False(t, ok)
}

func TestScoreEnglishPenalisesNonPrintable(t *testing.T) {
	plain := ScoreEnglish([]byte("hello world"))
	garbled := ScoreEnglish([]byte("hello\x00world"))
	assert.Less(t, plain, garbled)
	assert.Equal(t, noLetterScore, ScoreEnglish(nil))
}

func TestAnalyzeFrequencies(t *testing.T) {
	report, err := AnalyzeFrequencies([]byte("Hello, hello!"))
	require.NoError(t, err)
	assert.Equal(t, 10, report.TotalLetters)
	assert.Equal(t, "leho", report.Ranking())
	assert.Equal(t, LetterCount{Letter: "l", Count: 4, Frequency: 0.4}, report.Letters[0])
	assert.Equal(t, "el he ll lo", report.BigramRanking())
}

func TestAnalyzeFrequenciesFindsSubstitutedE(t *testing.T) {
	gen := NewKeyGeneratorFrom(rand.New(rand.NewSource(3)))
	key, err := gen.SubstitutionKey()
	require.NoError(t, err)
	ct, err := SubstitutionEncrypt([]byte(englishSample), key)
	require.NoError(t, err)

	report, err := AnalyzeFrequencies(ct)
	require.NoError(t, err)
	image := key.Map()["e"]
	assert.Contains(t, report.Ranking()[:3], image)
	assert.LessOrEqual(t, len(report.Bigrams), maxBigrams)
}

func TestAnalyzeFrequenciesNoLetters(t *testing.T) {
	_, err := AnalyzeFrequencies([]byte("1234 !?"))
	assert.Equal(t, KindInvalidParameter, KindOf(err))
}
