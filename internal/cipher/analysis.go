package cipher

import (
	"context"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"
)

// englishFrequencies holds the relative frequency of a..z in English prose.
var englishFrequencies = [26]float64{
	0.08167, 0.01492, 0.02782, 0.04253, 0.12702, 0.02228, 0.02015, // a-g
	0.06094, 0.06966, 0.00153, 0.00772, 0.04025, 0.02406, 0.06749, // h-n
	0.07507, 0.01929, 0.00095, 0.05987, 0.06327, 0.09056, 0.02758, // o-u
	0.00978, 0.02360, 0.00150, 0.01974, 0.00074, // v-z
}

// EnglishLetterOrder lists letters from most to least common in English.
const EnglishLetterOrder = "etaoinshrdlcumwfgypbvkjxqz"

const (
	// noLetterScore is used when a candidate contains no letters at all.
	noLetterScore = 10000.0
	// nonPrintableWeight scales the fraction of bytes outside printable ASCII.
	nonPrintableWeight = 1000.0
)

// ShiftCandidate is one Caesar key hypothesis. Lower scores are more
// plausible English.
type ShiftCandidate struct {
	Shift     int
	Plaintext []byte
	Score     float64
}

// ScoreEnglish rates how English-like text is: the chi-squared distance of
// its letter distribution from English plus a penalty for non-printable bytes.
func ScoreEnglish(text []byte) float64 {
	if len(text) == 0 {
		return noLetterScore
	}
	var counts [26]int
	letters, nonPrintable := 0, 0
	for _, b := range text {
		switch {
		case b >= 'a' && b <= 'z':
			counts[b-'a']++
			letters++
		case b >= 'A' && b <= 'Z':
			counts[b-'A']++
			letters++
		case !isPrintable(b):
			nonPrintable++
		}
	}

	chi := noLetterScore
	if letters > 0 {
		chi = 0
		for i, observed := range counts {
			expected := float64(letters) * englishFrequencies[i]
			diff := float64(observed) - expected
			chi += diff * diff / expected
		}
	}
	return chi + nonPrintableWeight*float64(nonPrintable)/float64(len(text))
}

func isPrintable(b byte) bool {
	return (b >= 0x20 && b <= 0x7e) || b == '\n' || b == '\r' || b == '\t'
}

// CaesarBruteForce decrypts ciphertext under all 256 shifts and scores each
// result. Hypotheses are evaluated on up to workers goroutines (GOMAXPROCS
// when workers <= 0); the returned slice is always indexed by shift.
func CaesarBruteForce(ctx context.Context, ciphertext []byte, workers int) ([]ShiftCandidate, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	results := make([]ShiftCandidate, ShiftCount)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for shift := MinShift; shift <= MaxShift; shift++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			plain := shiftBytes(ciphertext, byte(ShiftCount-shift))
			results[shift] = ShiftCandidate{
				Shift:     shift,
				Plaintext: plain,
				Score:     ScoreEnglish(plain),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// BestCandidate returns the lowest-scoring candidate, preferring the smaller
// shift on ties.
func BestCandidate(candidates []ShiftCandidate) (ShiftCandidate, bool) {
	if len(candidates) == 0 {
		return ShiftCandidate{}, false
	}
	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.Score < best.Score || (c.Score == best.Score && c.Shift < best.Shift) {
			best = c
		}
	}
	return best, true
}

// LetterCount is one row of a frequency histogram.
type LetterCount struct {
	Letter    string  `json:"letter"`
	Count     int     `json:"count"`
	Frequency float64 `json:"frequency"`
}

// FrequencyReport summarises letter usage in a ciphertext. It is advisory:
// no key is recovered from it.
type FrequencyReport struct {
	TotalLetters int
	Letters      []LetterCount // descending by count, then alphabetical
	Bigrams      []LetterCount // most common adjacent letter pairs
}

// maxBigrams caps the bigram list.
const maxBigrams = 10

// AnalyzeFrequencies builds a case-insensitive letter histogram of text.
func AnalyzeFrequencies(text []byte) (FrequencyReport, error) {
	var counts [26]int
	bigrams := make(map[string]int)
	total := 0
	prev := byte(0)
	for _, b := range text {
		lower, ok := toLowerLetter(b)
		if !ok {
			prev = 0
			continue
		}
		counts[lower-'a']++
		total++
		if prev != 0 {
			bigrams[string([]byte{prev, lower})]++
		}
		prev = lower
	}
	if total == 0 {
		return FrequencyReport{}, invalidParameter("text contains no letters to analyse")
	}

	report := FrequencyReport{TotalLetters: total}
	for i, c := range counts {
		if c == 0 {
			continue
		}
		report.Letters = append(report.Letters, LetterCount{
			Letter:    string(rune('a' + i)),
			Count:     c,
			Frequency: float64(c) / float64(total),
		})
	}
	sortCounts(report.Letters)

	pairs := 0
	for _, c := range bigrams {
		pairs += c
	}
	for pair, c := range bigrams {
		report.Bigrams = append(report.Bigrams, LetterCount{
			Letter:    pair,
			Count:     c,
			Frequency: float64(c) / float64(pairs),
		})
	}
	sortCounts(report.Bigrams)
	if len(report.Bigrams) > maxBigrams {
		report.Bigrams = report.Bigrams[:maxBigrams]
	}
	return report, nil
}

// Ranking returns the observed letters concatenated from most to least
// frequent, e.g. "etaoins...".
func (r FrequencyReport) Ranking() string {
	var sb strings.Builder
	for _, lc := range r.Letters {
		sb.WriteString(lc.Letter)
	}
	return sb.String()
}

// BigramRanking returns the top bigrams separated by spaces.
func (r FrequencyReport) BigramRanking() string {
	parts := make([]string, len(r.Bigrams))
	for i, bc := range r.Bigrams {
		parts[i] = bc.Letter
	}
	return strings.Join(parts, " ")
}

func sortCounts(counts []LetterCount) {
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].Letter < counts[j].Letter
	})
}

func toLowerLetter(b byte) (byte, bool) {
	switch {
	case b >= 'a' && b <= 'z':
		return b, true
	case b >= 'A' && b <= 'Z':
		return b + ('a' - 'A'), true
	default:
		return 0, false
	}
}
