package morphseg

import (
	"math/rand"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/npillmayer/morphseg/dart"
)

func TestParsePicksCheapestSegmentation(t *testing.T) {
	d := buildTestDict(t, zeroCost)
	tokens, cost, err := d.Parse("abc")
	require.NoError(t, err)
	// a+b+c=30, a+bc=25, ab+c=60; "abc" alone costs 20.
	assert.Equal(t, int64(20), cost)
	require.Len(t, tokens, 1)
	assert.Equal(t, "abc", tokens[0].Surface)
	assert.Equal(t, 0, tokens[0].Start)
	assert.Equal(t, 3, tokens[0].End)
	assert.Equal(t, KindSystem, tokens[0].Kind)
	assert.Equal(t, "ABC", tokens[0].Feature)
}

func TestConnectionCostSteersPath(t *testing.T) {
	steep := func(right, left int) int16 {
		if right == 1 && left == 1 {
			return 35
		}
		return 0
	}
	d := buildTestDict(t, steep)
	// a+b would cost 10+35+10=55; "ab" costs 50.
	tokens, cost, err := d.Parse("ab")
	require.NoError(t, err)
	assert.Equal(t, int64(50), cost)
	assert.Equal(t, []string{"ab"}, surfaces(tokens))

	gentle := func(right, left int) int16 {
		if right == 1 && left == 1 {
			return 5
		}
		return 0
	}
	d = buildTestDict(t, gentle)
	tokens, cost, err = d.Parse("ab")
	require.NoError(t, err)
	assert.Equal(t, int64(25), cost)
	assert.Equal(t, []string{"a", "b"}, surfaces(tokens))
}

func TestUnknownWordLengths(t *testing.T) {
	d := buildTestDict(t, zeroCost)
	// No lexicon hits anywhere in "xyz"; ALPHA emits candidates of
	// lengths 1..3, and one three-letter unknown beats three singles.
	tokens, cost, err := d.Parse("xyz")
	require.NoError(t, err)
	assert.Equal(t, int64(3000), cost)
	require.Len(t, tokens, 1)
	assert.Equal(t, "xyz", tokens[0].Surface)
	assert.Equal(t, KindUnknown, tokens[0].Kind)
	assert.Equal(t, "UNK-ALPHA", tokens[0].Feature)
}

func TestUnknownGrouping(t *testing.T) {
	d := buildTestDict(t, zeroCost)
	// NUM groups: a digit run is one candidate, not per-length ones.
	tokens, _, err := d.Parse("2026")
	require.NoError(t, err)
	assert.Equal(t, []string{"2026"}, surfaces(tokens))
	assert.Equal(t, KindUnknown, tokens[0].Kind)
}

func TestInvokeCoexistsWithDictionaryHits(t *testing.T) {
	d := buildTestDict(t, zeroCost)
	// "1" is in the lexicon (cost 5) but NUM sets invoke, so the grouped
	// unknown "12" (2000) still competes and beats "1"+unknown "2" (2005).
	tokens, cost, err := d.Parse("12")
	require.NoError(t, err)
	assert.Equal(t, int64(2000), cost)
	assert.Equal(t, []string{"12"}, surfaces(tokens))
	assert.Equal(t, KindUnknown, tokens[0].Kind)

	// Alone, the dictionary entry wins.
	tokens, cost, err = d.Parse("1")
	require.NoError(t, err)
	assert.Equal(t, int64(5), cost)
	assert.Equal(t, KindSystem, tokens[0].Kind)
}

func TestDefaultCategoryGroupsRun(t *testing.T) {
	d := buildTestDict(t, zeroCost)
	tokens, cost, err := d.Parse("!?!")
	require.NoError(t, err)
	assert.Equal(t, []string{"!?!"}, surfaces(tokens))
	assert.Equal(t, int64(4000), cost)
}

func TestSingleCharFallbackKeepsCoverage(t *testing.T) {
	d := buildTestDict(t, zeroCost)
	// PUNCT has no grouping and no length candidates; without the
	// fallback "..." would be uncoverable.
	tokens, cost, err := d.Parse("...")
	require.NoError(t, err)
	assert.Equal(t, []string{".", ".", "."}, surfaces(tokens))
	assert.Equal(t, int64(1500), cost)
	for _, tok := range tokens {
		assert.Equal(t, "UNK-PUNCT", tok.Feature)
	}
}

func TestMixedInput(t *testing.T) {
	d := buildTestDict(t, zeroCost)
	tokens, _, err := d.Parse("ab12cd")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "12", "c", "d"}, surfaces(tokens))
	kinds := make([]TokenKind, len(tokens))
	for i, tok := range tokens {
		kinds[i] = tok.Kind
	}
	assert.Equal(t, []TokenKind{KindSystem, KindSystem, KindUnknown, KindSystem, KindUnknown}, kinds)
}

func TestEmptyInput(t *testing.T) {
	d := buildTestDict(t, zeroCost)
	tokens, cost, err := d.Parse("")
	require.NoError(t, err)
	assert.Empty(t, tokens)
	assert.Equal(t, int64(0), cost)
}

func TestInvalidUTF8(t *testing.T) {
	d := buildTestDict(t, zeroCost)
	_, _, err := d.Parse(string([]byte{0x61, 0xFF, 0xFE}))
	require.ErrorIs(t, err, ErrInvalidInput)
}

// referenceCosts enumerates the total cost of every segmentation
// constructible from the same candidate sets the lattice uses. Exponential;
// keep inputs short.
func referenceCosts(d *Dict, text string, p int, rightID uint16) []int64 {
	if p == len(text) {
		return []int64{int64(d.costs.Cost(rightID, sentinelContextID))}
	}
	type cand struct {
		end int
		e   dart.Entry
	}
	var cands []cand
	matches := d.sys.Lookup(text, p, nil)
	if d.user != nil {
		matches = d.user.Lookup(text, p, matches)
	}
	for _, m := range matches {
		cands = append(cands, cand{end: p + m.Length, e: m.Entry})
	}
	ends, templates := d.unknownCandidates(text, p, len(matches) == 0)
	for _, end := range ends {
		for _, e := range templates {
			cands = append(cands, cand{end: end, e: e})
		}
	}
	var out []int64
	for _, c := range cands {
		step := int64(d.costs.Cost(rightID, c.e.LeftID)) + int64(c.e.Cost)
		for _, rest := range referenceCosts(d, text, c.end, c.e.RightID) {
			out = append(out, step+rest)
		}
	}
	return out
}

func TestCostMinimalityAgainstBruteForce(t *testing.T) {
	bumpy := func(right, left int) int16 {
		return int16(11*right - 7*left + 3)
	}
	d := buildTestDict(t, bumpy)
	for _, text := range []string{"", "a", "abc", "abca", "xy1", "12ab", "a.b", "!a9", "abcabc"} {
		_, got, err := d.Parse(text)
		require.NoError(t, err, "text %q", text)
		all := referenceCosts(d, text, 0, sentinelContextID)
		require.NotEmpty(t, all, "text %q", text)
		min := all[0]
		for _, c := range all {
			if c < min {
				min = c
			}
		}
		assert.Equal(t, min, got, "text %q", text)
	}
}

func randomText(rng *rand.Rand) string {
	alphabet := []rune("abcxyz019.!日本")
	n := rng.Intn(12)
	var sb strings.Builder
	for i := 0; i < n; i++ {
		sb.WriteRune(alphabet[rng.Intn(len(alphabet))])
	}
	return sb.String()
}

func TestCoverageProperty(t *testing.T) {
	d := buildTestDict(t, zeroCost)
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 200; i++ {
		text := randomText(rng)
		tokens, _, err := d.Parse(text)
		require.NoError(t, err, "text %q", text)
		pos := 0
		for _, tok := range tokens {
			require.Equal(t, pos, tok.Start, "gap or overlap in %q", text)
			require.Greater(t, tok.End, tok.Start, "empty token in %q", text)
			require.Equal(t, text[tok.Start:tok.End], tok.Surface)
			pos = tok.End
		}
		require.Equal(t, len(text), pos, "input %q not fully covered", text)
	}
}

func TestDeterminism(t *testing.T) {
	d := buildTestDict(t, zeroCost)
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 50; i++ {
		text := randomText(rng)
		first, cost0, err := d.Parse(text)
		require.NoError(t, err)
		for run := 0; run < 3; run++ {
			again, cost, err := d.Parse(text)
			require.NoError(t, err)
			assert.Equal(t, cost0, cost, "cost varies across runs for %q", text)
			assert.Equal(t, first, again, "segmentation varies across runs for %q", text)
		}
	}
}

func TestLexerTokensMatchParse(t *testing.T) {
	d := buildTestDict(t, zeroCost)
	for _, text := range []string{"abc", "ab12cd", "x.y", "日本語"} {
		tokens, cost, err := d.Parse(text)
		require.NoError(t, err)
		lexer, lcost, err := d.ParseToLexerTokens(text)
		require.NoError(t, err)
		assert.Equal(t, cost, lcost)
		require.Len(t, lexer, len(tokens))
		for i, lt := range lexer {
			assert.Equal(t, tokens[i].Start, lt.Start)
			assert.Equal(t, tokens[i].End, lt.End)
			assert.Equal(t, tokens[i].Kind, lt.Kind)
			assert.Equal(t, tokens[i].Feature, d.Feature(lt))
		}
	}
}

func TestConcurrentParses(t *testing.T) {
	d := buildTestDict(t, zeroCost)
	d.PrepareFastMatrixCache()
	want, wantCost, err := d.Parse("ab12cd")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				got, cost, err := d.Parse("ab12cd")
				assert.NoError(t, err)
				assert.Equal(t, wantCost, cost)
				assert.Equal(t, want, got)
			}
		}()
	}
	wg.Wait()
}
