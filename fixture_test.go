package morphseg

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/npillmayer/morphseg/blob"
	"github.com/npillmayer/morphseg/internal/dictest"
)

// The synthetic dictionary set used throughout the package tests:
// three context ids (0 is the sentinel id), a handful of ASCII surfaces,
// and four character categories exercising every generation policy.

func testCategories() []dictest.Category {
	return []dictest.Category{
		{Name: "DEFAULT", Invoke: false, Group: true, Length: 0},
		{Name: "ALPHA", Invoke: false, Group: false, Length: 3},
		{Name: "NUM", Invoke: true, Group: true, Length: 0},
		{Name: "PUNCT", Invoke: false, Group: false, Length: 0},
	}
}

func testAssign(r rune) int {
	switch {
	case r >= 'a' && r <= 'z':
		return 1
	case r >= '0' && r <= '9':
		return 2
	case r == '.':
		return 3
	}
	return 0
}

func testSysEntries() map[string][]dictest.Record {
	return map[string][]dictest.Record{
		"a":   {{Left: 1, Right: 1, Cost: 10, Feature: "A"}},
		"ab":  {{Left: 1, Right: 1, Cost: 50, Feature: "AB"}},
		"abc": {{Left: 1, Right: 2, Cost: 20, Feature: "ABC"}},
		"b":   {{Left: 1, Right: 1, Cost: 10, Feature: "B"}},
		"bc":  {{Left: 1, Right: 1, Cost: 15, Feature: "BC"}},
		"c":   {{Left: 1, Right: 1, Cost: 10, Feature: "C"}},
		"1":   {{Left: 1, Right: 1, Cost: 5, Feature: "ONE"}},
	}
}

func testUnkEntries() map[string][]dictest.Record {
	return map[string][]dictest.Record{
		"DEFAULT": {{Left: 1, Right: 1, Cost: 4000, Feature: "UNK-DEFAULT"}},
		"ALPHA":   {{Left: 1, Right: 1, Cost: 3000, Feature: "UNK-ALPHA"}},
		"NUM":     {{Left: 2, Right: 2, Cost: 2000, Feature: "UNK-NUM"}},
		"PUNCT":   {{Left: 1, Right: 1, Cost: 500, Feature: "UNK-PUNCT"}},
	}
}

func zeroCost(right, left int) int16 { return 0 }

func testBuffers(cost func(right, left int) int16) (sys, unk, mtx, chars blob.Blob) {
	sys = blob.FromBytes(dictest.BuildDic(dictest.DicSpec{
		Type:          0,
		LeftContexts:  3,
		RightContexts: 3,
		Entries:       testSysEntries(),
	}))
	unk = blob.FromBytes(dictest.BuildDic(dictest.DicSpec{
		Type:          2,
		LeftContexts:  3,
		RightContexts: 3,
		Entries:       testUnkEntries(),
	}))
	mtx = blob.FromBytes(dictest.BuildMatrix(3, 3, cost))
	chars = blob.FromBytes(dictest.BuildCharDef(testCategories(), testAssign))
	return
}

func buildTestDict(t *testing.T, cost func(right, left int) int16) *Dict {
	t.Helper()
	d, err := Load(testBuffers(cost))
	require.NoError(t, err)
	return d
}

func surfaces(tokens []Token) []string {
	out := make([]string, len(tokens))
	for i, tok := range tokens {
		out[i] = tok.Surface
	}
	return out
}
