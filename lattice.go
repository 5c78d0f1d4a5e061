package morphseg

import (
	"errors"
	"math"
	"unicode/utf8"

	"github.com/npillmayer/morphseg/dart"
)

// ErrInvalidInput is returned when the text to parse is not valid UTF-8.
var ErrInvalidInput = errors.New("morphseg: input is not valid UTF-8")

// ErrLatticeDisconnected is returned when no candidate sequence connects
// the start of the input to its end. The unknown-word fallback guarantees
// this cannot happen for a validated dictionary set; seeing it means an
// internal invariant was violated.
var ErrLatticeDisconnected = errors.New("morphseg: lattice does not connect start to end")

// sentinelContextID is the context id of the BOS and EOS sentinels.
const sentinelContextID = 0

// maxGroupRun caps grouping: runs longer than this many code points do not
// produce a group candidate.
const maxGroupRun = 24

// unreached is the cumulative cost of a node with no predecessor yet.
const unreached = int64(math.MaxInt64)

// latticeNode is one candidate morpheme spanning [start,end) of the input,
// together with its DP cell: the best cumulative cost from the
// beginning-of-sentence sentinel and the arena index of the predecessor
// achieving it. Nodes live in a per-parse arena and are relaxed exactly
// once, at creation time, after all possible predecessors are final.
type latticeNode struct {
	start   int
	end     int
	leftID  uint16
	rightID uint16
	cost    int16
	kind    TokenKind
	featOff uint32
	featLen uint32
	total   int64
	prev    int32
}

// lattice is the per-parse working state. It is owned by exactly one parse
// call and never shared.
type lattice struct {
	dict   *Dict
	text   string
	nodes  []latticeNode
	endsAt [][]int32 // arena indices of nodes ending at each byte position
	hits   []dart.Match
}

// Parse segments text into morphemes with materialized surface and feature
// strings, returning the token sequence and its total path cost.
func (d *Dict) Parse(text string) ([]Token, int64, error) {
	path, cost, err := d.search(text)
	if err != nil {
		return nil, 0, err
	}
	tokens := make([]Token, len(path))
	for i, n := range path {
		tokens[i] = Token{
			Surface: text[n.start:n.end],
			Start:   n.start,
			End:     n.end,
			Kind:    n.kind,
			Feature: d.Feature(LexerToken{Kind: n.kind, FeatureOffset: n.featOff, FeatureLen: n.featLen}),
		}
	}
	return tokens, cost, nil
}

// ParseToLexerTokens segments text without materializing any strings.
// Feature text can be resolved lazily through Dict.Feature.
func (d *Dict) ParseToLexerTokens(text string) ([]LexerToken, int64, error) {
	path, cost, err := d.search(text)
	if err != nil {
		return nil, 0, err
	}
	tokens := make([]LexerToken, len(path))
	for i, n := range path {
		tokens[i] = LexerToken{
			Start:         n.start,
			End:           n.end,
			Kind:          n.kind,
			LeftID:        n.leftID,
			RightID:       n.rightID,
			Cost:          n.cost,
			FeatureOffset: n.featOff,
			FeatureLen:    n.featLen,
		}
	}
	return tokens, cost, nil
}

// search builds the lattice in a single left-to-right sweep and backtracks
// the minimum-cost path. The returned nodes are in input order and exclude
// the sentinels; the returned cost includes the connection to both
// sentinels.
func (d *Dict) search(text string) ([]latticeNode, int64, error) {
	if !utf8.ValidString(text) {
		return nil, 0, ErrInvalidInput
	}
	la := lattice{
		dict:   d,
		text:   text,
		nodes:  make([]latticeNode, 1, 2+4*len(text)),
		endsAt: make([][]int32, len(text)+1),
	}
	la.nodes[0] = latticeNode{prev: -1} // BOS: zero-width, context id 0, cost 0
	la.endsAt[0] = append(la.endsAt[0], 0)

	for p := 0; p < len(text); {
		_, runeLen := utf8.DecodeRuneInString(text[p:])
		if len(la.endsAt[p]) == 0 {
			p += runeLen
			continue
		}
		la.hits = la.hits[:0]
		la.hits = d.sys.Lookup(text, p, la.hits)
		sysHits := len(la.hits)
		if d.user != nil {
			la.hits = d.user.Lookup(text, p, la.hits)
		}
		for i, m := range la.hits {
			kind := KindSystem
			if i >= sysHits {
				kind = KindUser
			}
			la.add(p, p+m.Length, m.Entry, kind)
		}
		la.generateUnknown(p, len(la.hits) == 0)
		p += runeLen
	}

	// Connect everything ending at the end of the input to EOS.
	best := unreached
	bestPrev := int32(-1)
	for _, idx := range la.endsAt[len(text)] {
		n := &la.nodes[idx]
		c := n.total + int64(d.costs.Cost(n.rightID, sentinelContextID))
		if c < best {
			best = c
			bestPrev = idx
		}
	}
	if bestPrev < 0 {
		tracer().Errorf("lattice disconnected for %d-byte input", len(text))
		return nil, 0, ErrLatticeDisconnected
	}
	var path []latticeNode
	for idx := bestPrev; idx != 0; idx = la.nodes[idx].prev {
		path = append(path, la.nodes[idx])
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	tracer().Debugf("parsed %d bytes: %d lattice nodes, %d tokens, cost %d",
		len(text), len(la.nodes)-1, len(path), best)
	return path, best, nil
}

// add places a candidate node at [start,end) and relaxes it against every
// finalized node ending at start. Ties keep the first minimum encountered;
// the choice among equal-cost predecessors is arbitrary.
func (la *lattice) add(start, end int, e dart.Entry, kind TokenKind) {
	n := latticeNode{
		start:   start,
		end:     end,
		leftID:  e.LeftID,
		rightID: e.RightID,
		cost:    e.Cost,
		kind:    kind,
		featOff: e.FeatureOffset,
		featLen: e.FeatureLen,
		total:   unreached,
		prev:    -1,
	}
	for _, pi := range la.endsAt[start] {
		p := &la.nodes[pi]
		c := p.total + int64(la.dict.costs.Cost(p.rightID, n.leftID)) + int64(n.cost)
		if c < n.total {
			n.total = c
			n.prev = pi
		}
	}
	idx := int32(len(la.nodes))
	la.nodes = append(la.nodes, n)
	la.endsAt[end] = append(la.endsAt[end], idx)
}

// generateUnknown synthesizes unknown-word candidates at byte position p.
func (la *lattice) generateUnknown(p int, noHits bool) {
	ends, templates := la.dict.unknownCandidates(la.text, p, noHits)
	for _, end := range ends {
		for _, e := range templates {
			la.add(p, end, e, KindUnknown)
		}
	}
}

// unknownCandidates determines the unknown-word candidates at byte position
// p for the code point's default category: the end positions of the
// candidate spans and the category's template entries. Generation runs when
// the category demands it (invoke) or when the lexicon had no hit at p; in
// the latter case at least one candidate is guaranteed, which keeps every
// position coverable.
func (d *Dict) unknownCandidates(text string, p int, noHits bool) (ends []int, templates []dart.Entry) {
	r, firstLen := utf8.DecodeRuneInString(text[p:])
	info := d.chars.Info(r)
	if !info.Invoke && !noHits {
		return nil, nil
	}

	// One scan over the same-category run collects the candidate end
	// positions: lengths 1..info.Length, plus the whole run if grouping
	// applies. The scan stops one code point past maxGroupRun, which is
	// enough to rule the group candidate out.
	q := p + firstLen
	runes := 1
	if info.Length >= 1 {
		ends = append(ends, q)
	}
	for q < len(text) && runes <= maxGroupRun {
		r2, sz := utf8.DecodeRuneInString(text[q:])
		if !d.chars.Compatible(info, r2) {
			break
		}
		q += sz
		runes++
		if runes <= int(info.Length) {
			ends = append(ends, q)
		}
	}
	if info.Group && runes <= maxGroupRun {
		if len(ends) == 0 || ends[len(ends)-1] != q {
			ends = append(ends, q)
		}
	}
	if len(ends) == 0 {
		if !noHits {
			return nil, nil
		}
		// Coverage fallback: a single code point, so that a position with
		// no lexicon hit always has an outgoing node.
		ends = append(ends, p+firstLen)
	}
	return ends, d.unk.EntriesFor(d.chars.Name(info.Category))
}
