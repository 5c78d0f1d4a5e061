package morphseg

import (
	"errors"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/npillmayer/morphseg/blob"
	"github.com/npillmayer/morphseg/charcat"
	"github.com/npillmayer/morphseg/dart"
	"github.com/npillmayer/morphseg/matrix"
)

// ErrInconsistent marks a dictionary set whose tables disagree with each
// other (for example a lexicon record whose context id does not index the
// connection matrix). Such sets are rejected by Load, never deferred to
// parse time.
var ErrInconsistent = errors.New("morphseg: inconsistent dictionary set")

// Dict aggregates the decoded dictionary tables into one immutable handle.
// Once Load succeeds, a Dict is safe for concurrent read-only use; no parse
// call mutates it.
type Dict struct {
	sys   *dart.Dict
	user  *dart.Dict // nil when no user dictionary was supplied
	unk   *dart.Dict
	chars *charcat.Table
	mtx   *matrix.Matrix
	costs matrix.CostSource
}

// Load decodes and cross-validates the four required dictionary buffers.
func Load(sysdic, unkdic, costs, chardef blob.Blob) (*Dict, error) {
	return load(sysdic, unkdic, costs, chardef, nil)
}

// LoadWithUser additionally decodes a user dictionary. User entries are an
// equally weighted second source next to the system dictionary; their costs
// are taken as stored, with no rewriting.
func LoadWithUser(sysdic, unkdic, costs, chardef, userdic blob.Blob) (*Dict, error) {
	if userdic == nil {
		return nil, fmt.Errorf("%w: user dictionary buffer is nil", ErrInconsistent)
	}
	return load(sysdic, unkdic, costs, chardef, userdic)
}

func load(sysdic, unkdic, costs, chardef, userdic blob.Blob) (*Dict, error) {
	d := &Dict{}
	var g errgroup.Group
	g.Go(func() (err error) {
		if d.sys, err = dart.Load(sysdic); err != nil {
			return fmt.Errorf("system dictionary: %w", err)
		}
		return nil
	})
	g.Go(func() (err error) {
		if d.unk, err = dart.Load(unkdic); err != nil {
			return fmt.Errorf("unknown-word dictionary: %w", err)
		}
		return nil
	})
	g.Go(func() (err error) {
		if d.mtx, err = matrix.Load(costs); err != nil {
			return fmt.Errorf("connection matrix: %w", err)
		}
		return nil
	})
	g.Go(func() (err error) {
		if d.chars, err = charcat.Load(chardef); err != nil {
			return fmt.Errorf("character categories: %w", err)
		}
		return nil
	})
	if userdic != nil {
		g.Go(func() (err error) {
			if d.user, err = dart.Load(userdic); err != nil {
				return fmt.Errorf("user dictionary: %w", err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := d.validate(); err != nil {
		return nil, err
	}
	d.costs = d.mtx
	return d, nil
}

// validate checks structural consistency across the decoded tables. Every
// context id used during a parse must be guaranteed to index the matrix,
// and every character category must have unknown-word template records.
func (d *Dict) validate() error {
	left, right := d.mtx.Dims()
	for _, dic := range []*dart.Dict{d.sys, d.user, d.unk} {
		if dic == nil {
			continue
		}
		if int(dic.LeftContexts()) != left || int(dic.RightContexts()) != right {
			return fmt.Errorf("%w: %s dictionary declares %dx%d contexts, matrix is %dx%d",
				ErrInconsistent, dic.Type(), dic.LeftContexts(), dic.RightContexts(), left, right)
		}
		for i, e := range dic.Records() {
			if int(e.LeftID) >= left || int(e.RightID) >= right {
				return fmt.Errorf("%w: %s dictionary record %d has context ids (%d,%d), matrix is %dx%d",
					ErrInconsistent, dic.Type(), i, e.LeftID, e.RightID, left, right)
			}
		}
	}
	for _, name := range d.chars.Names() {
		if len(d.unk.EntriesFor(name)) == 0 {
			return fmt.Errorf("%w: category %q has no unknown-word template", ErrInconsistent, name)
		}
	}
	return nil
}

// PrepareFullMatrixCache precomputes the entire connection-cost table.
// Attach caches before sharing the Dict between goroutines; after that the
// cache is read-only and safe for concurrent lookups.
func (d *Dict) PrepareFullMatrixCache() {
	d.costs = matrix.NewFullCache(d.mtx)
}

// PrepareFastMatrixCache precomputes costs for the context-id pairs that
// dominate lookups, falling back to the direct table for the rest. The
// selection heuristic may change between versions; only value-identity with
// uncached lookups is contractual. Attach before sharing the Dict.
func (d *Dict) PrepareFastMatrixCache() {
	rights, lefts := d.frequentContextIDs()
	d.costs = matrix.NewFastCache(d.mtx, rights, lefts)
}

// fastCacheSide bounds the precomputed sub-table to at most 256x256 pairs.
const fastCacheSide = 256

// frequentContextIDs ranks context ids by how many records carry them.
// Id 0 leads both lists unconditionally: the sentinels use it on every
// parse.
func (d *Dict) frequentContextIDs() (rights, lefts []uint16) {
	numLeft, numRight := d.mtx.Dims()
	leftFreq := make([]int, numLeft)
	rightFreq := make([]int, numRight)
	for _, dic := range []*dart.Dict{d.sys, d.user, d.unk} {
		if dic == nil {
			continue
		}
		for _, e := range dic.Records() {
			leftFreq[e.LeftID]++
			rightFreq[e.RightID]++
		}
	}
	return rankIDs(rightFreq), rankIDs(leftFreq)
}

func rankIDs(freq []int) []uint16 {
	ids := make([]uint16, len(freq))
	for i := range ids {
		ids[i] = uint16(i)
	}
	sort.SliceStable(ids, func(a, b int) bool {
		if ids[a] == 0 || ids[b] == 0 {
			return ids[a] == 0
		}
		return freq[ids[a]] > freq[ids[b]]
	})
	if len(ids) > fastCacheSide {
		ids = ids[:fastCacheSide]
	}
	return ids
}

// Feature resolves a LexerToken's feature string from the owning
// dictionary's blob. The returned string is materialized on each call.
func (d *Dict) Feature(t LexerToken) string {
	switch t.Kind {
	case KindUser:
		return d.user.Feature(t.FeatureOffset, t.FeatureLen)
	case KindUnknown:
		return d.unk.Feature(t.FeatureOffset, t.FeatureLen)
	default:
		return d.sys.Feature(t.FeatureOffset, t.FeatureLen)
	}
}
