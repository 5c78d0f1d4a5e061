// Package matrix decodes the dense connection-cost table and provides the
// cost-lookup capability consumed by the lattice search.
//
// The table is addressed by (right-context id of the predecessor,
// left-context id of the successor). Two optional caching layers sit in
// front of the direct decode; both are read-only after construction and
// return values bit-identical to direct lookups.
package matrix

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/npillmayer/morphseg/blob"
)

// ErrFormat is wrapped by every decoding error in this package.
var ErrFormat = errors.New("matrix: malformed cost table")

// CostSource is the connection-cost lookup capability. The lattice search
// depends only on this contract, never on which strategy backs it.
type CostSource interface {
	// Cost returns the transition cost for adjoining a morpheme whose
	// right-context id is right with a successor whose left-context id
	// is left. Ids must have been validated against Dims at load time.
	Cost(right, left uint16) int16
}

// Matrix is the directly decoded cost table. Lookups read the little-endian
// buffer in place; nothing beyond the buffer reference is retained.
type Matrix struct {
	numLeft  int
	numRight int
	raw      []byte // cost cells only, header stripped
}

// Load decodes a matrix buffer: u16 left cardinality, u16 right
// cardinality, then left*right little-endian i16 costs.
func Load(b blob.Blob) (*Matrix, error) {
	if len(b) < 4 {
		return nil, fmt.Errorf("%w: truncated header (%d bytes)", ErrFormat, len(b))
	}
	numLeft := int(binary.LittleEndian.Uint16(b[0:]))
	numRight := int(binary.LittleEndian.Uint16(b[2:]))
	if numLeft == 0 || numRight == 0 {
		return nil, fmt.Errorf("%w: empty id space %dx%d", ErrFormat, numLeft, numRight)
	}
	want := 4 + 2*numLeft*numRight
	if len(b) != want {
		return nil, fmt.Errorf("%w: %dx%d table needs %d bytes, buffer has %d", ErrFormat, numLeft, numRight, want, len(b))
	}
	// The reference layout indexes cells as right + numLeft*left. For the
	// square tables every published dictionary ships this always fits; a
	// non-square table where it would not is rejected here rather than
	// risking an out-of-range read later.
	maxIndex := (numRight - 1) + numLeft*(numLeft-1)
	if maxIndex >= numLeft*numRight {
		return nil, fmt.Errorf("%w: %dx%d table cannot address all id pairs", ErrFormat, numLeft, numRight)
	}
	return &Matrix{numLeft: numLeft, numRight: numRight, raw: []byte(b[4:])}, nil
}

// Dims returns the (left, right) context-id cardinalities.
func (m *Matrix) Dims() (left, right int) { return m.numLeft, m.numRight }

// Cost implements CostSource by reading the buffer in place.
func (m *Matrix) Cost(right, left uint16) int16 {
	idx := int(right) + m.numLeft*int(left)
	return int16(binary.LittleEndian.Uint16(m.raw[2*idx:]))
}
