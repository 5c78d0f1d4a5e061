// Package charcat decodes the character-category table that drives
// unknown-word generation.
//
// The binary table maps every BMP code point to a packed descriptor:
// a compatibility mask over categories, the default category id, and the
// per-category generation policy (invoke / group / max grouping length).
// Code points outside the BMP fall back to the descriptor of code point 0,
// which published dictionaries leave in the default category.
package charcat

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/npillmayer/morphseg/blob"
)

// ErrFormat is wrapped by every decoding error in this package.
var ErrFormat = errors.New("charcat: malformed category table")

const (
	nameSize   = 32     // NUL-padded category name cell
	numEntries = 0xFFFF // one packed descriptor per BMP code point
)

// Info describes one code point's category assignment.
type Info struct {
	Category uint8  // default category id, indexes Table names
	Mask     uint32 // compatibility bitmask over category ids
	Length   uint8  // maximum code points consumed by length-based candidates
	Group    bool   // consume the longest same-category run as one candidate
	Invoke   bool   // generate candidates even when the lexicon has hits
}

// Table is a decoded, immutable category table. Safe for concurrent use.
type Table struct {
	names []string
	infos []uint32
}

// Load decodes a category-table buffer: u32 category count, the category
// names in 32-byte cells, then one u32 descriptor per BMP code point.
func Load(b blob.Blob) (*Table, error) {
	if len(b) < 4 {
		return nil, fmt.Errorf("%w: truncated header (%d bytes)", ErrFormat, len(b))
	}
	count := binary.LittleEndian.Uint32(b[0:])
	if count == 0 || count > 0x100 {
		return nil, fmt.Errorf("%w: implausible category count %d", ErrFormat, count)
	}
	want := 4 + int(count)*nameSize + numEntries*4
	if len(b) != want {
		return nil, fmt.Errorf("%w: %d categories need %d bytes, buffer has %d", ErrFormat, count, want, len(b))
	}
	t := &Table{
		names: make([]string, count),
		infos: make([]uint32, numEntries),
	}
	for i := range t.names {
		cell := b[4+i*nameSize : 4+(i+1)*nameSize]
		name := cstr(cell)
		if name == "" {
			return nil, fmt.Errorf("%w: category %d has an empty name", ErrFormat, i)
		}
		t.names[i] = name
	}
	body := b[4+int(count)*nameSize:]
	for i := range t.infos {
		t.infos[i] = binary.LittleEndian.Uint32(body[i*4:])
		if cat := unpack(t.infos[i]).Category; uint32(cat) >= count {
			return nil, fmt.Errorf("%w: code point U+%04X assigned to category %d of %d", ErrFormat, i, cat, count)
		}
	}
	return t, nil
}

// Info returns the category descriptor for a code point.
func (t *Table) Info(r rune) Info {
	return unpack(t.raw(r))
}

// Compatible reports whether r belongs to the category set of info, which
// is how same-category runs are detected during grouping.
func (t *Table) Compatible(info Info, r rune) bool {
	return info.Mask&unpack(t.raw(r)).Mask != 0
}

// Name returns the category name for an id produced by Info.
func (t *Table) Name(id uint8) string { return t.names[id] }

// Names lists all category names in id order.
func (t *Table) Names() []string { return t.names }

func (t *Table) raw(r rune) uint32 {
	if r >= 0 && r < numEntries {
		return t.infos[r]
	}
	return t.infos[0]
}

// unpack splits the on-disk descriptor bitfield: bits 0..17 compatibility
// mask, 18..25 default category, 26..29 length, 30 group, 31 invoke.
func unpack(v uint32) Info {
	return Info{
		Mask:     v & 0x3FFFF,
		Category: uint8(v >> 18),
		Length:   uint8(v >> 26 & 0xF),
		Group:    v>>30&1 == 1,
		Invoke:   v>>31&1 == 1,
	}
}

func cstr(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
