// Package dart decodes MeCab binary dictionaries.
//
// A dictionary file stores a double-array trie over UTF-8 surface forms, a
// fixed-size record array with context ids and emission costs, and a blob
// of NUL-terminated feature strings. Decoding validates the whole structure
// eagerly and flattens the automaton into an in-memory prefix index, so
// lookups after a successful Load can no longer fail.
//
// The same format is used for system, user and unknown-word dictionaries;
// unknown-word dictionaries key their records by character-category name
// instead of by surface form.
package dart

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	dtrie "github.com/derekparker/trie"
	"github.com/npillmayer/morphseg/blob"
)

// ErrFormat is wrapped by every decoding error in this package.
var ErrFormat = errors.New("dart: malformed dictionary")

// magicSeed is XOR-ed with the total file size to form the stored magic.
const magicSeed = 0xEF718F77

// formatVersion is the only dictionary format revision we decode.
const formatVersion = 0x66

const (
	headerSize = 0x48
	linkSize   = 8  // base u32 + check u32
	recordSize = 16 // left u16, right u16, pos u16, cost i16, feature u32, compound u32
)

// Type tags the dictionary kind declared in the header. It is informational;
// the format is identical for all three kinds.
type Type uint32

const (
	TypeSystem Type = iota
	TypeUser
	TypeUnknown
)

func (t Type) String() string {
	switch t {
	case TypeSystem:
		return "system"
	case TypeUser:
		return "user"
	case TypeUnknown:
		return "unknown"
	}
	return fmt.Sprintf("type(%d)", uint32(t))
}

// Entry is one lexicon record: context ids for the connection matrix, the
// emission cost, and the span of the record's feature string in the blob.
// FeatureLen is not stored on disk; it is precomputed at load time.
type Entry struct {
	LeftID        uint16
	RightID       uint16
	POSID         uint16
	Cost          int16
	FeatureOffset uint32
	FeatureLen    uint32
}

// Match is one prefix hit: Length is the surface length in bytes, counted
// from the lookup position.
type Match struct {
	Length int
	Entry  Entry
}

// span addresses a run of records sharing one surface form.
type span struct {
	first uint32
	count uint32
}

// Dict is a decoded, immutable dictionary. It is safe for concurrent use.
type Dict struct {
	typ           Type
	leftContexts  uint32
	rightContexts uint32
	entries       []Entry
	index         *dtrie.Trie
	features      []byte
	surfaces      int
	maxSurface    int // longest surface form in bytes
}

// Load decodes a dictionary buffer. All structural validation happens here:
// magic/version/charset checks, link-walk validity, record spans, feature
// offsets. Any inconsistency returns an error wrapping ErrFormat.
func Load(b blob.Blob) (*Dict, error) {
	if len(b) < headerSize {
		return nil, fmt.Errorf("%w: truncated header (%d bytes)", ErrFormat, len(b))
	}
	magic := binary.LittleEndian.Uint32(b[0x00:])
	if magic^magicSeed != uint32(len(b)) {
		return nil, fmt.Errorf("%w: magic mismatch (not a dictionary, or truncated)", ErrFormat)
	}
	if version := binary.LittleEndian.Uint32(b[0x04:]); version != formatVersion {
		return nil, fmt.Errorf("%w: unsupported format version 0x%x", ErrFormat, version)
	}
	typ := Type(binary.LittleEndian.Uint32(b[0x08:]))
	// 0x0C holds a lexeme count we have no use for.
	left := binary.LittleEndian.Uint32(b[0x10:])
	right := binary.LittleEndian.Uint32(b[0x14:])
	dsize := binary.LittleEndian.Uint32(b[0x18:])
	tsize := binary.LittleEndian.Uint32(b[0x1C:])
	fsize := binary.LittleEndian.Uint32(b[0x20:])
	// 0x24 is reserved.
	if dsize%linkSize != 0 {
		return nil, fmt.Errorf("%w: double-array block size %d is not a multiple of %d", ErrFormat, dsize, linkSize)
	}
	if tsize%recordSize != 0 {
		return nil, fmt.Errorf("%w: record block size %d is not a multiple of %d", ErrFormat, tsize, recordSize)
	}
	charset := cstr(b[0x28:headerSize])
	switch strings.ToUpper(charset) {
	case "UTF-8", "UTF8":
	default:
		return nil, fmt.Errorf("%w: unsupported charset %q (only UTF-8 dictionaries are supported)", ErrFormat, charset)
	}
	want := uint64(headerSize) + uint64(dsize) + uint64(tsize) + uint64(fsize)
	if want != uint64(len(b)) {
		return nil, fmt.Errorf("%w: section sizes add up to %d bytes, buffer has %d", ErrFormat, want, len(b))
	}

	links := []byte(b[headerSize : headerSize+dsize])
	records := []byte(b[headerSize+dsize : headerSize+dsize+tsize])
	features := []byte(b[headerSize+dsize+tsize:])

	d := &Dict{
		typ:           typ,
		leftContexts:  left,
		rightContexts: right,
		entries:       make([]Entry, tsize/recordSize),
		index:         dtrie.New(),
		features:      features,
	}
	for i := range d.entries {
		rec := records[i*recordSize:]
		off := binary.LittleEndian.Uint32(rec[8:])
		flen, err := featureLen(features, off)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		d.entries[i] = Entry{
			LeftID:        binary.LittleEndian.Uint16(rec[0:]),
			RightID:       binary.LittleEndian.Uint16(rec[2:]),
			POSID:         binary.LittleEndian.Uint16(rec[4:]),
			Cost:          int16(binary.LittleEndian.Uint16(rec[6:])),
			FeatureOffset: off,
			FeatureLen:    flen,
		}
	}
	w := walker{links: links, numLinks: int(dsize / linkSize), dict: d}
	if w.numLinks > 0 {
		if err := w.visit(w.base(0), make([]byte, 0, 64), 0); err != nil {
			return nil, err
		}
	}
	tracer().Infof("loaded %s dictionary: %d surfaces, %d records, contexts %dx%d",
		typ, d.surfaces, len(d.entries), left, right)
	return d, nil
}

// walker flattens the double-array automaton into the prefix index.
// A state is identified by its base value; the transition on byte c leads
// to slot base+1+c and is valid iff that slot's check equals the state.
// A state accepts iff its own slot points back at it with the high bit of
// base set; the complement of base then encodes (first<<8 | count) into
// the record array.
type walker struct {
	links    []byte
	numLinks int
	dict     *Dict
}

func (w *walker) base(i uint32) uint32 {
	return binary.LittleEndian.Uint32(w.links[i*linkSize:])
}

func (w *walker) check(i uint32) uint32 {
	return binary.LittleEndian.Uint32(w.links[i*linkSize+4:])
}

func (w *walker) validLink(from, to uint32) bool {
	return int(to) < w.numLinks && w.check(to) == from && w.base(to) != from
}

func (w *walker) visit(state uint32, key []byte, depth int) error {
	if depth > w.numLinks {
		return fmt.Errorf("%w: cycle in double-array link table", ErrFormat)
	}
	if w.validLink(state, state) && w.base(state) >= 0x8000_0000 {
		if err := w.accept(state, key); err != nil {
			return err
		}
	}
	for c := uint32(0); c < 0x100; c++ {
		to := state + 1 + c
		if !w.validLink(state, to) {
			continue
		}
		if err := w.visit(w.base(to), append(key, byte(c)), depth+1); err != nil {
			return err
		}
	}
	return nil
}

func (w *walker) accept(state uint32, key []byte) error {
	value := ^w.base(state)
	sp := span{first: value >> 8, count: value & 0xFF}
	if sp.count == 0 || uint64(sp.first)+uint64(sp.count) > uint64(len(w.dict.entries)) {
		return fmt.Errorf("%w: surface %q references records [%d,%d) outside the record array",
			ErrFormat, key, sp.first, sp.first+sp.count)
	}
	if !utf8.Valid(key) {
		return fmt.Errorf("%w: surface form is not valid UTF-8", ErrFormat)
	}
	w.dict.index.Add(string(key), sp)
	w.dict.surfaces++
	if len(key) > w.dict.maxSurface {
		w.dict.maxSurface = len(key)
	}
	return nil
}

// featureLen scans the blob for the record's NUL terminator. An offset past
// the blob is a structural error; a missing terminator ends at the blob.
func featureLen(features []byte, off uint32) (uint32, error) {
	if uint64(off) > uint64(len(features)) {
		return 0, fmt.Errorf("%w: feature offset %d beyond blob of %d bytes", ErrFormat, off, len(features))
	}
	for i := off; i < uint32(len(features)); i++ {
		if features[i] == 0 {
			return i - off, nil
		}
	}
	return uint32(len(features)) - off, nil
}

// Lookup appends to dst all entries whose surface form is a prefix of text
// starting at byte position pos. Prefixes are probed at rune boundaries
// only; the internal order of appended matches is unspecified.
func (d *Dict) Lookup(text string, pos int, dst []Match) []Match {
	rest := text[pos:]
	limit := len(rest)
	if d.maxSurface < limit {
		limit = d.maxSurface
	}
	for l := 0; l < limit; {
		_, size := utf8.DecodeRuneInString(rest[l:])
		l += size
		prefix := rest[:l]
		if node, ok := d.index.Find(prefix); ok {
			sp := node.Meta().(span)
			for i := sp.first; i < sp.first+sp.count; i++ {
				dst = append(dst, Match{Length: l, Entry: d.entries[i]})
			}
		}
		if !d.index.HasKeysWithPrefix(prefix) {
			break
		}
	}
	return dst
}

// EntriesFor returns the records stored under an exact surface form, or nil.
// Unknown-word dictionaries are queried this way, by category name.
func (d *Dict) EntriesFor(surface string) []Entry {
	node, ok := d.index.Find(surface)
	if !ok {
		return nil
	}
	sp := node.Meta().(span)
	return d.entries[sp.first : sp.first+sp.count]
}

// Feature materializes the feature string at the given blob span.
func (d *Dict) Feature(off, length uint32) string {
	return string(d.features[off : off+length])
}

// Records exposes the decoded record array, read-only, for cross-table
// validation and cache warm-up.
func (d *Dict) Records() []Entry { return d.entries }

// Type reports the dictionary kind declared in the header.
func (d *Dict) Type() Type { return d.typ }

// LeftContexts reports the left-context cardinality declared in the header.
func (d *Dict) LeftContexts() uint32 { return d.leftContexts }

// RightContexts reports the right-context cardinality declared in the header.
func (d *Dict) RightContexts() uint32 { return d.rightContexts }

// Surfaces reports the number of distinct surface forms.
func (d *Dict) Surfaces() int { return d.surfaces }

func cstr(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
