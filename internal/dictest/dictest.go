// Package dictest assembles synthetic dictionary buffers for tests.
//
// The builders emit the exact on-disk layouts the decoders expect: the
// double-array dictionary format (header, base/check units, 16-byte
// records, feature blob), the dense connection matrix, and the packed
// character-category table. They are intentionally simple and slow; they
// exist so tests can exercise bit-exact decoding without fixture files.
package dictest

import (
	"encoding/binary"
	"fmt"
	"sort"
)

const magicSeed = 0xEF718F77

// Record is one lexicon record to be stored under a surface form.
type Record struct {
	Left    uint16
	Right   uint16
	POS     uint16
	Cost    int16
	Feature string
}

// DicSpec describes a dictionary buffer to build.
type DicSpec struct {
	Type          uint32 // 0 system, 1 user, 2 unknown
	LeftContexts  uint32
	RightContexts uint32
	Entries       map[string][]Record // surface form -> records
}

// BuildDic assembles a dictionary buffer. Surfaces are processed in sorted
// order so the output is deterministic.
func BuildDic(spec DicSpec) []byte {
	surfaces := make([]string, 0, len(spec.Entries))
	for s := range spec.Entries {
		surfaces = append(surfaces, s)
	}
	sort.Strings(surfaces)

	// Flatten records and assign each surface its (first<<8 | count) value.
	var records []Record
	values := make(map[string]uint32, len(surfaces))
	for _, s := range surfaces {
		recs := spec.Entries[s]
		if len(s) == 0 || len(recs) == 0 || len(recs) > 0xFF {
			panic(fmt.Sprintf("dictest: bad entry for surface %q", s))
		}
		values[s] = uint32(len(records))<<8 | uint32(len(recs))
		records = append(records, recs...)
	}

	// Feature blob: every record's feature string, NUL terminated.
	var features []byte
	offsets := make([]uint32, len(records))
	for i, r := range records {
		offsets[i] = uint32(len(features))
		features = append(features, r.Feature...)
		features = append(features, 0)
	}

	links := buildDoubleArray(surfaces, values)

	body := make([]byte, 0, 0x48+8*len(links)+16*len(records)+len(features))
	body = appendU32(body, 0) // magic, patched below
	body = appendU32(body, 0x66)
	body = appendU32(body, spec.Type)
	body = appendU32(body, uint32(len(surfaces)))
	body = appendU32(body, spec.LeftContexts)
	body = appendU32(body, spec.RightContexts)
	body = appendU32(body, uint32(8*len(links)))
	body = appendU32(body, uint32(16*len(records)))
	body = appendU32(body, uint32(len(features)))
	body = appendU32(body, 0) // reserved
	var charset [32]byte
	copy(charset[:], "UTF-8")
	body = append(body, charset[:]...)
	for _, l := range links {
		body = appendU32(body, l.base)
		body = appendU32(body, l.check)
	}
	for i, r := range records {
		body = appendU16(body, r.Left)
		body = appendU16(body, r.Right)
		body = appendU16(body, r.POS)
		body = appendU16(body, uint16(r.Cost))
		body = appendU32(body, offsets[i])
		body = appendU32(body, 0) // compound field
	}
	body = append(body, features...)
	binary.LittleEndian.PutUint32(body[0:], uint32(len(body))^magicSeed)
	return body
}

type link struct{ base, check uint32 }

type trieNode struct {
	terminal bool
	value    uint32
	children map[byte]*trieNode
}

// buildDoubleArray lays the byte trie of surfaces out in the decoded
// format: a state is its base value; byte c leads to slot base+1+c with
// check pointing back at the state; a terminal state's own slot holds
// check==state and base==^value.
func buildDoubleArray(surfaces []string, values map[string]uint32) []link {
	root := &trieNode{children: map[byte]*trieNode{}}
	for _, s := range surfaces {
		n := root
		for i := 0; i < len(s); i++ {
			c := s[i]
			child := n.children[c]
			if child == nil {
				child = &trieNode{children: map[byte]*trieNode{}}
				n.children[c] = child
			}
			n = child
		}
		n.terminal = true
		n.value = values[s]
	}

	a := &arrayBuilder{used: map[uint32]bool{0: true}}
	rootBase := a.place(root)
	a.set(0, link{base: rootBase})
	out := make([]link, a.size)
	for idx, l := range a.slots {
		out[idx] = l
	}
	return out
}

type arrayBuilder struct {
	used  map[uint32]bool
	slots map[uint32]link
	size  uint32
}

// place assigns a base value to a node, reserving the node's own slot plus
// one slot per child transition, then recurses into the children.
func (a *arrayBuilder) place(n *trieNode) uint32 {
	labels := make([]byte, 0, len(n.children))
	for c := range n.children {
		labels = append(labels, c)
	}
	sort.Slice(labels, func(i, j int) bool { return labels[i] < labels[j] })

	base := uint32(1)
	for ; ; base++ {
		if a.used[base] {
			continue
		}
		ok := true
		for _, c := range labels {
			if a.used[base+1+uint32(c)] {
				ok = false
				break
			}
		}
		if ok {
			break
		}
	}
	a.used[base] = true
	for _, c := range labels {
		a.used[base+1+uint32(c)] = true
	}
	if n.terminal {
		a.set(base, link{base: ^n.value, check: base})
	}
	for _, c := range labels {
		childBase := a.place(n.children[c])
		a.set(base+1+uint32(c), link{base: childBase, check: base})
	}
	return base
}

func (a *arrayBuilder) set(idx uint32, l link) {
	if a.slots == nil {
		a.slots = map[uint32]link{}
	}
	a.slots[idx] = l
	if idx+1 > a.size {
		a.size = idx + 1
	}
	for u := range a.used {
		if u+1 > a.size {
			a.size = u + 1
		}
	}
}

// BuildMatrix assembles a connection-cost buffer with the reference layout
// (cells addressed as right + numLeft*left).
func BuildMatrix(numLeft, numRight int, cost func(right, left int) int16) []byte {
	body := make([]byte, 0, 4+2*numLeft*numRight)
	body = appendU16(body, uint16(numLeft))
	body = appendU16(body, uint16(numRight))
	cells := make([]int16, numLeft*numRight)
	for left := 0; left < numLeft; left++ {
		for right := 0; right < numRight; right++ {
			cells[right+numLeft*left] = cost(right, left)
		}
	}
	for _, c := range cells {
		body = appendU16(body, uint16(c))
	}
	return body
}

// Category describes one character category for BuildCharDef.
type Category struct {
	Name   string
	Invoke bool
	Group  bool
	Length uint8
}

// BuildCharDef assembles a character-category buffer. assign maps each BMP
// code point to a category index into cats; the compatibility mask is the
// singleton bit of that category.
func BuildCharDef(cats []Category, assign func(r rune) int) []byte {
	body := make([]byte, 0, 4+32*len(cats)+4*0xFFFF)
	body = appendU32(body, uint32(len(cats)))
	for _, c := range cats {
		var cell [32]byte
		copy(cell[:], c.Name)
		body = append(body, cell[:]...)
	}
	for r := rune(0); r < 0xFFFF; r++ {
		id := assign(r)
		c := cats[id]
		v := uint32(1)<<uint(id) | uint32(id)<<18 | uint32(c.Length&0xF)<<26
		if c.Group {
			v |= 1 << 30
		}
		if c.Invoke {
			v |= 1 << 31
		}
		body = appendU32(body, v)
	}
	return body
}

func appendU16(b []byte, v uint16) []byte {
	return binary.LittleEndian.AppendUint16(b, v)
}

func appendU32(b []byte, v uint32) []byte {
	return binary.LittleEndian.AppendUint32(b, v)
}
