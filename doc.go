/*
Package morphseg is a dictionary-driven morphological analyzer.

Given UTF-8 text and a pre-built binary dictionary set (system dictionary,
optional user dictionary, connection-cost matrix, character-category table
and unknown-word dictionary), it finds the segmentation into morphemes with
globally minimum total cost. Substrings absent from the dictionaries are
covered by unknown-word candidates synthesized from character categories,
so every parse of valid UTF-8 input covers the input exactly.

Dictionaries are decoded once by Load and are immutable afterwards; a Dict
may be shared by any number of concurrent Parse calls. Two optional
connection-cost caches can be attached before sharing, see
PrepareFullMatrixCache and PrepareFastMatrixCache.

Ties between equal-cost segmentations are intentionally unresolved: the
returned total cost is always the minimum, but which of several
minimum-cost token sequences is returned is arbitrary (and stable only
within one build of this package).

----------------------------------------------------------------------

# BSD License

Copyright (c) Norbert Pillmayer <norbert@pillmayer@com>

All rights reserved.

License information is available in the LICENSE file.
*/
package morphseg

import (
	"github.com/npillmayer/schuko/tracing"
)

// tracer writes to trace with key 'morphseg'
func tracer() tracing.Trace {
	return tracing.Select("morphseg")
}
