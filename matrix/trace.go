package matrix

import (
	"github.com/npillmayer/schuko/tracing"
)

// tracer writes to trace with key 'morphseg.matrix'
func tracer() tracing.Trace {
	return tracing.Select("morphseg.matrix")
}
