package dart

import (
	"github.com/npillmayer/schuko/tracing"
)

// tracer writes to trace with key 'morphseg.dart'
func tracer() tracing.Trace {
	return tracing.Select("morphseg.dart")
}
