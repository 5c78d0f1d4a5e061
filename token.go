package morphseg

import "strings"

// TokenKind tags the origin of a token.
type TokenKind uint8

const (
	KindSystem  TokenKind = iota // from the system dictionary
	KindUser                     // from the user dictionary
	KindUnknown                  // synthesized from character categories
)

func (k TokenKind) String() string {
	switch k {
	case KindSystem:
		return "system"
	case KindUser:
		return "user"
	case KindUnknown:
		return "unknown"
	}
	return "invalid"
}

// Token is one morpheme of a parse result with its feature string
// materialized. Start and End are byte offsets into the parsed text;
// consecutive tokens tile the input without gap or overlap.
type Token struct {
	Surface string
	Start   int
	End     int
	Kind    TokenKind
	Feature string
}

// LexerToken is the allocation-free result unit: instead of materialized
// strings it carries the byte range plus the feature-blob span. Resolve the
// feature text lazily through Dict.Feature.
type LexerToken struct {
	Start         int
	End           int
	Kind          TokenKind
	LeftID        uint16
	RightID       uint16
	Cost          int16
	FeatureOffset uint32
	FeatureLen    uint32
}

// TokensToString joins the surface forms with sep. Purely presentational.
func TokensToString(tokens []Token, sep string) string {
	var sb strings.Builder
	for i, t := range tokens {
		if i > 0 {
			sb.WriteString(sep)
		}
		sb.WriteString(t.Surface)
	}
	return sb.String()
}
