// Package pattern implements wildcarded byte-pattern matching: parsing the
// text grammar, compiling patterns down to a Hyperscan-compatible regular
// expression, and scanning a set of patterns over image memory in one pass.
package pattern

import (
	"fmt"
	"strings"
)

// tokenKind distinguishes the three byte-token shapes the grammar allows.
type tokenKind int

const (
	tokenExact tokenKind = iota
	tokenWildcard
	tokenHighNibble // HH where high nibble is fixed, low is wild: "H?"
	tokenLowNibble  // HH where low nibble is fixed, high is wild: "?H"
)

type token struct {
	kind tokenKind
	hi   byte // fixed high nibble, valid for tokenExact/tokenHighNibble
	lo   byte // fixed low nibble, valid for tokenExact/tokenLowNibble
}

// Pattern is a compiled, immutable wildcarded byte pattern.
type Pattern struct {
	Text   string
	tokens []token
	// Anchor is the index of the token whose byte address is reported as
	// the match's VA, added to the match's start offset (0 reports the
	// first byte of the match, the default).
	Anchor int
}

// Len returns the pattern's fixed byte width.
func (p *Pattern) Len() int { return len(p.tokens) }

// Parse compiles a pattern from its text grammar: whitespace-separated
// tokens, each "HH" (exact byte), "??" (full wildcard), or "H?"/"?H" (half
// wildcard nibble), plus an optional standalone "|" marking the anchor as
// the next byte token's index.
func Parse(text string) (*Pattern, error) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return nil, fmt.Errorf("pattern: empty pattern")
	}

	p := &Pattern{Text: text}
	anchorSet := false
	for _, f := range fields {
		if f == "|" {
			if anchorSet {
				return nil, fmt.Errorf("pattern: multiple anchors in %q", text)
			}
			p.Anchor = len(p.tokens)
			anchorSet = true
			continue
		}
		tok, err := parseToken(f)
		if err != nil {
			return nil, fmt.Errorf("pattern: %w in %q", err, text)
		}
		p.tokens = append(p.tokens, tok)
	}
	if len(p.tokens) == 0 {
		return nil, fmt.Errorf("pattern: no byte tokens in %q", text)
	}
	return p, nil
}

// MustParse is Parse but panics on a malformed pattern. Intended for
// package-level var initializers of known-good pattern literals.
func MustParse(text string) *Pattern {
	p, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return p
}

func parseToken(f string) (token, error) {
	if len(f) != 2 {
		return token{}, fmt.Errorf("token %q must be exactly 2 characters", f)
	}
	hiWild := f[0] == '?'
	loWild := f[1] == '?'
	switch {
	case hiWild && loWild:
		return token{kind: tokenWildcard}, nil
	case hiWild:
		lo, err := nibble(f[1])
		if err != nil {
			return token{}, err
		}
		return token{kind: tokenLowNibble, lo: lo}, nil
	case loWild:
		hi, err := nibble(f[0])
		if err != nil {
			return token{}, err
		}
		return token{kind: tokenHighNibble, hi: hi}, nil
	default:
		hi, err := nibble(f[0])
		if err != nil {
			return token{}, err
		}
		lo, err := nibble(f[1])
		if err != nil {
			return token{}, err
		}
		return token{kind: tokenExact, hi: hi, lo: lo}, nil
	}
}

func nibble(c byte) (byte, error) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', nil
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, nil
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, nil
	default:
		return 0, fmt.Errorf("invalid hex digit %q", c)
	}
}

// toRegex renders the pattern as a Hyperscan/PCRE expression matching
// exactly Len() bytes. Full wildcard bytes become "." and require the
// DotAll compile flag to match every byte value including 0x00 and 0x0a.
func (p *Pattern) toRegex() string {
	var b strings.Builder
	for _, t := range p.tokens {
		switch t.kind {
		case tokenExact:
			fmt.Fprintf(&b, `\x%02x`, t.hi<<4|t.lo)
		case tokenWildcard:
			b.WriteByte('.')
		case tokenHighNibble:
			// high nibble fixed, low free: a contiguous byte range.
			lo := t.hi << 4
			hi := t.hi<<4 | 0x0f
			fmt.Fprintf(&b, `[\x%02x-\x%02x]`, lo, hi)
		case tokenLowNibble:
			// low nibble fixed, high free: 16 discontiguous byte values.
			b.WriteByte('[')
			for hiNibble := byte(0); hiNibble < 16; hiNibble++ {
				fmt.Fprintf(&b, `\x%02x`, hiNibble<<4|t.lo)
			}
			b.WriteByte(']')
		}
	}
	return b.String()
}
