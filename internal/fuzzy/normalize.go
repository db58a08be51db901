package fuzzy

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Mojibake artifact pattern: UTF-8 multi-byte sequences that were decoded as
// Latin-1/Windows-1252 produce a lead rune like 'Ã' or 'Â' followed by a
// continuation rune from the 0x80-0xBF block (or its Windows-1252 remapping,
// most visibly the "â€" sequences of smart quotes and dashes).
var artifactPattern = regexp.MustCompile(`[ÃÂ][\x{0080}-\x{00BF}\x{20AC}\x{201A}\x{0192}\x{201E}\x{2026}\x{2020}\x{2021}\x{02C6}\x{2030}\x{0160}\x{2039}\x{0152}\x{017D}\x{2018}\x{2019}\x{201C}\x{201D}\x{2022}\x{2013}\x{2014}\x{02DC}\x{2122}\x{0161}\x{203A}\x{0153}\x{017E}\x{0178}]|â€`)

// Windows-1252 maps the 0x80-0x9F block to printable punctuation; the reverse
// table is needed to undo a decode that went through that codepage.
var cp1252Reverse = map[rune]byte{
	'€': 0x80, '‚': 0x82, 'ƒ': 0x83, '„': 0x84,
	'…': 0x85, '†': 0x86, '‡': 0x87, 'ˆ': 0x88,
	'‰': 0x89, 'Š': 0x8A, '‹': 0x8B, 'Œ': 0x8C,
	'Ž': 0x8E, '‘': 0x91, '’': 0x92, '“': 0x93,
	'”': 0x94, '•': 0x95, '–': 0x96, '—': 0x97,
	'˜': 0x98, '™': 0x99, 'š': 0x9A, '›': 0x9B,
	'œ': 0x9C, 'ž': 0x9E, 'Ÿ': 0x9F,
}

// Normalize prepares a string for similarity scoring: trim, lowercase, and a
// best-effort repair of double-encoded multi-byte text. The repaired form is
// kept only when it verifiably improves the text (see repairMojibake).
func Normalize(s string) string {
	s = strings.TrimSpace(s)
	if repaired, ok := repairMojibake(s); ok {
		s = repaired
	}
	return strings.ToLower(s)
}

// repairMojibake attempts one reverse round-trip of a UTF-8-decoded-as-legacy
// encoding artifact. The repair is accepted only if it removes the artifact
// pattern entirely and raises the proportion of letter runes; otherwise the
// original is kept.
func repairMojibake(s string) (string, bool) {
	if !artifactPattern.MatchString(s) {
		return s, false
	}

	// Re-encode each rune to the single byte it would have been before the
	// bogus decode. Runes outside Latin-1 and the Windows-1252 specials mean
	// the text was not a pure double-encoding artifact; bail out.
	buf := make([]byte, 0, len(s))
	for _, r := range s {
		switch {
		case r < 0x100:
			buf = append(buf, byte(r))
		default:
			b, ok := cp1252Reverse[r]
			if !ok {
				return s, false
			}
			buf = append(buf, b)
		}
	}

	if !utf8.Valid(buf) {
		return s, false
	}

	repaired := string(buf)
	if artifactPattern.MatchString(repaired) {
		return s, false
	}
	if letterProportion(repaired) <= letterProportion(s) {
		return s, false
	}

	return repaired, true
}

// letterProportion returns the share of runes that are letters.
func letterProportion(s string) float64 {
	var letters, total int
	for _, r := range s {
		total++
		if unicode.IsLetter(r) {
			letters++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(letters) / float64(total)
}

// Tokenize splits normalized text on whitespace and strips surrounding
// punctuation from each token. Empty tokens are dropped.
func Tokenize(s string) []string {
	fields := strings.Fields(s)
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		tok := strings.TrimFunc(f, func(r rune) bool {
			return unicode.IsPunct(r) || unicode.IsSymbol(r)
		})
		if tok != "" {
			tokens = append(tokens, tok)
		}
	}
	return tokens
}
