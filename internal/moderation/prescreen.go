package moderation

import (
	"fmt"
	"strings"
	"unicode"
)

// GTUBE is the generic test string for unsolicited content. Drafts carrying it
// are always held.
const GTUBE = "XJS*C4JDBQADN1.NSBN3*2IDNEN*GTUBE-STANDARD-ANTI-UBE-TEST-EMAIL*C.34X"

// Prescreen holds drafts that contain a blocklisted term before any model is
// consulted. Terms match on whole words, case-insensitively.
type Prescreen struct {
	terms []string
}

func NewPrescreen(blocklist []string) *Prescreen {
	p := &Prescreen{}
	seen := map[string]struct{}{}
	for _, term := range blocklist {
		norm := normalizeWords(term)
		if norm == "" {
			continue
		}
		if _, ok := seen[norm]; ok {
			continue
		}
		seen[norm] = struct{}{}
		p.terms = append(p.terms, norm)
	}
	return p
}

// Check returns the hold reason when text trips the prescreen.
func (p *Prescreen) Check(text string) (string, bool) {
	if strings.Contains(text, GTUBE) {
		return "test content (GTUBE)", true
	}
	if p == nil || len(p.terms) == 0 {
		return "", false
	}
	padded := " " + normalizeWords(text) + " "
	for _, term := range p.terms {
		if strings.Contains(padded, " "+term+" ") {
			return fmt.Sprintf("contains blocked term %q", term), true
		}
	}
	return "", false
}

// normalizeWords lowercases s and collapses every run of non alphanumeric
// characters into a single space.
func normalizeWords(s string) string {
	words := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	return strings.Join(words, " ")
}
