package ssml

import (
	"regexp"
	"strings"

	"golang.org/x/text/language"
)

// sentenceEnd matches sentence-final punctuation, optional closing quotes
// or brackets, and the whitespace run that follows it. Requiring trailing
// whitespace means a period at the very end of an incomplete buffer never
// counts as a boundary — more text may still be on the way.
var sentenceEnd = regexp.MustCompile(`[.!?]+["')\]]*[ \t\r\n]+`)

// abbreviations lists locale-specific tokens (lower-cased, trailing dot
// included) that must not be treated as sentence-final even though they
// end in punctuation the regex alone would match.
var abbreviations = map[string][]string{
	"en": {"mr.", "mrs.", "ms.", "dr.", "prof.", "sr.", "jr.", "st.", "vs.", "etc.", "e.g.", "i.e.", "approx."},
	"es": {"sr.", "sra.", "srta.", "dr.", "dra.", "ud.", "uds.", "etc."},
	"de": {"dr.", "prof.", "z.b.", "usw.", "bzw."},
	"fr": {"m.", "mme.", "mlle.", "dr.", "etc."},
}

// FirstSentence extracts the first complete sentence from buf. ok is false
// when no complete sentence boundary has appeared yet, in which case the
// caller should hold buf and wait for more text. locale selects the
// abbreviation table; an empty or unparseable locale falls back to English.
func FirstSentence(buf, locale string) (sentence, remainder string, ok bool) {
	if strings.TrimSpace(buf) == "" {
		return "", buf, false
	}
	abbrevs := abbreviationsFor(locale)

	for _, loc := range sentenceEnd.FindAllStringIndex(buf, -1) {
		if endsWithAbbreviation(buf[:loc[0]], abbrevs) {
			continue
		}
		return buf[:loc[1]], buf[loc[1]:], true
	}
	return "", buf, false
}

func abbreviationsFor(locale string) []string {
	base := "en"
	if tag, err := language.Parse(locale); err == nil {
		if b, conf := tag.Base(); conf != language.No {
			base = strings.ToLower(b.String())
		}
	}
	if list, ok := abbreviations[base]; ok {
		return list
	}
	return abbreviations["en"]
}

// endsWithAbbreviation reports whether prefix (the text up to, but not
// including, the punctuation run) ends in one of abbrevs, matched as a
// whole trailing word so "mr." is not confused with "hammer.".
func endsWithAbbreviation(prefix string, abbrevs []string) bool {
	trimmed := strings.TrimRight(prefix, " \t\r\n")
	lower := strings.ToLower(trimmed)
	fields := strings.Fields(lower)
	if len(fields) == 0 {
		return false
	}
	last := fields[len(fields)-1]
	for _, a := range abbrevs {
		if last == strings.TrimSuffix(a, ".") || last+"." == a {
			return true
		}
	}
	return false
}
