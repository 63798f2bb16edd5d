// Package ssml implements the single-pass SSML first-level child splitter
// and the locale-aware sentence boundary tokenizer used by the TTS session
// machine's drain algorithms.
package ssml

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// LooksLikeSSML applies the syntactic-only detection heuristic: the
// lower-cased buffer starts with "<?xml" or "<speak" and contains
// "</speak>" somewhere after that.
func LooksLikeSSML(buf string) bool {
	lower := strings.ToLower(strings.TrimLeft(buf, " \t\r\n"))
	if !strings.HasPrefix(lower, "<?xml") && !strings.HasPrefix(lower, "<speak") {
		return false
	}
	return strings.Contains(lower, "</speak>")
}

// HasCompleteSpeak reports whether buf contains a full <speak>...</speak>
// span, independent of LooksLikeSSML's prefix check.
func HasCompleteSpeak(buf string) bool {
	return strings.Contains(strings.ToLower(buf), "</speak>")
}

// Chunk splits the first-level children of the document's <speak> element
// into independently synthesizable "<speak ATTRS>child</speak>" fragments.
// Each fragment's child subtree is sliced verbatim from the input so byte
// content (including attribute order) is preserved exactly; text between
// first-level children is dropped, matching the original source's
// behavior. ErrNoSpeak is returned if no <speak> element is found.
func Chunk(doc []byte) ([]string, error) {
	dec := xml.NewDecoder(bytes.NewReader(doc))
	dec.Strict = false

	var attrsRaw string
	haveSpeak := false
	var chunks []string
	var prevOffset int64

	for {
		startOffset := prevOffset
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("ssml: parse: %w", err)
		}
		endOffset := dec.InputOffset()
		prevOffset = endOffset

		switch t := tok.(type) {
		case xml.StartElement:
			if !haveSpeak {
				if !strings.EqualFold(t.Name.Local, "speak") {
					continue
				}
				haveSpeak = true
				attrsRaw = extractAttrsRaw(string(doc[startOffset:endOffset]))
				continue
			}
			childStart := startOffset
			if err := skipElement(dec, t); err != nil {
				return nil, err
			}
			childEnd := dec.InputOffset()
			prevOffset = childEnd
			chunks = append(chunks, "<speak"+attrsRaw+">"+string(doc[childStart:childEnd])+"</speak>")
		case xml.EndElement:
			if haveSpeak && strings.EqualFold(t.Name.Local, "speak") {
				return chunks, nil
			}
		}
	}
	if !haveSpeak {
		return nil, ErrNoSpeak
	}
	return chunks, nil
}

// ErrNoSpeak is returned by Chunk when the document has no <speak> root.
var ErrNoSpeak = errors.New("ssml: no <speak> element found")

// skipElement consumes tokens until the matching end tag for an
// already-opened start element, balancing nested depth.
func skipElement(dec *xml.Decoder, _ xml.StartElement) error {
	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("ssml: parse: %w", err)
		}
		switch tok.(type) {
		case xml.StartElement:
			depth++
		case xml.EndElement:
			depth--
		}
	}
	return nil
}

// extractAttrsRaw returns the verbatim attribute text of a start tag,
// i.e. everything after the element name and before the closing '>' or
// self-closing '/>'.
func extractAttrsRaw(tag string) string {
	i := 1
	for i < len(tag) {
		switch tag[i] {
		case ' ', '\t', '\n', '\r', '>', '/':
			goto found
		}
		i++
	}
found:
	rest := tag[i:]
	rest = strings.TrimSuffix(rest, ">")
	rest = strings.TrimSuffix(rest, "/")
	return rest
}

// EscapeAndWrap XML-escapes plain text and wraps it in a <speak> element,
// the safeguard applied to plain input containing "<...>" before handing
// it to a synthesizer backend that auto-interprets XML-looking input, and
// the fallback recovery path for SSML that fails to parse.
func EscapeAndWrap(text string) string {
	var buf bytes.Buffer
	buf.WriteString("<speak>")
	_ = xml.EscapeText(&buf, []byte(text))
	buf.WriteString("</speak>")
	return buf.String()
}

// ContainsAngleBrackets reports whether plain text is XML-shaped enough to
// need the escape-and-wrap safeguard before reaching a backend that
// auto-detects SSML.
func ContainsAngleBrackets(text string) bool {
	return strings.ContainsRune(text, '<') && strings.ContainsRune(text, '>')
}
