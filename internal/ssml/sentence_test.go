package ssml

import "testing"

func TestFirstSentenceBasic(t *testing.T) {
	sentence, remainder, ok := FirstSentence("Hello world. How are you?", "en-US")
	if !ok {
		t.Fatalf("expected a complete sentence")
	}
	if sentence != "Hello world. " {
		t.Errorf("sentence = %q", sentence)
	}
	if remainder != "How are you?" {
		t.Errorf("remainder = %q", remainder)
	}
}

func TestFirstSentenceNoneWhenIncomplete(t *testing.T) {
	_, remainder, ok := FirstSentence("Hello there, how are", "en-US")
	if ok {
		t.Fatalf("expected no complete sentence")
	}
	if remainder != "Hello there, how are" {
		t.Errorf("remainder should equal input unchanged, got %q", remainder)
	}
}

func TestFirstSentenceTrailingPunctuationNoSpaceIsIncomplete(t *testing.T) {
	// No trailing whitespace after the period: a streaming caller may still
	// be mid-token (e.g. "3.14"), so this must not count as a boundary.
	_, _, ok := FirstSentence("That is the number 3.", "en-US")
	if ok {
		t.Fatalf("expected no complete sentence without trailing whitespace")
	}
}

func TestFirstSentenceSkipsAbbreviation(t *testing.T) {
	sentence, remainder, ok := FirstSentence("I spoke with Mr. Smith today. He agreed.", "en-US")
	if !ok {
		t.Fatalf("expected a complete sentence")
	}
	if sentence != "I spoke with Mr. Smith today. " {
		t.Errorf("sentence = %q, abbreviation incorrectly treated as boundary", sentence)
	}
	if remainder != "He agreed." {
		t.Errorf("remainder = %q", remainder)
	}
}

func TestFirstSentenceEmptyInput(t *testing.T) {
	_, remainder, ok := FirstSentence("   ", "en-US")
	if ok {
		t.Fatalf("expected no sentence for blank input")
	}
	if remainder != "   " {
		t.Errorf("remainder = %q", remainder)
	}
}

func TestFirstSentenceLocaleSpecificAbbreviation(t *testing.T) {
	sentence, _, ok := FirstSentence("Der Termin ist z.b. am Montag. Bitte kommen.", "de-DE")
	if !ok {
		t.Fatalf("expected a complete sentence")
	}
	if sentence != "Der Termin ist z.b. am Montag. " {
		t.Errorf("sentence = %q", sentence)
	}
}

func TestFirstSentenceUnknownLocaleFallsBackToEnglish(t *testing.T) {
	sentence, _, ok := FirstSentence("Ask Dr. Lee about it. Then leave.", "xx-ZZ")
	if !ok {
		t.Fatalf("expected a complete sentence")
	}
	if sentence != "Ask Dr. Lee about it. " {
		t.Errorf("sentence = %q", sentence)
	}
}

func TestFirstSentenceDrainIdempotence(t *testing.T) {
	// Repeatedly draining first sentences from the remainder must produce
	// the same total text with nothing dropped or duplicated.
	input := "One. Two. Three."
	var got string
	buf := input
	for {
		s, rem, ok := FirstSentence(buf, "en-US")
		if !ok {
			got += rem
			break
		}
		got += s
		buf = rem
	}
	if got != input {
		t.Errorf("drained text = %q, want %q", got, input)
	}
}
