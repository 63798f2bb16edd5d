package wireformat

import (
	"bytes"
	"errors"
	"testing"
)

func TestRoundTripFraming(t *testing.T) {
	cases := []Frame{
		{Type: "describe"},
		{Type: "synthesize", Data: []byte(`{"text":"hi"}`)},
		{Type: "audio-chunk", Data: []byte(`{"rate":16000}`), Payload: []byte{0x01, 0x02, 0x03}},
		{Type: "audio-start", Version: "1.0"},
	}

	for _, want := range cases {
		encoded, err := Encode(want)
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		got, consumed, err := Decode(encoded)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if consumed != len(encoded) {
			t.Fatalf("consumed = %d, want %d", consumed, len(encoded))
		}
		if got.Type != want.Type || got.Version != want.Version {
			t.Fatalf("got %+v, want %+v", got, want)
		}
		if !bytes.Equal(got.Data, want.Data) || !bytes.Equal(got.Payload, want.Payload) {
			t.Fatalf("segment mismatch: got %+v, want %+v", got, want)
		}
	}
}

func TestDecodeIncremental(t *testing.T) {
	want := Frame{Type: "audio-chunk", Data: []byte(`{"rate":16000}`), Payload: []byte("abcdef")}
	encoded, err := Encode(want)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	for n := 1; n < len(encoded); n++ {
		_, _, err := Decode(encoded[:n])
		if !errors.Is(err, ErrNeedMore) {
			t.Fatalf("at %d bytes: got err %v, want ErrNeedMore", n, err)
		}
	}

	got, consumed, err := Decode(encoded)
	if err != nil {
		t.Fatalf("final decode: %v", err)
	}
	if consumed != len(encoded) {
		t.Fatalf("consumed = %d, want %d", consumed, len(encoded))
	}
	if got.Type != want.Type {
		t.Fatalf("got type %q, want %q", got.Type, want.Type)
	}
}

func TestDecodeReentrantAfterConsume(t *testing.T) {
	f1, _ := Encode(Frame{Type: "describe"})
	f2, _ := Encode(Frame{Type: "transcribe", Data: []byte(`{"language":"en-US"}`)})
	buf := append(append([]byte{}, f1...), f2...)

	got1, consumed1, err := Decode(buf)
	if err != nil {
		t.Fatalf("decode 1: %v", err)
	}
	if got1.Type != "describe" {
		t.Fatalf("got %q", got1.Type)
	}
	remainder := buf[consumed1:]
	got2, consumed2, err := Decode(remainder)
	if err != nil {
		t.Fatalf("decode 2: %v", err)
	}
	if got2.Type != "transcribe" {
		t.Fatalf("got %q", got2.Type)
	}
	if consumed2 != len(remainder) {
		t.Fatalf("consumed2 = %d, want %d", consumed2, len(remainder))
	}
}

func TestDecodeMalformedHeader(t *testing.T) {
	_, _, err := Decode([]byte("not json\n"))
	if err == nil || errors.Is(err, ErrNeedMore) {
		t.Fatalf("expected fatal error, got %v", err)
	}
}

func TestDecodeMissingType(t *testing.T) {
	_, _, err := Decode([]byte("{}\n"))
	if err == nil || errors.Is(err, ErrNeedMore) {
		t.Fatalf("expected fatal error, got %v", err)
	}
}
