package runtime

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func testRegistry() *Registry {
	reg := NewRegistry()
	reg.Register("probe", func() Block {
		b := newStub("probe", "Probe")
		b.AddParameter(Parameter{Name: "level", Type: ParamFloat, Default: 1.0, Label: "Level"})
		b.AddParameter(Parameter{Name: "label", Type: ParamString, Default: "", Label: "Label"})
		return b
	})
	reg.Register("note", func() Block {
		b := newStub("note", "Note")
		b.AddParameter(Parameter{Name: "text", Type: ParamString, Default: "", Label: "Text"})
		return b
	})
	return reg
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func sampleSequence(t *testing.T, reg *Registry) *Sequence {
	t.Helper()
	s := NewSequence("Sample")
	s.Description = "round-trip fixture"
	s.Metadata["author"] = "bench"

	b, err := reg.New("probe")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := b.SetParameter("level", 2.5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s.Append(b)

	n, err := reg.New("note")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := n.SetParameter("text", "hello"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s.Append(n)
	return s
}

func TestDecodeSequence_YAMLRoundTrip(t *testing.T) {
	reg := testRegistry()
	s := sampleSequence(t, reg)

	out, err := EncodeYAML(s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := DecodeSequence(out, reg, testLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Name != "Sample" || got.Description != "round-trip fixture" {
		t.Errorf("decoded header = %q / %q", got.Name, got.Description)
	}
	if got.Len() != 2 {
		t.Fatalf("decoded len = %d, want 2", got.Len())
	}
	if got.Blocks[0].Kind() != "probe" {
		t.Errorf("first kind = %q, want probe", got.Blocks[0].Kind())
	}
	level, _ := got.Blocks[0].Parameter("level").(float64)
	if level != 2.5 {
		t.Errorf("level = %v, want 2.5", got.Blocks[0].Parameter("level"))
	}
	if got.Blocks[0].ID() != s.Blocks[0].ID() {
		t.Errorf("id = %q, want %q", got.Blocks[0].ID(), s.Blocks[0].ID())
	}
	if got.Metadata["author"] != "bench" {
		t.Errorf("metadata author = %v, want bench", got.Metadata["author"])
	}
}

func TestDecodeSequence_JSONRoundTrip(t *testing.T) {
	reg := testRegistry()
	s := sampleSequence(t, reg)

	out, err := EncodeJSON(s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(strings.TrimSpace(string(out)), "{") {
		t.Fatalf("EncodeJSON output does not look like JSON: %s", out)
	}

	got, err := DecodeSequence(out, reg, testLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Name != "Sample" || got.Len() != 2 {
		t.Fatalf("decoded = %q with %d blocks, want Sample with 2", got.Name, got.Len())
	}
	// JSON numbers decode as float64.
	if level, _ := got.Blocks[0].Parameter("level").(float64); level != 2.5 {
		t.Errorf("level = %v, want 2.5", got.Blocks[0].Parameter("level"))
	}
	if text, _ := got.Blocks[1].Parameter("text").(string); text != "hello" {
		t.Errorf("text = %v, want hello", got.Blocks[1].Parameter("text"))
	}
}

func TestDecodeSequence_SkipsUnknownKind(t *testing.T) {
	doc := `
name: Mixed
blocks:
  - kind: probe
    id: b1
    parameters:
      level: 1.5
  - kind: mystery
    id: b2
    parameters: {}
  - kind: note
    id: b3
    parameters:
      text: kept
`
	got, err := DecodeSequence([]byte(doc), testRegistry(), testLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Len() != 2 {
		t.Fatalf("len = %d, want 2 (unknown kind skipped)", got.Len())
	}
	if got.Blocks[0].Kind() != "probe" || got.Blocks[1].Kind() != "note" {
		t.Errorf("kinds = %q, %q", got.Blocks[0].Kind(), got.Blocks[1].Kind())
	}
}

func TestDecodeSequence_SkipsUndeclaredParameters(t *testing.T) {
	doc := `
name: Extra
blocks:
  - kind: note
    id: b1
    parameters:
      text: ok
      bogus: 99
`
	got, err := DecodeSequence([]byte(doc), testRegistry(), testLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Len() != 1 {
		t.Fatalf("len = %d, want 1", got.Len())
	}
	if got.Blocks[0].Parameter("text") != "ok" {
		t.Errorf("text = %v, want ok", got.Blocks[0].Parameter("text"))
	}
	if got.Blocks[0].Parameter("bogus") != nil {
		t.Errorf("bogus = %v, want nil", got.Blocks[0].Parameter("bogus"))
	}
}

func TestDecodeSequence_Garbage(t *testing.T) {
	_, err := DecodeSequence([]byte("\x00\x01 not a doc ::::"), testRegistry(), testLogger())
	if err == nil {
		t.Fatal("expected error, got none")
	}
}

func TestSaveLoadSequence(t *testing.T) {
	reg := testRegistry()
	s := sampleSequence(t, reg)
	dir := t.TempDir()

	for _, name := range []string{"seq.yaml", "seq.json"} {
		path := filepath.Join(dir, name)
		if err := SaveSequence(s, path); err != nil {
			t.Fatalf("SaveSequence(%s) unexpected error: %v", name, err)
		}
		got, err := LoadSequence(path, reg, testLogger())
		if err != nil {
			t.Fatalf("LoadSequence(%s) unexpected error: %v", name, err)
		}
		if got.Name != s.Name || got.Len() != s.Len() {
			t.Errorf("%s: loaded %q with %d blocks, want %q with %d", name, got.Name, got.Len(), s.Name, s.Len())
		}
	}
}
