package runtime

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/Jeffail/gabs/v2"
	"gopkg.in/yaml.v3"
)

// Persisted document shape, shared by both encodings:
//
//	name, description, metadata, blocks: [{kind, id, parameters}]
type sequenceDoc struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description,omitempty"`
	Metadata    map[string]any `yaml:"metadata,omitempty"`
	Blocks      []blockRecord  `yaml:"blocks"`
}

type blockRecord struct {
	Kind       string         `yaml:"kind"`
	ID         string         `yaml:"id"`
	Parameters map[string]any `yaml:"parameters"`
}

func toDoc(s *Sequence) sequenceDoc {
	doc := sequenceDoc{
		Name:        s.Name,
		Description: s.Description,
		Metadata:    s.Metadata,
	}
	for _, b := range s.Blocks {
		doc.Blocks = append(doc.Blocks, blockRecord{
			Kind:       b.Kind(),
			ID:         b.ID(),
			Parameters: b.Values(),
		})
	}
	return doc
}

// EncodeYAML serializes a sequence in the YAML encoding.
func EncodeYAML(s *Sequence) ([]byte, error) {
	out, err := yaml.Marshal(toDoc(s))
	if err != nil {
		return nil, fmt.Errorf("encoding sequence as YAML: %w", err)
	}
	return out, nil
}

// EncodeJSON serializes a sequence in the JSON encoding.
func EncodeJSON(s *Sequence) ([]byte, error) {
	doc := gabs.New()
	if _, err := doc.Set(s.Name, "name"); err != nil {
		return nil, fmt.Errorf("encoding sequence as JSON: %w", err)
	}
	doc.Set(s.Description, "description")
	if len(s.Metadata) > 0 {
		doc.Set(s.Metadata, "metadata")
	}
	doc.Array("blocks")
	for _, b := range s.Blocks {
		doc.ArrayAppend(map[string]any{
			"kind":       b.Kind(),
			"id":         b.ID(),
			"parameters": b.Values(),
		}, "blocks")
	}
	return []byte(doc.StringIndent("", "  ")), nil
}

// DecodeSequence loads a sequence from either encoding, auto-detecting by
// attempting JSON first and falling back to YAML. Blocks with unrecognized
// kind tags are skipped with a warning; the rest of the document loads.
func DecodeSequence(data []byte, reg *Registry, log *slog.Logger) (*Sequence, error) {
	if log == nil {
		log = slog.Default()
	}
	if doc, err := gabs.ParseJSON(data); err == nil {
		return fromJSONDoc(doc, reg, log)
	}
	var doc sequenceDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("sequence document is neither valid JSON nor valid YAML: %w", err)
	}
	return fromDoc(doc, reg, log)
}

func fromJSONDoc(doc *gabs.Container, reg *Registry, log *slog.Logger) (*Sequence, error) {
	var d sequenceDoc
	if v, ok := doc.Path("name").Data().(string); ok {
		d.Name = v
	}
	if v, ok := doc.Path("description").Data().(string); ok {
		d.Description = v
	}
	if m, ok := doc.Path("metadata").Data().(map[string]any); ok {
		d.Metadata = m
	}
	for _, child := range doc.Path("blocks").Children() {
		rec := blockRecord{}
		if v, ok := child.Path("kind").Data().(string); ok {
			rec.Kind = v
		}
		if v, ok := child.Path("id").Data().(string); ok {
			rec.ID = v
		}
		if m, ok := child.Path("parameters").Data().(map[string]any); ok {
			rec.Parameters = m
		}
		d.Blocks = append(d.Blocks, rec)
	}
	return fromDoc(d, reg, log)
}

func fromDoc(doc sequenceDoc, reg *Registry, log *slog.Logger) (*Sequence, error) {
	seq := NewSequence(doc.Name)
	seq.Description = doc.Description
	if doc.Metadata != nil {
		seq.Metadata = doc.Metadata
	}

	for _, rec := range doc.Blocks {
		b, err := reg.New(rec.Kind)
		if err != nil {
			log.Warn("skipping block with unknown kind", "kind", rec.Kind, "id", rec.ID)
			continue
		}
		if rec.ID != "" {
			b.SetID(rec.ID)
		}
		for name, value := range rec.Parameters {
			if err := b.SetParameter(name, value); err != nil {
				log.Warn("ignoring undeclared parameter", "kind", rec.Kind, "parameter", name)
			}
		}
		seq.Append(b)
	}
	return seq, nil
}

// LoadSequence reads a sequence file. The encoding is detected from the
// content, so a mismatched extension still loads.
func LoadSequence(path string, reg *Registry, log *slog.Logger) (*Sequence, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading sequence file: %w", err)
	}
	return DecodeSequence(data, reg, log)
}

// SaveSequence writes a sequence file; a .json extension selects the JSON
// encoding, anything else gets YAML.
func SaveSequence(s *Sequence, path string) error {
	var (
		data []byte
		err  error
	)
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		data, err = EncodeJSON(s)
	} else {
		data, err = EncodeYAML(s)
	}
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating sequence directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing sequence file: %w", err)
	}
	return nil
}
