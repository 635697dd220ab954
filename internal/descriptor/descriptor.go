// Package descriptor turns unit definition files into descriptors.
//
// A descriptor is the materialised configuration of one unit: a JSON object
// in the compose file format. Definitions are plain data (YAML, JSON, JSONC)
// or CUE, which is evaluated in-process; nothing in a definition can run code
// on the host. The output is canonical (sorted keys, two-space indentation,
// trailing newline) so the same definition always produces the same bytes
// and the same Digest.
package descriptor

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/zeebo/blake3"
)

// Descriptor is a canonical JSON compose document.
type Descriptor []byte

// Loader evaluates a unit definition file into a descriptor.
type Loader interface {
	Load(ctx context.Context, path string) (Descriptor, error)
}

// LoadError reports a definition that could not be turned into a descriptor.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("loading unit definition %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// parser converts the raw bytes of one definition format to JSON.
type parser func(path string, data []byte) ([]byte, error)

// FileLoader loads definitions from disk, choosing the parser by extension.
type FileLoader struct {
	parsers map[string]parser
}

// NewFileLoader creates a loader for every supported definition format.
func NewFileLoader() *FileLoader {
	return &FileLoader{
		parsers: map[string]parser{
			".yaml":  parseYAML,
			".yml":   parseYAML,
			".json":  parseJSONC,
			".jsonc": parseJSONC,
			".cue":   parseCUE,
		},
	}
}

// Load reads and evaluates the definition at path.
func (l *FileLoader) Load(ctx context.Context, path string) (Descriptor, error) {
	if err := ctx.Err(); err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	parse, ok := l.parsers[filepath.Ext(path)]
	if !ok {
		return nil, &LoadError{Path: path, Err: fmt.Errorf("unsupported definition format %q", filepath.Ext(path))}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	raw, err := parse(path, data)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	d, err := Canonicalize(raw)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	return d, nil
}

// Canonicalize re-encodes a JSON document with sorted keys and fixed
// indentation. The document must be an object.
func Canonicalize(raw []byte) (Descriptor, error) {
	var doc interface{}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("invalid descriptor: %w", err)
	}
	if _, ok := doc.(map[string]interface{}); !ok {
		return nil, fmt.Errorf("descriptor must be an object, got %s", kindOf(doc))
	}
	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding descriptor: %w", err)
	}
	return append(out, '\n'), nil
}

func kindOf(v interface{}) string {
	switch v.(type) {
	case nil:
		return "null"
	case []interface{}:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	case json.Number:
		return "number"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// Digest returns the hex BLAKE3 fingerprint of a descriptor.
func Digest(d []byte) string {
	sum := blake3.Sum256(d)
	return hex.EncodeToString(sum[:])
}

// ShortDigest abbreviates a digest to 12 characters for display.
func ShortDigest(digest string) string {
	if len(digest) > 12 {
		return digest[:12]
	}
	return digest
}
