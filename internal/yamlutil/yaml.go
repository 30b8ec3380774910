// Package yamlutil is the only place that imports the YAML library. Config
// files are decoded strictly so a typo in a key fails loudly.
package yamlutil

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/goccy/go-yaml"
)

// MaxDocumentSize bounds a config document. Real configs are a few hundred bytes.
const MaxDocumentSize = 256 << 10

var (
	ErrEmptyDocument    = errors.New("yaml: empty document")
	ErrNoTarget         = errors.New("yaml: target must be a non-nil pointer")
	ErrDocumentTooLarge = errors.New("yaml: document too large")
)

// DecodeStrict fills target from data. Unknown keys are errors, as are
// duplicate keys (the library default); the message points at the offending line.
func DecodeStrict(data []byte, target any) error {
	if len(data) == 0 {
		return ErrEmptyDocument
	}
	if len(data) > MaxDocumentSize {
		return fmt.Errorf("%w: %d bytes, limit %d", ErrDocumentTooLarge, len(data), MaxDocumentSize)
	}
	if rv := reflect.ValueOf(target); rv.Kind() != reflect.Pointer || rv.IsNil() {
		return ErrNoTarget
	}

	err := yaml.UnmarshalWithOptions(data, target, yaml.Strict())
	if err != nil {
		return fmt.Errorf("yaml: %s", yaml.FormatError(err, false, true))
	}
	return nil
}

// Encode renders v with two-space block indentation.
func Encode(v any) ([]byte, error) {
	out, err := yaml.MarshalWithOptions(v, yaml.Indent(2), yaml.IndentSequence(true))
	if err != nil {
		return nil, fmt.Errorf("yaml: encoding %T: %w", v, err)
	}
	return out, nil
}
