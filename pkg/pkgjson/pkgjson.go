// Package pkgjson reads package descriptors (package.json files).
//
// Only the fields that influence resolution are kept: name, type, main,
// exports and imports. Exports and imports are decoded into an ordered
// [Value] tree because condition maps are evaluated in document order, which
// encoding/json's map decoding would lose.
package pkgjson

import (
	"encoding/json"

	"github.com/buger/jsonparser"

	"github.com/matzehuels/resolvekit/pkg/errors"
)

// FileName is the descriptor file looked up in package directories.
const FileName = "package.json"

// Module types declared by the "type" field.
const (
	TypeModule   = "module"
	TypeCommonJS = "commonjs"
)

// Descriptor is the resolution-relevant subset of a package.json file.
type Descriptor struct {
	Name    string
	HasName bool
	Type    string
	Main    string
	Exports Value // nil when the field is absent
	Imports Value // nil when the field is absent
}

// HasExports reports whether the descriptor declares a non-null exports
// field.
func (d *Descriptor) HasExports() bool {
	if d == nil || d.Exports == nil {
		return false
	}
	_, isNull := d.Exports.(Null)
	return !isNull
}

// ImportsMap returns the imports field when it is an object.
func (d *Descriptor) ImportsMap() (Object, bool) {
	if d == nil {
		return nil, false
	}
	obj, ok := d.Imports.(Object)
	return obj, ok
}

// Parse decodes a descriptor. Unknown fields are ignored and fields of the
// wrong type are treated as absent; only malformed JSON or a non-object
// document is an error.
func Parse(data []byte) (*Descriptor, error) {
	if !json.Valid(data) {
		return nil, errors.New(errors.ErrCodeParse, "invalid JSON")
	}

	_, typ, _, err := jsonparser.Get(data)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeParse, err, "read document")
	}
	if typ != jsonparser.Object {
		return nil, errors.New(errors.ErrCodeParse, "descriptor must be a JSON object, got %s", typ)
	}

	d := &Descriptor{}
	err = jsonparser.ObjectEach(data, func(key, raw []byte, typ jsonparser.ValueType, _ int) error {
		switch string(key) {
		case "name":
			if s, ok := stringField(raw, typ); ok {
				d.Name, d.HasName = s, true
			}
		case "type":
			if s, ok := stringField(raw, typ); ok {
				d.Type = s
			}
		case "main":
			if s, ok := stringField(raw, typ); ok {
				d.Main = s
			}
		case "exports":
			v, err := parseValue(raw, typ)
			if err != nil {
				return err
			}
			d.Exports = v
		case "imports":
			v, err := parseValue(raw, typ)
			if err != nil {
				return err
			}
			d.Imports = v
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeParse, err, "decode descriptor")
	}
	return d, nil
}

func stringField(raw []byte, typ jsonparser.ValueType) (string, bool) {
	if typ != jsonparser.String {
		return "", false
	}
	s, err := jsonparser.ParseString(raw)
	if err != nil {
		return "", false
	}
	return s, true
}
