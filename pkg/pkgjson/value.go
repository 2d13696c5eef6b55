package pkgjson

import (
	"github.com/buger/jsonparser"

	"github.com/matzehuels/resolvekit/pkg/errors"
)

// Value is a JSON value as found in an exports or imports map. It is one of
// [String], [Array], [Object], [Null] or [Other].
type Value interface {
	value()
}

// String is a JSON string.
type String string

// Array is a JSON array.
type Array []Value

// Object is a JSON object whose entries keep document order.
type Object []Entry

// Entry is one key of an [Object].
type Entry struct {
	Key   string
	Value Value
}

// Null is the JSON null literal.
type Null struct{}

// Other holds numbers and booleans, which are never valid targets.
type Other struct {
	Raw string
}

func (String) value() {}
func (Array) value()  {}
func (Object) value() {}
func (Null) value()   {}
func (Other) value()  {}

// Get returns the value stored under key.
func (o Object) Get(key string) (Value, bool) {
	for _, e := range o {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}

// Keys returns the keys of o in document order.
func (o Object) Keys() []string {
	keys := make([]string, len(o))
	for i, e := range o {
		keys[i] = e.Key
	}
	return keys
}

// set stores v under key. A duplicate key keeps its first position and takes
// the last value.
func (o Object) set(key string, v Value) Object {
	for i := range o {
		if o[i].Key == key {
			o[i].Value = v
			return o
		}
	}
	return append(o, Entry{Key: key, Value: v})
}

// parseValue converts a raw jsonparser token into a Value.
func parseValue(data []byte, typ jsonparser.ValueType) (Value, error) {
	switch typ {
	case jsonparser.String:
		s, err := jsonparser.ParseString(data)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeParse, err, "invalid string")
		}
		return String(s), nil

	case jsonparser.Array:
		arr := Array{}
		var inner error
		_, err := jsonparser.ArrayEach(data, func(item []byte, itemType jsonparser.ValueType, _ int, err error) {
			if inner != nil {
				return
			}
			if err != nil {
				inner = err
				return
			}
			v, err := parseValue(item, itemType)
			if err != nil {
				inner = err
				return
			}
			arr = append(arr, v)
		})
		if err == nil {
			err = inner
		}
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeParse, err, "invalid array")
		}
		return arr, nil

	case jsonparser.Object:
		obj := Object{}
		err := jsonparser.ObjectEach(data, func(key, item []byte, itemType jsonparser.ValueType, _ int) error {
			v, err := parseValue(item, itemType)
			if err != nil {
				return err
			}
			obj = obj.set(string(key), v)
			return nil
		})
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeParse, err, "invalid object")
		}
		return obj, nil

	case jsonparser.Null:
		return Null{}, nil

	case jsonparser.Number, jsonparser.Boolean:
		return Other{Raw: string(data)}, nil
	}
	return nil, errors.New(errors.ErrCodeParse, "unexpected JSON token %q", data)
}
