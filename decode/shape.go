package decode

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/c360/saltstreams/errors"
)

// Shape is the caller-declared expected shape of a value. It is passed
// explicitly at every call site instead of being recovered by reflection.
type Shape[R any] interface {
	Decode(raw json.RawMessage) (R, error)
}

// ShapeFunc adapts a function to Shape.
type ShapeFunc[R any] func(raw json.RawMessage) (R, error)

// Decode calls f.
func (f ShapeFunc[R]) Decode(raw json.RawMessage) (R, error) {
	return f(raw)
}

type jsonShape[R any] struct {
	disallowUnknown bool
}

// JSON decodes with encoding/json rules, plus:
//   - null is rejected unless R is a pointer, interface, map or slice
//   - trailing data after the value is rejected
func JSON[R any]() Shape[R] {
	return jsonShape[R]{}
}

// Strict is JSON that also rejects object fields R does not declare.
func Strict[R any]() Shape[R] {
	return jsonShape[R]{disallowUnknown: true}
}

func (s jsonShape[R]) Decode(raw json.RawMessage) (R, error) {
	var out R

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return out, errors.WrapInvalid(errors.ErrInvalidData, "Shape", "Decode", "read empty value")
	}

	if bytes.Equal(trimmed, []byte("null")) {
		if nullable(reflect.TypeFor[R]()) {
			return out, nil
		}
		return out, errors.WrapInvalid(
			fmt.Errorf("%w: %s", errors.ErrNullValue, reflect.TypeFor[R]()),
			"Shape", "Decode", "check null")
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	if s.disallowUnknown {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(&out); err != nil {
		var zero R
		return zero, errors.WrapInvalid(err, "Shape", "Decode", "unmarshal value")
	}
	if _, err := dec.Token(); !stderrors.Is(err, io.EOF) {
		var zero R
		return zero, errors.WrapInvalid(errors.ErrInvalidData, "Shape", "Decode", "check trailing data")
	}

	return out, nil
}

func nullable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
		return true
	default:
		return false
	}
}

type schemaShape[R any] struct {
	schema *gojsonschema.Schema
	inner  Shape[R]
}

// Schema validates the raw value against a JSON Schema document before
// decoding it with inner. A nil inner means JSON[R]().
func Schema[R any](schema string, inner Shape[R]) (Shape[R], error) {
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schema))
	if err != nil {
		return nil, errors.WrapInvalid(err, "Shape", "Schema", "compile json schema")
	}
	if inner == nil {
		inner = JSON[R]()
	}
	return schemaShape[R]{schema: compiled, inner: inner}, nil
}

// MustSchema is Schema that panics on an invalid schema document.
// Use it for package-level shape variables.
func MustSchema[R any](schema string, inner Shape[R]) Shape[R] {
	s, err := Schema(schema, inner)
	if err != nil {
		panic(err)
	}
	return s
}

func (s schemaShape[R]) Decode(raw json.RawMessage) (R, error) {
	var zero R

	res, err := s.schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return zero, errors.WrapInvalid(err, "Shape", "Decode", "load value for schema validation")
	}
	if !res.Valid() {
		descriptions := make([]string, 0, len(res.Errors()))
		for _, desc := range res.Errors() {
			descriptions = append(descriptions, desc.String())
		}
		return zero, errors.WrapInvalid(
			fmt.Errorf("%w: %s", errors.ErrSchemaMismatch, strings.Join(descriptions, "; ")),
			"Shape", "Decode", "validate schema")
	}

	return s.inner.Decode(raw)
}
