package decode

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/saltstreams/salterror"
)

type pkgInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

var sampleValues = []string{
	`null`, `true`, `0`, `-1.5`, `42`, `""`, `"text"`,
	`"'cmd.run' is not available."`,
	`"'foo' __virtual__ returned False"`,
	`[]`, `[1,2,3]`, `[{"name":"a"}]`,
	`{}`, `{"name":"vim","version":"9.0"}`, `{"name":1}`, `{"a":{"b":[null]}}`,
	``, `{`, `nul`, `1 2`,
}

func TestDecode_Total(t *testing.T) {
	for _, raw := range sampleValues {
		raw := json.RawMessage(raw)
		assert.NotPanics(t, func() {
			checkDefined(t, Decode(raw, JSON[int]()))
			checkDefined(t, Decode(raw, JSON[string]()))
			checkDefined(t, Decode(raw, JSON[bool]()))
			checkDefined(t, Decode(raw, JSON[[]int]()))
			checkDefined(t, Decode(raw, JSON[map[string]any]()))
			checkDefined(t, Decode(raw, JSON[pkgInfo]()))
			checkDefined(t, Decode(raw, Strict[pkgInfo]()))
			checkDefined(t, Decode(raw, JSON[*pkgInfo]()))
			checkDefined(t, Decode(raw, JSON[any]()))
		}, "raw=%s", raw)
	}
}

func checkDefined[R any](t *testing.T, r Outcome[R]) {
	t.Helper()
	if r.IsErr() {
		e, _ := r.Err()
		assert.NotNil(t, e)
	}
}

func TestDecode_StrictFirst(t *testing.T) {
	tests := []struct {
		name string
		run  func(t *testing.T)
	}{
		{"int", func(t *testing.T) {
			v, ok := Decode(json.RawMessage(`42`), JSON[int]()).Value()
			require.True(t, ok)
			assert.Equal(t, 42, v)
		}},
		{"struct", func(t *testing.T) {
			v, ok := Decode(json.RawMessage(`{"name":"vim","version":"9.0"}`), JSON[pkgInfo]()).Value()
			require.True(t, ok)
			assert.Equal(t, pkgInfo{Name: "vim", Version: "9.0"}, v)
		}},
		{"map of lists", func(t *testing.T) {
			v, ok := Decode(json.RawMessage(`{"a":[1,2]}`), JSON[map[string][]int]()).Value()
			require.True(t, ok)
			assert.Equal(t, map[string][]int{"a": {1, 2}}, v)
		}},
		{"error string into string shape is a value", func(t *testing.T) {
			v, ok := Decode(json.RawMessage(`"'cmd.run' is not available."`), JSON[string]()).Value()
			require.True(t, ok)
			assert.Equal(t, "'cmd.run' is not available.", v)
		}},
		{"null into pointer", func(t *testing.T) {
			v, ok := Decode(json.RawMessage(`null`), JSON[*pkgInfo]()).Value()
			require.True(t, ok)
			assert.Nil(t, v)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, tt.run)
	}
}

func TestDecode_Classification(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected salterror.SaltError
	}{
		{"function not available", `"'cmd.run' is not available."`, salterror.FunctionNotAvailable{Name: "cmd.run"}},
		{"module not supported", `"'foo' __virtual__ returned False"`, salterror.ModuleNotSupported{Name: "foo"}},
		{"stack trace", `"` + salterror.TracebackSentinel + `\nValueError: bad"`, salterror.StackTrace{Text: "ValueError: bad"}},
		{"generic string", `"no such thing"`, salterror.Generic{Raw: json.RawMessage(`"no such thing"`)}},
		{"generic object", `{"name":1}`, salterror.Generic{Raw: json.RawMessage(`{"name":1}`)}},
		{"null", `null`, salterror.Generic{Raw: json.RawMessage(`null`)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, isErr := Decode(json.RawMessage(tt.raw), JSON[pkgInfo]()).Err()
			require.True(t, isErr)
			assert.Equal(t, tt.expected, e)
		})
	}
}

func TestShape_Strictness(t *testing.T) {
	_, err := JSON[int]().Decode(json.RawMessage(`null`))
	assert.Error(t, err)

	_, err = JSON[int]().Decode(json.RawMessage(`1 2`))
	assert.Error(t, err)

	_, err = JSON[int]().Decode(json.RawMessage(`  `))
	assert.Error(t, err)

	_, err = JSON[int]().Decode(json.RawMessage(`1.5`))
	assert.Error(t, err)

	v, err := JSON[pkgInfo]().Decode(json.RawMessage(`{"name":"a","extra":true}`))
	require.NoError(t, err)
	assert.Equal(t, "a", v.Name)

	_, err = Strict[pkgInfo]().Decode(json.RawMessage(`{"name":"a","extra":true}`))
	assert.Error(t, err)

	m, err := JSON[map[string]int]().Decode(json.RawMessage(`null`))
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestShapeFunc(t *testing.T) {
	upper := ShapeFunc[string](func(raw json.RawMessage) (string, error) {
		s, err := JSON[string]().Decode(raw)
		if err != nil {
			return "", err
		}
		return "<" + s + ">", nil
	})

	v, ok := Decode(json.RawMessage(`"x"`), upper).Value()
	require.True(t, ok)
	assert.Equal(t, "<x>", v)
}

func TestDecode_NilShape(t *testing.T) {
	v, ok := Decode[int](json.RawMessage(`7`), nil).Value()
	require.True(t, ok)
	assert.Equal(t, 7, v)
}

func TestSchemaShape(t *testing.T) {
	shape, err := Schema[pkgInfo](`{
		"type": "object",
		"required": ["name", "version"],
		"properties": {
			"name": {"type": "string", "minLength": 1},
			"version": {"type": "string"}
		}
	}`, nil)
	require.NoError(t, err)

	v, ok := Decode(json.RawMessage(`{"name":"vim","version":"9.0"}`), shape).Value()
	require.True(t, ok)
	assert.Equal(t, "vim", v.Name)

	e, isErr := Decode(json.RawMessage(`{"name":"vim"}`), shape).Err()
	require.True(t, isErr)
	assert.IsType(t, salterror.Generic{}, e)

	e, isErr = Decode(json.RawMessage(`"'pkg.version' is not available."`), shape).Err()
	require.True(t, isErr)
	assert.Equal(t, salterror.FunctionNotAvailable{Name: "pkg.version"}, e)

	_, err = Schema[pkgInfo](`{"type": 12}`, nil)
	assert.Error(t, err)

	assert.Panics(t, func() { MustSchema[pkgInfo](`{"type": 12}`, nil) })
}
