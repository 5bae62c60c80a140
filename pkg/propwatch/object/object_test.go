package object

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromMap(t *testing.T) {
	o := FromMap(map[string]any{
		"b": 2,
		"a": 1,
		"nested": map[string]any{
			"x": "y",
		},
		"list": []any{1, 2, 3},
	})

	assert.Equal(t, []string{"a", "b", "list", "nested"}, o.Keys())
	assert.Equal(t, 1, o.Get("a"))

	nested, ok := o.Get("nested").(*Object)
	require.True(t, ok)
	assert.Equal(t, "y", nested.Get("x"))

	list, ok := o.Get("list").(*Array)
	require.True(t, ok)
	assert.Equal(t, []any{1, 2, 3}, list.Values())
}

func TestObject_SetAddsAndOverwrites(t *testing.T) {
	o := New()
	require.NoError(t, o.Set("a", 1))
	require.NoError(t, o.Set("b", 2))
	require.NoError(t, o.Set("a", 3))

	assert.Equal(t, []string{"a", "b"}, o.Keys())
	assert.Equal(t, 3, o.Get("a"))

	v, ok := o.Lookup("missing")
	assert.False(t, ok)
	assert.Nil(t, v)
}

func TestObject_Accessors(t *testing.T) {
	o := New()
	var stored any = "initial"
	require.NoError(t, o.DefineProperty("acc", Descriptor{
		Get: func() any { return stored },
		Set: func(v any) error {
			stored = v
			return nil
		},
		Enumerable:   true,
		Configurable: true,
	}))

	assert.Equal(t, "initial", o.Get("acc"))
	require.NoError(t, o.Set("acc", "next"))
	assert.Equal(t, "next", stored)

	require.NoError(t, o.DefineProperty("readonly", Descriptor{
		Get:          func() any { return 42 },
		Configurable: true,
	}))
	err := o.Set("readonly", 1)
	assert.ErrorIs(t, err, ErrNotWritable)
	assert.NotContains(t, o.Keys(), "readonly")
}

func TestObject_AccessorMayReenterObject(t *testing.T) {
	o := New()
	require.NoError(t, o.Set("backing", 1))
	require.NoError(t, o.DefineProperty("mirror", Descriptor{
		Get: func() any { return o.Get("backing") },
		Set: func(v any) error { return o.Set("backing", v) },
	}))

	require.NoError(t, o.Set("mirror", 7))
	assert.Equal(t, 7, o.Get("mirror"))
	assert.Equal(t, 7, o.Get("backing"))
}

func TestObject_Call(t *testing.T) {
	o := New()
	require.NoError(t, o.Set("add", Func(func(this any, args ...any) any {
		assert.Same(t, o, this)
		return args[0].(int) + args[1].(int)
	})))
	require.NoError(t, o.Set("plain", func(this any, args ...any) any { return len(args) }))
	require.NoError(t, o.Set("value", 1))

	got, err := o.Call("add", 2, 3)
	require.NoError(t, err)
	assert.Equal(t, 5, got)

	got, err = o.Call("plain", 1, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, got)

	_, err = o.Call("value")
	assert.ErrorIs(t, err, ErrNotCallable)

	_, err = o.Call("missing")
	assert.ErrorIs(t, err, ErrNoSuchProperty)

	var pe *PropertyError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "missing", pe.Property)
	assert.Equal(t, "call", pe.Op)
}

func TestObject_DefineRespectsConfigurable(t *testing.T) {
	o := New()
	require.NoError(t, o.DefineProperty("fixed", Descriptor{Value: 1, Enumerable: true}))

	err := o.DefineProperty("fixed", DataProperty(2))
	assert.ErrorIs(t, err, ErrNotConfigurable)
	assert.ErrorIs(t, o.Delete("fixed"), ErrNotConfigurable)
	assert.ErrorIs(t, o.Set("fixed", 3), ErrNotWritable)
	assert.Equal(t, 1, o.Get("fixed"))
}

func TestObject_NonEnumerableHiddenFromKeys(t *testing.T) {
	o := New()
	require.NoError(t, o.Set("visible", 1))
	require.NoError(t, o.DefineProperty("hidden", Descriptor{Value: 2, Configurable: true}))

	assert.Equal(t, []string{"visible"}, o.Keys())
	assert.Equal(t, 2, o.Len())
	assert.True(t, o.HasOwn("hidden"))
}

func TestObject_Delete(t *testing.T) {
	o := FromMap(map[string]any{"a": 1, "b": 2, "c": 3})
	require.NoError(t, o.Delete("b"))
	require.NoError(t, o.Delete("missing"))
	assert.Equal(t, []string{"a", "c"}, o.Keys())
}

func TestObject_Freeze(t *testing.T) {
	o := FromMap(map[string]any{"a": 1})
	o.Freeze()

	assert.True(t, o.Frozen())
	assert.ErrorIs(t, o.Set("a", 2), ErrNotWritable)
	assert.ErrorIs(t, o.Set("b", 2), ErrFrozen)
	assert.ErrorIs(t, o.DefineProperty("a", DataProperty(3)), ErrNotConfigurable)

	d, ok := o.OwnProperty("a")
	require.True(t, ok)
	assert.False(t, d.Configurable)
	assert.False(t, d.Writable)
}

func TestObject_Marks(t *testing.T) {
	o := New()
	_, ok := o.Mark("id")
	assert.False(t, ok)

	o.SetMark("id", "abc")
	v, ok := o.Mark("id")
	assert.True(t, ok)
	assert.Equal(t, "abc", v)
	assert.Empty(t, o.Keys(), "marks are not properties")

	o.DeleteMark("id")
	_, ok = o.Mark("id")
	assert.False(t, ok)
}

func TestObject_CloneIsDeep(t *testing.T) {
	o := FromMap(map[string]any{
		"inner": map[string]any{"v": 1},
		"list":  []any{1},
	})
	o.SetMark("id", "x")

	c := o.Clone()
	require.NoError(t, c.Get("inner").(*Object).Set("v", 2))
	c.Get("list").(*Array).Push(2)

	assert.Equal(t, 1, o.Get("inner").(*Object).Get("v"))
	assert.Equal(t, 1, o.Get("list").(*Array).Len())
	_, marked := c.Mark("id")
	assert.False(t, marked)
}

func TestObject_MarshalJSON(t *testing.T) {
	o := New()
	require.NoError(t, o.Set("z", 1))
	require.NoError(t, o.Set("a", []any{"x"}))
	require.NoError(t, o.Set("list", NewArray(1, 2)))

	data, err := json.Marshal(o)
	require.NoError(t, err)
	assert.JSONEq(t, `{"z":1,"a":["x"],"list":[1,2]}`, string(data))
	assert.Equal(t, `{"z":1,"a":["x"],"list":[1,2]}`, string(data), "insertion order is kept")
}

func TestAsFunc(t *testing.T) {
	_, ok := AsFunc(1)
	assert.False(t, ok)

	var nilFn Func
	_, ok = AsFunc(nilFn)
	assert.False(t, ok)

	fn, ok := AsFunc(func(this any, args ...any) any { return "ok" })
	require.True(t, ok)
	assert.Equal(t, "ok", fn(nil))
}

func TestIsTarget(t *testing.T) {
	assert.True(t, IsTarget(New()))
	assert.True(t, IsTarget(NewArray()))
	assert.False(t, IsTarget(42))
	assert.False(t, IsTarget(map[string]any{}))
}
