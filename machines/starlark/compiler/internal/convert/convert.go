// Package convert translates kernel arguments and results between Go and Starlark.
package convert

import (
	"fmt"

	starlarkLib "go.starlark.net/starlark"
)

// FromValue converts a Starlark result to plain Go. Integers come back as int64, or uint64
// when they only fit unsigned. Sequences and sets become []any, dicts map[string]any with
// non-string keys stringified.
func FromValue(v starlarkLib.Value) (any, error) {
	switch v := v.(type) {
	case nil, starlarkLib.NoneType:
		return nil, nil
	case starlarkLib.Bool:
		return bool(v), nil
	case starlarkLib.Int:
		return fromInt(v)
	case starlarkLib.Float:
		return float64(v), nil
	case starlarkLib.String:
		return string(v), nil
	case starlarkLib.Bytes:
		return []byte(v), nil
	case *starlarkLib.Dict:
		return fromDict(v)
	case starlarkLib.Tuple, *starlarkLib.List, *starlarkLib.Set:
		return fromIterable(v.(starlarkLib.Iterable))
	}
	return nil, fmt.Errorf("unsupported Starlark type %s", v.Type())
}

func fromInt(v starlarkLib.Int) (any, error) {
	if i, ok := v.Int64(); ok {
		return i, nil
	}
	if u, ok := v.Uint64(); ok {
		return u, nil
	}
	return nil, fmt.Errorf("integer %s out of range", v)
}

func fromIterable(v starlarkLib.Iterable) ([]any, error) {
	out := []any{}
	iter := v.Iterate()
	defer iter.Done()

	var elem starlarkLib.Value
	for iter.Next(&elem) {
		g, err := FromValue(elem)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", len(out), err)
		}
		out = append(out, g)
	}
	return out, nil
}

func fromDict(v *starlarkLib.Dict) (map[string]any, error) {
	out := make(map[string]any, v.Len())
	for _, kv := range v.Items() {
		key, ok := starlarkLib.AsString(kv[0])
		if !ok {
			key = kv[0].String()
		}
		g, err := FromValue(kv[1])
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", key, err)
		}
		out[key] = g
	}
	return out, nil
}

// ToValue converts a Go argument to Starlark. Starlark values pass through unchanged and any
// fmt.Stringer becomes a string.
func ToValue(v any) (starlarkLib.Value, error) {
	switch g := v.(type) {
	case nil:
		return starlarkLib.None, nil
	case starlarkLib.Value:
		return g, nil
	case bool:
		return starlarkLib.Bool(g), nil
	case int:
		return starlarkLib.MakeInt(g), nil
	case int32:
		return starlarkLib.MakeInt64(int64(g)), nil
	case int64:
		return starlarkLib.MakeInt64(g), nil
	case uint32:
		return starlarkLib.MakeUint64(uint64(g)), nil
	case uint64:
		return starlarkLib.MakeUint64(g), nil
	case float64:
		return starlarkLib.Float(g), nil
	case string:
		return starlarkLib.String(g), nil
	case []byte:
		return starlarkLib.Bytes(g), nil
	case []string:
		elems := make([]starlarkLib.Value, len(g))
		for i, s := range g {
			elems[i] = starlarkLib.String(s)
		}
		return starlarkLib.NewList(elems), nil
	case []any:
		return toList(g)
	case map[string]any:
		return toDict(g)
	case fmt.Stringer:
		return starlarkLib.String(g.String()), nil
	}
	return nil, fmt.Errorf("unsupported type %T", v)
}

func toList(g []any) (*starlarkLib.List, error) {
	elems := make([]starlarkLib.Value, len(g))
	for i, e := range g {
		v, err := ToValue(e)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		elems[i] = v
	}
	return starlarkLib.NewList(elems), nil
}

func toDict(g map[string]any) (*starlarkLib.Dict, error) {
	dict := starlarkLib.NewDict(len(g))
	for k, e := range g {
		v, err := ToValue(e)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
		if err := dict.SetKey(starlarkLib.String(k), v); err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
	}
	return dict, nil
}
