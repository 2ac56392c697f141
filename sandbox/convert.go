package sandbox

import "go.starlark.net/starlark"

// toGoValue converts an interpreter value into a plain Go value that
// marshals cleanly to JSON. Unhandled kinds fall back to their string
// form rather than failing: the result slot is best-effort output, not
// a typed contract.
func toGoValue(v starlark.Value) any {
	switch v := v.(type) {
	case starlark.NoneType:
		return nil
	case starlark.Bool:
		return bool(v)
	case starlark.Int:
		if i, ok := v.Int64(); ok {
			return i
		}
		return v.String()
	case starlark.Float:
		return float64(v)
	case starlark.String:
		return string(v)
	case starlark.Tuple:
		out := make([]any, 0, len(v))
		for _, item := range v {
			out = append(out, toGoValue(item))
		}
		return out
	case *starlark.List:
		out := make([]any, 0, v.Len())
		for i := 0; i < v.Len(); i++ {
			out = append(out, toGoValue(v.Index(i)))
		}
		return out
	case *starlark.Dict:
		out := make(map[string]any, v.Len())
		for _, item := range v.Items() {
			key, ok := starlark.AsString(item[0])
			if !ok {
				key = item[0].String()
			}
			out[key] = toGoValue(item[1])
		}
		return out
	case *starlark.Set:
		out := make([]any, 0, v.Len())
		iter := v.Iterate()
		defer iter.Done()
		var item starlark.Value
		for iter.Next(&item) {
			out = append(out, toGoValue(item))
		}
		return out
	default:
		return v.String()
	}
}
