package event

import "github.com/gameobs/photometer/internal/protocol16"

// Servers reencode numeric params at whatever width fits, so the
// accessors coerce across integer widths instead of asserting one.

func intParam(params protocol16.ParamMap, key uint8) (int64, bool) {
	return protocol16.IntValue(params[key])
}

func floatParam(params protocol16.ParamMap, key uint8) (float64, bool) {
	return protocol16.FloatValue(params[key])
}

func intSliceParam(params protocol16.ParamMap, key uint8) []int32 {
	switch v := params[key].(type) {
	case []int32:
		return v
	case []byte:
		out := make([]int32, len(v))
		for i, b := range v {
			out[i] = int32(b)
		}
		return out
	case []any:
		out := make([]int32, 0, len(v))
		for _, elem := range v {
			n, ok := protocol16.IntValue(elem)
			if !ok {
				return nil
			}
			out = append(out, int32(n))
		}
		return out
	default:
		return nil
	}
}

func stringSliceParam(params protocol16.ParamMap, key uint8) []string {
	switch v := params[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, elem := range v {
			s, ok := elem.(string)
			if !ok {
				return nil
			}
			out = append(out, s)
		}
		return out
	default:
		return nil
	}
}
