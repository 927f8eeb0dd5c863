package entity

import (
	"reflect"
	"slices"
	"strings"

	"github.com/kiosk404/warden/pkg/utils/json"
)

// ToolInput is an immutable key/value map of tool arguments.
// Values are deep-copied on the way in and on the way out.
type ToolInput struct {
	values map[string]any
}

// NewToolInput copies values into a new ToolInput.
func NewToolInput(values map[string]any) ToolInput {
	if len(values) == 0 {
		return ToolInput{}
	}
	return ToolInput{values: deepCopyMap(values)}
}

// ParseToolInput decodes a JSON object. Empty input yields an empty ToolInput.
func ParseToolInput(raw string) (ToolInput, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return ToolInput{}, nil
	}
	var values map[string]any
	if err := json.UnmarshalString(raw, &values); err != nil {
		return ToolInput{}, err
	}
	return ToolInput{values: values}, nil
}

func (in ToolInput) Get(key string) (any, bool) {
	v, ok := in.values[key]
	if !ok {
		return nil, false
	}
	return deepCopyValue(v), true
}

// GetString returns the value of key when it is a string.
func (in ToolInput) GetString(key string) (string, bool) {
	v, ok := in.values[key].(string)
	return v, ok
}

func (in ToolInput) Len() int { return len(in.values) }

// Keys returns the argument names in sorted order.
func (in ToolInput) Keys() []string {
	keys := make([]string, 0, len(in.values))
	for k := range in.values {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Map returns a copy of the arguments.
func (in ToolInput) Map() map[string]any {
	if in.values == nil {
		return map[string]any{}
	}
	return deepCopyMap(in.values)
}

// JSON encodes the arguments as a JSON object.
func (in ToolInput) JSON() string {
	s, err := json.MarshalString(in.Map())
	if err != nil {
		return "{}"
	}
	return s
}

func (in ToolInput) Equal(other ToolInput) bool {
	if in.Len() != other.Len() {
		return false
	}
	return in.Len() == 0 || reflect.DeepEqual(in.values, other.values)
}

func (in ToolInput) MarshalJSON() ([]byte, error) {
	return json.Marshal(in.Map())
}

func (in *ToolInput) UnmarshalJSON(data []byte) error {
	var values map[string]any
	if err := json.Unmarshal(data, &values); err != nil {
		return err
	}
	in.values = values
	return nil
}

func deepCopyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = deepCopyValue(v)
	}
	return out
}

func deepCopyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return deepCopyMap(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = deepCopyValue(item)
		}
		return out
	default:
		return v
	}
}
