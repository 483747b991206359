// api/model/attribute.go
package model

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// AttributeKind tags the concrete type held by an AttributeValue.
type AttributeKind string

const (
	KindString     AttributeKind = "string"
	KindNumber     AttributeKind = "number"
	KindBool       AttributeKind = "bool"
	KindStringList AttributeKind = "string_list"
)

// AttributeValue is an explicit tagged value: string, number, bool or
// string array. Unknown shapes are rejected when a policy or request is
// decoded, not at evaluation time.
type AttributeValue struct {
	Kind AttributeKind
	Str  string
	Num  float64
	Bool bool
	List []string
}

// Attributes is the attribute bag attached to subjects, resources and the
// request environment. Keys are case-sensitive.
type Attributes map[string]AttributeValue

func StringValue(s string) AttributeValue {
	return AttributeValue{Kind: KindString, Str: s}
}

func NumberValue(n float64) AttributeValue {
	return AttributeValue{Kind: KindNumber, Num: n}
}

func BoolValue(b bool) AttributeValue {
	return AttributeValue{Kind: KindBool, Bool: b}
}

func ListValue(items ...string) AttributeValue {
	return AttributeValue{Kind: KindStringList, List: items}
}

// UnmarshalJSON decodes a raw JSON scalar or string array into a tagged
// value. Objects, nulls and mixed arrays are rejected.
func (v *AttributeValue) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	switch val := raw.(type) {
	case string:
		*v = StringValue(val)
	case float64:
		*v = NumberValue(val)
	case bool:
		*v = BoolValue(val)
	case []interface{}:
		items := make([]string, 0, len(val))
		for _, item := range val {
			s, ok := item.(string)
			if !ok {
				return fmt.Errorf("attribute array may only contain strings, got %T", item)
			}
			items = append(items, s)
		}
		*v = AttributeValue{Kind: KindStringList, List: items}
	default:
		return fmt.Errorf("unsupported attribute value type: %T", raw)
	}

	return nil
}

// MarshalJSON emits the underlying value without the tag wrapper.
func (v AttributeValue) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindString:
		return json.Marshal(v.Str)
	case KindNumber:
		return json.Marshal(v.Num)
	case KindBool:
		return json.Marshal(v.Bool)
	case KindStringList:
		return json.Marshal(v.List)
	default:
		return nil, fmt.Errorf("unknown attribute kind: %q", v.Kind)
	}
}

// Equal reports whether two values hold the same kind and content.
func (v AttributeValue) Equal(other AttributeValue) bool {
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case KindString:
		return v.Str == other.Str
	case KindNumber:
		return v.Num == other.Num
	case KindBool:
		return v.Bool == other.Bool
	case KindStringList:
		if len(v.List) != len(other.List) {
			return false
		}
		for i := range v.List {
			if v.List[i] != other.List[i] {
				return false
			}
		}
		return true
	}
	return false
}

// String renders the value for trace rule strings.
func (v AttributeValue) String() string {
	switch v.Kind {
	case KindString:
		return strconv.Quote(v.Str)
	case KindNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindStringList:
		return fmt.Sprintf("%v", v.List)
	}
	return "<invalid>"
}
