package entity

import (
	"fmt"

	"github.com/mdzio/go-hmcentral/errs"
	"github.com/mdzio/go-hmcentral/itf"
)

// ValueKind tags the concrete type carried by a Value.
type ValueKind int

const (
	ValueBool ValueKind = iota
	ValueInt
	ValueFloat
	ValueString
	ValueEnum
)

// Value is the tagged sum that every entity's current value and every
// write request is normalized to, replacing ad hoc interface{} typing.
type Value struct {
	Kind        ValueKind
	Bool        bool
	Int         int
	Float       float64
	Str         string
	EnumOrdinal int
	EnumLabel   string
}

// ConvertValue is the total function from a raw wire value plus its
// declared ParameterType (and, for ENUM, its VALUE_LIST) to a Value. An
// ENUM raw value may be either the ordinal (an integer) or the label
// string; a label absent from valueList is an error.
func ConvertValue(raw interface{}, paramType itf.ParameterType, valueList []string) (Value, error) {
	switch paramType {
	case itf.ParamTypeAction, itf.ParamTypeBool:
		b, ok := asBool(raw)
		if !ok {
			return Value{}, errs.Newf(errs.ClientError, "value %v is not a bool", raw)
		}
		return Value{Kind: ValueBool, Bool: b}, nil
	case itf.ParamTypeFloat:
		f, ok := asFloat(raw)
		if !ok {
			return Value{}, errs.Newf(errs.ClientError, "value %v is not a float", raw)
		}
		return Value{Kind: ValueFloat, Float: f}, nil
	case itf.ParamTypeInteger:
		i, ok := asInt(raw)
		if !ok {
			return Value{}, errs.Newf(errs.ClientError, "value %v is not an integer", raw)
		}
		return Value{Kind: ValueInt, Int: i}, nil
	case itf.ParamTypeEnum:
		return convertEnum(raw, valueList)
	case itf.ParamTypeString:
		return Value{Kind: ValueString, Str: fmt.Sprintf("%v", raw)}, nil
	default:
		return Value{Kind: ValueString, Str: fmt.Sprintf("%v", raw)}, nil
	}
}

func convertEnum(raw interface{}, valueList []string) (Value, error) {
	if i, ok := asInt(raw); ok {
		if i < 0 || i >= len(valueList) {
			return Value{}, errs.Newf(errs.ClientError, "enum ordinal %d out of range for %v", i, valueList)
		}
		return Value{Kind: ValueEnum, EnumOrdinal: i, EnumLabel: valueList[i]}, nil
	}
	if s, ok := raw.(string); ok {
		for i, label := range valueList {
			if label == s {
				return Value{Kind: ValueEnum, EnumOrdinal: i, EnumLabel: label}, nil
			}
		}
		return Value{}, errs.Newf(errs.ClientError, "enum label %q is not in %v", s, valueList)
	}
	return Value{}, errs.Newf(errs.ClientError, "value %v is neither an enum ordinal nor a label", raw)
}

// Equal reports whether v and o carry the same kind and payload.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case ValueBool:
		return v.Bool == o.Bool
	case ValueInt:
		return v.Int == o.Int
	case ValueFloat:
		return v.Float == o.Float
	case ValueEnum:
		return v.EnumOrdinal == o.EnumOrdinal
	default:
		return v.Str == o.Str
	}
}

// Wire converts a Value back to the shape the XML-RPC/JSON-RPC transports
// expect on the wire.
func (v Value) Wire() interface{} {
	switch v.Kind {
	case ValueBool:
		return v.Bool
	case ValueInt:
		return v.Int
	case ValueFloat:
		return v.Float
	case ValueEnum:
		return v.EnumOrdinal
	default:
		return v.Str
	}
}

func asBool(raw interface{}) (bool, bool) {
	switch v := raw.(type) {
	case bool:
		return v, true
	case int:
		return v != 0, true
	case float64:
		return v != 0, true
	}
	return false, false
}

func asFloat(raw interface{}) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	}
	return 0, false
}

func asInt(raw interface{}) (int, bool) {
	switch v := raw.(type) {
	case int:
		return v, true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	}
	return 0, false
}
