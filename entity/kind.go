package entity

import "github.com/mdzio/go-hmcentral/itf"

// Kind is the concrete entity platform a GenericEntity is instantiated as,
// chosen from the parameter's declared type and value list.
type Kind int

const (
	KindBinary Kind = iota
	KindFloat
	KindInteger
	KindEnum
	KindBinarySelect
	KindString
	KindAction
	KindButton
)

func (k Kind) String() string {
	switch k {
	case KindBinary:
		return "binary"
	case KindFloat:
		return "float"
	case KindInteger:
		return "integer"
	case KindEnum:
		return "enum"
	case KindBinarySelect:
		return "binary_select"
	case KindString:
		return "string"
	case KindAction:
		return "action"
	case KindButton:
		return "button"
	default:
		return "unknown"
	}
}

// KindFor picks the GenericEntity variant for a parameter, given its
// declared type and (for ENUM/ACTION) its value list. An ENUM whose value
// list has exactly two entries (e.g. "CLOSED"/"OPEN") is a binary-select
// rather than a general enum; an ACTION with a two-entry boolean value
// list is a momentary button rather than a general action.
func KindFor(paramType itf.ParameterType, valueList []string) Kind {
	switch paramType {
	case itf.ParamTypeAction:
		if len(valueList) == 2 {
			return KindButton
		}
		return KindAction
	case itf.ParamTypeBool:
		return KindBinary
	case itf.ParamTypeFloat:
		return KindFloat
	case itf.ParamTypeInteger:
		return KindInteger
	case itf.ParamTypeEnum:
		if len(valueList) == 2 {
			return KindBinarySelect
		}
		return KindEnum
	case itf.ParamTypeString:
		return KindString
	default:
		return KindString
	}
}
