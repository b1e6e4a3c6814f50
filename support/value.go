package support

import (
	"fmt"
	"strconv"

	"github.com/mdzio/go-hmcentral/errs"
	"github.com/mdzio/go-hmcentral/itf"
)

// CoerceValue converts a raw wire value (as decoded by xmlrpc.Query.Any) to
// the Go type appropriate for a parameter's declared type, mirroring the
// original project's parse_ccu_sys_var: ACTION/BOOL become bool, FLOAT
// becomes float64, INTEGER/ENUM become int, STRING is formatted with %v (a
// string value passes through unchanged).
func CoerceValue(paramType itf.ParameterType, raw interface{}) (interface{}, error) {
	switch paramType {
	case itf.ParamTypeAction, itf.ParamTypeBool:
		switch v := raw.(type) {
		case bool:
			return v, nil
		case string:
			b, err := strconv.ParseBool(v)
			if err != nil {
				return nil, errs.Wrapf(errs.ClientError, err, "value %q is not a valid bool", v)
			}
			return b, nil
		default:
			return nil, errs.Newf(errs.ClientError, "value %v is not a valid bool", raw)
		}
	case itf.ParamTypeFloat:
		switch v := raw.(type) {
		case float64:
			return v, nil
		case int:
			return float64(v), nil
		case string:
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, errs.Wrapf(errs.ClientError, err, "value %q is not a valid float", v)
			}
			return f, nil
		default:
			return nil, errs.Newf(errs.ClientError, "value %v is not a valid float", raw)
		}
	case itf.ParamTypeInteger, itf.ParamTypeEnum:
		switch v := raw.(type) {
		case int:
			return v, nil
		case float64:
			return int(v), nil
		case string:
			i, err := strconv.Atoi(v)
			if err != nil {
				return nil, errs.Wrapf(errs.ClientError, err, "value %q is not a valid integer", v)
			}
			return i, nil
		default:
			return nil, errs.Newf(errs.ClientError, "value %v is not a valid integer", raw)
		}
	case itf.ParamTypeString:
		return fmt.Sprintf("%v", raw), nil
	default:
		return raw, nil
	}
}
