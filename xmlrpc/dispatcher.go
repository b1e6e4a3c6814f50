package xmlrpc

import (
	"fmt"
	"sort"
	"sync"
)

// MethodFunc is an adapter to allow the use of ordinary functions as a
// Method.
type MethodFunc func(args *Value) (*Value, error)

// Invoke implements the Method interface.
func (f MethodFunc) Invoke(args *Value) (*Value, error) {
	return f(args)
}

// Method represents a single remote callable method.
type Method interface {
	Invoke(args *Value) (*Value, error)
}

// Dispatcher dispatches a method call to a registered Method.
type Dispatcher interface {
	Dispatch(methodName string, args *Value) (*Value, error)
}

// BasicDispatcher implements a simple name-based Dispatcher. It is safe for
// concurrent use.
type BasicDispatcher struct {
	mutex   sync.RWMutex
	methods map[string]Method
	unknown MethodFunc
}

// NewBasicDispatcher creates a ready to use BasicDispatcher.
func NewBasicDispatcher() *BasicDispatcher {
	return &BasicDispatcher{methods: make(map[string]Method)}
}

// Handle registers a Method for methodName.
func (d *BasicDispatcher) Handle(methodName string, method Method) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.methods[methodName] = method
}

// HandleFunc registers a function for methodName.
func (d *BasicDispatcher) HandleFunc(methodName string, method MethodFunc) {
	d.Handle(methodName, method)
}

// HandleUnknownFunc registers a fallback function invoked for methods with no
// specific handler.
func (d *BasicDispatcher) HandleUnknownFunc(method MethodFunc) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.unknown = method
}

// Dispatch implements the Dispatcher interface.
func (d *BasicDispatcher) Dispatch(methodName string, args *Value) (*Value, error) {
	d.mutex.RLock()
	m, ok := d.methods[methodName]
	unknown := d.unknown
	d.mutex.RUnlock()
	if !ok {
		if unknown != nil {
			return unknown(args)
		}
		return nil, fmt.Errorf("unknown method: %s", methodName)
	}
	return m.Invoke(args)
}

// AddSystemMethods adds the introspection methods system.listMethods,
// system.methodHelp and system.multicall expected by well behaved XML-RPC
// peers.
func (d *BasicDispatcher) AddSystemMethods() {
	d.HandleFunc("system.listMethods", func(args *Value) (*Value, error) {
		d.mutex.RLock()
		names := make([]string, 0, len(d.methods))
		for n := range d.methods {
			names = append(names, n)
		}
		d.mutex.RUnlock()
		sort.Strings(names)
		return NewStrings(names), nil
	})
	d.HandleFunc("system.methodHelp", func(args *Value) (*Value, error) {
		return NewString(""), nil
	})
	d.HandleFunc("system.multicall", func(args *Value) (*Value, error) {
		q := Q(args)
		calls := q.Idx(0).Slice()
		if q.Err() != nil {
			return nil, q.Err()
		}
		results := make([]*Value, len(calls))
		for i, c := range calls {
			name := c.Key("methodName").String()
			params := c.Key("params")
			if c.Err() != nil {
				return nil, c.Err()
			}
			var callArgs *Value
			if params.value != nil {
				callArgs = params.value
			} else {
				callArgs = &Value{Array: &Array{}}
			}
			res, err := d.Dispatch(name, callArgs)
			if err != nil {
				var merr *MethodError
				code := -1
				msg := err.Error()
				if as, ok := err.(*MethodError); ok {
					merr = as
					code = merr.Code
					msg = merr.Message
				}
				fv, mapErr := NewMap(map[string]interface{}{
					"faultCode":   code,
					"faultString": msg,
				})
				if mapErr != nil {
					return nil, mapErr
				}
				results[i] = fv
				continue
			}
			results[i] = &Value{Array: &Array{Data: []*Value{res}}}
		}
		return &Value{Array: &Array{Data: results}}, nil
	})
}
