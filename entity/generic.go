// Package entity builds the addressable, subscribable handles on backend
// parameters that the rest of the library and its host application deal
// with: GenericEntity for a single parameter, Event for parameters
// promoted to the event bus instead, and (in entity/custom) CustomEntity
// for multi-channel composites.
package entity

import (
	"sync"

	"github.com/mdzio/go-hmcentral/errs"
	"github.com/mdzio/go-hmcentral/itf"
	"github.com/mdzio/go-hmcentral/support"
)

// Writer is the backend write path a GenericEntity uses to send values;
// central wires this to its per-interface itf.Client.
type Writer interface {
	SetValue(channelAddress, parameter string, value interface{}) error
	PutParamset(channelAddress, paramsetKey string, values map[string]interface{}) error
}

// GenericEntity is a single-parameter entity: the library's handle on one
// (channel, paramset, parameter) triple.
type GenericEntity struct {
	mtx sync.RWMutex

	CentralName    string
	UniqueID       string
	AddressPath    string
	ChannelAddress string
	ParamsetKey    string
	Parameter      string
	Kind           Kind
	ParamType      itf.ParameterType
	ValueList      []string
	Unit           string
	Min            interface{}
	Max            interface{}
	Special        map[string]interface{}
	Writable       bool
	DefaultVisible bool

	writer   Writer
	value    Value
	hasValue bool
	subs     *subscriberList
}

// New builds a GenericEntity for parameter on channelAddress/paramsetKey.
// centralName and channelAddress feed support.UniqueIdentifier /
// support.AddressPath for UniqueID/AddressPath.
func New(centralName, platform, interfaceID, channelAddress, paramsetKey, parameter string, descr *itf.ParameterDescription, writer Writer) *GenericEntity {
	return &GenericEntity{
		CentralName:    centralName,
		UniqueID:       support.UniqueIdentifier(centralName, channelAddress, parameter),
		AddressPath:    support.AddressPath(platform, interfaceID, support.UniqueIdentifier(centralName, channelAddress, parameter)),
		ChannelAddress: channelAddress,
		ParamsetKey:    paramsetKey,
		Parameter:      parameter,
		Kind:           KindFor(descr.Type, descr.ValueList),
		ParamType:      descr.Type,
		ValueList:      descr.ValueList,
		Unit:           support.CosmeticUnit(parameter, descr.Unit),
		Min:            descr.Min,
		Max:            descr.Max,
		Special:        descr.Special,
		Writable:       descr.Writable(),
		DefaultVisible: true,
		writer:         writer,
		subs:           newSubscriberList(),
	}
}

// Value returns the entity's last known value and whether one has ever
// been observed.
func (e *GenericEntity) Value() (Value, bool) {
	e.mtx.RLock()
	defer e.mtx.RUnlock()
	return e.value, e.hasValue
}

// HandleEvent updates the entity's local value from a backend event or
// bulk-refresh and notifies subscribers in registration order. Per the
// write path contract, a successful Set does NOT call this directly — the
// backend's own event callback is the only path that advances the value.
func (e *GenericEntity) HandleEvent(raw interface{}) error {
	v, err := ConvertValue(raw, e.ParamType, e.ValueList)
	if err != nil {
		return err
	}
	e.mtx.Lock()
	e.value = v
	e.hasValue = true
	e.mtx.Unlock()
	e.subs.notify(v)
	return nil
}

// Subscribe registers cb to be called, in registration order, whenever
// HandleEvent advances this entity's value.
func (e *GenericEntity) Subscribe(cb func(Value)) SubscriberID {
	return e.subs.subscribe(cb)
}

// Unsubscribe removes a previously registered subscriber.
func (e *GenericEntity) Unsubscribe(id SubscriberID) {
	e.subs.unsubscribe(id)
}

// Set validates and writes raw to the backend. A single VALUES parameter
// write uses setValue; a MASTER parameter write always uses putParamset.
// The local value is NOT updated optimistically; it advances only once the
// backend pushes back the corresponding event.
func (e *GenericEntity) Set(raw interface{}) error {
	if !e.Writable {
		return errs.Newf(errs.ClientError, "parameter %s on %s is not writable", e.Parameter, e.ChannelAddress)
	}
	v, err := ConvertValue(raw, e.ParamType, e.ValueList)
	if err != nil {
		return err
	}
	if e.ParamType == itf.ParamTypeFloat {
		if err := e.checkRange(v.Float); err != nil {
			return err
		}
	}

	wire := v.Wire()
	if e.ParamsetKey == "MASTER" {
		return e.writer.PutParamset(e.ChannelAddress, "MASTER", map[string]interface{}{e.Parameter: wire})
	}
	return e.writer.SetValue(e.ChannelAddress, e.Parameter, wire)
}

// checkRange enforces Min/Max for float parameters, unless the value
// matches one of the parameter's listed SPECIAL values.
func (e *GenericEntity) checkRange(f float64) error {
	for _, special := range e.Special {
		if sf, ok := special.(float64); ok && sf == f {
			return nil
		}
	}
	if min, ok := e.Min.(float64); ok && f < min {
		return errs.Newf(errs.ClientError, "value %v below minimum %v for %s", f, min, e.Parameter)
	}
	if max, ok := e.Max.(float64); ok && f > max {
		return errs.Newf(errs.ClientError, "value %v above maximum %v for %s", f, max, e.Parameter)
	}
	return nil
}

// NotBulkSafeParameters lists parameters that must never be folded into a
// shared putParamset call with sibling parameter writes on the same
// channel, even though the backend would technically accept it.
var NotBulkSafeParameters = map[string]struct{}{
	"INSTALL_MODE": {},
}

// WriteValues writes a set of VALUES parameters on one channel within a
// single logical operation. If none of them is marked not-bulk-safe, they
// are sent together via putParamset (atomic at the backend); otherwise
// every parameter is sent individually via setValue.
func WriteValues(writer Writer, channelAddress string, values map[string]interface{}) error {
	for parameter := range values {
		if _, notSafe := NotBulkSafeParameters[parameter]; notSafe {
			for p, v := range values {
				if err := writer.SetValue(channelAddress, p, v); err != nil {
					return err
				}
			}
			return nil
		}
	}
	return writer.PutParamset(channelAddress, "VALUES", values)
}
