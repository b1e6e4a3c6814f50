package entity

import (
	"strings"

	"github.com/mdzio/go-hmcentral/support"
)

// EventKind is the promoted event-bus type a parameter maps to instead of
// becoming a GenericEntity.
type EventKind int

const (
	EventClick EventKind = iota
	EventImpulse
	EventDeviceError
)

func (k EventKind) String() string {
	switch k {
	case EventClick:
		return "KEYPRESS"
	case EventImpulse:
		return "IMPULSE"
	case EventDeviceError:
		return "DEVICE_ERROR"
	default:
		return "UNKNOWN"
	}
}

var clickParameters = map[string]struct{}{
	"PRESS_SHORT":      {},
	"PRESS_LONG":       {},
	"PRESS_CONT":       {},
	"PRESS_LONG_RELEASE": {},
	"PRESS":            {},
}

var impulseParameters = map[string]struct{}{
	"SEQUENCE_OK": {},
}

// PromoteParameter reports whether parameter should become an Event
// instead of a GenericEntity, and which kind.
func PromoteParameter(parameter string) (EventKind, bool) {
	if _, ok := clickParameters[parameter]; ok {
		return EventClick, true
	}
	if _, ok := impulseParameters[parameter]; ok {
		return EventImpulse, true
	}
	if strings.HasPrefix(parameter, "ERROR_") || parameter == "ERROR" {
		return EventDeviceError, true
	}
	return 0, false
}

// Event is a parameter promoted onto the event bus: it has no observable
// "current value" the way a GenericEntity does, only a fan-out of
// subscribers invoked each time the backend reports it.
type Event struct {
	CentralName    string
	UniqueID       string
	ChannelAddress string
	Parameter      string
	Kind           EventKind

	subs *subscriberList
}

// NewEvent builds an Event for parameter on channelAddress.
func NewEvent(centralName, channelAddress, parameter string, kind EventKind) *Event {
	return &Event{
		CentralName:    centralName,
		UniqueID:       support.UniqueIdentifier(centralName, channelAddress, parameter),
		ChannelAddress: channelAddress,
		Parameter:      parameter,
		Kind:           kind,
		subs:           newSubscriberList(),
	}
}

// Fire notifies subscribers, in registration order, that the backend
// reported this event with raw. raw is forwarded as a Value with the
// Kind that best matches its Go type; events do not carry a declared
// ParameterType the way GenericEntity does.
func (e *Event) Fire(raw interface{}) {
	v := wrapEventValue(raw)
	e.subs.notify(v)
}

func wrapEventValue(raw interface{}) Value {
	switch x := raw.(type) {
	case bool:
		return Value{Kind: ValueBool, Bool: x}
	case float64:
		return Value{Kind: ValueFloat, Float: x}
	case int:
		return Value{Kind: ValueInt, Int: x}
	case string:
		return Value{Kind: ValueString, Str: x}
	default:
		return Value{Kind: ValueString}
	}
}

// Subscribe registers cb to be called on every Fire, in registration
// order.
func (e *Event) Subscribe(cb func(Value)) SubscriberID {
	return e.subs.subscribe(cb)
}

// Unsubscribe removes a previously registered subscriber.
func (e *Event) Unsubscribe(id SubscriberID) {
	e.subs.unsubscribe(id)
}
