// Package callback implements the embedded XML-RPC server a Central
// registers with each backend interface so it can receive value events,
// device-inventory changes and liveness pings pushed from the backend.
// Every exposed method takes the interface_id of the calling interface as
// its first argument; the Registry uses it to route the call to the
// Central that owns that interface, the same way the teacher's
// AddLogicLayer wires a fixed LogicLayer, generalized to many.
package callback

import (
	"fmt"
	"sync"

	"github.com/mdzio/go-hmcentral/itf"
	"github.com/mdzio/go-hmcentral/xmlrpc"
	"github.com/mdzio/go-logging"
)

var cbLog = logging.Get("callback")

// Receiver is the subset of Central's API the Registry dispatches into for
// a given interface_id. Central implements this; this package never
// imports package central, so Central registers itself instead of the
// Registry reaching out to it.
type Receiver interface {
	// HandleEvent is called for every value change the backend pushes,
	// including the PONG event (parameter "PONG", value the echoed
	// callerID) generated in response to Client.Ping.
	HandleEvent(interfaceID, channelAddress, parameter string, value interface{})

	// ListDevices returns the device descriptions this Central currently
	// holds for interfaceID, so the backend can diff them against its own
	// inventory before calling NewDevices/DeleteDevices.
	ListDevices(interfaceID string) []*itf.DeviceDescription

	NewDevices(interfaceID string, descrs []*itf.DeviceDescription)
	DeleteDevices(interfaceID string, addresses []string)
	UpdateDevice(interfaceID, address string, hint int)
	ReplaceDevice(interfaceID, oldAddress, newAddress string)
	ReaddedDevice(interfaceID string, deletedAddresses []string)
	HandleError(interfaceID string, code int, message string)
}

// Registry routes callback methods to the Receiver currently registered
// for the call's interface_id. One Registry backs one callback server;
// every Central that shares the embedded listener registers its own
// interface ids into the same Registry.
type Registry struct {
	mtx        sync.RWMutex
	receivers  map[string]Receiver
	dispatcher *xmlrpc.BasicDispatcher
}

// NewRegistry creates a Registry with its XML-RPC methods wired in, ready
// to back an xmlrpc.Handler.
func NewRegistry() *Registry {
	r := &Registry{receivers: make(map[string]Receiver)}
	r.dispatcher = xmlrpc.NewBasicDispatcher()
	r.dispatcher.AddSystemMethods()
	r.addMethods()
	return r
}

// Dispatcher returns the xmlrpc.Dispatcher this Registry backs, for
// embedding into an xmlrpc.Handler.
func (r *Registry) Dispatcher() xmlrpc.Dispatcher {
	return r.dispatcher
}

// Register associates interfaceID with receiver. A call for interfaceID
// arriving concurrently with Register or Unregister always observes
// either the old or the new receiver, never a half-updated map.
func (r *Registry) Register(interfaceID string, receiver Receiver) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.receivers[interfaceID] = receiver
}

// Unregister removes interfaceID, if present. Calls for it then no longer
// reach a stale Receiver: event, listDevices, newDevices and deleteDevices
// fail with an unknown-interface error, the other methods are dropped.
func (r *Registry) Unregister(interfaceID string) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	delete(r.receivers, interfaceID)
}

func (r *Registry) receiver(interfaceID string) (Receiver, bool) {
	r.mtx.RLock()
	defer r.mtx.RUnlock()
	rec, ok := r.receivers[interfaceID]
	return rec, ok
}

func (r *Registry) addMethods() {
	r.dispatcher.HandleFunc("event", r.handleEvent)
	r.dispatcher.HandleFunc("listDevices", r.handleListDevices)
	r.dispatcher.HandleFunc("newDevices", r.handleNewDevices)
	r.dispatcher.HandleFunc("deleteDevices", r.handleDeleteDevices)
	r.dispatcher.HandleFunc("updateDevice", r.handleUpdateDevice)
	r.dispatcher.HandleFunc("replaceDevice", r.handleReplaceDevice)
	r.dispatcher.HandleFunc("readdedDevice", r.handleReaddedDevice)
	r.dispatcher.HandleFunc("error", r.handleError)

	// setReadyConfig is sent by some interface processes during startup; it
	// carries no information a Receiver needs.
	r.dispatcher.HandleFunc("setReadyConfig", func(args *xmlrpc.Value) (*xmlrpc.Value, error) {
		return &xmlrpc.Value{}, nil
	})
}

func (r *Registry) handleEvent(args *xmlrpc.Value) (*xmlrpc.Value, error) {
	q := xmlrpc.Q(args)
	if len(q.Slice()) != 4 {
		return nil, fmt.Errorf("expected 4 arguments for event method, got %d", len(q.Slice()))
	}
	interfaceID := q.Idx(0).String()
	channelAddress := q.Idx(1).String()
	parameter := q.Idx(2).String()
	value := q.Idx(3).Any()
	if q.Err() != nil {
		return nil, fmt.Errorf("invalid argument for event method: %v", q.Err())
	}
	rec, ok := r.receiver(interfaceID)
	if !ok {
		return nil, fmt.Errorf("unknown interface id: %s", interfaceID)
	}
	rec.HandleEvent(interfaceID, channelAddress, parameter, value)
	return &xmlrpc.Value{}, nil
}

func (r *Registry) handleListDevices(args *xmlrpc.Value) (*xmlrpc.Value, error) {
	q := xmlrpc.Q(args)
	if len(q.Slice()) != 1 {
		return nil, fmt.Errorf("expected 1 argument for listDevices method, got %d", len(q.Slice()))
	}
	interfaceID := q.Idx(0).String()
	if q.Err() != nil {
		return nil, fmt.Errorf("invalid argument for listDevices method: %v", q.Err())
	}
	rec, ok := r.receiver(interfaceID)
	if !ok {
		return nil, fmt.Errorf("unknown interface id: %s", interfaceID)
	}
	descrs := rec.ListDevices(interfaceID)
	arr := make([]*xmlrpc.Value, len(descrs))
	for i, d := range descrs {
		arr[i] = toValue(d)
	}
	return &xmlrpc.Value{Array: &xmlrpc.Array{Data: arr}}, nil
}

func (r *Registry) handleNewDevices(args *xmlrpc.Value) (*xmlrpc.Value, error) {
	q := xmlrpc.Q(args)
	if len(q.Slice()) != 2 {
		return nil, fmt.Errorf("expected 2 arguments for newDevices method, got %d", len(q.Slice()))
	}
	interfaceID := q.Idx(0).String()
	raw := q.Idx(1).Slice()
	if q.Err() != nil {
		return nil, fmt.Errorf("invalid argument for newDevices method: %v", q.Err())
	}
	var descrs []*itf.DeviceDescription
	for _, dq := range raw {
		d := &itf.DeviceDescription{}
		d.ReadFrom(dq)
		if dq.Err() != nil {
			return nil, fmt.Errorf("invalid device description for newDevices method: %v", dq.Err())
		}
		descrs = append(descrs, d)
	}
	rec, ok := r.receiver(interfaceID)
	if !ok {
		return nil, fmt.Errorf("unknown interface id: %s", interfaceID)
	}
	cbLog.Debugf("newDevices received for %s: %d device(s)", interfaceID, len(descrs))
	rec.NewDevices(interfaceID, descrs)
	return &xmlrpc.Value{}, nil
}

func (r *Registry) handleDeleteDevices(args *xmlrpc.Value) (*xmlrpc.Value, error) {
	q := xmlrpc.Q(args)
	if len(q.Slice()) != 2 {
		return nil, fmt.Errorf("expected 2 arguments for deleteDevices method, got %d", len(q.Slice()))
	}
	interfaceID := q.Idx(0).String()
	addresses := q.Idx(1).Strings()
	if q.Err() != nil {
		return nil, fmt.Errorf("invalid argument for deleteDevices method: %v", q.Err())
	}
	rec, ok := r.receiver(interfaceID)
	if !ok {
		return nil, fmt.Errorf("unknown interface id: %s", interfaceID)
	}
	cbLog.Debugf("deleteDevices received for %s: %v", interfaceID, addresses)
	rec.DeleteDevices(interfaceID, addresses)
	return &xmlrpc.Value{}, nil
}

func (r *Registry) handleUpdateDevice(args *xmlrpc.Value) (*xmlrpc.Value, error) {
	q := xmlrpc.Q(args)
	if len(q.Slice()) != 3 {
		return nil, fmt.Errorf("expected 3 arguments for updateDevice method, got %d", len(q.Slice()))
	}
	interfaceID := q.Idx(0).String()
	address := q.Idx(1).String()
	hint := q.Idx(2).Int()
	if q.Err() != nil {
		return nil, fmt.Errorf("invalid argument for updateDevice method: %v", q.Err())
	}
	if rec, ok := r.receiver(interfaceID); ok {
		rec.UpdateDevice(interfaceID, address, hint)
	}
	return &xmlrpc.Value{}, nil
}

func (r *Registry) handleReplaceDevice(args *xmlrpc.Value) (*xmlrpc.Value, error) {
	q := xmlrpc.Q(args)
	if len(q.Slice()) != 3 {
		return nil, fmt.Errorf("expected 3 arguments for replaceDevice method, got %d", len(q.Slice()))
	}
	interfaceID := q.Idx(0).String()
	oldAddress := q.Idx(1).String()
	newAddress := q.Idx(2).String()
	if q.Err() != nil {
		return nil, fmt.Errorf("invalid argument for replaceDevice method: %v", q.Err())
	}
	if rec, ok := r.receiver(interfaceID); ok {
		rec.ReplaceDevice(interfaceID, oldAddress, newAddress)
	}
	return &xmlrpc.Value{}, nil
}

func (r *Registry) handleReaddedDevice(args *xmlrpc.Value) (*xmlrpc.Value, error) {
	q := xmlrpc.Q(args)
	if len(q.Slice()) != 2 {
		return nil, fmt.Errorf("expected 2 arguments for readdedDevice method, got %d", len(q.Slice()))
	}
	interfaceID := q.Idx(0).String()
	deleted := q.Idx(1).Strings()
	if q.Err() != nil {
		return nil, fmt.Errorf("invalid argument for readdedDevice method: %v", q.Err())
	}
	if rec, ok := r.receiver(interfaceID); ok {
		rec.ReaddedDevice(interfaceID, deleted)
	}
	return &xmlrpc.Value{}, nil
}

func (r *Registry) handleError(args *xmlrpc.Value) (*xmlrpc.Value, error) {
	q := xmlrpc.Q(args)
	if len(q.Slice()) != 3 {
		return nil, fmt.Errorf("expected 3 arguments for error method, got %d", len(q.Slice()))
	}
	interfaceID := q.Idx(0).String()
	code := q.Idx(1).Int()
	message := q.Idx(2).String()
	if q.Err() != nil {
		return nil, fmt.Errorf("invalid argument for error method: %v", q.Err())
	}
	cbLog.Warningf("error received from %s: %d %s", interfaceID, code, message)
	if rec, ok := r.receiver(interfaceID); ok {
		rec.HandleError(interfaceID, code, message)
	}
	return &xmlrpc.Value{}, nil
}

// toValue converts a DeviceDescription back into the XML-RPC struct shape
// listDevices answers with. Only the fields a backend actually consults
// when diffing its inventory against ours are populated.
func toValue(d *itf.DeviceDescription) *xmlrpc.Value {
	fields := map[string]interface{}{
		"TYPE":      d.Type,
		"ADDRESS":   d.Address,
		"VERSION":   d.Version,
		"PARENT":    d.Parent,
		"CHILDREN":  d.Children,
		"FIRMWARE":  d.Firmware,
		"RX_MODE":   d.RXMode,
		"INTERFACE": d.Interface,
	}
	v, err := xmlrpc.NewMap(fields)
	if err != nil {
		// NewMap only fails for value types NewValue cannot encode; every
		// field above is a plain string, int or string slice.
		return &xmlrpc.Value{}
	}
	return v
}
