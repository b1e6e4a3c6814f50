package callback

import (
	"testing"

	"github.com/mdzio/go-hmcentral/itf"
	"github.com/mdzio/go-hmcentral/xmlrpc"
)

type fakeReceiver struct {
	events    []string
	listed    []*itf.DeviceDescription
	newDevs   []*itf.DeviceDescription
	deleted   []string
	updated   string
	replaced  [2]string
	readded   []string
	lastError string
}

func (f *fakeReceiver) HandleEvent(interfaceID, channelAddress, parameter string, value interface{}) {
	f.events = append(f.events, channelAddress+"."+parameter)
}
func (f *fakeReceiver) ListDevices(interfaceID string) []*itf.DeviceDescription { return f.listed }
func (f *fakeReceiver) NewDevices(interfaceID string, descrs []*itf.DeviceDescription) {
	f.newDevs = descrs
}
func (f *fakeReceiver) DeleteDevices(interfaceID string, addresses []string) { f.deleted = addresses }
func (f *fakeReceiver) UpdateDevice(interfaceID, address string, hint int)   { f.updated = address }
func (f *fakeReceiver) ReplaceDevice(interfaceID, oldAddress, newAddress string) {
	f.replaced = [2]string{oldAddress, newAddress}
}
func (f *fakeReceiver) ReaddedDevice(interfaceID string, deletedAddresses []string) {
	f.readded = deletedAddresses
}
func (f *fakeReceiver) HandleError(interfaceID string, code int, message string) {
	f.lastError = message
}

func TestEventRoutesToRegisteredReceiver(t *testing.T) {
	r := NewRegistry()
	rec := &fakeReceiver{}
	r.Register("BidCos-RF", rec)

	args := &xmlrpc.Value{Array: &xmlrpc.Array{Data: []*xmlrpc.Value{
		{FlatString: "BidCos-RF"},
		{FlatString: "ABC1234:1"},
		{FlatString: "STATE"},
		xmlrpc.NewBool(true),
	}}}
	if _, err := r.Dispatcher().Dispatch("event", args); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rec.events) != 1 || rec.events[0] != "ABC1234:1.STATE" {
		t.Fatalf("expected event to be routed, got %v", rec.events)
	}
}

func TestEventForUnknownInterfaceIsRejected(t *testing.T) {
	r := NewRegistry()
	args := &xmlrpc.Value{Array: &xmlrpc.Array{Data: []*xmlrpc.Value{
		{FlatString: "HmIP-RF"},
		{FlatString: "ABC1234:1"},
		{FlatString: "STATE"},
		xmlrpc.NewBool(true),
	}}}
	if _, err := r.Dispatcher().Dispatch("event", args); err == nil {
		t.Fatal("expected an error for an unregistered interface id")
	}
}

func TestUnregisterStopsRouting(t *testing.T) {
	r := NewRegistry()
	rec := &fakeReceiver{}
	r.Register("BidCos-RF", rec)
	r.Unregister("BidCos-RF")

	args := &xmlrpc.Value{Array: &xmlrpc.Array{Data: []*xmlrpc.Value{
		{FlatString: "BidCos-RF"},
		{FlatString: "ABC1234:1"},
		{FlatString: "STATE"},
		xmlrpc.NewBool(true),
	}}}
	if _, err := r.Dispatcher().Dispatch("event", args); err == nil {
		t.Fatal("expected an error after unregistering the interface id")
	}
}

func TestNewDevicesDecodesDescriptions(t *testing.T) {
	r := NewRegistry()
	rec := &fakeReceiver{}
	r.Register("BidCos-RF", rec)

	descr, err := xmlrpc.NewMap(map[string]interface{}{
		"TYPE":    "HM-LC-Sw1-Pl",
		"ADDRESS": "ABC1234",
		"VERSION": 1,
	})
	if err != nil {
		t.Fatal(err)
	}
	args := &xmlrpc.Value{Array: &xmlrpc.Array{Data: []*xmlrpc.Value{
		{FlatString: "BidCos-RF"},
		{Array: &xmlrpc.Array{Data: []*xmlrpc.Value{descr}}},
	}}}
	if _, err := r.Dispatcher().Dispatch("newDevices", args); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rec.newDevs) != 1 || rec.newDevs[0].Address != "ABC1234" {
		t.Fatalf("unexpected decoded devices: %+v", rec.newDevs)
	}
}

func TestDeleteDevicesForwardsAddresses(t *testing.T) {
	r := NewRegistry()
	rec := &fakeReceiver{}
	r.Register("BidCos-RF", rec)

	args := &xmlrpc.Value{Array: &xmlrpc.Array{Data: []*xmlrpc.Value{
		{FlatString: "BidCos-RF"},
		xmlrpc.NewStrings([]string{"ABC1234", "ABC5678"}),
	}}}
	if _, err := r.Dispatcher().Dispatch("deleteDevices", args); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rec.deleted) != 2 {
		t.Fatalf("expected 2 deleted addresses, got %v", rec.deleted)
	}
}

func TestListDevicesReturnsReceiverInventory(t *testing.T) {
	r := NewRegistry()
	rec := &fakeReceiver{listed: []*itf.DeviceDescription{{Address: "ABC1234", Type: "HM-LC-Sw1-Pl"}}}
	r.Register("BidCos-RF", rec)

	args := &xmlrpc.Value{Array: &xmlrpc.Array{Data: []*xmlrpc.Value{{FlatString: "BidCos-RF"}}}}
	res, err := r.Dispatcher().Dispatch("listDevices", args)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Array == nil || len(res.Array.Data) != 1 {
		t.Fatalf("expected 1 device in response, got %+v", res)
	}
}

func TestErrorMethodForwardsToReceiver(t *testing.T) {
	r := NewRegistry()
	rec := &fakeReceiver{}
	r.Register("BidCos-RF", rec)

	args := &xmlrpc.Value{Array: &xmlrpc.Array{Data: []*xmlrpc.Value{
		{FlatString: "BidCos-RF"},
		xmlrpc.NewInt(-1),
		{FlatString: "boom"},
	}}}
	if _, err := r.Dispatcher().Dispatch("error", args); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.lastError != "boom" {
		t.Fatalf("expected error to be forwarded, got %q", rec.lastError)
	}
}
