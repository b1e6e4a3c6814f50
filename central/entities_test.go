package central

import (
	"testing"

	"github.com/mdzio/go-hmcentral/caches/persistent"
	"github.com/mdzio/go-hmcentral/caches/visibility"
	"github.com/mdzio/go-hmcentral/device"
	"github.com/mdzio/go-hmcentral/entity"
	"github.com/mdzio/go-hmcentral/itf"
	"github.com/mdzio/go-hmcentral/support"
	"github.com/mdzio/go-hmcentral/xmlrpc"
)

// paramsetCaller answers getParamsetDescription with a canned BOOL STATE and
// a promotable PRESS_SHORT parameter, for every address it is asked about.
type paramsetCaller struct{}

func (paramsetCaller) Call(method string, params []*xmlrpc.Value) (xmlrpc.Values, error) {
	if method != "getParamsetDescription" {
		return xmlrpc.Values{}, nil
	}
	state, err := xmlrpc.NewMap(map[string]interface{}{
		"TYPE":       "BOOL",
		"OPERATIONS": itf.OperationRead | itf.OperationWrite | itf.OperationEvent,
		"FLAGS":      itf.FlagVisible,
	})
	if err != nil {
		return nil, err
	}
	press, err := xmlrpc.NewMap(map[string]interface{}{
		"TYPE":       "ACTION",
		"OPERATIONS": itf.OperationEvent,
		"FLAGS":      itf.FlagVisible,
	})
	if err != nil {
		return nil, err
	}
	descr := &xmlrpc.Value{Struct: &xmlrpc.Struct{Members: []*xmlrpc.Member{
		{Name: "STATE", Value: state},
		{Name: "PRESS_SHORT", Value: press},
	}}}
	return xmlrpc.Values{descr}, nil
}

func newTestCentral(t *testing.T) *Central {
	dir := t.TempDir()
	return &Central{
		cfg:           CentralConfig{Name: "test"},
		deviceCache:   persistent.NewDeviceDescriptionCache(dir, "test"),
		paramsetCache: persistent.NewParamsetDescriptionCache(dir, "test"),
		visCache:      visibility.NewCache(dir),
		devices:       make(map[string]*device.Device),
		entities:      make(map[support.ParamKey]*entity.GenericEntity),
		events:        make(map[support.ParamKey]*entity.Event),
	}
}

func testInterfaceClient() *interfaceClient {
	proxy := &xmlrpc.Proxy{InterfaceID: "BidCos-RF", Caller: paramsetCaller{}}
	return newInterfaceClient("BidCos-RF", proxy)
}

func TestBuildDevicesCreatesDeviceAndChannel(t *testing.T) {
	c := newTestCentral(t)
	ic := testInterfaceClient()

	root := &itf.DeviceDescription{Address: "ABC1234", Type: "HM-LC-Sw1-Pl", Paramsets: []string{"VALUES"}}
	ch1 := &itf.DeviceDescription{Address: "ABC1234:1", Type: "HM-LC-Sw1-Pl", Parent: "ABC1234", Paramsets: []string{"VALUES"}}

	c.buildDevices(ic, []*itf.DeviceDescription{root, ch1})

	dev, ok := c.devices["ABC1234"]
	if !ok {
		t.Fatal("expected device ABC1234 to be built")
	}
	if dev.Type != "HM-LC-Sw1-Pl" {
		t.Fatalf("unexpected device type: %s", dev.Type)
	}
	if len(dev.Channels) != 1 || dev.Channels[0].No != 1 {
		t.Fatalf("expected one secondary channel numbered 1, got %+v", dev.Channels)
	}
}

func TestBuildEntitiesCreatesGenericEntityForState(t *testing.T) {
	c := newTestCentral(t)
	ic := testInterfaceClient()

	root := &itf.DeviceDescription{Address: "ABC1234", Type: "HM-LC-Sw1-Pl", Paramsets: []string{"VALUES"}}
	ch1 := &itf.DeviceDescription{Address: "ABC1234:1", Type: "HM-LC-Sw1-Pl", Parent: "ABC1234", Paramsets: []string{"VALUES"}}

	c.buildDevices(ic, []*itf.DeviceDescription{root, ch1})

	key := support.ParamKey{ChannelAddress: "ABC1234:1", ParamsetKey: "VALUES", Parameter: "STATE"}
	ge, ok := c.entities[key]
	if !ok {
		t.Fatal("expected a GenericEntity for ABC1234:1/VALUES/STATE")
	}
	if ge.Kind != entity.KindBinary {
		t.Fatalf("expected a binary entity for a BOOL parameter, got %v", ge.Kind)
	}
}

// bsmCaller answers getParamsetDescription the way a real HmIP-BSM does:
// only its primary channel (4, the SWITCH_VIRTUAL_RECEIVER) carries a
// VALUES paramset with STATE/ON_TIME; every other channel has none.
type bsmCaller struct{}

func (bsmCaller) Call(method string, params []*xmlrpc.Value) (xmlrpc.Values, error) {
	if method != "getParamsetDescription" || len(params) == 0 {
		return xmlrpc.Values{}, nil
	}
	address := params[0].FlatString
	if address != "VCU2128127:4" {
		return xmlrpc.Values{&xmlrpc.Value{Struct: &xmlrpc.Struct{}}}, nil
	}
	state, err := xmlrpc.NewMap(map[string]interface{}{
		"TYPE":       "BOOL",
		"OPERATIONS": itf.OperationRead | itf.OperationWrite | itf.OperationEvent,
		"FLAGS":      itf.FlagVisible,
	})
	if err != nil {
		return nil, err
	}
	onTime, err := xmlrpc.NewMap(map[string]interface{}{
		"TYPE":       "FLOAT",
		"OPERATIONS": itf.OperationRead | itf.OperationWrite,
		"FLAGS":      itf.FlagVisible,
	})
	if err != nil {
		return nil, err
	}
	descr := &xmlrpc.Value{Struct: &xmlrpc.Struct{Members: []*xmlrpc.Member{
		{Name: "STATE", Value: state},
		{Name: "ON_TIME", Value: onTime},
	}}}
	return xmlrpc.Values{descr}, nil
}

// TestAttachCustomEntityBuildsSwitchForHmIPBSM reproduces a real HmIP-BSM
// device whose children span channels 0-6: it must produce a "switch"
// CustomEntity bound to channel 4's STATE/ON_TIME, not channel 0 (the
// maintenance channel).
func TestAttachCustomEntityBuildsSwitchForHmIPBSM(t *testing.T) {
	c := newTestCentral(t)
	proxy := &xmlrpc.Proxy{InterfaceID: "hmip", Caller: bsmCaller{}}
	ic := newInterfaceClient("hmip", proxy)

	children := make([]string, 7)
	for i := range children {
		children[i] = support.ChannelAddress("VCU2128127", i)
	}
	root := &itf.DeviceDescription{
		Address:  "VCU2128127",
		Type:     "HmIP-BSM",
		Children: children,
	}
	var fresh []*itf.DeviceDescription
	fresh = append(fresh, root)
	for i := 0; i < 7; i++ {
		paramsets := []string{}
		if i == 4 {
			paramsets = []string{"VALUES"}
		}
		fresh = append(fresh, &itf.DeviceDescription{
			Address:   support.ChannelAddress("VCU2128127", i),
			Type:      "SWITCH_VIRTUAL_RECEIVER",
			Parent:    "VCU2128127",
			Paramsets: paramsets,
		})
	}

	c.buildDevices(ic, fresh)

	if len(c.customEnts) != 1 {
		t.Fatalf("expected one CustomEntity to be built, got %d", len(c.customEnts))
	}
	ce := c.customEnts[0]
	if ce.Name != "switch" {
		t.Fatalf("expected a switch CustomEntity, got %q", ce.Name)
	}
	stateKey := support.ParamKey{ChannelAddress: "VCU2128127:4", ParamsetKey: "VALUES", Parameter: "STATE"}
	state, ok := c.entities[stateKey]
	if !ok {
		t.Fatal("expected a GenericEntity for VCU2128127:4/VALUES/STATE")
	}
	if f, ok := ce.Field("state"); !ok || f != state {
		t.Fatal("expected the CustomEntity's state field to be wired to channel 4's STATE entity")
	}
}

func TestBuildEntitiesPromotesClickParameterToEvent(t *testing.T) {
	c := newTestCentral(t)
	ic := testInterfaceClient()

	root := &itf.DeviceDescription{Address: "ABC1234", Type: "HM-LC-Sw1-Pl", Paramsets: []string{"VALUES"}}
	ch1 := &itf.DeviceDescription{Address: "ABC1234:1", Type: "HM-LC-Sw1-Pl", Parent: "ABC1234", Paramsets: []string{"VALUES"}}

	c.buildDevices(ic, []*itf.DeviceDescription{root, ch1})

	key := support.ParamKey{ChannelAddress: "ABC1234:1", ParamsetKey: "VALUES", Parameter: "PRESS_SHORT"}
	if _, isEntity := c.entities[key]; isEntity {
		t.Fatal("PRESS_SHORT should not become a GenericEntity")
	}
	ev, ok := c.events[key]
	if !ok {
		t.Fatal("expected PRESS_SHORT to be promoted to an Event")
	}
	if ev.Kind != entity.EventClick {
		t.Fatalf("expected EventClick, got %v", ev.Kind)
	}
}
