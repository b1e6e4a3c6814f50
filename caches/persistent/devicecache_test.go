package persistent

import (
	"reflect"
	"sort"
	"testing"

	"github.com/mdzio/go-hmcentral/itf"
)

func TestDeviceDescriptionCacheIndices(t *testing.T) {
	c := NewDeviceDescriptionCache(t.TempDir(), "ccu-test")
	c.AddDevices("hmip", []*itf.DeviceDescription{
		{Address: "VCU1", Children: []string{"VCU1:0", "VCU1:1"}},
		{Address: "VCU1:0", Parent: "VCU1"},
		{Address: "VCU1:1", Parent: "VCU1"},
	})

	channels := c.ChannelsOf("VCU1")
	sort.Strings(channels)
	if !reflect.DeepEqual(channels, []string{"VCU1:0", "VCU1:1"}) {
		t.Fatalf("unexpected channels: %v", channels)
	}

	d, ok := c.Description("VCU1:1")
	if !ok || d.Parent != "VCU1" {
		t.Fatalf("unexpected description: %+v, %v", d, ok)
	}

	devices := c.Devices("hmip")
	if len(devices) != 1 || devices[0].Address != "VCU1" {
		t.Fatalf("expected exactly the one device-level description, got %+v", devices)
	}
}

func TestDeviceDescriptionCacheRemoveDevice(t *testing.T) {
	c := NewDeviceDescriptionCache(t.TempDir(), "ccu-test")
	c.AddDevices("hmip", []*itf.DeviceDescription{
		{Address: "VCU1", Children: []string{"VCU1:0"}},
		{Address: "VCU1:0", Parent: "VCU1"},
		{Address: "VCU2", Children: []string{"VCU2:0"}},
		{Address: "VCU2:0", Parent: "VCU2"},
	})
	c.RemoveDevice("hmip", "VCU1")

	if _, ok := c.Description("VCU1"); ok {
		t.Fatal("expected VCU1 to be removed")
	}
	if _, ok := c.Description("VCU1:0"); ok {
		t.Fatal("expected VCU1's channel to be removed")
	}
	if _, ok := c.Description("VCU2"); !ok {
		t.Fatal("expected VCU2 to remain untouched")
	}
}

func TestDeviceDescriptionCacheSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	c := NewDeviceDescriptionCache(dir, "ccu-test")
	c.AddDevices("hmip", []*itf.DeviceDescription{
		{Address: "VCU1", Children: []string{"VCU1:0"}, Type: "HmIP-BSM"},
		{Address: "VCU1:0", Parent: "VCU1"},
	})
	if err := c.Save(); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	c2 := NewDeviceDescriptionCache(dir, "ccu-test")
	if err := c2.Load(); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	d, ok := c2.Description("VCU1")
	if !ok || d.Type != "HmIP-BSM" {
		t.Fatalf("unexpected loaded description: %+v, %v", d, ok)
	}
	if len(c2.ChannelsOf("VCU1")) != 1 {
		t.Fatal("expected derived index to be rebuilt after load")
	}
}
