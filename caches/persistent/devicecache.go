package persistent

import (
	"sync"

	"github.com/mdzio/go-hmcentral/itf"
	"github.com/mdzio/go-hmcentral/support"
)

// DeviceDescriptionCache persists the DeviceDescriptions reported by every
// interface, plus two derived indices kept up to date on every mutation:
// device address -> its channel addresses, and address -> its own
// description (device or channel). Safe for concurrent use.
type DeviceDescriptionCache struct {
	mtx sync.RWMutex
	f   *file

	// ByInterface is the persisted content: interface id -> descriptions.
	ByInterface map[string][]*itf.DeviceDescription

	channelsOf   map[string][]string
	descriptions map[string]*itf.DeviceDescription
}

// NewDeviceDescriptionCache creates an empty cache backed by
// <storageFolder>/<centralName>_device_descriptions.
func NewDeviceDescriptionCache(storageFolder, centralName string) *DeviceDescriptionCache {
	return &DeviceDescriptionCache{
		f:            newFile(storageFolder, centralName, "device_descriptions"),
		ByInterface:  make(map[string][]*itf.DeviceDescription),
		channelsOf:   make(map[string][]string),
		descriptions: make(map[string]*itf.DeviceDescription),
	}
}

// Load reads the persisted content, rebuilding the derived indices. On a
// parse failure the cache is cleared, per spec.
func (c *DeviceDescriptionCache) Load() error {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	byInterface := make(map[string][]*itf.DeviceDescription)
	if err := c.f.load(&byInterface); err != nil {
		c.ByInterface = make(map[string][]*itf.DeviceDescription)
		c.rebuildIndicesLocked()
		return err
	}
	c.ByInterface = byInterface
	c.rebuildIndicesLocked()
	return nil
}

// Save persists the current content, a no-op if unchanged since the last
// save or load.
func (c *DeviceDescriptionCache) Save() error {
	c.mtx.RLock()
	defer c.mtx.RUnlock()
	return c.f.save(c.ByInterface)
}

func (c *DeviceDescriptionCache) rebuildIndicesLocked() {
	c.channelsOf = make(map[string][]string)
	c.descriptions = make(map[string]*itf.DeviceDescription)
	for _, descrs := range c.ByInterface {
		for _, d := range descrs {
			c.descriptions[d.Address] = d
			if d.IsDevice() {
				c.channelsOf[d.Address] = append(c.channelsOf[d.Address], d.Children...)
			}
		}
	}
}

// AddDevices merges newDescriptions (devices and their channels) into the
// interface's inventory and refreshes the derived indices.
func (c *DeviceDescriptionCache) AddDevices(interfaceID string, newDescriptions []*itf.DeviceDescription) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.ByInterface[interfaceID] = append(c.ByInterface[interfaceID], newDescriptions...)
	c.rebuildIndicesLocked()
}

// RemoveDevice drops deviceAddress and all of its channels from
// interfaceID's inventory.
func (c *DeviceDescriptionCache) RemoveDevice(interfaceID, deviceAddress string) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	kept := c.ByInterface[interfaceID][:0]
	for _, d := range c.ByInterface[interfaceID] {
		if support.DeviceAddress(d.Address) == deviceAddress {
			continue
		}
		kept = append(kept, d)
	}
	c.ByInterface[interfaceID] = kept
	c.rebuildIndicesLocked()
}

// Description returns the description for address (device or channel), and
// false if it is not known.
func (c *DeviceDescriptionCache) Description(address string) (*itf.DeviceDescription, bool) {
	c.mtx.RLock()
	defer c.mtx.RUnlock()
	d, ok := c.descriptions[address]
	return d, ok
}

// ChannelsOf returns the channel addresses of deviceAddress.
func (c *DeviceDescriptionCache) ChannelsOf(deviceAddress string) []string {
	c.mtx.RLock()
	defer c.mtx.RUnlock()
	return append([]string(nil), c.channelsOf[deviceAddress]...)
}

// Devices returns every device-level description known for interfaceID
// (channels excluded).
func (c *DeviceDescriptionCache) Devices(interfaceID string) []*itf.DeviceDescription {
	c.mtx.RLock()
	defer c.mtx.RUnlock()
	var devices []*itf.DeviceDescription
	for _, d := range c.ByInterface[interfaceID] {
		if d.IsDevice() {
			devices = append(devices, d)
		}
	}
	return devices
}
