// Package dynamic implements the two in-memory, non-persisted caches that
// are rebuilt from the backend on startup and on every reconnect:
// DeviceDetailsCache (names, rooms, functions) and CentralDataCache (bulk
// current values). Both are refreshed on their own schedule, gated by a
// minimum refresh interval so a flapping connection doesn't hammer the
// backend.
package dynamic

import (
	"sync"
	"time"

	"github.com/mdzio/go-hmcentral/support"
)

// The minimum refresh interval is MAX_CACHE_AGE/2; MAX_CACHE_AGE itself is a
// central-level setting, so the caller computes the interval and passes it
// to NewDeviceDetailsCache rather than it being hardcoded here.

// DeviceDetailsCache holds per-address and per-channel metadata that has no
// home in DeviceDescription: display names, the owning interface, room and
// function assignments. Safe for concurrent use.
type DeviceDetailsCache struct {
	mtx sync.RWMutex

	names           map[string]string
	interfaces      map[string]string
	deviceChannels  map[string][]string
	channelRooms    map[string][]string
	channelFuncs    map[string][]string
	lastRefresh     time.Time
	refreshInterval time.Duration
}

// NewDeviceDetailsCache creates an empty cache. refreshInterval is the
// minimum time Refresh waits between actual backend fetches (MAX_CACHE_AGE/2
// per spec.md §4.5).
func NewDeviceDetailsCache(refreshInterval time.Duration) *DeviceDetailsCache {
	return &DeviceDetailsCache{
		names:           make(map[string]string),
		interfaces:      make(map[string]string),
		deviceChannels:  make(map[string][]string),
		channelRooms:    make(map[string][]string),
		channelFuncs:    make(map[string][]string),
		refreshInterval: refreshInterval,
	}
}

// DetailsSource supplies the raw inventory a Refresh populates the cache
// from; central wires this to jsonrpc calls (Device.listAllDetail,
// Room.getAll, Subsection.getAll).
type DetailsSource interface {
	// Names returns address -> display name, for devices and channels.
	Names() (map[string]string, error)
	// Interfaces returns device address -> owning interface id.
	Interfaces() (map[string]string, error)
	// ChannelRooms returns channel address -> room names.
	ChannelRooms() (map[string][]string, error)
	// ChannelFunctions returns channel address -> function names.
	ChannelFunctions() (map[string][]string, error)
}

// Refresh fetches fresh data from src unless refreshInterval has not yet
// elapsed since the last successful refresh, in which case it is a no-op
// returning false. now is passed in rather than read from time.Now so
// callers (and tests) control the clock.
func (c *DeviceDetailsCache) Refresh(now time.Time, src DetailsSource) (bool, error) {
	c.mtx.Lock()
	if !c.lastRefresh.IsZero() && now.Sub(c.lastRefresh) < c.refreshInterval {
		c.mtx.Unlock()
		return false, nil
	}
	c.mtx.Unlock()

	names, err := src.Names()
	if err != nil {
		return false, err
	}
	interfaces, err := src.Interfaces()
	if err != nil {
		return false, err
	}
	channelRooms, err := src.ChannelRooms()
	if err != nil {
		return false, err
	}
	channelFuncs, err := src.ChannelFunctions()
	if err != nil {
		return false, err
	}

	deviceChannels := make(map[string][]string)
	for addr := range names {
		if support.IsChannelAddress(addr) {
			dev := support.DeviceAddress(addr)
			deviceChannels[dev] = append(deviceChannels[dev], addr)
		}
	}

	c.mtx.Lock()
	c.names = names
	c.interfaces = interfaces
	c.channelRooms = channelRooms
	c.channelFuncs = channelFuncs
	c.deviceChannels = deviceChannels
	c.lastRefresh = now
	c.mtx.Unlock()
	return true, nil
}

// Name returns the display name of address, and false if unknown.
func (c *DeviceDetailsCache) Name(address string) (string, bool) {
	c.mtx.RLock()
	defer c.mtx.RUnlock()
	n, ok := c.names[address]
	return n, ok
}

// Interface returns the interface id owning deviceAddress, and false if
// unknown.
func (c *DeviceDetailsCache) Interface(deviceAddress string) (string, bool) {
	c.mtx.RLock()
	defer c.mtx.RUnlock()
	i, ok := c.interfaces[deviceAddress]
	return i, ok
}

// Rooms returns the room names assigned to channelAddress.
func (c *DeviceDetailsCache) Rooms(channelAddress string) []string {
	c.mtx.RLock()
	defer c.mtx.RUnlock()
	return append([]string(nil), c.channelRooms[channelAddress]...)
}

// Functions returns the function names assigned to channelAddress.
func (c *DeviceDetailsCache) Functions(channelAddress string) []string {
	c.mtx.RLock()
	defer c.mtx.RUnlock()
	return append([]string(nil), c.channelFuncs[channelAddress]...)
}

// Room returns deviceAddress's single room, and true only if exactly one
// distinct room is assigned across all of its channels. Channels without a
// room assignment do not count.
func (c *DeviceDetailsCache) Room(deviceAddress string) (string, bool) {
	c.mtx.RLock()
	defer c.mtx.RUnlock()
	rooms := make(map[string]struct{})
	for _, ch := range c.deviceChannels[deviceAddress] {
		for _, r := range c.channelRooms[ch] {
			rooms[r] = struct{}{}
		}
	}
	if len(rooms) != 1 {
		return "", false
	}
	for r := range rooms {
		return r, true
	}
	return "", false
}
