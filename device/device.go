// Package device models the backend's device/channel inventory as the
// library sees it: a thin, JSON-RPC/XML-RPC-agnostic record of what a
// Central has discovered, independent of the entities built on top of it.
//
// Device and Channel never hold a pointer back to their owning Central;
// per the arena+indices design, a Central looks devices up by address in
// its own map, and a Device's availability is pushed into it by whoever
// owns the connection (central.ConnectionChecker, the event dispatcher).
package device

import (
	"sync"

	"github.com/mdzio/go-hmcentral/itf"
	"github.com/mdzio/go-hmcentral/support"
)

// Channel is one addressable sub-unit of a Device; channel 0 is the device
// itself.
type Channel struct {
	Address string
	No      int
	Type    string
}

// Device is the library's local record of one backend device: its
// channels, and the availability state derived from UN_REACH events plus
// any interface-wide forced override.
type Device struct {
	mtx sync.RWMutex

	CentralName string
	Interface   string
	Address     string
	Type        string
	Firmware    string
	Channels    []*Channel

	unreach           bool
	unreachKnown      bool
	forcedUnavailable bool
}

// New builds a Device from the channel-0 DeviceDescription. Use AddChannel
// for every other channel belonging to it.
func New(centralName, interfaceID string, descr *itf.DeviceDescription) *Device {
	return &Device{
		CentralName: centralName,
		Interface:   interfaceID,
		Address:     descr.Address,
		Type:        descr.Type,
		Firmware:    descr.Firmware,
	}
}

// AddChannel records a channel belonging to this device, derived from its
// own DeviceDescription (Parent == d.Address).
func (d *Device) AddChannel(descr *itf.DeviceDescription) {
	no, ok := support.ChannelNo(descr.Address)
	if !ok {
		return
	}
	d.mtx.Lock()
	defer d.mtx.Unlock()
	d.Channels = append(d.Channels, &Channel{
		Address: descr.Address,
		No:      no,
		Type:    descr.Type,
	})
}

// Channel returns the channel with the given number, if known.
func (d *Device) Channel(no int) (*Channel, bool) {
	d.mtx.RLock()
	defer d.mtx.RUnlock()
	for _, ch := range d.Channels {
		if ch.No == no {
			return ch, true
		}
	}
	return nil, false
}

// SetUnreach records the device's latest UN_REACH value, as reported on
// channel 0.
func (d *Device) SetUnreach(v bool) {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	d.unreach = v
	d.unreachKnown = true
}

// SetForcedUnavailable overrides availability regardless of UN_REACH; a
// Central sets this on every device of an interface after three
// consecutive connection-check failures, and clears it on reconnect.
func (d *Device) SetForcedUnavailable(v bool) {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	d.forcedUnavailable = v
}

// Available reports whether the device should be treated as reachable: not
// forced unavailable, and (if ever reported) not UN_REACH. A device whose
// UN_REACH has never been observed is optimistically available.
func (d *Device) Available() bool {
	d.mtx.RLock()
	defer d.mtx.RUnlock()
	if d.forcedUnavailable {
		return false
	}
	if d.unreachKnown && d.unreach {
		return false
	}
	return true
}
