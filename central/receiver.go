package central

import (
	"strings"
	"time"

	"github.com/mdzio/go-hmcentral/itf"
	"github.com/mdzio/go-hmcentral/support"
)

// HandleEvent implements callback.Receiver. It is called for every value
// change the backend pushes, including the echoed PONG generated in
// response to Client.Ping.
func (c *Central) HandleEvent(interfaceID, channelAddress, parameter string, value interface{}) {
	c.mtx.Lock()
	ic, known := c.clients[interfaceID]
	if known {
		ic.recordEvent(time.Now())
	}
	c.mtx.Unlock()

	if parameter == "PONG" {
		c.handlePong(ic, interfaceID, value)
		return
	}

	key := support.ParamKey{ChannelAddress: channelAddress, ParamsetKey: string(itf.ParamsetValues), Parameter: parameter}

	c.mtx.RLock()
	ev, isEvent := c.events[key]
	ge, isEntity := c.entities[key]
	c.mtx.RUnlock()

	if isEvent {
		ev.Fire(value)
		c.fireSystemEvent(interfaceID, channelAddress, parameter, value, ev.Kind)
		return
	}
	if isEntity {
		if err := ge.HandleEvent(value); err != nil {
			cLog.Warningf("%s: rejecting event for %s/%s: %v", c.cfg.Name, channelAddress, parameter, err)
		}
		return
	}
	c.dataCache.Set(interfaceID, channelAddress, parameter, value)
}

// handlePong correlates a PONG event's echoed callerID against the
// interface's PingPongCache, firing an UNKNOWN_PONG interface event if it
// doesn't match any ping this Central sent.
func (c *Central) handlePong(ic *interfaceClient, interfaceID string, value interface{}) {
	callerID, ok := value.(string)
	if !ok {
		return
	}
	_, pongTS, ok := parsePong(callerID)
	if !ok {
		return
	}
	if ic == nil {
		return
	}
	if matched := ic.pingPong.HandleReceivedPong(pongTS); !matched {
		c.fireInterfaceEvent(interfaceID, InterfaceEventUnknownPong, map[string]interface{}{"callerID": callerID})
	}
}

func (c *Central) fireSystemEvent(interfaceID, channelAddress, parameter string, value interface{}, kind interface{ String() string }) {
	var eventType SystemEventType
	switch kind.String() {
	case "KEYPRESS":
		eventType = SystemEventKeypress
	case "IMPULSE":
		eventType = SystemEventImpulse
	case "DEVICE_ERROR":
		eventType = SystemEventDeviceError
	default:
		return
	}

	deviceAddr := support.DeviceAddress(channelAddress)
	channelNo, _ := support.ChannelNo(channelAddress)
	deviceType := ""
	c.mtx.RLock()
	if d, ok := c.devices[deviceAddr]; ok {
		deviceType = d.Type
	}
	c.mtx.RUnlock()

	c.bus.fire(SystemEvent{
		Type:        eventType,
		Address:     channelAddress,
		ChannelNo:   channelNo,
		DeviceType:  deviceType,
		InterfaceID: interfaceID,
		Parameter:   parameter,
		Value:       value,
	})
}

// ListDevices implements callback.Receiver: the device descriptions this
// Central currently holds for interfaceID.
func (c *Central) ListDevices(interfaceID string) []*itf.DeviceDescription {
	return c.deviceCache.Devices(interfaceID)
}

// NewDevices implements callback.Receiver, building the Device/Entity
// graph for devices the backend just announced.
func (c *Central) NewDevices(interfaceID string, descrs []*itf.DeviceDescription) {
	c.mtx.RLock()
	ic, ok := c.clients[interfaceID]
	c.mtx.RUnlock()
	if !ok {
		cLog.Warningf("%s: newDevices for unknown interface %s ignored", c.cfg.Name, interfaceID)
		return
	}
	c.deviceCache.AddDevices(interfaceID, descrs)
	c.buildDevices(ic, descrs)
	c.deviceCache.Save()
	c.paramsetCache.Save()
}

// DeleteDevices implements callback.Receiver.
func (c *Central) DeleteDevices(interfaceID string, addresses []string) {
	c.mtx.Lock()
	for _, addr := range addresses {
		delete(c.devices, addr)
		c.removeEntitiesForLocked(addr)
		c.deviceCache.RemoveDevice(interfaceID, addr)
	}
	c.mtx.Unlock()
	c.deviceCache.Save()
}

// removeEntitiesForLocked removes every GenericEntity/Event whose channel
// address belongs to deviceAddress. Caller must hold c.mtx.
func (c *Central) removeEntitiesForLocked(deviceAddress string) {
	for key := range c.entities {
		if support.DeviceAddress(key.ChannelAddress) == deviceAddress {
			delete(c.entities, key)
		}
	}
	for key := range c.events {
		if support.DeviceAddress(key.ChannelAddress) == deviceAddress {
			delete(c.events, key)
		}
	}
}

// UpdateDevice implements callback.Receiver. hint is a backend-defined
// update-reason code; this library re-fetches the device description
// unconditionally rather than branching on it.
func (c *Central) UpdateDevice(interfaceID, address string, hint int) {
	c.mtx.RLock()
	ic, ok := c.clients[interfaceID]
	c.mtx.RUnlock()
	if !ok {
		return
	}
	descr, err := ic.client.GetDeviceDescription(address)
	if err != nil {
		cLog.Warningf("%s: updateDevice refetch failed for %s: %v", c.cfg.Name, address, err)
		return
	}
	c.deviceCache.AddDevices(interfaceID, []*itf.DeviceDescription{descr})
	c.buildDevices(ic, []*itf.DeviceDescription{descr})
	c.deviceCache.Save()
}

// ReplaceDevice implements callback.Receiver: the backend has swapped a
// device's address (e.g. after a teach-in of a replacement unit).
func (c *Central) ReplaceDevice(interfaceID, oldAddress, newAddress string) {
	c.mtx.Lock()
	dev, ok := c.devices[oldAddress]
	if ok {
		delete(c.devices, oldAddress)
		c.removeEntitiesForLocked(oldAddress)
		dev.Address = newAddress
		c.devices[newAddress] = dev
	}
	c.deviceCache.RemoveDevice(interfaceID, oldAddress)
	c.mtx.Unlock()

	c.mtx.RLock()
	ic, icOK := c.clients[interfaceID]
	c.mtx.RUnlock()
	if icOK {
		if descr, err := ic.client.GetDeviceDescription(newAddress); err == nil {
			c.deviceCache.AddDevices(interfaceID, []*itf.DeviceDescription{descr})
			c.buildDevices(ic, []*itf.DeviceDescription{descr})
		}
	}
	c.deviceCache.Save()
}

// ReaddedDevice implements callback.Receiver: devices previously deleted
// have reappeared on the bus (e.g. after a factory reset and re-pairing).
// This library treats it exactly like NewDevices after an explicit
// re-fetch, since the backend only supplies addresses here.
func (c *Central) ReaddedDevice(interfaceID string, deletedAddresses []string) {
	c.mtx.RLock()
	ic, ok := c.clients[interfaceID]
	c.mtx.RUnlock()
	if !ok {
		return
	}
	for _, addr := range deletedAddresses {
		descr, err := ic.client.GetDeviceDescription(addr)
		if err != nil {
			cLog.Warningf("%s: readdedDevice refetch failed for %s: %v", c.cfg.Name, addr, err)
			continue
		}
		c.deviceCache.AddDevices(interfaceID, []*itf.DeviceDescription{descr})
		c.buildDevices(ic, []*itf.DeviceDescription{descr})
	}
	c.deviceCache.Save()
}

// HandleError implements callback.Receiver.
func (c *Central) HandleError(interfaceID string, code int, message string) {
	cLog.Errorf("%s: backend reported error on %s (%d): %s", c.cfg.Name, interfaceID, code, message)
	if strings.Contains(strings.ToUpper(message), "DE_INIT_FAILED") {
		return
	}
	c.fireInterfaceEvent(interfaceID, InterfaceEventError, map[string]interface{}{"code": code, "message": message})
}
