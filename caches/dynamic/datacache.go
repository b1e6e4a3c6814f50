package dynamic

import "sync"

// CentralDataCache holds the last bulk-fetched value of every (channel
// address, parameter) the backend reported, across all interfaces. It is
// the cold-start source for a GenericEntity's value before the first
// change event arrives. Safe for concurrent use.
type CentralDataCache struct {
	mtx    sync.RWMutex
	values map[string]map[string]map[string]interface{}
}

// NewCentralDataCache creates an empty cache.
func NewCentralDataCache() *CentralDataCache {
	return &CentralDataCache{values: make(map[string]map[string]map[string]interface{})}
}

// BulkSource supplies a full value snapshot of one interface; central wires
// this to the interface's listDevices plus one VALUES getParamset call per
// listed address.
type BulkSource interface {
	// Values returns channel address -> parameter -> value for every
	// reachable channel of the interface.
	Values(interfaceID string) (map[string]map[string]interface{}, error)
}

// Refresh replaces interfaceID's entire value set with a fresh snapshot
// from src.
func (c *CentralDataCache) Refresh(interfaceID string, src BulkSource) error {
	values, err := src.Values(interfaceID)
	if err != nil {
		return err
	}
	c.mtx.Lock()
	c.values[interfaceID] = values
	c.mtx.Unlock()
	return nil
}

// Value returns the last known value of (channelAddress, parameter) on
// interfaceID, and false if it has never been reported.
func (c *CentralDataCache) Value(interfaceID, channelAddress, parameter string) (interface{}, bool) {
	c.mtx.RLock()
	defer c.mtx.RUnlock()
	byChannel, ok := c.values[interfaceID]
	if !ok {
		return nil, false
	}
	params, ok := byChannel[channelAddress]
	if !ok {
		return nil, false
	}
	v, ok := params[parameter]
	return v, ok
}

// Set records a single value update, used when an event or a write
// confirms a value outside of a bulk refresh.
func (c *CentralDataCache) Set(interfaceID, channelAddress, parameter string, value interface{}) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	byChannel, ok := c.values[interfaceID]
	if !ok {
		byChannel = make(map[string]map[string]interface{})
		c.values[interfaceID] = byChannel
	}
	params, ok := byChannel[channelAddress]
	if !ok {
		params = make(map[string]interface{})
		byChannel[channelAddress] = params
	}
	params[parameter] = value
}
