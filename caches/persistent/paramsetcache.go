package persistent

import (
	"sync"

	"github.com/mdzio/go-hmcentral/itf"
	"github.com/mdzio/go-hmcentral/support"
)

// channelParamsets maps a channel address to its paramsets, keyed by
// paramset key (VALUES/MASTER/LINK).
type channelParamsets map[string]itf.ParamsetDescription

// ParamsetDescriptionCache persists, per interface, the paramset
// description of every channel, plus a derived index answering "which
// channel numbers of this device expose this parameter" (used by the
// visibility policy's "relevant on multiple channels" checks).
type ParamsetDescriptionCache struct {
	mtx sync.RWMutex
	f   *file

	// ByInterface is the persisted content: interface id -> channel
	// address -> paramset key -> parameter -> description.
	ByInterface map[string]map[string]channelParamsets

	channelsWithParam map[paramKey]map[int]struct{}
}

type paramKey struct {
	deviceAddress string
	parameter     string
}

// NewParamsetDescriptionCache creates an empty cache backed by
// <storageFolder>/<centralName>_paramset_descriptions.
func NewParamsetDescriptionCache(storageFolder, centralName string) *ParamsetDescriptionCache {
	return &ParamsetDescriptionCache{
		f:                 newFile(storageFolder, centralName, "paramset_descriptions"),
		ByInterface:       make(map[string]map[string]channelParamsets),
		channelsWithParam: make(map[paramKey]map[int]struct{}),
	}
}

// Load reads the persisted content, rebuilding the derived index. On a
// parse failure the cache is cleared.
func (c *ParamsetDescriptionCache) Load() error {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	byInterface := make(map[string]map[string]channelParamsets)
	if err := c.f.load(&byInterface); err != nil {
		c.ByInterface = make(map[string]map[string]channelParamsets)
		c.rebuildIndexLocked()
		return err
	}
	c.ByInterface = byInterface
	c.rebuildIndexLocked()
	return nil
}

// Save persists the current content, a no-op if unchanged.
func (c *ParamsetDescriptionCache) Save() error {
	c.mtx.RLock()
	defer c.mtx.RUnlock()
	return c.f.save(c.ByInterface)
}

func (c *ParamsetDescriptionCache) rebuildIndexLocked() {
	c.channelsWithParam = make(map[paramKey]map[int]struct{})
	for _, byChannel := range c.ByInterface {
		for channelAddr, paramsets := range byChannel {
			no, ok := support.ChannelNo(channelAddr)
			if !ok {
				continue
			}
			dev := support.DeviceAddress(channelAddr)
			for _, paramset := range paramsets {
				for param := range paramset {
					key := paramKey{deviceAddress: dev, parameter: param}
					if c.channelsWithParam[key] == nil {
						c.channelsWithParam[key] = make(map[int]struct{})
					}
					c.channelsWithParam[key][no] = struct{}{}
				}
			}
		}
	}
}

// Put stores the paramset description of channelAddress/paramsetKey for
// interfaceID and refreshes the derived index.
func (c *ParamsetDescriptionCache) Put(interfaceID, channelAddress, paramsetKey string, descr itf.ParamsetDescription) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	if c.ByInterface[interfaceID] == nil {
		c.ByInterface[interfaceID] = make(map[string]channelParamsets)
	}
	if c.ByInterface[interfaceID][channelAddress] == nil {
		c.ByInterface[interfaceID][channelAddress] = make(channelParamsets)
	}
	c.ByInterface[interfaceID][channelAddress][paramsetKey] = descr
	c.rebuildIndexLocked()
}

// Get returns the paramset description of channelAddress/paramsetKey for
// interfaceID, and false if absent.
func (c *ParamsetDescriptionCache) Get(interfaceID, channelAddress, paramsetKey string) (itf.ParamsetDescription, bool) {
	c.mtx.RLock()
	defer c.mtx.RUnlock()
	byChannel, ok := c.ByInterface[interfaceID]
	if !ok {
		return nil, false
	}
	paramsets, ok := byChannel[channelAddress]
	if !ok {
		return nil, false
	}
	descr, ok := paramsets[paramsetKey]
	return descr, ok
}

// ChannelsWithParameter returns the channel numbers of deviceAddress that
// expose parameter in any paramset.
func (c *ParamsetDescriptionCache) ChannelsWithParameter(deviceAddress, parameter string) []int {
	c.mtx.RLock()
	defer c.mtx.RUnlock()
	set := c.channelsWithParam[paramKey{deviceAddress: deviceAddress, parameter: parameter}]
	channels := make([]int, 0, len(set))
	for no := range set {
		channels = append(channels, no)
	}
	return channels
}
