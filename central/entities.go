package central

import (
	"github.com/mdzio/go-hmcentral/device"
	"github.com/mdzio/go-hmcentral/entity"
	"github.com/mdzio/go-hmcentral/entity/custom"
	"github.com/mdzio/go-hmcentral/itf"
	"github.com/mdzio/go-hmcentral/support"
)

// interfaceWriter adapts one interface's itf.Client to entity.Writer.
type interfaceWriter struct {
	client *itf.Client
}

func (w *interfaceWriter) SetValue(channelAddress, parameter string, value interface{}) error {
	return w.client.SetValue(channelAddress, parameter, value)
}

func (w *interfaceWriter) PutParamset(channelAddress, paramsetKey string, values map[string]interface{}) error {
	return w.client.PutParamset(channelAddress, itf.ParamsetKey(paramsetKey), values)
}

// discoverInterface fetches every device currently reported for ic,
// diffs it against the persistent device-description cache, and builds
// the Device/Entity graph for any address this Central has not seen
// before, per spec.md §4.7.
func (c *Central) discoverInterface(ic *interfaceClient) error {
	descrs, err := ic.client.ListDevices()
	if err != nil {
		return err
	}

	known := make(map[string]bool)
	for _, d := range c.deviceCache.Devices(ic.interfaceID) {
		known[d.Address] = true
	}

	var fresh []*itf.DeviceDescription
	for _, d := range descrs {
		if !known[d.Address] {
			fresh = append(fresh, d)
		}
	}
	if len(fresh) == 0 {
		return nil
	}

	c.deviceCache.AddDevices(ic.interfaceID, fresh)
	c.buildDevices(ic, fresh)
	c.deviceCache.Save()
	c.paramsetCache.Save()
	return nil
}

// buildDevices groups fresh (channel) descriptions by their owning device
// address, building one device.Device per group, then builds its entities.
func (c *Central) buildDevices(ic *interfaceClient, fresh []*itf.DeviceDescription) {
	byDevice := make(map[string][]*itf.DeviceDescription)
	for _, d := range fresh {
		addr := support.DeviceAddress(d.Address)
		byDevice[addr] = append(byDevice[addr], d)
	}

	for addr, channels := range byDevice {
		var root *itf.DeviceDescription
		var rest []*itf.DeviceDescription
		for _, d := range channels {
			if d.Address == addr {
				root = d
			} else {
				rest = append(rest, d)
			}
		}
		if root == nil {
			continue
		}

		dev := device.New(c.cfg.Name, ic.interfaceID, root)
		for _, ch := range rest {
			dev.AddChannel(ch)
		}

		c.mtx.Lock()
		c.devices[addr] = dev
		c.mtx.Unlock()

		c.buildEntitiesForDevice(ic, dev, root, rest)
	}
}

func (c *Central) buildEntitiesForDevice(ic *interfaceClient, dev *device.Device, root *itf.DeviceDescription, channels []*itf.DeviceDescription) {
	writer := &interfaceWriter{client: ic.client}
	built := make(map[support.ParamKey]*entity.GenericEntity)

	all := append([]*itf.DeviceDescription{root}, channels...)
	for _, chDescr := range all {
		channelNo, _ := support.ChannelNo(chDescr.Address)
		for _, paramsetKey := range chDescr.Paramsets {
			descr, err := ic.client.GetParamsetDescription(chDescr.Address, itf.ParamsetKey(paramsetKey))
			if err != nil {
				cLog.Warningf("%s: getParamsetDescription failed for %s/%s: %v", c.cfg.Name, chDescr.Address, paramsetKey, err)
				continue
			}
			c.paramsetCache.Put(ic.interfaceID, chDescr.Address, paramsetKey, descr)

			if !c.visCache.IsRelevantParamset(dev.Type, paramsetKey, channelNo) {
				continue
			}

			for parameter, paramDescr := range descr {
				if !c.visCache.IsVisible(dev.Type, channelNo, paramsetKey, parameter) {
					continue
				}

				key := support.ParamKey{ChannelAddress: chDescr.Address, ParamsetKey: paramsetKey, Parameter: parameter}

				if kind, ok := entity.PromoteParameter(parameter); ok && paramsetKey == string(itf.ParamsetValues) {
					ev := entity.NewEvent(c.cfg.Name, chDescr.Address, parameter, kind)
					c.mtx.Lock()
					c.events[key] = ev
					c.mtx.Unlock()
					continue
				}

				kind := entity.KindFor(paramDescr.Type, paramDescr.ValueList)
				ge := entity.New(c.cfg.Name, kind.String(), ic.interfaceID, chDescr.Address, paramsetKey, parameter, paramDescr, writer)
				built[key] = ge

				c.mtx.Lock()
				c.entities[key] = ge
				c.mtx.Unlock()
			}
		}
	}

	c.attachCustomEntity(dev, built)
}

// attachCustomEntity assembles a CustomEntity for dev if a recipe matches
// its device type. The matching recipe's PrimaryChannel names the device's
// own channel number ChannelOffset 0 resolves to; every other channel of
// dev becomes a secondary channel, in declaration order.
func (c *Central) attachCustomEntity(dev *device.Device, built map[support.ParamKey]*entity.GenericEntity) {
	recipe, ok := custom.Lookup(dev.Type)
	if !ok {
		return
	}

	secondary := make([]int, 0, len(dev.Channels))
	for _, ch := range dev.Channels {
		if ch.No != recipe.PrimaryChannel {
			secondary = append(secondary, ch.No)
		}
	}

	lookup := func(channelAddress, parameter string) (*entity.GenericEntity, bool) {
		if ge, ok := built[support.ParamKey{ChannelAddress: channelAddress, ParamsetKey: "VALUES", Parameter: parameter}]; ok {
			return ge, true
		}
		c.mtx.RLock()
		defer c.mtx.RUnlock()
		ge, ok := c.entities[support.ParamKey{ChannelAddress: channelAddress, ParamsetKey: "VALUES", Parameter: parameter}]
		return ge, ok
	}

	ce, err := custom.Build(c.cfg.Name, dev, recipe.PrimaryChannel, secondary, lookup)
	if err != nil {
		return
	}
	c.mtx.Lock()
	c.customEnts = append(c.customEnts, ce)
	c.mtx.Unlock()

	for _, key := range custom.AdditionalEntities(dev, recipe.PrimaryChannel, secondary) {
		if ge, ok := built[key]; ok {
			ge.DefaultVisible = true
		}
	}
}
