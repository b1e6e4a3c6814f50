package custom

import (
	"github.com/mdzio/go-hmcentral/device"
	"github.com/mdzio/go-hmcentral/entity"
	"github.com/mdzio/go-hmcentral/errs"
	"github.com/mdzio/go-hmcentral/support"
)

// CustomEntity is a composite entity built from a Recipe: one logical
// control backed by GenericEntities spread across a device's primary and
// secondary channels.
type CustomEntity struct {
	CentralName string
	UniqueID    string
	Name        string
	Device      *device.Device

	fields map[string]*entity.GenericEntity
}

// Field returns the backing GenericEntity for a logical field name.
func (c *CustomEntity) Field(name string) (*entity.GenericEntity, bool) {
	e, ok := c.fields[name]
	return e, ok
}

// GenericEntityLookup resolves the GenericEntity already built for
// (channelAddress, parameter); central supplies this when assembling
// CustomEntities after its own per-parameter pass.
type GenericEntityLookup func(channelAddress, parameter string) (*entity.GenericEntity, bool)

// Build assembles a CustomEntity for dev from the recipe matching its
// device type. primaryChannel and secondaryChannels (in declaration order)
// resolve a FieldSpec's ChannelOffset to an actual channel address.
// Creation is all-or-nothing: if any field's backing GenericEntity is
// missing, Build fails rather than returning a partially wired entity.
func Build(centralName string, dev *device.Device, primaryChannelNo int, secondaryChannelNos []int, lookup GenericEntityLookup) (*CustomEntity, error) {
	recipe, ok := Lookup(dev.Type)
	if !ok {
		return nil, errs.Newf(errs.ConfigError, "no custom entity recipe for device type %s", dev.Type)
	}

	offsets := append([]int{primaryChannelNo}, secondaryChannelNos...)
	fields := make(map[string]*entity.GenericEntity, len(recipe.Fields))
	for name, spec := range recipe.Fields {
		if spec.ChannelOffset >= len(offsets) {
			return nil, errs.Newf(errs.ConfigError, "recipe %s field %s references channel offset %d beyond declared channels", recipe.Name, name, spec.ChannelOffset)
		}
		channelAddress := support.ChannelAddress(dev.Address, offsets[spec.ChannelOffset])
		ge, ok := lookup(channelAddress, spec.Parameter)
		if !ok {
			return nil, errs.Newf(errs.ConfigError, "recipe %s missing backing entity %s/%s for field %s", recipe.Name, channelAddress, spec.Parameter, name)
		}
		fields[name] = ge
	}

	return &CustomEntity{
		CentralName: centralName,
		UniqueID:    support.UniqueIdentifier(centralName, dev.Address, recipe.Name),
		Name:        recipe.Name,
		Device:      dev,
		fields:      fields,
	}, nil
}

// AdditionalEntities returns the (channelAddress, parameter) pairs the
// recipe promotes to visible even if the default visibility policy would
// hide them.
func AdditionalEntities(dev *device.Device, primaryChannelNo int, secondaryChannelNos []int) []support.ParamKey {
	recipe, ok := Lookup(dev.Type)
	if !ok {
		return nil
	}
	offsets := append([]int{primaryChannelNo}, secondaryChannelNos...)
	var out []support.ParamKey
	for offset, parameters := range recipe.Additional {
		if offset >= len(offsets) {
			continue
		}
		channelAddress := support.ChannelAddress(dev.Address, offsets[offset])
		for _, parameter := range parameters {
			out = append(out, support.ParamKey{ChannelAddress: channelAddress, ParamsetKey: "VALUES", Parameter: parameter})
		}
	}
	return out
}
