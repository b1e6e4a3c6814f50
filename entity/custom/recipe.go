// Package custom builds composite entities ("custom entities") that bind
// several GenericEntities spread across a device's channels into one
// logical control, e.g. a cover with LEVEL/LEVEL_2/STOP spread over a
// primary and secondary channel.
package custom

import "strings"

// FieldSpec locates one backing parameter relative to a device's primary
// channel: ChannelOffset 0 means the primary channel itself, 1 the first
// secondary channel in declaration order, and so on.
type FieldSpec struct {
	ChannelOffset int
	Parameter     string
}

// Recipe is the data-driven description of one custom entity kind,
// keyed by a lower-cased device-type prefix in the Recipes table. Recipes
// describe shape only; Build is the single factory function
// that interprets them against an already-built GenericEntity set.
type Recipe struct {
	Name string

	// PrimaryChannel is the device's own channel number that ChannelOffset
	// 0 resolves to, mirroring ED_PRIMARY_CHANNEL of the device family this
	// recipe is modeled on: the channel actually carrying the field
	// parameters is rarely channel 0, the maintenance channel.
	PrimaryChannel int

	Fields     map[string]FieldSpec
	Additional map[int][]string // channel offset -> parameters promoted to visible
}

// Recipes is keyed by device-type prefix (lower-case, matched with
// strings.HasPrefix against the device's actual type).
var Recipes = map[string]Recipe{
	"hmip-bsm": {
		Name:           "switch",
		PrimaryChannel: 4,
		Fields: map[string]FieldSpec{
			"state":   {ChannelOffset: 0, Parameter: "STATE"},
			"on_time": {ChannelOffset: 0, Parameter: "ON_TIME"},
		},
	},
	"hmip-brc": {
		Name:           "cover",
		PrimaryChannel: 3,
		Fields: map[string]FieldSpec{
			"level":   {ChannelOffset: 0, Parameter: "LEVEL"},
			"level_2": {ChannelOffset: 0, Parameter: "LEVEL_2"},
			"stop":    {ChannelOffset: 0, Parameter: "STOP"},
		},
		Additional: map[int][]string{
			0: {"ACTIVITY_STATE"},
		},
	},
}

// Lookup finds the recipe matching deviceType, if any, by longest matching
// prefix (so a more specific entry wins over a generic one).
func Lookup(deviceType string) (Recipe, bool) {
	lower := strings.ToLower(deviceType)
	best, bestLen := Recipe{}, -1
	found := false
	for prefix, recipe := range Recipes {
		if len(prefix) > bestLen && strings.HasPrefix(lower, prefix) {
			best, bestLen, found = recipe, len(prefix), true
		}
	}
	return best, found
}
