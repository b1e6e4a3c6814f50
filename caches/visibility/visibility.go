// Package visibility decides, for a given (model, channel number, paramset
// key, parameter), whether the library should instantiate an entity for it.
// The rules are static tables plus a user-editable un-ignore file; none of
// it depends on a live backend connection.
package visibility

import (
	"bufio"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	paramsetValues = "VALUES"
	paramsetMaster = "MASTER"
)

// relevantMasterParamsets lists, per device-type prefix, the channel
// numbers and MASTER parameters that are exposed by default.
var relevantMasterParamsets = map[string]struct {
	channels   map[int]struct{}
	parameters []string
}{
	"hmipw-drbl4":   {channels(1, 5, 9, 13), []string{"CHANNEL_OPERATION_MODE"}},
	"hmip-drbli4":   {channels(1, 2, 3, 4, 5, 6, 7, 8, 9, 13, 17, 21), []string{"CHANNEL_OPERATION_MODE"}},
	"hmip-drsi1":    {channels(1), []string{"CHANNEL_OPERATION_MODE"}},
	"hmip-drsi4":    {channels(1, 2, 3, 4), []string{"CHANNEL_OPERATION_MODE"}},
	"hmip-drdi3":    {channels(1, 2, 3), []string{"CHANNEL_OPERATION_MODE"}},
	"hmip-dsd-pcb":  {channels(1), []string{"CHANNEL_OPERATION_MODE"}},
	"hmip-fci1":     {channels(1), []string{"CHANNEL_OPERATION_MODE"}},
	"hmip-fci6":     {channels(1, 2, 3, 4, 5, 6), []string{"CHANNEL_OPERATION_MODE"}},
	"hmipw-fio6":    {channels(1, 2, 3, 4, 5, 6), []string{"CHANNEL_OPERATION_MODE"}},
	"hmip-fsi16":    {channels(1), []string{"CHANNEL_OPERATION_MODE"}},
	"hmip-mio16-pcb": {channels(13, 14, 15, 16), []string{"CHANNEL_OPERATION_MODE"}},
	"hmip-mod-rc8":  {channels(1, 2, 3, 4, 5, 6, 7, 8), []string{"CHANNEL_OPERATION_MODE"}},
	"hmipw-dri16":   {channels(rangeTo(16)...), []string{"CHANNEL_OPERATION_MODE"}},
	"hmipw-dri32":   {channels(rangeTo(32)...), []string{"CHANNEL_OPERATION_MODE"}},
	"alpha-ip-rbg":  {channels(1), []string{"TEMPERATURE_MAXIMUM", "TEMPERATURE_MINIMUM"}},
	"hm-cc-rt-dn":   {channels(1), []string{"TEMPERATURE_MAXIMUM", "TEMPERATURE_MINIMUM"}},
	"hm-cc-vg-1":    {channels(1), []string{"TEMPERATURE_MAXIMUM", "TEMPERATURE_MINIMUM"}},
	"hmip-bwth":     {channels(1), []string{"TEMPERATURE_MAXIMUM", "TEMPERATURE_MINIMUM"}},
	"hmip-etrv":     {channels(1), []string{"TEMPERATURE_MAXIMUM", "TEMPERATURE_MINIMUM"}},
	"hmip-heating":  {channels(1), []string{"TEMPERATURE_MAXIMUM", "TEMPERATURE_MINIMUM"}},
	"hmip-sth":      {channels(1), []string{"TEMPERATURE_MAXIMUM", "TEMPERATURE_MINIMUM"}},
	"hmip-wth":      {channels(1), []string{"TEMPERATURE_MAXIMUM", "TEMPERATURE_MINIMUM"}},
	"hmipw-sth":     {channels(1), []string{"TEMPERATURE_MAXIMUM", "TEMPERATURE_MINIMUM"}},
	"hmipw-wth":     {channels(1), []string{"TEMPERATURE_MAXIMUM", "TEMPERATURE_MINIMUM"}},
}

func channels(nos ...int) map[int]struct{} {
	m := make(map[int]struct{}, len(nos))
	for _, n := range nos {
		m[n] = struct{}{}
	}
	return m
}

func rangeTo(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i + 1
	}
	return out
}

// hiddenParameters are promoted to entities but default to non-visible
// unless explicitly un-ignored.
var hiddenParameters = map[string]struct{}{
	"CONFIG_PENDING":         {},
	"ERROR":                  {},
	"STICKY_UN_REACH":        {},
	"UN_REACH":               {},
	"UPDATE_PENDING":         {},
	"CHANNEL_OPERATION_MODE": {},
	"TEMPERATURE_MAXIMUM":    {},
	"TEMPERATURE_MINIMUM":    {},
	"ACTIVITY_STATE":         {},
	"DIRECTION":              {},
}

// ignoredParameters never get an entity within VALUES, barring an
// applicable un-ignore.
var ignoredParameters = map[string]struct{}{
	"AES_KEY": {}, "BOOST_TIME": {}, "BOOT": {}, "BURST_LIMIT_WARNING": {},
	"CLEAR_WINDOW_OPEN_SYMBOL": {}, "COMBINED_PARAMETER": {}, "DATE_TIME_UNKNOWN": {},
	"DECISION_VALUE": {}, "DEVICE_IN_BOOTLOADER": {}, "DEW_POINT_ALARM": {},
	"EMERGENCY_OPERATION": {}, "EXTERNAL_CLOCK": {}, "FROST_PROTECTION": {},
	"HUMIDITY_LIMITER": {}, "IDENTIFICATION_MODE_LCD_BACKLIGHT": {},
	"INCLUSION_UNSUPPORTED_DEVICE": {}, "INHIBIT": {}, "INSTALL_MODE": {},
	"LEVEL_COMBINED": {}, "LEVEL_REAL": {}, "OLD_LEVEL": {},
	"PARTY_SET_POINT_TEMPERATURE": {}, "PARTY_TIME_END": {}, "PARTY_TIME_START": {},
	"PROCESS": {}, "QUICK_VETO_TIME": {}, "RAMP_STOP": {}, "RELOCK_DELAY": {},
	"SECTION": {}, "SELF_CALIBRATION": {}, "SET_SYMBOL_FOR_HEATING_PHASE": {},
	"SMOKE_DETECTOR_COMMAND": {}, "STATE_UNCERTAIN": {}, "SWITCH_POINT_OCCURED": {},
	"TEMPERATURE_LIMITER": {}, "TEMPERATURE_OUT_OF_RANGE": {}, "TIME_OF_OPERATION": {},
	"WOCHENPROGRAMM": {},
}

var ignoredParameterSuffixes = []string{
	"OVERFLOW", "OVERRUN", "REPORTING", "RESULT", "STATUS", "SUBMIT",
}

var ignoredParameterPrefixes = []string{
	"ADJUSTING", "ERR_TTM", "IDENTIFICATION_MODE_KEY_VISUAL", "IDENTIFY_",
	"PARTY_START", "PARTY_STOP", "STATUS_FLAG", "WEEK_PROGRAM", "WORKING",
}

// ignoreParametersByDevice lists, per parameter, the device-type prefixes
// for which that VALUES parameter is hidden.
var ignoreParametersByDevice = map[string][]string{
	"CURRENT_ILLUMINATION": {"hmip-smi", "hmip-smo", "hmip-spi"},
	"LOWBAT": {
		"hm-lc-sw1-fm", "hm-lc-sw1pbu-fm", "hm-lc-sw1-pl-dn-r1",
		"hm-lc-sw1-pcb", "hm-lc-sw4-dr", "hm-swi-3-fm",
	},
	"LOW_BAT":          {"hmip-bwth", "hmip-pcbs"},
	"OPERATING_VOLTAGE": {
		"elv-sh-bs2", "hmip-bs2", "hmip-bdt", "hmip-bsl", "hmip-bsm",
		"hmip-bwth", "hmip-dr", "hmip-fdt", "hmip-fsm", "hmip-mod-oc8",
		"hmip-pcbs", "hmip-pdt", "hmip-pmfs", "hmip-ps", "hmip-sfd",
	},
}

// unIgnoreParametersByDevice lists, per device-type prefix, VALUES
// parameters that override the universal ignore rules above.
var unIgnoreParametersByDevice = map[string][]string{
	"hmip-dld":       {"ERROR_JAMMED"},
	"hmip-swsd":      {"SMOKE_DETECTOR_ALARM_STATUS"},
	"hm-sec-win":     {"DIRECTION", "WORKING", "ERROR", "STATUS"},
	"hm-sec-key":     {"DIRECTION", "ERROR"},
	"hmip-pcbs-bat":  {"OPERATING_VOLTAGE", "LOW_BAT"},
}

var acceptOnlyOnChannel = map[string]int{
	"LOWBAT": 0,
}

// customUnIgnoreFile is the name of the optional un-ignore file under a
// central's storage folder.
const customUnIgnoreFile = "unignore"

type deviceChannelKey struct {
	deviceType string
	channelNo  int
}

// Cache evaluates the visibility rules, folding in any custom un-ignore
// entries loaded from disk. Safe for concurrent use after Load returns;
// Load itself should be called before first use, from a single goroutine.
type Cache struct {
	storageFolder string

	// paramsetKey -> parameter, un-ignored regardless of device.
	unIgnoreGeneral map[string]map[string]struct{}

	// deviceType(lower) -> channelNo -> paramsetKey -> parameter, from the
	// "parameter@device_type:channel_no:paramset_key" file syntax.
	unIgnoreByDeviceChannel map[deviceChannelKey]map[string]map[string]struct{}

	// deviceType(lower) prefix -> channelNo set, MASTER paramsets that are
	// relevant by default (static table plus file-derived additions).
	relevantMasterByDevice map[string]map[int]struct{}
}

// NewCache creates a cache seeded with the static tables; storageFolder is
// where the optional un-ignore file is looked up.
func NewCache(storageFolder string) *Cache {
	c := &Cache{
		storageFolder: storageFolder,
		unIgnoreGeneral: map[string]map[string]struct{}{
			paramsetValues: {},
			paramsetMaster: {},
		},
		unIgnoreByDeviceChannel: make(map[deviceChannelKey]map[string]map[string]struct{}),
		relevantMasterByDevice:  make(map[string]map[int]struct{}),
	}
	for deviceType, entry := range relevantMasterParamsets {
		c.relevantMasterByDevice[deviceType] = entry.channels
	}
	return c
}

// Load reads the optional un-ignore file at <storageFolder>/unignore. A
// missing file is not an error. Malformed lines are skipped individually.
func (c *Cache) Load() error {
	path := filepath.Join(c.storageFolder, customUnIgnoreFile)
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		c.addLine(scanner.Text())
	}
	return scanner.Err()
}

func (c *Cache) addLine(line string) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return
	}

	if strings.Contains(line, "@") {
		// parameter@device_type:channel_no:paramset_key
		parts := strings.SplitN(line, "@", 2)
		if len(parts) != 2 {
			return
		}
		parameter := parts[0]
		deviceData := strings.Split(parts[1], ":")
		if len(deviceData) != 3 {
			return
		}
		deviceType := strings.ToLower(deviceData[0])
		channelNo, err := strconv.Atoi(deviceData[1])
		if err != nil {
			return
		}
		paramsetKey := deviceData[2]

		key := deviceChannelKey{deviceType, channelNo}
		byParamset, ok := c.unIgnoreByDeviceChannel[key]
		if !ok {
			byParamset = make(map[string]map[string]struct{})
			c.unIgnoreByDeviceChannel[key] = byParamset
		}
		if byParamset[paramsetKey] == nil {
			byParamset[paramsetKey] = make(map[string]struct{})
		}
		byParamset[paramsetKey][parameter] = struct{}{}

		if paramsetKey == paramsetMaster {
			if c.relevantMasterByDevice[deviceType] == nil {
				c.relevantMasterByDevice[deviceType] = make(map[int]struct{})
			}
			c.relevantMasterByDevice[deviceType][channelNo] = struct{}{}
		}
		return
	}

	if strings.Contains(line, ":") {
		// paramset_key:parameter
		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			return
		}
		paramsetKey, parameter := parts[0], parts[1]
		if paramsetKey == paramsetValues || paramsetKey == paramsetMaster {
			c.unIgnoreGeneral[paramsetKey][parameter] = struct{}{}
		}
		return
	}

	// bare parameter, implicitly VALUES
	c.unIgnoreGeneral[paramsetValues][line] = struct{}{}
}

func hasPrefixIn(deviceTypeLower string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(deviceTypeLower, p) {
			return true
		}
	}
	return false
}

// isUnIgnored reports whether parameter has been explicitly un-ignored for
// (deviceType, channelNo, paramsetKey) by any of the general, per-device,
// or file-sourced rules.
func (c *Cache) isUnIgnored(deviceType string, channelNo int, paramsetKey, parameter string) bool {
	deviceTypeLower := strings.ToLower(deviceType)

	if _, ok := c.unIgnoreGeneral[paramsetKey][parameter]; ok {
		return true
	}

	key := deviceChannelKey{deviceTypeLower, channelNo}
	if byParamset, ok := c.unIgnoreByDeviceChannel[key]; ok {
		if _, ok := byParamset[paramsetKey][parameter]; ok {
			return true
		}
	}

	for deviceTypePrefix, parameters := range unIgnoreParametersByDevice {
		if strings.HasPrefix(deviceTypeLower, deviceTypePrefix) {
			for _, p := range parameters {
				if p == parameter {
					return true
				}
			}
		}
	}

	return false
}

// IsVisible applies the six ordered visibility rules of the policy and
// reports whether an entity should be instantiated for this parameter.
func (c *Cache) IsVisible(deviceType string, channelNo int, paramsetKey, parameter string) bool {
	return !c.ignoreParameter(deviceType, channelNo, paramsetKey, parameter)
}

// ignoreParameter mirrors the policy's ordered-rule evaluation; it is kept
// separate from IsVisible so the boolean sense stays obvious at each rule.
func (c *Cache) ignoreParameter(deviceType string, channelNo int, paramsetKey, parameter string) bool {
	deviceTypeLower := strings.ToLower(deviceType)

	if paramsetKey == paramsetValues {
		// Rule 1: device-specific (or general/file) un-ignore wins outright.
		if c.isUnIgnored(deviceType, channelNo, paramsetKey, parameter) {
			return false
		}

		// Rule 2 + 3: universal ignore set and wildcard affixes.
		if _, ok := ignoredParameters[parameter]; ok {
			return true
		}
		if hasSuffixIn(parameter, ignoredParameterSuffixes) || hasPrefixIn2(parameter, ignoredParameterPrefixes) {
			return true
		}

		// Rule 4: per-device ignore table.
		if devicePrefixes, ok := ignoreParametersByDevice[parameter]; ok {
			if hasPrefixIn(deviceTypeLower, devicePrefixes) {
				return true
			}
		}

		// Rule 5: channel restriction.
		if acceptChannel, ok := acceptOnlyOnChannel[parameter]; ok {
			if acceptChannel != channelNo {
				return true
			}
		}
		return false
	}

	if paramsetKey == paramsetMaster {
		// Rule 1 (MASTER variant): an explicit file un-ignore always wins.
		key := deviceChannelKey{deviceTypeLower, channelNo}
		if byParamset, ok := c.unIgnoreByDeviceChannel[key]; ok {
			if _, ok := byParamset[paramsetMaster][parameter]; ok {
				return false
			}
		}

		// Rule 6: a MASTER parameter is created only if the device's
		// (prefix, channel) pair is in the relevant table.
		if c.isRelevantMaster(deviceTypeLower, channelNo) {
			return false
		}
		return true
	}

	return false
}

func (c *Cache) isRelevantMaster(deviceTypeLower string, channelNo int) bool {
	for prefix, channelNos := range c.relevantMasterByDevice {
		if strings.HasPrefix(deviceTypeLower, prefix) {
			if _, ok := channelNos[channelNo]; ok {
				return true
			}
		}
	}
	return false
}

func hasSuffixIn(s string, suffixes []string) bool {
	for _, suf := range suffixes {
		if strings.HasSuffix(s, suf) {
			return true
		}
	}
	return false
}

func hasPrefixIn2(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

// IsHidden reports whether parameter is in the small fixed set that is
// instantiated as an entity but defaults to non-visible, unless the user
// has un-ignored it for this exact (deviceType, channelNo, paramsetKey).
func (c *Cache) IsHidden(deviceType string, channelNo int, paramsetKey, parameter string) bool {
	if _, ok := hiddenParameters[parameter]; !ok {
		return false
	}
	return !c.isUnIgnored(deviceType, channelNo, paramsetKey, parameter)
}

// IsRelevantParamset reports whether paramsetKey should be inspected at
// all for deviceType/channelNo: VALUES always is; MASTER only for
// device/channel pairs in the relevant table.
func (c *Cache) IsRelevantParamset(deviceType, paramsetKey string, channelNo int) bool {
	if paramsetKey == paramsetValues {
		return true
	}
	if paramsetKey == paramsetMaster {
		return c.isRelevantMaster(strings.ToLower(deviceType), channelNo)
	}
	return false
}
