// Package support collects the small, stateless helpers shared across this
// module's packages: address parsing, TLS context construction, value
// coercion, HTTP header building and a handful of cosmetic lookup tables.
// None of it is protocol-specific; it exists so xmlrpc, jsonrpc, device and
// central don't each reinvent the same string munging.
package support

import (
	"strconv"
	"strings"
)

// DeviceAddress returns the device-address portion of a channel or device
// address, truncating at the first ':'. DeviceAddress("VCU123:4") ==
// "VCU123"; DeviceAddress("VCU123") == "VCU123".
func DeviceAddress(address string) string {
	if i := strings.IndexByte(address, ':'); i >= 0 {
		return address[:i]
	}
	return address
}

// ChannelNo returns the channel number of a channel address, and false if
// address has no channel suffix (a bare device address) or the suffix isn't
// a non-negative integer.
func ChannelNo(address string) (int, bool) {
	i := strings.IndexByte(address, ':')
	if i < 0 {
		return 0, false
	}
	n, err := strconv.Atoi(address[i+1:])
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// ChannelAddress builds the channel address for channel channelNo of
// deviceAddress, the inverse of DeviceAddress+ChannelNo.
func ChannelAddress(deviceAddress string, channelNo int) string {
	return deviceAddress + ":" + strconv.Itoa(channelNo)
}

// IsChannelAddress reports whether address names a channel (has a ':'
// suffix) rather than a bare device.
func IsChannelAddress(address string) bool {
	return strings.IndexByte(address, ':') >= 0
}
