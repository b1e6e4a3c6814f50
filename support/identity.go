package support

import (
	"crypto/sha256"
	"encoding/hex"
)

// uniqueIdentifierLen is the number of hex characters kept from the SHA-256
// digest; 16 hex chars (8 bytes) is ample to avoid collisions across a
// single central's device/parameter space while staying short enough to
// embed in an address_path segment.
const uniqueIdentifierLen = 16

// UniqueIdentifier derives the stable external identifier of an entity from
// the owning central's name, its address (device or channel) and its
// parameter name. Two entities collide only if all three inputs match.
func UniqueIdentifier(centralName, address, parameter string) string {
	h := sha256.New()
	h.Write([]byte(centralName))
	h.Write([]byte{0})
	h.Write([]byte(address))
	h.Write([]byte{0})
	h.Write([]byte(parameter))
	sum := h.Sum(nil)
	return hex.EncodeToString(sum)[:uniqueIdentifierLen]
}

// AddressPath builds the external handle of an entity, combining the fixed
// platform tag with the owning interface id and the entity's unique
// identifier.
func AddressPath(platform, interfaceID, uniqueIdentifier string) string {
	return platform + "/" + interfaceID + "/" + uniqueIdentifier + "/"
}
