// Package export writes anonymized copies of a device's description and
// paramset descriptions to disk, for attaching to bug reports without
// exposing a controller's real addresses. Grounded on the teacher's
// caches/persistent.file (hash-gated load/save), generalized here to a
// plain atomic write since export files are one-shot snapshots rather than
// a cache kept in sync with in-memory state.
package export

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sync"

	"github.com/mdzio/go-hmcentral/caches/persistent"
	"github.com/mdzio/go-hmcentral/errs"
	"github.com/mdzio/go-hmcentral/itf"
	"github.com/mdzio/go-hmcentral/support"
)

const (
	deviceDescriptionsDir   = "export_device_descriptions"
	paramsetDescriptionsDir = "export_paramset_descriptions"
)

// addressBook maps real device addresses to synthetic VCU<7-digit>
// addresses. A single addressBook passed across both the device-description
// and paramset-description files of one export keeps a device's synthetic
// address consistent between them.
type addressBook struct {
	mtx      sync.Mutex
	assigned map[string]string
}

func newAddressBook() *addressBook {
	return &addressBook{assigned: make(map[string]string)}
}

// anonymize replaces the device-address portion of address with a
// consistent synthetic VCU address, preserving any channel suffix.
func (b *addressBook) anonymize(address string) string {
	dev := support.DeviceAddress(address)
	b.mtx.Lock()
	synthetic, ok := b.assigned[dev]
	if !ok {
		synthetic = fmt.Sprintf("VCU%07d", rand.Intn(10000000))
		b.assigned[dev] = synthetic
	}
	b.mtx.Unlock()
	if no, isChannel := support.ChannelNo(address); isChannel {
		return support.ChannelAddress(synthetic, no)
	}
	return synthetic
}

// anonymizedDevice mirrors itf.DeviceDescription with its address-bearing
// fields replaced by their synthetic equivalents; the embedded pointer
// supplies every other field unchanged. The three named fields shadow the
// embedded ones of the same name during JSON encoding.
type anonymizedDevice struct {
	*itf.DeviceDescription
	Address  string
	Parent   string   `json:",omitempty"`
	Children []string `json:",omitempty"`
}

func anonymizeDevice(book *addressBook, d *itf.DeviceDescription) *anonymizedDevice {
	out := &anonymizedDevice{
		DeviceDescription: d,
		Address:           book.anonymize(d.Address),
	}
	if d.Parent != "" {
		out.Parent = book.anonymize(d.Parent)
	}
	if len(d.Children) > 0 {
		children := make([]string, len(d.Children))
		for i, c := range d.Children {
			children[i] = book.anonymize(c)
		}
		out.Children = children
	}
	return out
}

// Device writes an anonymized snapshot of deviceAddress (the device itself
// and every known channel) to
// <storageFolder>/export_device_descriptions/<type>.json and the matching
// paramset descriptions to
// <storageFolder>/export_paramset_descriptions/<type>.json.
func Device(storageFolder, interfaceID, deviceAddress string, deviceCache *persistent.DeviceDescriptionCache, paramsetCache *persistent.ParamsetDescriptionCache) error {
	root, ok := deviceCache.Description(deviceAddress)
	if !ok {
		return errs.Newf(errs.ConfigError, "export: device %s is not known", deviceAddress)
	}

	addresses := append([]string{deviceAddress}, deviceCache.ChannelsOf(deviceAddress)...)
	book := newAddressBook()

	descrs := make([]*anonymizedDevice, 0, len(addresses))
	paramsets := make(map[string]map[string]itf.ParamsetDescription, len(addresses))
	for _, addr := range addresses {
		descr, ok := deviceCache.Description(addr)
		if !ok {
			continue
		}
		descrs = append(descrs, anonymizeDevice(book, descr))

		byParamset := make(map[string]itf.ParamsetDescription)
		for _, paramsetKey := range descr.Paramsets {
			if ps, ok := paramsetCache.Get(interfaceID, addr, paramsetKey); ok {
				byParamset[paramsetKey] = ps
			}
		}
		if len(byParamset) > 0 {
			paramsets[book.anonymize(addr)] = byParamset
		}
	}

	filename := root.Type + ".json"
	if err := writeJSON(filepath.Join(storageFolder, deviceDescriptionsDir, filename), descrs); err != nil {
		return err
	}
	return writeJSON(filepath.Join(storageFolder, paramsetDescriptionsDir, filename), paramsets)
}

// writeJSON encodes v and writes it to path via a temp-file-then-rename, so
// a crash mid-write never leaves a truncated export file behind, the same
// contract as caches/persistent.file.save.
func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errs.Wrap(errs.InternalError, err, "encoding export data failed")
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errs.Wrapf(errs.InternalError, err, "creating export directory %s failed", dir)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return errs.Wrapf(errs.InternalError, err, "creating temp file in %s failed", dir)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errs.Wrapf(errs.InternalError, err, "writing export file %s failed", path)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errs.Wrapf(errs.InternalError, err, "writing export file %s failed", path)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return errs.Wrapf(errs.InternalError, err, "writing export file %s failed", path)
	}
	return nil
}
