// Package persistent implements the two on-disk, JSON-encoded caches that
// survive a restart: the device-description cache and the paramset-
// description cache. Both share the same save/load contract (hash-gated
// atomic write, tolerant load) factored into the file type in this file.
package persistent

import (
	"crypto/sha256"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/mdzio/go-hmcentral/errs"
	"github.com/mdzio/go-logging"
)

var log = logging.Get("persistent-cache")

// file implements the hash-gated atomic save/load contract shared by
// DeviceDescriptionCache and ParamsetDescriptionCache: save() computes the
// SHA-256 of the in-memory content and skips writing if it is unchanged
// since the last save; load() is a no-op if the file is absent, and
// otherwise always decodes the file and records its hash (it does not
// compare the file against what is in memory first). Grounded on the
// teacher's sync.RWMutex-guarded Container in itf/vdevices/container.go,
// generalized from an in-memory-only guard to one that also tracks a
// last-written hash.
type file struct {
	path        string
	lastHash    [sha256.Size]byte
	hasLastHash bool
}

func newFile(storageFolder, centralName, postfix string) *file {
	return &file{path: filepath.Join(storageFolder, centralName+"_"+postfix)}
}

// save encodes v as JSON and writes it to f.path, skipping the write
// entirely if v's content hash matches the last value written or loaded.
func (f *file) save(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errs.Wrap(errs.InternalError, err, "encoding cache content failed")
	}
	hash := sha256.Sum256(data)
	if f.hasLastHash && hash == f.lastHash {
		return nil
	}
	if err := writeFileAtomic(f.path, data); err != nil {
		return errs.Wrapf(errs.InternalError, err, "writing cache file %s failed", f.path)
	}
	f.lastHash = hash
	f.hasLastHash = true
	return nil
}

// load decodes the JSON content of f.path into v. If the file does not
// exist, it returns nil without modifying v. On a JSON parse failure, the
// caller's contract (spec: "on JSON parse failure, clear them") is left to
// the caller: load returns the error and the caller resets v to its zero
// value.
func (f *file) load(v interface{}) error {
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errs.Wrapf(errs.InternalError, err, "reading cache file %s failed", f.path)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return errs.Wrapf(errs.ClientError, err, "parsing cache file %s failed", f.path)
	}
	f.lastHash = sha256.Sum256(data)
	f.hasLastHash = true
	return nil
}

// writeFileAtomic writes data to a temp file in the same directory as path,
// then renames it into place, so a crash mid-write never leaves a
// truncated cache file behind.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
