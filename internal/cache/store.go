// Package cache persists API payloads as JSON files under a version-scoped
// directory. Presence of a file is the only signal that a resource is done.
package cache

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
)

// ErrNotFound is returned by Read when the key has no file.
var ErrNotFound = eris.New("cache: not found")

const (
	districtsFile   = "districts.json"
	summaryCSVFile  = "summary.csv"
	summaryXLSXFile = "summary.xlsx"
)

// Key identifies one cached resource by its file name.
type Key string

// DistrictsKey is the full congressional district list.
func DistrictsKey() Key { return districtsFile }

// ProvidersKey is the provider list of one district.
func ProvidersKey(district string) Key {
	return Key("providers-" + district + ".json")
}

// StatsKey is one provider's statistics within one district.
func StatsKey(district, providerID string) Key {
	return Key("stats-" + district + "-" + providerID + ".json")
}

// RankingKey is the ranking properties of one district.
func RankingKey(district string) Key {
	return Key("ranking-properties-" + district + ".json")
}

// Store reads and writes cached payloads for a single data version.
// It is not safe for concurrent writers.
type Store struct {
	dir string
}

// New returns a Store rooted at dataDir/version, creating the directory.
func New(dataDir, version string) (*Store, error) {
	if version == "" {
		return nil, eris.New("cache: data version is required")
	}
	dir := filepath.Join(dataDir, version)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "cache: create %s", dir)
	}
	return &Store{dir: dir}, nil
}

// Open returns a Store for an existing version directory without creating it.
func Open(dataDir, version string) (*Store, error) {
	dir := filepath.Join(dataDir, version)
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, eris.Wrapf(ErrNotFound, "cache: version directory %s", dir)
		}
		return nil, eris.Wrapf(err, "cache: stat %s", dir)
	}
	if !info.IsDir() {
		return nil, eris.Errorf("cache: %s is not a directory", dir)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the version directory.
func (s *Store) Dir() string { return s.dir }

// Path returns the file path for key.
func (s *Store) Path(key Key) string {
	return filepath.Join(s.dir, string(key))
}

// SummaryPath is where the compiled CSV summary is written.
func (s *Store) SummaryPath() string { return filepath.Join(s.dir, summaryCSVFile) }

// SummaryXLSXPath is where the workbook export is written.
func (s *Store) SummaryXLSXPath() string { return filepath.Join(s.dir, summaryXLSXFile) }

// Exists reports whether key has a regular file.
func (s *Store) Exists(key Key) (bool, error) {
	info, err := os.Stat(s.Path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, eris.Wrapf(err, "cache: stat %s", key)
	}
	return info.Mode().IsRegular(), nil
}

// Write stores value as JSON under key. Raw JSON (json.RawMessage) is
// written as received. The file only appears once fully written.
func (s *Store) Write(key Key, value any) error {
	var data []byte
	switch v := value.(type) {
	case json.RawMessage:
		data = v
	case []byte:
		data = v
	default:
		var err error
		data, err = json.Marshal(value)
		if err != nil {
			return eris.Wrapf(err, "cache: marshal %s", key)
		}
	}
	if !json.Valid(data) {
		return eris.Errorf("cache: refusing to write invalid JSON to %s", key)
	}
	return WriteFileAtomic(s.Path(key), data)
}

// Read decodes the JSON stored under key into dst. Numbers decode as
// json.Number when dst holds interface values.
func (s *Store) Read(key Key, dst any) error {
	f, err := os.Open(s.Path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return eris.Wrapf(ErrNotFound, "cache: read %s", key)
		}
		return eris.Wrapf(err, "cache: open %s", key)
	}
	defer f.Close() //nolint:errcheck

	dec := json.NewDecoder(f)
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		return eris.Wrapf(err, "cache: decode %s", key)
	}
	return nil
}

// ReadRaw returns the stored bytes for key.
func (s *Store) ReadRaw(key Key) ([]byte, error) {
	data, err := os.ReadFile(s.Path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, eris.Wrapf(ErrNotFound, "cache: read %s", key)
		}
		return nil, eris.Wrapf(err, "cache: read %s", key)
	}
	return data, nil
}

// WriteFileAtomic writes data to a temp file in the target directory and
// renames it over path.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return eris.Wrapf(err, "cache: create temp for %s", path)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return eris.Wrapf(err, "cache: write %s", path)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return eris.Wrapf(err, "cache: close %s", path)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return eris.Wrapf(err, "cache: rename into %s", path)
	}
	return nil
}
