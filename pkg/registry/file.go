package registry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	mferrors "github.com/gomanifold/manifold/pkg/errors"
)

// Marshal encodes the registry as indented JSON with sorted keys and a
// trailing newline. Equal registries always encode to identical bytes.
func Marshal(r *Registry) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r.records); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Parse decodes and validates registry JSON.
func Parse(data []byte) (*Registry, error) {
	var records map[string]Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to decode registry: %w", err)
	}
	return New(records)
}

// Load reads the registry file at path.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, mferrors.NewRegistryUnreadable(path, err)
	}
	reg, err := Parse(data)
	if err != nil {
		return nil, mferrors.NewRegistryUnreadable(path, err)
	}
	return reg, nil
}

// LoadFS reads the registry file name from fsys, typically an embed.FS.
func LoadFS(fsys fs.FS, name string) (*Registry, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, mferrors.NewRegistryUnreadable(name, err)
	}
	reg, err := Parse(data)
	if err != nil {
		return nil, mferrors.NewRegistryUnreadable(name, err)
	}
	return reg, nil
}

// Save writes the registry to path. The file is written to a temporary file
// in the same directory and renamed into place, so readers never observe a
// partial registry. Concurrent writers are not coordinated; the last rename
// wins.
func Save(path string, r *Registry) error {
	data, err := Marshal(r)
	if err != nil {
		return mferrors.NewRegistryUnwritable(path, err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return mferrors.NewRegistryUnwritable(path, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return mferrors.NewRegistryUnwritable(path, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return mferrors.NewRegistryUnwritable(path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return mferrors.NewRegistryUnwritable(path, err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return mferrors.NewRegistryUnwritable(path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return mferrors.NewRegistryUnwritable(path, err)
	}
	return nil
}
