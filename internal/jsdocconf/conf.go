package jsdocconf

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	ferrors "git.home.luguber.info/inful/jsdocpreview/internal/foundation/errors"
)

// ErrNotFound is returned by Load when the file does not exist.
var ErrNotFound = errors.New("generator config not found")

// Config is a parsed generator configuration document.
type Config struct {
	Path string
	doc  map[string]any
}

// Load reads and parses the configuration at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to read generator config").
			WithContext("path", path).
			Build()
	}
	doc, err := decode(data)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "malformed generator config").
			WithContext("path", path).
			Build()
	}
	return &Config{Path: path, doc: doc}, nil
}

func decode(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, errors.New("top-level value is not an object")
	}
	return doc, nil
}

// Include returns source.include as strings. Non-string entries are skipped.
func (c *Config) Include() []string {
	source, ok := c.doc["source"].(map[string]any)
	if !ok {
		return nil
	}
	switch v := source["include"].(type) {
	case string:
		return []string{v}
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// LayoutFile returns templates.default.layoutFile, if set.
func (c *Config) LayoutFile() (string, bool) {
	def, ok := c.defaultTemplate()
	if !ok {
		return "", false
	}
	s, ok := def["layoutFile"].(string)
	return s, ok && s != ""
}

func (c *Config) defaultTemplate() (map[string]any, bool) {
	templates, ok := c.doc["templates"].(map[string]any)
	if !ok {
		return nil, false
	}
	def, ok := templates["default"].(map[string]any)
	return def, ok
}

func (c *Config) removeLayoutFile() {
	if def, ok := c.defaultTemplate(); ok {
		delete(def, "layoutFile")
	}
}

// Save writes the document back to its path.
func (c *Config) Save() error {
	return writeJSON(c.Path, c.doc)
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryInternal, "encode generator config").Build()
	}
	data = append(data, '\n')
	return writeFileAtomic(path, data)
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return ferrors.FileSystemError("create temp file").WithCause(err).WithContext("path", path).Build()
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(name)
		return ferrors.FileSystemError("write temp file").WithCause(err).WithContext("path", path).Build()
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(name)
		return ferrors.FileSystemError("close temp file").WithCause(err).WithContext("path", path).Build()
	}
	if err := os.Rename(name, path); err != nil {
		_ = os.Remove(name)
		return ferrors.FileSystemError("rename temp file").WithCause(err).WithContext("path", path).Build()
	}
	return nil
}
