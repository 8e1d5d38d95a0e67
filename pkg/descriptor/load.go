// Copyright 2026 © The Edict Authors
// SPDX-License-Identifier: Apache-2.0

package descriptor

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jllopis/edict/pkg/errors"
)

// Parse decodes one plugin descriptor from YAML and validates it.
// Unknown top-level or nested keys are rejected so typos in descriptor
// files fail loudly at load time.
func Parse(data []byte) (*Plugin, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.New(errors.KindLoad, "empty descriptor")
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var p Plugin
	if err := dec.Decode(&p); err != nil {
		if err == io.EOF {
			return nil, errors.New(errors.KindLoad, "empty descriptor")
		}
		return nil, errors.Wrap(errors.KindLoad, "parse descriptor", err)
	}
	if err := p.Validate(); err != nil {
		return nil, errors.Wrap(errors.KindLoad, "invalid descriptor", err).
			WithPlugin(p.Name)
	}
	return &p, nil
}

// LoadFile parses a single descriptor file.
func LoadFile(path string) (*Plugin, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.KindLoad, fmt.Sprintf("read %s", path), err)
	}
	p, err := Parse(data)
	if err != nil {
		return nil, errors.AsError(err).WithContext("path", path)
	}
	p.Path = path
	return p, nil
}

// LoadDir loads every *.yaml / *.yml file in dir, sorted lexically by file
// name. File order is declaration order: it decides candidate priority for
// shared verbs, so descriptor sets that care about it prefix their files
// (00-tmux.yaml, 10-broot.yaml).
func LoadDir(dir string) ([]*Plugin, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrap(errors.KindLoad, fmt.Sprintf("read dir %s", dir), err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	out := make([]*Plugin, 0, len(names))
	for _, name := range names {
		p, err := LoadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// LoadDirs loads descriptors from several directories in order, skipping
// directories that do not exist. Later directories append after earlier
// ones, preserving cross-directory declaration order.
func LoadDirs(dirs []string) ([]*Plugin, error) {
	var out []*Plugin
	for _, dir := range dirs {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			continue
		}
		plugins, err := LoadDir(dir)
		if err != nil {
			return nil, err
		}
		out = append(out, plugins...)
	}
	return out, nil
}
