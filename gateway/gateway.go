// Package gateway enumerates connection profiles from the runtime's
// gateways directory.
package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"fabenv"
)

// List returns the connection profiles found under dir/gateways, sorted
// by file name with hidden entries excluded. A missing directory is an
// empty list. A profile that fails to parse or lacks a name is a hard
// failure: a corrupt connection profile is an operator-visible bug, not
// an absence.
func List(dir string) ([]fabenv.Gateway, error) {
	gatewaysDir := filepath.Join(dir, "gateways")
	entries, err := os.ReadDir(gatewaysDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read gateways directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	out := make([]fabenv.Gateway, 0, len(names))
	for _, name := range names {
		path := filepath.Join(gatewaysDir, name)
		gw, err := read(path)
		if err != nil {
			return nil, err
		}
		out = append(out, gw)
	}
	return out, nil
}

func read(path string) (fabenv.Gateway, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return fabenv.Gateway{}, fmt.Errorf("read connection profile: %w", err)
	}

	var profile map[string]any
	if err := json.Unmarshal(data, &profile); err != nil {
		return fabenv.Gateway{}, fmt.Errorf("parse connection profile %s: %w", filepath.Base(path), err)
	}

	name, _ := profile["name"].(string)
	if strings.TrimSpace(name) == "" {
		return fabenv.Gateway{}, fmt.Errorf("connection profile %s has no name", filepath.Base(path))
	}

	return fabenv.Gateway{Name: name, Path: path, Profile: profile}, nil
}
