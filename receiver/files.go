package receiver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// UpdateProfile sets the ID of every Breakpoints.Gear element whose Comment
// is a payload label. Unknown fields are kept. It returns the number of gear
// elements rewritten.
func UpdateProfile(path string, ids map[string][]int) (int, error) {
	var profile map[string]json.RawMessage
	if err := readJSON(path, &profile); err != nil {
		return 0, fmt.Errorf("receiver: profile: %w", err)
	}

	var breakpoints map[string]json.RawMessage
	if err := field(profile, "Breakpoints", &breakpoints); err != nil {
		return 0, fmt.Errorf("receiver: profile: %w", err)
	}
	var gear []map[string]json.RawMessage
	if err := field(breakpoints, "Gear", &gear); err != nil {
		return 0, fmt.Errorf("receiver: profile: Breakpoints.%w", err)
	}

	matched := 0
	for i, g := range gear {
		raw, ok := g["Comment"]
		if !ok {
			continue
		}
		var comment *string
		if err := json.Unmarshal(raw, &comment); err != nil {
			return 0, fmt.Errorf("receiver: profile: Gear[%d].Comment: %w", i, err)
		}
		if comment == nil {
			continue
		}
		v, ok := ids[*comment]
		if !ok {
			continue
		}
		enc, err := json.Marshal(nonNil(v))
		if err != nil {
			return 0, err
		}
		g["ID"] = enc
		matched++
	}

	var err error
	if breakpoints["Gear"], err = json.Marshal(gear); err != nil {
		return 0, err
	}
	if profile["Breakpoints"], err = json.Marshal(breakpoints); err != nil {
		return 0, err
	}
	if err := writeJSON(path, profile); err != nil {
		return 0, fmt.Errorf("receiver: profile: %w", err)
	}
	return matched, nil
}

// UpdateSettings replaces, for each mapper entry label→key, the value of an
// existing settings key with the ids of that label. Keys missing from the
// settings object are never added. It returns the number of keys rewritten.
func UpdateSettings(path string, mapper map[string]string, ids map[string][]int) (int, error) {
	var settings map[string]json.RawMessage
	if err := readJSON(path, &settings); err != nil {
		return 0, fmt.Errorf("receiver: settings file: %w", err)
	}
	if settings == nil {
		return 0, fmt.Errorf("receiver: settings file: not an object")
	}

	labels := make([]string, 0, len(mapper))
	for label := range mapper {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	updated := 0
	for _, label := range labels {
		key := mapper[label]
		if _, ok := settings[key]; !ok {
			continue
		}
		v, ok := ids[label]
		if !ok {
			continue
		}
		enc, err := json.Marshal(nonNil(v))
		if err != nil {
			return 0, err
		}
		settings[key] = enc
		updated++
	}

	if err := writeJSON(path, settings); err != nil {
		return 0, fmt.Errorf("receiver: settings file: %w", err)
	}
	return updated, nil
}

func field(obj map[string]json.RawMessage, name string, v any) error {
	raw, ok := obj[name]
	if !ok {
		return fmt.Errorf("%s: missing", name)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

func nonNil(ids []int) []int {
	if ids == nil {
		return []int{}
	}
	return ids
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%s is not valid json: %w", path, err)
	}
	return nil
}

// writeJSON pretty-prints v with two-space indentation and replaces path
// through a temporary file and a rename.
func writeJSON(path string, v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("serialize: %w", err)
	}

	mode := os.FileMode(0o644)
	if fi, err := os.Stat(path); err == nil {
		mode = fi.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("write tmp: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write tmp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write tmp: %w", err)
	}
	if err := os.Chmod(tmpName, mode); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("chmod tmp: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}
