package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/pasid-sim/pasid-sim/sim"
	"github.com/pasid-sim/pasid-sim/sim/cluster"
)

const (
	sourcePropertiesFile = "source.properties"
	componentKey         = "component"
	seedKey              = "seed"
)

// parseProperties reads "key=value" or "key:value" lines. Blank lines and
// lines starting with '#' or '!' are skipped, as are lines with neither
// separator. '=' wins when a line holds both.
func parseProperties(r io.Reader) (map[string]string, error) {
	props := make(map[string]string)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "!") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			key, value, ok = strings.Cut(line, ":")
		}
		if !ok {
			continue
		}
		props[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return props, nil
}

func readPropertiesFile(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	props, err := parseProperties(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return props, nil
}

// decodeProperties fills out from flat properties. Dotted keys address nested
// structs ("workers.count"), comma-separated values fill slices and numbers
// are parsed from their text. Keys that match no field are errors.
func decodeProperties(props map[string]string, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToSliceHookFunc(","),
			trimSliceHook,
		),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(nestProperties(props))
}

// trimSliceHook drops the blanks around and between list items.
func trimSliceHook(from reflect.Type, _ reflect.Type, data any) (any, error) {
	items, ok := data.([]string)
	if !ok || from.Kind() != reflect.Slice {
		return data, nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s := strings.TrimSpace(item); s != "" {
			out = append(out, s)
		}
	}
	return out, nil
}

func nestProperties(props map[string]string) map[string]any {
	root := make(map[string]any)
	for key, value := range props {
		parts := strings.Split(key, ".")
		node := root
		for _, p := range parts[:len(parts)-1] {
			child, ok := node[p].(map[string]any)
			if !ok {
				child = make(map[string]any)
				node[p] = child
			}
			node = child
		}
		node[parts[len(parts)-1]] = value
	}
	return root
}

// loadPropertiesDir builds a deployment from a directory of .properties
// files. source.properties describes the source and may carry the seed;
// every other file names its kind in a "component" key.
func loadPropertiesDir(dir string) (cluster.DeploymentConfig, error) {
	var cfg cluster.DeploymentConfig

	srcPath := filepath.Join(dir, sourcePropertiesFile)
	props, err := readPropertiesFile(srcPath)
	if err != nil {
		return cfg, fmt.Errorf("%w: %v", sim.ErrInvalidConfiguration, err)
	}
	if s, ok := props[seedKey]; ok {
		seed, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return cfg, fmt.Errorf("%w: %s: seed %q is not an integer", sim.ErrInvalidConfiguration, srcPath, s)
		}
		cfg.Seed = seed
		delete(props, seedKey)
	}
	delete(props, componentKey)
	if err := decodeProperties(props, &cfg.Source); err != nil {
		return cfg, fmt.Errorf("%w: %s: %v", sim.ErrInvalidConfiguration, srcPath, err)
	}

	paths, err := filepath.Glob(filepath.Join(dir, "*.properties"))
	if err != nil {
		return cfg, err
	}
	sort.Strings(paths)
	for _, path := range paths {
		if filepath.Base(path) == sourcePropertiesFile {
			continue
		}
		props, err := readPropertiesFile(path)
		if err != nil {
			return cfg, fmt.Errorf("%w: %v", sim.ErrInvalidConfiguration, err)
		}
		kind := props[componentKey]
		delete(props, componentKey)
		switch kind {
		case "dispatcher":
			var d sim.DispatcherConfig
			if err := decodeProperties(props, &d); err != nil {
				return cfg, fmt.Errorf("%w: %s: %v", sim.ErrInvalidConfiguration, path, err)
			}
			cfg.Dispatchers = append(cfg.Dispatchers, d)
		case "worker":
			var w sim.WorkerConfig
			if err := decodeProperties(props, &w); err != nil {
				return cfg, fmt.Errorf("%w: %s: %v", sim.ErrInvalidConfiguration, path, err)
			}
			cfg.Workers = append(cfg.Workers, w)
		default:
			return cfg, fmt.Errorf("%w: %s: component must be dispatcher or worker, got %q",
				sim.ErrInvalidConfiguration, path, kind)
		}
	}
	return cfg, nil
}
