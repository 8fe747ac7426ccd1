package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Top-level YAML config key names used for shallow merge.
const (
	keyOutput  = "output"
	keyLogging = "logging"
	keyStore   = "store"
	keyNotify  = "notify"
	keyJobs    = "jobs"
	keyCache   = "cache"
	keyMetrics = "metrics"
)

// ShallowMergeYAML loads a YAML file and merges its top-level keys onto
// target. A key present in the overlay replaces the whole section; absent
// keys and unknown keys leave target unchanged.
func ShallowMergeYAML(target *Config, overlayPath string) error {
	if target == nil {
		return errors.New("nil target *Config in ShallowMergeYAML")
	}

	data, err := os.ReadFile(overlayPath)
	if err != nil {
		return fmt.Errorf("reading overlay file %s: %w", overlayPath, err)
	}

	var overlay map[string]yaml.Node
	if err = yaml.Unmarshal(data, &overlay); err != nil {
		return fmt.Errorf("parsing overlay YAML from %s: %w", overlayPath, err)
	}

	for key, node := range overlay {
		if err = unmarshalSection(target, key, &node); err != nil {
			return fmt.Errorf("applying overlay section %q: %w", key, err)
		}
	}
	return nil
}

// unmarshalSection decodes node into a fresh zero value of the section
// named by key, so the overlay replaces rather than merges the section.
func unmarshalSection(target *Config, key string, node *yaml.Node) error {
	switch key {
	case keyOutput:
		return replaceSection(node, &target.Output)
	case keyLogging:
		return replaceSection(node, &target.Logging)
	case keyStore:
		return replaceSection(node, &target.Store)
	case keyNotify:
		return replaceSection(node, &target.Notify)
	case keyJobs:
		return replaceSection(node, &target.Jobs)
	case keyCache:
		return replaceSection(node, &target.Cache)
	case keyMetrics:
		return replaceSection(node, &target.Metrics)
	default:
		return nil
	}
}

func replaceSection[T any](node *yaml.Node, dst *T) error {
	var v T
	if err := node.Decode(&v); err != nil {
		return err
	}
	*dst = v
	return nil
}
