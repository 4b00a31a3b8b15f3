// Package config loads the storage core's tunables from YAML, applying
// defaults for anything the file omits.
package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"coredb/logging"
)

// Config collects every tunable the storage core's constructors need.
type Config struct {
	PageSize               int            `yaml:"page_size"`
	PoolFrames             int            `yaml:"pool_frames"`
	TombstoneCapacity      int            `yaml:"tombstone_capacity"`
	BTreeMaxSize           int            `yaml:"btree_max_size"`
	HashJoinPartitions     int            `yaml:"hash_join_partitions"`
	ExternalSortPageBudget int            `yaml:"external_sort_page_budget"`
	DataDir                string         `yaml:"data_dir"`
	Logging                logging.Config `yaml:"logging"`
}

// Default returns a Config with sensible values for local development and
// tests.
func Default() Config {
	return Config{
		PageSize:               4096,
		PoolFrames:             64,
		TombstoneCapacity:      8,
		BTreeMaxSize:           128,
		HashJoinPartitions:     8,
		ExternalSortPageBudget: 16,
		DataDir:                "./data",
		Logging: logging.Config{
			Level:      "info",
			Format:     "console",
			OutputFile: "stdout",
		},
	}
}

// Load reads a YAML file at path and overlays it onto Default(). A path of
// "" returns Default() unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
