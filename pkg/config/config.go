// Package config holds the engine's top-level configuration struct.
// Loading is deliberately thin — one YAML file, no env overlay, no flag
// binding, no hot reload — mirroring how the teacher keeps manager.Config
// minimal and lets cmd/ assemble the rest from flags.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/latticedb/lattice/pkg/catalog"
	"github.com/latticedb/lattice/pkg/log"
)

// PlannerConfig mirrors planner.Config's fields so they can be expressed
// in YAML without pkg/config importing pkg/planner; cmd/latticed copies
// them into a planner.Config field by field.
type PlannerConfig struct {
	PlanCacheSize       int  `yaml:"plan_cache_size"`
	BypassCache         bool `yaml:"bypass_cache"`
	PersistPlan         bool `yaml:"persist_plan"`
	IndexScanPartitions int  `yaml:"index_scan_partitions"`
}

// IndexDefaults holds the per-index-kind tunables spec §6.3 calls out,
// used to seed the `map[string]string` config a `CreateIndex` call hands
// to `pkg/exec`'s index factory when the caller doesn't override a field.
type IndexDefaults struct {
	VAFMarksPerDimension int    `yaml:"vaf_marks_per_dimension"`
	PQNumSubspaces       int    `yaml:"pq_num_subspaces"`
	PQNumCentroids       int    `yaml:"pq_num_centroids"`
	PQSampleSize         int    `yaml:"pq_sample_size"`
	GroupingNumGroups    int    `yaml:"grouping_num_groups"`
	LSHStages            int    `yaml:"lsh_stages"`
	LSHBuckets           int    `yaml:"lsh_buckets"`
	LSHSamplingMethod    string `yaml:"lsh_sampling_method"`
	LSHConsiderImaginary bool   `yaml:"lsh_consider_imaginary"`
	Seed                 int64  `yaml:"seed"`
}

// ForIndexType renders the subset of defaults relevant to typ into the
// map[string]string config exec.Entity.CreateIndex/buildIndex expect,
// letting a CreateIndex caller omit tunables entirely and still get
// values consistent with the engine's configuration file.
func (d IndexDefaults) ForIndexType(typ catalog.IndexType) map[string]string {
	cfg := map[string]string{"seed": strconv.FormatInt(d.Seed, 10)}
	switch typ {
	case catalog.IndexVAFile:
		cfg["marks_per_dimension"] = strconv.Itoa(d.VAFMarksPerDimension)
	case catalog.IndexPQ:
		cfg["num_subspaces"] = strconv.Itoa(d.PQNumSubspaces)
		cfg["num_centroids"] = strconv.Itoa(d.PQNumCentroids)
		cfg["sample_size"] = strconv.Itoa(d.PQSampleSize)
	case catalog.IndexGrouping:
		cfg["num_groups"] = strconv.Itoa(d.GroupingNumGroups)
	case catalog.IndexLSH:
		cfg["stages"] = strconv.Itoa(d.LSHStages)
		cfg["buckets"] = strconv.Itoa(d.LSHBuckets)
		cfg["sampling_method"] = d.LSHSamplingMethod
		cfg["consider_imaginary"] = strconv.FormatBool(d.LSHConsiderImaginary)
	}
	return cfg
}

// SchedulerConfig holds the background scrubber/rebuild-scheduler
// intervals.
type SchedulerConfig struct {
	StatsScrubInterval   time.Duration `yaml:"stats_scrub_interval"`
	IndexRebuildInterval time.Duration `yaml:"index_rebuild_interval"`
}

// EngineConfig is the engine's full configuration surface.
type EngineConfig struct {
	DataDir     string          `yaml:"data_dir"`
	LogLevel    log.Level       `yaml:"log_level"`
	LogJSON     bool            `yaml:"log_json"`
	Planner     PlannerConfig   `yaml:"planner"`
	Indexes     IndexDefaults   `yaml:"indexes"`
	Scheduler   SchedulerConfig `yaml:"scheduler"`
	MetricsAddr string          `yaml:"metrics_addr"`
}

// Default returns the configuration cmd/latticed falls back to when no
// file is given.
func Default() EngineConfig {
	return EngineConfig{
		DataDir:     "./lattice-data",
		LogLevel:    log.InfoLevel,
		LogJSON:     false,
		MetricsAddr: "127.0.0.1:9091",
		Planner: PlannerConfig{
			PlanCacheSize:       256,
			IndexScanPartitions: 4,
		},
		Indexes: IndexDefaults{
			VAFMarksPerDimension: 8,
			PQNumSubspaces:       8,
			PQNumCentroids:       127,
			PQSampleSize:         1000,
			GroupingNumGroups:    64,
			LSHStages:            4,
			LSHBuckets:           16,
			LSHSamplingMethod:    "gaussian",
			LSHConsiderImaginary: true,
		},
		Scheduler: SchedulerConfig{
			StatsScrubInterval:   30 * time.Second,
			IndexRebuildInterval: 15 * time.Second,
		},
	}
}

// LoadConfig reads and parses a YAML config file at path, starting from
// Default() so an omitted field keeps its default rather than zeroing.
func LoadConfig(path string) (EngineConfig, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}
