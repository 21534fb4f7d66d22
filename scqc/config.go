// scQC: a tool for quality control of single-cell RNA-seq count data.
// Copyright (c) 2024-2026 the scQC authors.

// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.

// This program is distributed in the hope that it will be useful, but
// WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Affero General Public License for more details.

// You should have received a copy of the GNU Affero General Public
// License along with this program. If not, see
// <https://github.com/sctools/scqc/blob/master/LICENSE.txt>.

package scqc

import (
	"os"

	"gopkg.in/yaml.v3"
)

// A Config collects all thresholds of the preprocessing and reduction
// operations in one explicit structure, instead of defaults scattered
// across call sites. The zero value is not usable; start from
// DefaultConfig.
//
// LibrarySizeFilter and RareGeneFilter toggle the corresponding
// stages of Preprocess10X. Both are enabled by default; disabling
// them reproduces the behavior of pipelines that apply only the
// emptiness and mitochondrial filters.
type Config struct {
	// Name is a display name for the dataset, used in log output
	// only.
	Name string `yaml:"name"`

	// PercentMT is the ceiling on the acceptable mitochondrial
	// fraction of a cell, in percent of its library size. Must lie
	// in [0,100].
	PercentMT float64 `yaml:"percent_mt"`

	// MinFeatures and MaxFeatures bound the acceptable library size
	// of a cell (inclusive).
	MaxFeatures float64 `yaml:"max_features"`
	MinFeatures float64 `yaml:"min_features"`

	// MinCellsPerGene is the minimum number of cells a gene must be
	// expressed in to survive the rare-gene filter.
	MinCellsPerGene int `yaml:"min_cells_per_gene"`

	// NDims and Res are the documented dimensionality-reduction and
	// clustering parameters of ReduceDim. They are validated against
	// their ranges ([3,100] and [0,3]) and otherwise reserved; see
	// ReduceDim.
	NDims int     `yaml:"ndims"`
	Res   float64 `yaml:"res"`

	LibrarySizeFilter bool `yaml:"library_size_filter"`
	RareGeneFilter    bool `yaml:"rare_gene_filter"`
}

// DefaultConfig returns the standard thresholds for 10X preprocessing
// with all filtering stages enabled.
func DefaultConfig() Config {
	return Config{
		Name:              "10X-project",
		PercentMT:         20,
		MaxFeatures:       5000,
		MinFeatures:       200,
		MinCellsPerGene:   3,
		NDims:             15,
		Res:               0.1,
		LibrarySizeFilter: true,
		RareGeneFilter:    true,
	}
}

// LoadConfig reads a YAML configuration file and overlays it on the
// defaults, so partial files only override the keys they mention.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	contents, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
