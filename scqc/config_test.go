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

package scqc_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sctools/scqc/scqc"
)

func TestLoadConfigOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scqc.yaml")
	contents := "name: pbmc4k\npercent_mt: 10\nrare_gene_filter: false\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0666))

	cfg, err := scqc.LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "pbmc4k", cfg.Name)
	require.Equal(t, 10.0, cfg.PercentMT)
	require.False(t, cfg.RareGeneFilter)

	// keys the file does not mention keep their defaults
	defaults := scqc.DefaultConfig()
	require.Equal(t, defaults.MinFeatures, cfg.MinFeatures)
	require.Equal(t, defaults.MaxFeatures, cfg.MaxFeatures)
	require.Equal(t, defaults.NDims, cfg.NDims)
	require.True(t, cfg.LibrarySizeFilter)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := scqc.LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestLoadConfigInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scqc.yaml")
	require.NoError(t, os.WriteFile(path, []byte("percent_mt: [nope\n"), 0666))
	_, err := scqc.LoadConfig(path)
	require.Error(t, err)
}
