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
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"

	"github.com/sctools/scqc/filters"
	"github.com/sctools/scqc/matrix"
	"github.com/sctools/scqc/scqc"
	"github.com/sctools/scqc/tenx"
)

// newCountMatrix builds a matrix from a dense genes-by-cells count
// table.
func newCountMatrix(t *testing.T, symbols []string, counts [][]float64) *matrix.ExpressionMatrix {
	t.Helper()
	genes := make([]matrix.Feature, len(symbols))
	for i, symbol := range symbols {
		genes[i] = matrix.Feature{ID: fmt.Sprintf("ENSG%02d", i+1), Symbol: symbol, Type: "Gene Expression"}
	}
	nCells := 0
	if len(counts) > 0 {
		nCells = len(counts[0])
	}
	barcodes := make([]string, nCells)
	columns := make([][]matrix.Entry, nCells)
	for j := 0; j < nCells; j++ {
		barcodes[j] = fmt.Sprintf("BC%02d-1", j+1)
		for i := range counts {
			if value := counts[i][j]; value != 0 {
				columns[j] = append(columns[j], matrix.Entry{Gene: int32(i), Value: value})
			}
		}
	}
	m, err := matrix.New(genes, barcodes, columns)
	require.NoError(t, err)
	return m
}

// qcMatrix is the shared preprocessing scenario: one mitochondria-heavy
// cell (BC02), one shallow cell (BC03), one empty cell (BC05), and one
// unexpressed gene (PDCD1).
func qcMatrix(t *testing.T) *matrix.ExpressionMatrix {
	return newCountMatrix(t,
		[]string{"MT-CO1", "GAPDH", "ACTB", "RPL5", "PDCD1"},
		[][]float64{
			{2, 50, 0, 1, 0},
			{10, 10, 2, 8, 0},
			{10, 0, 0, 6, 0},
			{10, 0, 0, 7, 0},
			{0, 0, 0, 0, 0},
		})
}

func qcConfig() scqc.Config {
	cfg := scqc.DefaultConfig()
	cfg.PercentMT = 20
	cfg.MinFeatures = 5
	cfg.MaxFeatures = 100
	cfg.MinCellsPerGene = 2
	return cfg
}

func denseValues(m *matrix.ExpressionMatrix) []float64 {
	values := make([]float64, 0, m.NGenes()*m.NCells())
	for _, gene := range m.Genes {
		for _, barcode := range m.Barcodes {
			values = append(values, m.Get(gene.ID, barcode))
		}
	}
	return values
}

func TestPreprocess10X(t *testing.T) {
	m := qcMatrix(t)
	result, err := scqc.Preprocess10X(m, qcConfig())
	require.NoError(t, err)

	require.Equal(t, []string{"BC01-1", "BC04-1"}, result.Barcodes)
	require.Equal(t, 4, result.NGenes())
	require.False(t, result.HasGene("ENSG05"), "unexpressed gene should be removed")
	require.Equal(t, 10.0, result.Get("ENSG02", "BC01-1"))

	// the output is a row/column subset of the input
	for _, barcode := range result.Barcodes {
		require.True(t, m.HasBarcode(barcode))
	}
	for _, gene := range result.Genes {
		require.True(t, m.HasGene(gene.ID))
	}

	// the input keeps its original shape
	require.Equal(t, 5, m.NGenes())
	require.Equal(t, 5, m.NCells())
}

func TestPreprocess10XIdempotent(t *testing.T) {
	cfg := qcConfig()
	once, err := scqc.Preprocess10X(qcMatrix(t), cfg)
	require.NoError(t, err)
	twice, err := scqc.Preprocess10X(once, cfg)
	require.NoError(t, err)
	require.Equal(t, once.Barcodes, twice.Barcodes)
	require.Equal(t, once.Genes, twice.Genes)
	require.Equal(t, denseValues(once), denseValues(twice))
}

func TestPercentMTBoundaries(t *testing.T) {
	cfg := qcConfig()
	cfg.LibrarySizeFilter = false
	cfg.RareGeneFilter = false

	// a ceiling of 0 removes every cell with any mitochondrial
	// expression
	cfg.PercentMT = 0
	result, err := scqc.Preprocess10X(qcMatrix(t), cfg)
	require.NoError(t, err)
	require.Equal(t, []string{"BC03-1"}, result.Barcodes)

	// a ceiling of 100 removes no cell on the mitochondrial
	// criterion
	cfg.PercentMT = 100
	result, err = scqc.Preprocess10X(qcMatrix(t), cfg)
	require.NoError(t, err)
	require.Equal(t, []string{"BC01-1", "BC02-1", "BC03-1", "BC04-1"}, result.Barcodes)
}

func TestStageToggles(t *testing.T) {
	cfg := qcConfig()
	cfg.LibrarySizeFilter = false
	cfg.RareGeneFilter = false
	result, err := scqc.Preprocess10X(qcMatrix(t), cfg)
	require.NoError(t, err)
	// the shallow cell BC03 survives with the library-size stage
	// disabled
	require.Equal(t, []string{"BC01-1", "BC03-1", "BC04-1"}, result.Barcodes)
}

func TestInvalidParameters(t *testing.T) {
	m := qcMatrix(t)
	var invalid filters.InvalidParameterError

	cfg := qcConfig()
	cfg.PercentMT = 120
	_, err := scqc.Preprocess10X(m, cfg)
	require.ErrorAs(t, err, &invalid)

	cfg = qcConfig()
	cfg.MinFeatures = 10
	cfg.MaxFeatures = 5
	_, err = scqc.Preprocess10X(m, cfg)
	require.ErrorAs(t, err, &invalid)
	require.Equal(t, "max_features", invalid.Name)

	cfg = qcConfig()
	cfg.NDims = 2
	_, err = scqc.ReduceDim(m, cfg)
	require.ErrorAs(t, err, &invalid)

	cfg = qcConfig()
	cfg.Res = 4
	_, err = scqc.ReduceDim(m, cfg)
	require.ErrorAs(t, err, &invalid)
}

func TestPreprocessEmptyResult(t *testing.T) {
	// every cell expresses mitochondrial genes
	m := newCountMatrix(t,
		[]string{"MT-CO1", "GAPDH"},
		[][]float64{
			{5, 6},
			{10, 12},
		})
	cfg := qcConfig()
	cfg.PercentMT = 0
	var emptyErr filters.EmptyResultError
	_, err := scqc.Preprocess10X(m, cfg)
	require.ErrorAs(t, err, &emptyErr)
}

func TestReduceDim(t *testing.T) {
	m := newCountMatrix(t,
		[]string{"GAPDH", "ACTB"},
		[][]float64{
			{4, 12},
			{6, 8},
		})
	cfg := scqc.DefaultConfig()
	result, err := scqc.ReduceDim(m, cfg)
	require.NoError(t, err)

	// library sizes 10 and 20, median 10: the second cell is halved
	// before the square root
	want := []float64{2, math.Sqrt(6), math.Sqrt(6), 2}
	require.True(t, floats.EqualApprox(want, denseValues(result), 1e-12))

	// not idempotent: output differs from input
	require.NotEqual(t, denseValues(m), denseValues(result))
	again, err := scqc.ReduceDim(result, cfg)
	require.NoError(t, err)
	require.NotEqual(t, denseValues(result), denseValues(again))

	for j := 0; j < result.NCells(); j++ {
		for _, entry := range result.Column(j) {
			require.False(t, entry.Value < 0 || math.IsInf(entry.Value, 0) || math.IsNaN(entry.Value))
		}
	}
}

func write10XDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	members := map[string]string{
		"barcodes.tsv": "AAACCTGAGAAACCAT-1\nAAACCTGAGAAACCGC-1\n",
		"features.tsv": "ENSG01\tMT-CO1\tGene Expression\nENSG02\tGAPDH\tGene Expression\n",
		"matrix.mtx": "%%MatrixMarket matrix coordinate integer general\n" +
			"2 2 3\n" +
			"1 1 2\n" +
			"2 1 20\n" +
			"2 2 30\n",
	}
	for name, contents := range members {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(contents), 0666))
	}
	return dir
}

func TestLoad10X(t *testing.T) {
	dir := write10XDir(t)
	cfg := scqc.DefaultConfig()
	cfg.MinFeatures = 1
	cfg.MaxFeatures = 100
	cfg.MinCellsPerGene = 1

	m, err := scqc.Load10X(dir, cfg)
	require.NoError(t, err)
	require.Equal(t, 2, m.NCells())
	require.Equal(t, 2, m.NGenes())

	// caller-supplied thresholds are forwarded to the preprocessing
	// step
	cfg.PercentMT = 5
	m, err = scqc.Load10X(dir, cfg)
	require.NoError(t, err)
	require.Equal(t, []string{"AAACCTGAGAAACCGC-1"}, m.Barcodes)
}

func TestLoad10XMissingDirectory(t *testing.T) {
	var pathErr tenx.PathNotFoundError
	_, err := scqc.Load10X(filepath.Join(t.TempDir(), "nope"), scqc.DefaultConfig())
	require.True(t, errors.As(err, &pathErr))
}
