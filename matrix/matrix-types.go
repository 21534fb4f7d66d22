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

// Package matrix implements a sparse gene-by-cell expression matrix
// with labeled axes, the central data structure of scQC. Genes and
// cells are identified by unique string labels; values are raw UMI
// counts before normalization and non-negative reals after. All
// operations that change the shape or the values of a matrix return a
// fresh matrix and leave their input untouched.
package matrix

import (
	"fmt"
	"strings"

	"github.com/bits-and-blooms/bitset"
	"github.com/google/uuid"
)

// A Feature describes one gene (or other feature) row. ID is the
// stable identifier from the features file, Symbol the display name
// used for gene-set selection, and Type the feature type reported by
// the upstream pipeline (for example "Gene Expression").
type Feature struct {
	ID     string
	Symbol string
	Type   string
}

// Label returns the dual gene label combining symbol and identifier.
func (f Feature) Label() string {
	switch {
	case f.Symbol == "":
		return f.ID
	case f.ID == "":
		return f.Symbol
	default:
		return f.Symbol + " (" + f.ID + ")"
	}
}

// An Entry is one nonzero value within a cell column. Gene is the row
// index into the Genes slice of the owning matrix.
type Entry struct {
	Gene  int32
	Value float64
}

// An ExpressionMatrix is a sparse gene-by-cell matrix with labeled
// axes, stored column-major: one slice of nonzero entries per cell.
//
// ID identifies the dataset the matrix was derived from. It is
// assigned when a matrix is first constructed and inherited by every
// subset or transform of it.
type ExpressionMatrix struct {
	ID       string
	Genes    []Feature
	Barcodes []string

	columns      [][]Entry
	geneIndex    map[string]int
	barcodeIndex map[string]int
}

// New constructs an ExpressionMatrix and validates the axis and value
// invariants: one column per barcode, unique barcodes, unique feature
// identifiers, in-range gene indices, and non-negative values.
func New(genes []Feature, barcodes []string, columns [][]Entry) (*ExpressionMatrix, error) {
	if len(columns) != len(barcodes) {
		return nil, fmt.Errorf("expression matrix has %v columns for %v cell barcodes", len(columns), len(barcodes))
	}
	geneIndex := make(map[string]int, len(genes))
	for i, gene := range genes {
		if _, ok := geneIndex[gene.ID]; ok {
			return nil, fmt.Errorf("duplicate feature identifier %v", gene.ID)
		}
		geneIndex[gene.ID] = i
	}
	barcodeIndex := make(map[string]int, len(barcodes))
	for j, barcode := range barcodes {
		if _, ok := barcodeIndex[barcode]; ok {
			return nil, fmt.Errorf("duplicate cell barcode %v", barcode)
		}
		barcodeIndex[barcode] = j
	}
	for j := range columns {
		for _, entry := range columns[j] {
			if entry.Gene < 0 || int(entry.Gene) >= len(genes) {
				return nil, fmt.Errorf("gene index %v out of range in column %v", entry.Gene, j)
			}
			if entry.Value < 0 {
				return nil, fmt.Errorf("negative value %v for gene %v in cell %v", entry.Value, genes[entry.Gene].Label(), barcodes[j])
			}
		}
	}
	return &ExpressionMatrix{
		ID:           uuid.New().String(),
		Genes:        genes,
		Barcodes:     barcodes,
		columns:      columns,
		geneIndex:    geneIndex,
		barcodeIndex: barcodeIndex,
	}, nil
}

// NGenes returns the number of gene rows.
func (m *ExpressionMatrix) NGenes() int {
	return len(m.Genes)
}

// NCells returns the number of cell columns.
func (m *ExpressionMatrix) NCells() int {
	return len(m.Barcodes)
}

// Column returns the nonzero entries of cell column j. The returned
// slice is a read-only view into the matrix.
func (m *ExpressionMatrix) Column(j int) []Entry {
	return m.columns[j]
}

// Get returns the count for the given feature identifier and cell
// barcode, or zero if either label is absent or the entry is not
// stored.
func (m *ExpressionMatrix) Get(featureID, barcode string) float64 {
	i, ok := m.geneIndex[featureID]
	if !ok {
		return 0
	}
	j, ok := m.barcodeIndex[barcode]
	if !ok {
		return 0
	}
	for _, entry := range m.columns[j] {
		if int(entry.Gene) == i {
			return entry.Value
		}
	}
	return 0
}

// HasGene reports whether a feature identifier is present.
func (m *ExpressionMatrix) HasGene(featureID string) bool {
	_, ok := m.geneIndex[featureID]
	return ok
}

// HasBarcode reports whether a cell barcode is present.
func (m *ExpressionMatrix) HasBarcode(barcode string) bool {
	_, ok := m.barcodeIndex[barcode]
	return ok
}

// GenesWithPrefix returns the set of gene rows whose symbol starts
// with any of the given prefixes. The comparison is case-sensitive.
func (m *ExpressionMatrix) GenesWithPrefix(prefixes ...string) *bitset.BitSet {
	set := bitset.New(uint(len(m.Genes)))
	for i, gene := range m.Genes {
		for _, prefix := range prefixes {
			if strings.HasPrefix(gene.Symbol, prefix) {
				set.Set(uint(i))
				break
			}
		}
	}
	return set
}
