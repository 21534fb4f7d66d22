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

// Package filters implements the quality-control filters applied to
// expression matrices. Every filter derives a keep set from matrix
// statistics and returns a new matrix that is a strict row/column
// subset of its input. Inputs are never mutated.
package filters

import (
	"sort"

	"github.com/bits-and-blooms/bitset"
	"gonum.org/v1/gonum/stat"

	"github.com/sctools/scqc/matrix"
)

// subsetCells restricts m to the cells in keep, failing with an
// EmptyResultError when the keep set is empty.
func subsetCells(m *matrix.ExpressionMatrix, keep *bitset.BitSet, stage string) (*matrix.ExpressionMatrix, error) {
	if keep.Count() == 0 {
		return nil, EmptyResultError{Stage: stage}
	}
	return m.Subset(m.AllGenes(), keep), nil
}

// subsetGenes restricts m to the genes in keep, failing with an
// EmptyResultError when the keep set is empty.
func subsetGenes(m *matrix.ExpressionMatrix, keep *bitset.BitSet, stage string) (*matrix.ExpressionMatrix, error) {
	if keep.Count() == 0 {
		return nil, EmptyResultError{Stage: stage}
	}
	return m.Subset(keep, m.AllCells()), nil
}

// FilterEmptyCells removes cells with zero total counts.
func FilterEmptyCells(m *matrix.ExpressionMatrix) (*matrix.ExpressionMatrix, error) {
	keep := bitset.New(uint(m.NCells()))
	for j, total := range m.CellSums() {
		if total > 0 {
			keep.Set(uint(j))
		}
	}
	return subsetCells(m, keep, "empty cells")
}

// FilterEmptyGenes removes genes with zero total counts across all
// remaining cells.
func FilterEmptyGenes(m *matrix.ExpressionMatrix) (*matrix.ExpressionMatrix, error) {
	keep := bitset.New(uint(m.NGenes()))
	for i, total := range m.GeneSums() {
		if total > 0 {
			keep.Set(uint(i))
		}
	}
	return subsetGenes(m, keep, "empty genes")
}

// FilterGeneSetFraction removes cells whose expression fraction within
// the given gene set exceeds maxFraction. The fraction of a cell is
// the total count of the set genes divided by the cell's library
// size. maxFraction must lie in [0,1]; 0 keeps only cells with zero
// expression in the set, 1 removes no cell.
//
// The threshold is a fixed per-cell ceiling, so the filter is
// idempotent: re-running it on its own output removes nothing.
func FilterGeneSetFraction(m *matrix.ExpressionMatrix, set *bitset.BitSet, maxFraction float64) (*matrix.ExpressionMatrix, error) {
	if maxFraction < 0 || maxFraction > 1 {
		return nil, InvalidParameterError{Name: "maxFraction", Value: maxFraction, Reason: "must lie in [0,1]"}
	}
	if set.Count() == 0 || maxFraction == 1 {
		return m.Subset(m.AllGenes(), m.AllCells()), nil
	}
	keep := bitset.New(uint(m.NCells()))
	totals := m.CellSums()
	for j, setTotal := range m.GeneSetSums(set) {
		var fraction float64
		if totals[j] > 0 {
			fraction = setTotal / totals[j]
		}
		if fraction <= maxFraction {
			keep.Set(uint(j))
		}
	}
	return subsetCells(m, keep, "gene set fraction")
}

// FilterGeneSetPercentile removes cells whose expression fraction
// within the given gene set lies above the percentile-th empirical
// quantile of all cells' fractions. percentile must lie in [0,100];
// 0 keeps only cells with zero expression in the set, 100 removes no
// cell.
//
// Unlike FilterGeneSetFraction the cutoff depends on the distribution
// of the input, so repeated application can remove further cells.
func FilterGeneSetPercentile(m *matrix.ExpressionMatrix, set *bitset.BitSet, percentile float64) (*matrix.ExpressionMatrix, error) {
	if percentile < 0 || percentile > 100 {
		return nil, InvalidParameterError{Name: "percentile", Value: percentile, Reason: "must lie in [0,100]"}
	}
	if set.Count() == 0 || percentile == 100 {
		return m.Subset(m.AllGenes(), m.AllCells()), nil
	}
	totals := m.CellSums()
	fractions := make([]float64, m.NCells())
	for j, setTotal := range m.GeneSetSums(set) {
		if totals[j] > 0 {
			fractions[j] = setTotal / totals[j]
		}
	}
	cutoff := 0.0
	if percentile > 0 {
		sorted := append([]float64(nil), fractions...)
		sort.Float64s(sorted)
		cutoff = stat.Quantile(percentile/100, stat.Empirical, sorted, nil)
	}
	keep := bitset.New(uint(m.NCells()))
	for j, fraction := range fractions {
		if fraction <= cutoff {
			keep.Set(uint(j))
		}
	}
	return subsetCells(m, keep, "gene set percentile")
}

// FilterLibrarySize keeps cells whose library size lies in the
// inclusive range [min,max].
func FilterLibrarySize(m *matrix.ExpressionMatrix, min, max float64) (*matrix.ExpressionMatrix, error) {
	if min < 0 {
		return nil, InvalidParameterError{Name: "min", Value: min, Reason: "must be non-negative"}
	}
	if max < min {
		return nil, InvalidParameterError{Name: "max", Value: max, Reason: "must not be smaller than min"}
	}
	keep := bitset.New(uint(m.NCells()))
	for j, total := range m.CellSums() {
		if total >= min && total <= max {
			keep.Set(uint(j))
		}
	}
	return subsetCells(m, keep, "library size")
}

// FilterRareGenes removes genes expressed (count > 0) in fewer than
// minCells cells.
func FilterRareGenes(m *matrix.ExpressionMatrix, minCells int) (*matrix.ExpressionMatrix, error) {
	if minCells < 0 {
		return nil, InvalidParameterError{Name: "minCells", Value: float64(minCells), Reason: "must be non-negative"}
	}
	keep := bitset.New(uint(m.NGenes()))
	for i, count := range m.GeneCellCounts() {
		if count >= minCells {
			keep.Set(uint(i))
		}
	}
	return subsetGenes(m, keep, "rare genes")
}
