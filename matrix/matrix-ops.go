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

package matrix

import (
	"github.com/bits-and-blooms/bitset"
	"github.com/exascience/pargo/parallel"
)

const parallelSumGrainSize = 0x200

// CellSums returns the library size (total count) of every cell.
func (m *ExpressionMatrix) CellSums() []float64 {
	sums := make([]float64, len(m.columns))
	m.cellSums(sums, 0, len(m.columns), nil)
	return sums
}

// GeneSetSums returns, for every cell, the total count restricted to
// the gene rows in the given set.
func (m *ExpressionMatrix) GeneSetSums(set *bitset.BitSet) []float64 {
	sums := make([]float64, len(m.columns))
	m.cellSums(sums, 0, len(m.columns), set)
	return sums
}

func (m *ExpressionMatrix) cellSums(sums []float64, low, high int, set *bitset.BitSet) {
	if high-low < parallelSumGrainSize {
		for j := low; j < high; j++ {
			var total float64
			for _, entry := range m.columns[j] {
				if set == nil || set.Test(uint(entry.Gene)) {
					total += entry.Value
				}
			}
			sums[j] = total
		}
		return
	}
	mid := (low + high) >> 1
	parallel.Do(
		func() { m.cellSums(sums, low, mid, set) },
		func() { m.cellSums(sums, mid, high, set) },
	)
}

// GeneSums returns the total count of every gene across all cells.
func (m *ExpressionMatrix) GeneSums() []float64 {
	sums, _ := m.geneReduce(0, len(m.columns))
	return sums
}

// GeneCellCounts returns, for every gene, the number of cells in which
// it is expressed (count > 0).
func (m *ExpressionMatrix) GeneCellCounts() []int {
	_, counts := m.geneReduce(0, len(m.columns))
	return counts
}

// geneReduce accumulates per-gene totals and expressing-cell counts
// over a range of columns, splitting the range recursively and merging
// the partial vectors.
func (m *ExpressionMatrix) geneReduce(low, high int) (sums []float64, counts []int) {
	if high-low < parallelSumGrainSize {
		sums = make([]float64, len(m.Genes))
		counts = make([]int, len(m.Genes))
		for j := low; j < high; j++ {
			for _, entry := range m.columns[j] {
				sums[entry.Gene] += entry.Value
				if entry.Value > 0 {
					counts[entry.Gene]++
				}
			}
		}
		return sums, counts
	}
	mid := (low + high) >> 1
	var rightSums []float64
	var rightCounts []int
	parallel.Do(
		func() { sums, counts = m.geneReduce(low, mid) },
		func() { rightSums, rightCounts = m.geneReduce(mid, high) },
	)
	for i := range sums {
		sums[i] += rightSums[i]
		counts[i] += rightCounts[i]
	}
	return sums, counts
}

// Subset returns a new matrix restricted to the gene rows in keepGenes
// and the cell columns in keepCells. The result is a strict subset of
// the input: no new labels are ever introduced, and the input matrix
// is left untouched. The dataset ID is inherited.
func (m *ExpressionMatrix) Subset(keepGenes, keepCells *bitset.BitSet) *ExpressionMatrix {
	remap := make([]int32, len(m.Genes))
	genes := make([]Feature, 0, keepGenes.Count())
	geneIndex := make(map[string]int, keepGenes.Count())
	for i, gene := range m.Genes {
		if keepGenes.Test(uint(i)) {
			remap[i] = int32(len(genes))
			geneIndex[gene.ID] = len(genes)
			genes = append(genes, gene)
		} else {
			remap[i] = -1
		}
	}
	barcodes := make([]string, 0, keepCells.Count())
	barcodeIndex := make(map[string]int, keepCells.Count())
	columns := make([][]Entry, 0, keepCells.Count())
	for j, barcode := range m.Barcodes {
		if !keepCells.Test(uint(j)) {
			continue
		}
		column := make([]Entry, 0, len(m.columns[j]))
		for _, entry := range m.columns[j] {
			if row := remap[entry.Gene]; row >= 0 {
				column = append(column, Entry{Gene: row, Value: entry.Value})
			}
		}
		barcodeIndex[barcode] = len(barcodes)
		barcodes = append(barcodes, barcode)
		columns = append(columns, column)
	}
	return &ExpressionMatrix{
		ID:           m.ID,
		Genes:        genes,
		Barcodes:     barcodes,
		columns:      columns,
		geneIndex:    geneIndex,
		barcodeIndex: barcodeIndex,
	}
}

// AllGenes returns the set of all gene rows.
func (m *ExpressionMatrix) AllGenes() *bitset.BitSet {
	set := bitset.New(uint(len(m.Genes)))
	for i := range m.Genes {
		set.Set(uint(i))
	}
	return set
}

// AllCells returns the set of all cell columns.
func (m *ExpressionMatrix) AllCells() *bitset.BitSet {
	set := bitset.New(uint(len(m.Barcodes)))
	for j := range m.Barcodes {
		set.Set(uint(j))
	}
	return set
}

// Map returns a new matrix with f applied to every stored value. The
// axis labels are shared with the input, which is never mutated.
func (m *ExpressionMatrix) Map(f func(float64) float64) *ExpressionMatrix {
	columns := make([][]Entry, len(m.columns))
	for j := range m.columns {
		column := make([]Entry, len(m.columns[j]))
		for k, entry := range m.columns[j] {
			column[k] = Entry{Gene: entry.Gene, Value: f(entry.Value)}
		}
		columns[j] = column
	}
	return m.withColumns(columns)
}

// ScaleColumns returns a new matrix with every value in cell column j
// multiplied by factors[j]. The axis labels are shared with the input.
func (m *ExpressionMatrix) ScaleColumns(factors []float64) *ExpressionMatrix {
	columns := make([][]Entry, len(m.columns))
	for j := range m.columns {
		column := make([]Entry, len(m.columns[j]))
		for k, entry := range m.columns[j] {
			column[k] = Entry{Gene: entry.Gene, Value: entry.Value * factors[j]}
		}
		columns[j] = column
	}
	return m.withColumns(columns)
}

func (m *ExpressionMatrix) withColumns(columns [][]Entry) *ExpressionMatrix {
	return &ExpressionMatrix{
		ID:           m.ID,
		Genes:        m.Genes,
		Barcodes:     m.Barcodes,
		columns:      columns,
		geneIndex:    m.geneIndex,
		barcodeIndex: m.barcodeIndex,
	}
}
