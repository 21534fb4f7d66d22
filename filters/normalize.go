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

package filters

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/sctools/scqc/matrix"
)

// LibrarySizeNormalize rescales every cell so library sizes become
// comparable: each value is divided by the cell's library size and
// multiplied by the median library size of the matrix. Cells with zero
// counts stay at zero.
func LibrarySizeNormalize(m *matrix.ExpressionMatrix) (*matrix.ExpressionMatrix, error) {
	if m.NCells() == 0 {
		return nil, EmptyResultError{Stage: "library size normalization"}
	}
	totals := m.CellSums()
	sorted := append([]float64(nil), totals...)
	sort.Float64s(sorted)
	median := stat.Quantile(0.5, stat.Empirical, sorted, nil)
	factors := make([]float64, len(totals))
	for j, total := range totals {
		if total > 0 {
			factors[j] = median / total
		}
	}
	return m.ScaleColumns(factors), nil
}

// SqrtTransform applies an element-wise square root for variance
// stabilization.
func SqrtTransform(m *matrix.ExpressionMatrix) *matrix.ExpressionMatrix {
	return m.Map(math.Sqrt)
}
