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

// Package scqc is the public entry point of the library. It exposes
// three single-shot operations on 10X Genomics expression data:
// loading (Load10X), quality-control filtering (Preprocess10X), and
// normalization with variance stabilization (ReduceDim). Each
// operation consumes its input matrix and returns a freshly derived
// one; nothing is mutated in place and no state is retained between
// calls.
package scqc

import (
	"github.com/sctools/scqc/filters"
	"github.com/sctools/scqc/matrix"
	"github.com/sctools/scqc/tenx"
)

// MitochondrialPrefixes are the gene symbol prefixes that mark
// mitochondrial genes. Both spellings are checked case-sensitively.
var MitochondrialPrefixes = []string{"MT-", "mt-"}

func validatePreprocess(cfg Config) error {
	if cfg.PercentMT < 0 || cfg.PercentMT > 100 {
		return filters.InvalidParameterError{Name: "percent_mt", Value: cfg.PercentMT, Reason: "must lie in [0,100]"}
	}
	if cfg.MinFeatures < 0 {
		return filters.InvalidParameterError{Name: "min_features", Value: cfg.MinFeatures, Reason: "must be non-negative"}
	}
	if cfg.MaxFeatures < cfg.MinFeatures {
		return filters.InvalidParameterError{Name: "max_features", Value: cfg.MaxFeatures, Reason: "must not be smaller than min_features"}
	}
	return nil
}

// Preprocess10X applies the standard quality-control filters to a
// count matrix, in order: cells with zero counts, genes with zero
// counts, cells above the mitochondrial ceiling (gene symbols
// starting with "MT-" or "mt-", ceiling cfg.PercentMT percent of the
// cell's library size), cells with a library size outside
// [cfg.MinFeatures, cfg.MaxFeatures] (if cfg.LibrarySizeFilter), and
// genes expressed in fewer than cfg.MinCellsPerGene cells (if
// cfg.RareGeneFilter).
//
// The result is always a row/column subset of the input. Preprocessing
// is idempotent for matrices where removing rare genes empties no
// cell: applying it twice with the same configuration yields the same
// matrix.
//
// It fails with a filters.InvalidParameterError when a threshold is
// out of range and with a filters.EmptyResultError when a stage would
// remove all remaining cells or genes.
func Preprocess10X(m *matrix.ExpressionMatrix, cfg Config) (*matrix.ExpressionMatrix, error) {
	if err := validatePreprocess(cfg); err != nil {
		return nil, err
	}
	m, err := filters.FilterEmptyCells(m)
	if err != nil {
		return nil, err
	}
	if m, err = filters.FilterEmptyGenes(m); err != nil {
		return nil, err
	}
	mito := m.GenesWithPrefix(MitochondrialPrefixes...)
	if m, err = filters.FilterGeneSetFraction(m, mito, cfg.PercentMT/100); err != nil {
		return nil, err
	}
	if cfg.LibrarySizeFilter {
		if m, err = filters.FilterLibrarySize(m, cfg.MinFeatures, cfg.MaxFeatures); err != nil {
			return nil, err
		}
	}
	if cfg.RareGeneFilter {
		if m, err = filters.FilterRareGenes(m, cfg.MinCellsPerGene); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Load10X reads a 10X Genomics output directory and immediately
// passes the matrix through Preprocess10X with the same
// configuration. The caller's thresholds are always forwarded.
//
// It fails with a tenx.PathNotFoundError if the directory or one of
// its member files does not exist, with a tenx.MalformedInputError if
// the directory contents are inconsistent, and with the Preprocess10X
// errors otherwise.
func Load10X(dir string, cfg Config) (*matrix.ExpressionMatrix, error) {
	m, err := tenx.Load(dir)
	if err != nil {
		return nil, err
	}
	return Preprocess10X(m, cfg)
}

// ReduceDim normalizes a filtered count matrix: library-size
// normalization (every cell rescaled to the median library size)
// followed by an element-wise square-root transform for variance
// stabilization. The result has the same labels as the input and
// non-negative real values.
//
// cfg.NDims and cfg.Res are validated against their documented ranges
// ([3,100] and [0,3]) but do not yet drive any computation; embedding
// and clustering on the normalized matrix remain an open product
// requirement.
func ReduceDim(m *matrix.ExpressionMatrix, cfg Config) (*matrix.ExpressionMatrix, error) {
	if cfg.NDims < 3 || cfg.NDims > 100 {
		return nil, filters.InvalidParameterError{Name: "ndims", Value: float64(cfg.NDims), Reason: "must lie in [3,100]"}
	}
	if cfg.Res < 0 || cfg.Res > 3 {
		return nil, filters.InvalidParameterError{Name: "res", Value: cfg.Res, Reason: "must lie in [0,3]"}
	}
	m, err := filters.LibrarySizeNormalize(m)
	if err != nil {
		return nil, err
	}
	return filters.SqrtTransform(m), nil
}
