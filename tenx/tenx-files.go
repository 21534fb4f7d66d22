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

// Package tenx reads and writes 10X Genomics sparse-matrix output
// directories: a MatrixMarket coordinate matrix (matrix.mtx) plus the
// cell barcodes (barcodes.tsv) and gene features (features.tsv, or
// genes.tsv in the legacy layout) that label its axes. Member files
// may be gzip-compressed with a .gz suffix, as emitted by Cell Ranger
// v3 and later.
package tenx

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/exascience/pargo/pipeline"
	"github.com/klauspost/compress/gzip"

	"github.com/sctools/scqc/internal"
	"github.com/sctools/scqc/matrix"
)

const (
	matrixFile   = "matrix.mtx"
	barcodesFile = "barcodes.tsv"
	featuresFile = "features.tsv"
	genesFile    = "genes.tsv"
)

type gzipMember struct {
	*gzip.Reader
	file *os.File
}

func (g *gzipMember) Close() error {
	gerr := g.Reader.Close()
	ferr := g.file.Close()
	if gerr != nil {
		return gerr
	}
	return ferr
}

// openMember opens the first of the candidate member files that
// exists, in plain or gzip-compressed form.
func openMember(dir string, candidates ...string) (io.ReadCloser, string, error) {
	for _, name := range candidates {
		pathname := filepath.Join(dir, name)
		if file, err := os.Open(pathname); err == nil {
			return file, pathname, nil
		} else if !os.IsNotExist(err) {
			return nil, "", err
		}
		pathname += ".gz"
		file, err := os.Open(pathname)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, "", err
		}
		gz, err := gzip.NewReader(file)
		if err != nil {
			_ = file.Close()
			return nil, "", MalformedInputError{Path: pathname, Reason: err.Error()}
		}
		return &gzipMember{Reader: gz, file: file}, pathname, nil
	}
	return nil, "", PathNotFoundError{Path: filepath.Join(dir, candidates[0])}
}

// readLines reads a line-oriented member file through a pargo
// pipeline, applying parse to batches of lines in parallel and
// appending the parsed values in the original order.
func readLines(reader *bufio.Reader, pathname string, parse func(line string) (string, error)) (lines []string, err error) {
	var p pipeline.Pipeline
	p.Source(pipeline.NewScanner(reader))
	p.Add(pipeline.LimitedPar(0, pipeline.Receive(func(_ int, data interface{}) interface{} {
		strs := data.([]string)
		parsed := make([]string, 0, len(strs))
		for _, str := range strs {
			if strings.TrimSpace(str) == "" {
				continue
			}
			value, err := parse(str)
			if err != nil {
				p.SetErr(MalformedInputError{Path: pathname, Reason: err.Error()})
				return parsed
			}
			parsed = append(parsed, value)
		}
		return parsed
	})))
	p.Add(pipeline.Ord(pipeline.Receive(func(_ int, data interface{}) interface{} {
		lines = append(lines, data.([]string)...)
		return data
	})))
	p.Run()
	if err = p.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

func readBarcodes(dir string) ([]string, error) {
	in, pathname, err := openMember(dir, barcodesFile)
	if err != nil {
		return nil, err
	}
	defer func() { _ = in.Close() }()
	return readLines(bufio.NewReader(in), pathname, func(line string) (string, error) {
		barcode := strings.TrimSpace(line)
		if strings.ContainsRune(barcode, '\t') {
			barcode = barcode[:strings.IndexByte(barcode, '\t')]
		}
		return barcode, nil
	})
}

func readFeatures(dir string) ([]matrix.Feature, string, error) {
	in, pathname, err := openMember(dir, featuresFile, genesFile)
	if err != nil {
		return nil, "", err
	}
	defer func() { _ = in.Close() }()
	lines, err := readLines(bufio.NewReader(in), pathname, func(line string) (string, error) {
		if len(strings.Split(strings.TrimRight(line, "\r\n"), "\t")) < 2 {
			return "", fmt.Errorf("feature line %q has fewer than 2 fields", line)
		}
		return strings.TrimRight(line, "\r\n"), nil
	})
	if err != nil {
		return nil, "", err
	}
	features := make([]matrix.Feature, len(lines))
	for i, line := range lines {
		fields := strings.Split(line, "\t")
		features[i] = matrix.Feature{ID: fields[0], Symbol: fields[1], Type: "Gene Expression"}
		if len(fields) > 2 {
			features[i].Type = fields[2]
		}
	}
	return features, pathname, nil
}

type triplet struct {
	row, col int
	value    float64
}

// parseMatrixHeader consumes the MatrixMarket banner, the comment
// lines, and the dimensions line.
func parseMatrixHeader(reader *bufio.Reader, pathname string) (rows, cols, nnz int, err error) {
	banner, err := reader.ReadString('\n')
	if err != nil {
		return 0, 0, 0, MalformedInputError{Path: pathname, Reason: "missing MatrixMarket banner"}
	}
	fields := strings.Fields(banner)
	if len(fields) < 4 || fields[0] != "%%MatrixMarket" || fields[1] != "matrix" || fields[2] != "coordinate" ||
		(fields[3] != "integer" && fields[3] != "real") {
		return 0, 0, 0, MalformedInputError{Path: pathname, Reason: fmt.Sprintf("unsupported MatrixMarket banner %q", strings.TrimSpace(banner))}
	}
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return 0, 0, 0, MalformedInputError{Path: pathname, Reason: "missing dimensions line"}
		}
		if strings.HasPrefix(line, "%") || strings.TrimSpace(line) == "" {
			continue
		}
		dims := strings.Fields(line)
		if len(dims) != 3 {
			return 0, 0, 0, MalformedInputError{Path: pathname, Reason: fmt.Sprintf("invalid dimensions line %q", strings.TrimSpace(line))}
		}
		var sizes [3]int
		for i, dim := range dims {
			value, err := strconv.Atoi(dim)
			if err != nil || value < 0 {
				return 0, 0, 0, MalformedInputError{Path: pathname, Reason: fmt.Sprintf("invalid dimensions line %q", strings.TrimSpace(line))}
			}
			sizes[i] = value
		}
		return sizes[0], sizes[1], sizes[2], nil
	}
}

func readMatrix(dir string, nGenes, nCells int) ([][]matrix.Entry, error) {
	in, pathname, err := openMember(dir, matrixFile)
	if err != nil {
		return nil, err
	}
	defer func() { _ = in.Close() }()
	reader := bufio.NewReader(in)
	rows, cols, nnz, err := parseMatrixHeader(reader, pathname)
	if err != nil {
		return nil, err
	}
	if rows != nGenes {
		return nil, MalformedInputError{Path: pathname, Reason: fmt.Sprintf("matrix has %v rows for %v features", rows, nGenes)}
	}
	if cols != nCells {
		return nil, MalformedInputError{Path: pathname, Reason: fmt.Sprintf("matrix has %v columns for %v barcodes", cols, nCells)}
	}
	columns := make([][]matrix.Entry, cols)
	entries := 0
	var p pipeline.Pipeline
	p.Source(pipeline.NewScanner(reader))
	p.Add(pipeline.LimitedPar(0, pipeline.Receive(func(_ int, data interface{}) interface{} {
		strs := data.([]string)
		triplets := make([]triplet, 0, len(strs))
		for _, str := range strs {
			if strings.TrimSpace(str) == "" {
				continue
			}
			fields := strings.Fields(str)
			if len(fields) != 3 {
				p.SetErr(MalformedInputError{Path: pathname, Reason: fmt.Sprintf("invalid matrix entry %q", str)})
				return triplets
			}
			row, rerr := strconv.Atoi(fields[0])
			col, cerr := strconv.Atoi(fields[1])
			value, verr := strconv.ParseFloat(fields[2], 64)
			if rerr != nil || cerr != nil || verr != nil {
				p.SetErr(MalformedInputError{Path: pathname, Reason: fmt.Sprintf("invalid matrix entry %q", str)})
				return triplets
			}
			if row < 1 || row > rows || col < 1 || col > cols {
				p.SetErr(MalformedInputError{Path: pathname, Reason: fmt.Sprintf("matrix entry %q out of range", str)})
				return triplets
			}
			if value < 0 {
				p.SetErr(MalformedInputError{Path: pathname, Reason: fmt.Sprintf("negative count in matrix entry %q", str)})
				return triplets
			}
			triplets = append(triplets, triplet{row: row - 1, col: col - 1, value: value})
		}
		return triplets
	})))
	p.Add(pipeline.Ord(pipeline.Receive(func(_ int, data interface{}) interface{} {
		for _, t := range data.([]triplet) {
			columns[t.col] = append(columns[t.col], matrix.Entry{Gene: int32(t.row), Value: t.value})
			entries++
		}
		return data
	})))
	p.Run()
	if err := p.Err(); err != nil {
		return nil, err
	}
	if entries != nnz {
		return nil, MalformedInputError{Path: pathname, Reason: fmt.Sprintf("matrix declares %v entries but contains %v", nnz, entries)}
	}
	return columns, nil
}

// Load reads a 10X Genomics output directory into an expression
// matrix with dual gene labeling (symbol and identifier). It fails
// with a PathNotFoundError if the directory or one of its member
// files does not exist, and with a MalformedInputError if the matrix
// dimensions are inconsistent with the barcode and feature counts or
// a member file cannot be parsed.
func Load(dir string) (*matrix.ExpressionMatrix, error) {
	pathname, err := internal.FullPathname(dir)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(pathname)
	if err != nil || !info.IsDir() {
		return nil, PathNotFoundError{Path: pathname}
	}
	barcodes, err := readBarcodes(pathname)
	if err != nil {
		return nil, err
	}
	features, _, err := readFeatures(pathname)
	if err != nil {
		return nil, err
	}
	columns, err := readMatrix(pathname, len(features), len(barcodes))
	if err != nil {
		return nil, err
	}
	m, err := matrix.New(features, barcodes, columns)
	if err != nil {
		return nil, MalformedInputError{Path: pathname, Reason: err.Error()}
	}
	return m, nil
}
