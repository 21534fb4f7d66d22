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

package tenx

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/sctools/scqc/internal"
	"github.com/sctools/scqc/matrix"
)

func writeMember(dir, name string, write func(file *os.File) error) (err error) {
	file, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return err
	}
	defer func() {
		nerr := file.Close()
		if err == nil {
			err = nerr
		}
	}()
	return write(file)
}

func writeBarcodes(dir string, m *matrix.ExpressionMatrix) error {
	return writeMember(dir, barcodesFile, func(file *os.File) error {
		var buf []byte
		for _, barcode := range m.Barcodes {
			buf = append(buf, barcode...)
			buf = append(buf, '\n')
		}
		_, err := file.Write(buf)
		return err
	})
}

func writeFeatures(dir string, m *matrix.ExpressionMatrix) error {
	return writeMember(dir, featuresFile, func(file *os.File) error {
		var buf []byte
		for _, gene := range m.Genes {
			buf = append(buf, gene.ID...)
			buf = append(buf, '\t')
			buf = append(buf, gene.Symbol...)
			buf = append(buf, '\t')
			buf = append(buf, gene.Type...)
			buf = append(buf, '\n')
		}
		_, err := file.Write(buf)
		return err
	})
}

func writeMatrix(dir string, m *matrix.ExpressionMatrix) error {
	return writeMember(dir, matrixFile, func(file *os.File) error {
		nnz := 0
		for j := 0; j < m.NCells(); j++ {
			nnz += len(m.Column(j))
		}
		buf := []byte("%%MatrixMarket matrix coordinate real general\n%\n")
		buf = strconv.AppendInt(buf, int64(m.NGenes()), 10)
		buf = append(buf, ' ')
		buf = strconv.AppendInt(buf, int64(m.NCells()), 10)
		buf = append(buf, ' ')
		buf = strconv.AppendInt(buf, int64(nnz), 10)
		buf = append(buf, '\n')
		for j := 0; j < m.NCells(); j++ {
			for _, entry := range m.Column(j) {
				buf = strconv.AppendInt(buf, int64(entry.Gene)+1, 10)
				buf = append(buf, ' ')
				buf = strconv.AppendInt(buf, int64(j)+1, 10)
				buf = append(buf, ' ')
				buf = strconv.AppendFloat(buf, entry.Value, 'g', -1, 64)
				buf = append(buf, '\n')
			}
			if len(buf) >= 1<<20 {
				if _, err := file.Write(buf); err != nil {
					return err
				}
				buf = buf[:0]
			}
		}
		_, err := file.Write(buf)
		return err
	})
}

// Write stores an expression matrix as an uncompressed 10X Genomics
// output directory (matrix.mtx, barcodes.tsv, features.tsv), creating
// the directory if necessary.
func Write(dir string, m *matrix.ExpressionMatrix) error {
	pathname, err := internal.FullPathname(dir)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(pathname, 0700); err != nil {
		return err
	}
	if err := writeBarcodes(pathname, m); err != nil {
		return err
	}
	if err := writeFeatures(pathname, m); err != nil {
		return err
	}
	return writeMatrix(pathname, m)
}
