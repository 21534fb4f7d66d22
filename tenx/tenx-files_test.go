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
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
)

const (
	testBarcodes = "AAACCTGAGAAACCAT-1\nAAACCTGAGAAACCGC-1\nAAACCTGAGAAACCTA-1\n"
	testFeatures = "ENSG01\tMT-CO1\tGene Expression\n" +
		"ENSG02\tGAPDH\tGene Expression\n" +
		"ENSG03\tACTB\tGene Expression\n"
	testMatrix = "%%MatrixMarket matrix coordinate integer general\n" +
		"% generated by cellranger\n" +
		"3 3 5\n" +
		"1 1 5\n" +
		"2 1 3\n" +
		"2 2 8\n" +
		"3 2 2\n" +
		"3 3 7\n"
)

func writeTestDir(t *testing.T, members map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, contents := range members {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(contents), 0666); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func defaultMembers() map[string]string {
	return map[string]string{
		barcodesFile: testBarcodes,
		featuresFile: testFeatures,
		matrixFile:   testMatrix,
	}
}

func TestLoad(t *testing.T) {
	dir := writeTestDir(t, defaultMembers())
	m, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if m.NGenes() != 3 || m.NCells() != 3 {
		t.Fatal("loaded matrix has wrong shape:", m.NGenes(), m.NCells())
	}
	if m.ID == "" {
		t.Error("loaded matrix has no dataset ID")
	}
	if v := m.Get("ENSG01", "AAACCTGAGAAACCAT-1"); v != 5 {
		t.Error("loaded value wrong:", v)
	}
	if v := m.Get("ENSG03", "AAACCTGAGAAACCGC-1"); v != 2 {
		t.Error("loaded value wrong:", v)
	}
	if v := m.Get("ENSG01", "AAACCTGAGAAACCTA-1"); v != 0 {
		t.Error("absent entry not zero:", v)
	}
	if m.Genes[1].Symbol != "GAPDH" || m.Genes[1].ID != "ENSG02" {
		t.Error("dual gene labeling lost:", m.Genes[1])
	}
}

func TestLoadLegacyGenesFile(t *testing.T) {
	members := defaultMembers()
	members[genesFile] = members[featuresFile]
	delete(members, featuresFile)
	dir := writeTestDir(t, members)
	m, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if m.NGenes() != 3 {
		t.Error("legacy genes.tsv not loaded")
	}
}

func TestLoadGzip(t *testing.T) {
	dir := t.TempDir()
	for name, contents := range defaultMembers() {
		file, err := os.Create(filepath.Join(dir, name+".gz"))
		if err != nil {
			t.Fatal(err)
		}
		gz := gzip.NewWriter(file)
		if _, err := gz.Write([]byte(contents)); err != nil {
			t.Fatal(err)
		}
		if err := gz.Close(); err != nil {
			t.Fatal(err)
		}
		if err := file.Close(); err != nil {
			t.Fatal(err)
		}
	}
	m, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if m.NGenes() != 3 || m.NCells() != 3 {
		t.Error("gzipped matrix has wrong shape:", m.NGenes(), m.NCells())
	}
}

func TestLoadMissingDirectory(t *testing.T) {
	var pathErr PathNotFoundError
	if _, err := Load(filepath.Join(t.TempDir(), "nonexistent")); !errors.As(err, &pathErr) {
		t.Error("expected a PathNotFoundError, got", err)
	}
}

func TestLoadMissingMember(t *testing.T) {
	members := defaultMembers()
	delete(members, matrixFile)
	dir := writeTestDir(t, members)
	var pathErr PathNotFoundError
	if _, err := Load(dir); !errors.As(err, &pathErr) {
		t.Error("expected a PathNotFoundError, got", err)
	}
}

func TestLoadMalformed(t *testing.T) {
	cases := []struct {
		name     string
		mutate   func(members map[string]string)
	}{
		{"bad banner", func(members map[string]string) {
			members[matrixFile] = "%%MatrixMarket matrix array real general\n3 3\n"
		}},
		{"row count mismatch", func(members map[string]string) {
			members[matrixFile] = "%%MatrixMarket matrix coordinate integer general\n4 3 1\n1 1 5\n"
		}},
		{"column count mismatch", func(members map[string]string) {
			members[matrixFile] = "%%MatrixMarket matrix coordinate integer general\n3 4 1\n1 1 5\n"
		}},
		{"entry out of range", func(members map[string]string) {
			members[matrixFile] = "%%MatrixMarket matrix coordinate integer general\n3 3 1\n4 1 5\n"
		}},
		{"negative count", func(members map[string]string) {
			members[matrixFile] = "%%MatrixMarket matrix coordinate integer general\n3 3 1\n1 1 -5\n"
		}},
		{"entry count mismatch", func(members map[string]string) {
			members[matrixFile] = "%%MatrixMarket matrix coordinate integer general\n3 3 4\n1 1 5\n"
		}},
		{"unparsable entry", func(members map[string]string) {
			members[matrixFile] = "%%MatrixMarket matrix coordinate integer general\n3 3 1\n1 one 5\n"
		}},
		{"duplicate barcode", func(members map[string]string) {
			members[barcodesFile] = "AAAC-1\nAAAC-1\nAAAG-1\n"
		}},
		{"truncated feature line", func(members map[string]string) {
			members[featuresFile] = "ENSG01\tMT-CO1\tGene Expression\nENSG02\nENSG03\tACTB\tGene Expression\n"
		}},
	}
	for _, c := range cases {
		members := defaultMembers()
		c.mutate(members)
		dir := writeTestDir(t, members)
		var malformed MalformedInputError
		if _, err := Load(dir); !errors.As(err, &malformed) {
			t.Error("expected a MalformedInputError for", c.name, "- got", err)
		}
	}
}

func TestWriteRoundTrip(t *testing.T) {
	dir := writeTestDir(t, defaultMembers())
	m, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(t.TempDir(), "filtered")
	if err := Write(out, m); err != nil {
		t.Fatal(err)
	}
	reloaded, err := Load(out)
	if err != nil {
		t.Fatal(err)
	}
	if reloaded.NGenes() != m.NGenes() || reloaded.NCells() != m.NCells() {
		t.Fatal("round trip changed the matrix shape")
	}
	for j, barcode := range m.Barcodes {
		for _, entry := range m.Column(j) {
			gene := m.Genes[entry.Gene]
			if v := reloaded.Get(gene.ID, barcode); v != entry.Value {
				t.Error("round trip changed a value for", gene.Label(), barcode, ":", v)
			}
		}
	}
}
