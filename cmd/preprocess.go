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

package cmd

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/sctools/scqc/internal"
	"github.com/sctools/scqc/matrix"
	"github.com/sctools/scqc/scqc"
	"github.com/sctools/scqc/tenx"
)

// PreprocessHelp is the help string for the preprocess command.
const PreprocessHelp = "\nscqc preprocess <10x-directory> <output-directory>\n" +
	"[--name name]\n" +
	"[--percent-mt percentage]\n" +
	"[--max-features number]\n" +
	"[--min-features number]\n" +
	"[--min-cells-per-gene number]\n" +
	"[--no-library-size-filter]\n" +
	"[--no-rare-gene-filter]\n" +
	"[--config file.yaml]\n" +
	"[--log-path path]\n" +
	"[--timed]\n" +
	"[--profile filename]\n"

// Preprocess implements the preprocess command: it loads a 10X
// Genomics output directory, applies the quality-control filters, and
// writes the filtered matrix to a new 10X-layout directory.
func Preprocess() error {
	var (
		name                string
		percentMT           float64
		maxFeatures         float64
		minFeatures         float64
		minCellsPerGene     int
		noLibrarySizeFilter bool
		noRareGeneFilter    bool
		configFile          string
		logPath             string
		timed               bool
		profile             string
	)

	defaults := scqc.DefaultConfig()
	flags := flag.NewFlagSet("preprocess", flag.ContinueOnError)
	flags.StringVar(&name, "name", defaults.Name, "display name for the dataset")
	flags.Float64Var(&percentMT, "percent-mt", defaults.PercentMT, "ceiling on the mitochondrial percentage of a cell")
	flags.Float64Var(&maxFeatures, "max-features", defaults.MaxFeatures, "maximum library size of a cell")
	flags.Float64Var(&minFeatures, "min-features", defaults.MinFeatures, "minimum library size of a cell")
	flags.IntVar(&minCellsPerGene, "min-cells-per-gene", defaults.MinCellsPerGene, "minimum number of cells a gene must be expressed in")
	flags.BoolVar(&noLibrarySizeFilter, "no-library-size-filter", false, "disable the library-size filtering stage")
	flags.BoolVar(&noRareGeneFilter, "no-rare-gene-filter", false, "disable the rare-gene filtering stage")
	flags.StringVar(&configFile, "config", "", "YAML configuration file with threshold overrides")
	flags.StringVar(&logPath, "log-path", "", "write log files to the specified directory")
	flags.BoolVar(&timed, "timed", false, "measure the runtime")
	flags.StringVar(&profile, "profile", "", "write a runtime profile to the specified file")

	if len(os.Args) < 4 {
		fmt.Fprintln(os.Stderr, "Incorrect number of parameters.")
		fmt.Fprint(os.Stderr, PreprocessHelp)
		os.Exit(1)
	}
	inputDir := getFilename(os.Args[2], PreprocessHelp)
	outputDir := getFilename(os.Args[3], PreprocessHelp)
	parseFlags(flags, 4, PreprocessHelp)

	if !checkExist("", inputDir) {
		fmt.Fprint(os.Stderr, PreprocessHelp)
		os.Exit(1)
	}

	cfg := defaults
	if configFile != "" {
		var err error
		if cfg, err = scqc.LoadConfig(configFile); err != nil {
			return err
		}
	}
	flags.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "name":
			cfg.Name = name
		case "percent-mt":
			cfg.PercentMT = percentMT
		case "max-features":
			cfg.MaxFeatures = maxFeatures
		case "min-features":
			cfg.MinFeatures = minFeatures
		case "min-cells-per-gene":
			cfg.MinCellsPerGene = minCellsPerGene
		}
	})
	if noLibrarySizeFilter {
		cfg.LibrarySizeFilter = false
	}
	if noRareGeneFilter {
		cfg.RareGeneFilter = false
	}

	setLogOutput(logPath)

	fullInput, err := internal.FullPathname(inputDir)
	if err != nil {
		return err
	}

	var result *matrix.ExpressionMatrix
	timedRun(timed, profile, "Running scqc preprocess.", 1, func() {
		var raw *matrix.ExpressionMatrix
		if raw, err = tenx.Load(fullInput); err != nil {
			return
		}
		log.Println("Loaded dataset", raw.ID, "for project", cfg.Name, "with", raw.NGenes(), "genes and", raw.NCells(), "cells.")
		result, err = scqc.Preprocess10X(raw, cfg)
	})
	if err != nil {
		return err
	}
	log.Println("Kept", result.NGenes(), "genes and", result.NCells(), "cells after filtering.")
	return tenx.Write(outputDir, result)
}
