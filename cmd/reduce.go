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

// ReduceHelp is the help string for the reduce command.
const ReduceHelp = "\nscqc reduce <10x-directory> <output-directory>\n" +
	"[--ndims number]\n" +
	"[--res resolution]\n" +
	"[--config file.yaml]\n" +
	"[--log-path path]\n" +
	"[--timed]\n" +
	"[--profile filename]\n"

// Reduce implements the reduce command: it loads a 10X Genomics
// output directory (typically the output of the preprocess command),
// applies library-size normalization and the square-root transform,
// and writes the normalized matrix to a new 10X-layout directory.
func Reduce() error {
	var (
		ndims      int
		res        float64
		configFile string
		logPath    string
		timed      bool
		profile    string
	)

	defaults := scqc.DefaultConfig()
	flags := flag.NewFlagSet("reduce", flag.ContinueOnError)
	flags.IntVar(&ndims, "ndims", defaults.NDims, "number of dimensions for the reduction")
	flags.Float64Var(&res, "res", defaults.Res, "clustering resolution")
	flags.StringVar(&configFile, "config", "", "YAML configuration file with threshold overrides")
	flags.StringVar(&logPath, "log-path", "", "write log files to the specified directory")
	flags.BoolVar(&timed, "timed", false, "measure the runtime")
	flags.StringVar(&profile, "profile", "", "write a runtime profile to the specified file")

	if len(os.Args) < 4 {
		fmt.Fprintln(os.Stderr, "Incorrect number of parameters.")
		fmt.Fprint(os.Stderr, ReduceHelp)
		os.Exit(1)
	}
	inputDir := getFilename(os.Args[2], ReduceHelp)
	outputDir := getFilename(os.Args[3], ReduceHelp)
	parseFlags(flags, 4, ReduceHelp)

	if !checkExist("", inputDir) {
		fmt.Fprint(os.Stderr, ReduceHelp)
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
		case "ndims":
			cfg.NDims = ndims
		case "res":
			cfg.Res = res
		}
	})

	setLogOutput(logPath)

	fullInput, err := internal.FullPathname(inputDir)
	if err != nil {
		return err
	}

	var result *matrix.ExpressionMatrix
	timedRun(timed, profile, "Running scqc reduce.", 1, func() {
		var m *matrix.ExpressionMatrix
		if m, err = tenx.Load(fullInput); err != nil {
			return
		}
		log.Println("Loaded dataset", m.ID, "with", m.NGenes(), "genes and", m.NCells(), "cells.")
		result, err = scqc.ReduceDim(m, cfg)
	})
	if err != nil {
		return err
	}
	log.Println("Normalized", result.NGenes(), "genes across", result.NCells(), "cells.")
	return tenx.Write(outputDir, result)
}
