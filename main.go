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

// scQC loads 10X Genomics single-cell RNA-seq count matrices, applies
// standard quality-control filters, and performs library-size
// normalization with a square-root variance-stabilizing transform.
//
// Please see https://github.com/sctools/scqc for a documentation of
// the tool, and the scqc package for the library API.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/sctools/scqc/cmd"
)

func printHelp() {
	fmt.Fprintln(os.Stderr, "Available commands: preprocess, reduce")
	fmt.Fprint(os.Stderr, "\n", cmd.PreprocessHelp)
	fmt.Fprint(os.Stderr, "\n", cmd.ReduceHelp)
}

func main() {
	fmt.Fprintln(os.Stderr, cmd.ProgramMessage)
	if len(os.Args) < 2 {
		log.Println("Incorrect number of parameters.")
		fmt.Fprint(os.Stderr, cmd.HelpMessage)
		printHelp()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "preprocess":
		err = cmd.Preprocess()
	case "reduce":
		err = cmd.Reduce()
	case "help", "-help", "--help", "-h", "--h":
		printHelp()
	default:
		log.Println("Unknown command:", os.Args[1])
		fmt.Fprint(os.Stderr, cmd.HelpMessage)
		printHelp()
		os.Exit(1)
	}
	if err != nil {
		log.Fatal(err)
	}
}
