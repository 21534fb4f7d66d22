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

import "fmt"

// An InvalidParameterError reports a filtering threshold outside its
// documented range.
type InvalidParameterError struct {
	Name   string
	Value  float64
	Reason string
}

func (e InvalidParameterError) Error() string {
	return fmt.Sprintf("invalid parameter %v=%v: %v", e.Name, e.Value, e.Reason)
}

// An EmptyResultError reports that a filtering stage would remove all
// remaining cells or all remaining genes. It propagates to the caller;
// no partial result is produced.
type EmptyResultError struct {
	Stage string
}

func (e EmptyResultError) Error() string {
	return fmt.Sprintf("no cells or genes remain after filtering stage %q", e.Stage)
}
