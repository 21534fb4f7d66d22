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

import "fmt"

// A PathNotFoundError reports a missing 10X directory or a missing
// member file within it.
type PathNotFoundError struct {
	Path string
}

func (e PathNotFoundError) Error() string {
	return fmt.Sprintf("path %v does not exist or is not part of a 10X output directory", e.Path)
}

// A MalformedInputError reports a 10X directory whose contents cannot
// be interpreted, for example a matrix whose dimensions disagree with
// the barcode or feature counts.
type MalformedInputError struct {
	Path   string
	Reason string
}

func (e MalformedInputError) Error() string {
	return fmt.Sprintf("malformed 10X input %v: %v", e.Path, e.Reason)
}
