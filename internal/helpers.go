// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package internal

import (
	"fmt"
	"path/filepath"
)

// Turn filename wildcards into a list of files. Duplicates are dropped, and a pattern
// without matches is an error, as it usually is a typo.
func GlobFilenameWildcards(args []string) ([]string, error) {
	fileNames := []string{}
	seen := map[string]bool{}
	for _, pattern := range args {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, err
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no files match %s", pattern)
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				fileNames = append(fileNames, m)
			}
		}
	}
	return fileNames, nil
}
