// Copyright 2026 gorse Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package dataset

import (
	"io"
	"os"
	"strings"

	"github.com/gorse-io/movierank/base"
	"github.com/juju/errors"
)

// ReadTable reads a comma separated stream whose first record is the header.
// Blank records are skipped.
func ReadTable(r io.Reader) (*Table, error) {
	var table *Table
	err := base.ReadLines(r, ',', func(_ int, fields []string) error {
		if table == nil {
			columns := make([]string, len(fields))
			for i, field := range fields {
				columns[i] = strings.TrimSpace(field)
			}
			table = NewTable(columns...)
			return nil
		}
		if len(fields) == 1 && strings.TrimSpace(fields[0]) == "" {
			return nil
		}
		table.Append(fields...)
		return nil
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	if table == nil {
		return nil, errors.Annotate(ErrSchema, "missing header")
	}
	return table, nil
}

// ReadTableFile reads a table from a csv file.
func ReadTableFile(path string) (*Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer file.Close()
	table, err := ReadTable(file)
	if err != nil {
		return nil, errors.Annotatef(err, "read %s", path)
	}
	return table, nil
}

// ReadRatings reads ratings from a MovieLens ratings.csv file.
func ReadRatings(path string) ([]Rating, error) {
	table, err := ReadTableFile(path)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return ParseRatings(table)
}

// ReadMovies reads movies from a MovieLens movies.csv file.
func ReadMovies(path string) ([]Movie, error) {
	table, err := ReadTableFile(path)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return ParseMovies(table)
}

// ReadLinks reads a MovieLens links.csv file into the catalog.
func ReadLinks(c *Catalog, path string) error {
	table, err := ReadTableFile(path)
	if err != nil {
		return errors.Trace(err)
	}
	return AttachLinks(c, table)
}
