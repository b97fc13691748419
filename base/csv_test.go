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

package base

import (
	"strings"
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
)

func TestEscape(t *testing.T) {
	assert.Equal(t, "123", Escape("123"))
	assert.Equal(t, "\"\"\"123\"\"\"", Escape("\"123\""))
	assert.Equal(t, "\"1,2,3\"", Escape("1,2,3"))
	assert.Equal(t, "\"American President, The (1995)\"", Escape("American President, The (1995)"))
	assert.Equal(t, "\"1\r\n2\r\n3\"", Escape("1\r\n2\r\n3"))
}

func splitLines(t *testing.T, text string) [][]string {
	lines := make([][]string, 0)
	err := ReadLines(strings.NewReader(text), ',', func(i int, fields []string) error {
		assert.Equal(t, len(lines), i)
		lines = append(lines, fields)
		if fields[0] == "STOP" {
			return ErrStopReading
		}
		return nil
	})
	assert.NoError(t, err)
	return lines
}

func TestReadLines(t *testing.T) {
	assert.Equal(t, [][]string{{"1", "2", "3"}, {"4", "5", "6"}},
		splitLines(t, "1,2,3\r\n4,5,6\r\n"))
	assert.Equal(t, [][]string{{"movieId", "title"}, {"11", "American President, The (1995)"}},
		splitLines(t, "\uFEFFmovieId,title\n11,\"American President, The (1995)\"\n"))
	assert.Equal(t, [][]string{{"\"1,2\"", "3"}},
		splitLines(t, "\"\"\"1,2\"\"\",3"))
	assert.Equal(t, [][]string{{"1\r\n2", "3"}, {"4", "5"}},
		splitLines(t, "\"1\n2\",3\n4,5"))
	assert.Equal(t, [][]string{{"1", "2", "3"}, {"STOP"}},
		splitLines(t, "1,2,3\nSTOP\n7,8,9"))
}

func TestReadLinesHandlerError(t *testing.T) {
	err := ReadLines(strings.NewReader("1,2\n3,4"), ',', func(int, []string) error {
		return errors.NotValidf("record")
	})
	assert.True(t, errors.Is(err, errors.NotValid))
}

func TestReadLinesUnterminated(t *testing.T) {
	err := ReadLines(strings.NewReader("1,\"2\n3,4"), ',', func(int, []string) error {
		return nil
	})
	assert.Error(t, err)
}
