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
	"bufio"
	"io"
	"strings"

	"github.com/juju/errors"
)

// ErrStopReading stops ReadLines without reporting an error.
const ErrStopReading = errors.ConstError("stop reading")

const utf8BOM = "\uFEFF"

// Escape text for csv.
func Escape(text string) string {
	if !strings.ContainsAny(text, ",\"\r\n") {
		return text
	}
	builder := strings.Builder{}
	builder.WriteRune('"')
	for _, c := range text {
		if c == '"' {
			builder.WriteString("\"\"")
		} else {
			builder.WriteRune(c)
		}
	}
	builder.WriteRune('"')
	return builder.String()
}

// ReadLines splits each record of a csv stream into fields and passes them to handler
// together with the record number. Quoted fields may contain separators, escaped quotes
// and line breaks. Returning ErrStopReading from handler ends the scan early.
func ReadLines(r io.Reader, sep rune, handler func(int, []string) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineCount := 0               // number of records passed to handler
	fields := make([]string, 0)  // fields of current record
	builder := strings.Builder{} // current field
	quoted := false              // whether current position is quoted
	first := true
	for sc.Scan() {
		lineStr := sc.Text()
		if first {
			lineStr = strings.TrimPrefix(lineStr, utf8BOM)
			first = false
		}
		line := []rune(lineStr)
		if quoted {
			builder.WriteString("\r\n")
		}
		for i := 0; i < len(line); i++ {
			switch {
			case line[i] == sep && !quoted:
				fields = append(fields, builder.String())
				builder.Reset()
			case line[i] == '"':
				if !quoted {
					quoted = true
				} else if i+1 < len(line) && line[i+1] == '"' {
					i++
					builder.WriteRune('"')
				} else {
					quoted = false
				}
			default:
				builder.WriteRune(line[i])
			}
		}
		if quoted {
			continue
		}
		fields = append(fields, builder.String())
		builder.Reset()
		if err := handler(lineCount, fields); err != nil {
			if errors.Is(err, ErrStopReading) {
				return nil
			}
			return errors.Trace(err)
		}
		fields = make([]string, 0, len(fields))
		lineCount++
	}
	if err := sc.Err(); err != nil {
		return errors.Trace(err)
	}
	if quoted {
		return errors.New("unterminated quoted field at end of input")
	}
	return nil
}
