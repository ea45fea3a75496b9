// Package schema reads the field list out of a Superbase .SBD schema file.
//
// The file is line oriented text:
//
//	line 0               title, ignored
//	NAME;type;...        one line per field, name before the first ';'
//	  detail             lines starting with whitespace belong to the field above
//	(empty line)         end of the field list
package schema

import (
	"bufio"
	"io"
	"strings"
	"unicode"

	"golang.org/x/text/encoding"

	"superbase-golang/superbase/util"
)

// ParseFields returns the field names in declaration order. enc decodes the
// file's code page; nil leaves the bytes as they are.
func ParseFields(r io.Reader, enc encoding.Encoding) ([]string, error) {
	if enc != nil {
		r = enc.NewDecoder().Reader(r)
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)

	fields := make([]string, 0)
	lineNo := 0
	for scanner.Scan() {
		line := strings.TrimSuffix(scanner.Text(), "\r")
		lineNo++
		if lineNo == 1 {
			continue
		}
		if line == "" {
			break
		}
		if unicode.IsSpace(rune(line[0])) {
			continue
		}

		name, _, _ := strings.Cut(line, ";")
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, util.NewSuperbaseError(util.ErrInvalidSchema,
				"line %d has no field name: %q", lineNo, line)
		}
		fields = append(fields, name)
	}
	if err := scanner.Err(); err != nil {
		return nil, util.NewSuperbaseError(util.ErrReadFileFailed,
			"failed to read schema at line %d, error: [%v]", lineNo+1, err)
	}

	if len(fields) == 0 {
		return nil, util.NewSuperbaseError(util.ErrEmptySchema, "no fields after %d lines", lineNo)
	}
	return fields, nil
}
