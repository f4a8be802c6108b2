// Package extract reads normalized scalar values out of table rows.
//
// Cells are addressed by their data-stat column identifier. Numeric coercion never fails:
// the source renders blank cells for rows with no attempts, and blank is treated as zero.
package extract

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/JakeFAU/hoops-harvester/internal/harvest"
)

// Cell tags used by the source tables.
const (
	TagData   = "td"
	TagHeader = "th"
)

// ByTableID returns the selector for the element with the given id.
func ByTableID(id string) string {
	return "#" + id
}

// ByAttribute returns the selector for tag elements whose attr equals value.
func ByAttribute(tag, attr, value string) string {
	return fmt.Sprintf(`%s[%s="%s"]`, tag, attr, value)
}

// CellSelector returns the selector for a row cell with the given data-stat column.
func CellSelector(tag, column string) string {
	return ByAttribute(tag, "data-stat", column)
}

// Text returns the trimmed text of the first tag cell for column within row, or "".
func Text(row harvest.Node, tag, column string) string {
	if row == nil {
		return ""
	}
	cell, ok := row.First(CellSelector(tag, column))
	if !ok {
		return ""
	}
	return strings.TrimSpace(cell.Text())
}

// IntCell reads column from row as an integer.
func IntCell(row harvest.Node, column string) int {
	return Int(Text(row, TagData, column))
}

// FloatCell reads column from row as a float.
func FloatCell(row harvest.Node, column string) float64 {
	return Float(Text(row, TagData, column))
}

// Int parses the leading integer of text. Anything unparseable is 0.
func Int(text string) int {
	n, err := strconv.Atoi(numericPrefix(text, false))
	if err != nil {
		return 0
	}
	return n
}

// Float parses the leading decimal number of text. Anything unparseable is 0.
func Float(text string) float64 {
	f, err := strconv.ParseFloat(numericPrefix(text, true), 64)
	if err != nil {
		return 0
	}
	return f
}

// numericPrefix returns the longest prefix of text that looks like a number: an optional
// sign, digits and, when fraction is set, one decimal point.
func numericPrefix(text string, fraction bool) string {
	s := strings.TrimSpace(text)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digits := 0
	seenPoint := false
	for end < len(s) {
		c := s[end]
		switch {
		case c >= '0' && c <= '9':
			digits++
		case c == '.' && fraction && !seenPoint:
			seenPoint = true
		default:
			return trimPrefix(s[:end], digits)
		}
		end++
	}
	return trimPrefix(s[:end], digits)
}

func trimPrefix(p string, digits int) string {
	if digits == 0 {
		return ""
	}
	return strings.TrimSuffix(p, ".")
}
