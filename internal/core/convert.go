package core

// convert.go turns worksheet cell text into typed column values and back.
//
// Cells reach the importer as literal text: numbers as written, dates either
// as formatted strings or as raw Excel serial numbers, booleans in English or
// Chinese. Export writes the canonical forms these functions accept.

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// TimeLayout is the canonical timestamp format, always in UTC.
const TimeLayout = "2006-01-02 15:04:05"

var timeLayouts = []string{
	TimeLayout,
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006/01/02 15:04:05",
	"2006/01/02 15:04",
	"2006-01-02",
	"2006/01/02",
	"2006.01.02",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/2006",
	"2006年1月2日 15:04:05",
	"2006年1月2日",
}

// Excel serial numbers between these bounds are read as dates: 1900-01-01
// through 9999-12-31.
const (
	minExcelSerial = 1
	maxExcelSerial = 2958465
)

// ParseTime reads a timestamp cell. The result is UTC and truncated to the
// second, the precision natural keys compare at.
func ParseTime(s string) (time.Time, error) {
	s = CleanCell(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("invalid date: empty")
	}

	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC().Truncate(time.Second), nil
		}
	}

	if f, err := strconv.ParseFloat(s, 64); err == nil && f >= minExcelSerial && f <= maxExcelSerial {
		t, err := excelize.ExcelDateToTime(f, false)
		if err == nil {
			return t.UTC().Round(time.Second), nil
		}
	}

	return time.Time{}, fmt.Errorf("invalid date: %q", truncate(s, 40))
}

// ParseInt reads an integer cell. Thousands separators are dropped and a
// float with no fractional part, as spreadsheets often store, is accepted.
func ParseInt(s string) (int64, error) {
	s = strings.ReplaceAll(CleanCell(s), ",", "")
	if s == "" {
		return 0, fmt.Errorf("invalid number: empty")
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) || math.Abs(f) > 1<<53 {
		return 0, fmt.Errorf("invalid number: %q", truncate(s, 40))
	}
	return int64(f), nil
}

// ParseBool reads a boolean cell.
func ParseBool(s string) (bool, error) {
	switch strings.ToLower(CleanCell(s)) {
	case "true", "t", "yes", "y", "1", "是", "真":
		return true, nil
	case "false", "f", "no", "n", "0", "否", "假":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean: %q", truncate(s, 40))
}

// CleanCell trims whitespace and strips the ="value" wrapper some tools use
// to force text cells. Nothing is evaluated.
func CleanCell(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 3 && strings.HasPrefix(s, `="`) && strings.HasSuffix(s, `"`) {
		s = s[2 : len(s)-1]
	}
	return strings.TrimSpace(s)
}

// FormatValue renders a stored column value as export cell text.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case time.Time:
		if x.IsZero() {
			return ""
		}
		return x.UTC().Format(TimeLayout)
	case *time.Time:
		if x == nil {
			return ""
		}
		return FormatValue(*x)
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case int16:
		return strconv.FormatInt(int64(x), 10)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case []byte:
		return string(x)
	default:
		return fmt.Sprint(x)
	}
}

// toInt64 normalises integer column values from any store.
func toInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case int32:
		return int64(x), true
	case int:
		return int64(x), true
	case int16:
		return int64(x), true
	}
	return 0, false
}
