package parser

import (
	"regexp"
	"strconv"
	"time"
)

const (
	excelEpochOffsetDays = 25569 // days between 1899-12-30 and 1970-01-01
	excelSerialMin       = 10000
	excelSerialMax       = 80000
)

var (
	dateSeparated = regexp.MustCompile(`^(\d{4})[-./](\d{1,2})[-./](\d{1,2})$`)
	eightDigits   = regexp.MustCompile(`^\d{8}$`)
	sixDigits     = regexp.MustCompile(`^\d{6}$`)
)

// NormalizeDate converts any of the contract's recognized date encodings
// to the canonical 8-digit YYYYMMDD string. ok is false when raw does not
// match a known encoding or represents an impossible calendar date.
func NormalizeDate(raw string) (normalized string, ok bool) {
	if raw == "" {
		return "", false
	}

	if serial, err := strconv.Atoi(raw); err == nil {
		if serial >= excelSerialMin && serial <= excelSerialMax {
			t := time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC).AddDate(0, 0, serial)
			return formatYYYYMMDD(t), true
		}
	}

	if eightDigits.MatchString(raw) {
		y, _ := strconv.Atoi(raw[0:4])
		m, _ := strconv.Atoi(raw[4:6])
		d, _ := strconv.Atoi(raw[6:8])
		return validateYMD(y, m, d)
	}

	if sixDigits.MatchString(raw) {
		yy, _ := strconv.Atoi(raw[0:2])
		m, _ := strconv.Atoi(raw[2:4])
		d, _ := strconv.Atoi(raw[4:6])
		century := 1900
		if yy <= 49 {
			century = 2000
		}
		return validateYMD(century+yy, m, d)
	}

	if m := dateSeparated.FindStringSubmatch(raw); m != nil {
		y, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		d, _ := strconv.Atoi(m[3])
		return validateYMD(y, mo, d)
	}

	return "", false
}

func validateYMD(y, m, d int) (string, bool) {
	if m < 1 || m > 12 || d < 1 || d > 31 {
		return "", false
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	if t.Year() != y || int(t.Month()) != m || t.Day() != d {
		return "", false
	}
	return formatYYYYMMDD(t), true
}

func formatYYYYMMDD(t time.Time) string {
	return t.Format("20060102")
}

// ParseYYYYMMDD parses a canonical date string produced by NormalizeDate
// back into a time.Time for downstream arithmetic (age checks, ordering).
func ParseYYYYMMDD(s string) (time.Time, bool) {
	if !eightDigits.MatchString(s) {
		return time.Time{}, false
	}
	t, err := time.Parse("20060102", s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
