package match

import (
	"errors"
	"strconv"
	"strings"
)

// atof parses the longest numeric prefix of s, ignoring leading spaces.
// Unparseable input yields 0; out-of-range input saturates to ±Inf.
func atof(s string) float32 {
	s = strings.TrimLeft(s, " \t")
	end := numericPrefix(s)
	if end == 0 {
		return 0
	}
	f, err := strconv.ParseFloat(s[:end], 32)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0
	}
	return float32(f)
}

// numericPrefix returns the length of the leading [+-]digits[.digits][e[+-]digits] run.
func numericPrefix(s string) int {
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	digits := 0
	for i < len(s) && isDigit(s[i]) {
		i++
		digits++
	}
	if i < len(s) && s[i] == '.' {
		j := i + 1
		frac := 0
		for j < len(s) && isDigit(s[j]) {
			j++
			frac++
		}
		if digits > 0 || frac > 0 {
			i = j
			digits += frac
		}
	}
	if digits == 0 {
		return 0
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		exp := 0
		for j < len(s) && isDigit(s[j]) {
			j++
			exp++
		}
		if exp > 0 {
			i = j
		}
	}
	return i
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// looksNumeric reports whether a token compares numerically: it parses to
// a non-zero number, or it is a non-empty run of '0'.
func looksNumeric(token string) bool {
	if atof(token) != 0 {
		return true
	}
	return token != "" && strings.Trim(token, "0") == ""
}
