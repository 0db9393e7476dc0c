package utils

import (
	"strconv"
)

// StringToInt converts string to int, returns 0 if error
func StringToInt(s string) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return i
}

// StringToID parses a positive database id.
func StringToID(s string) (uint, bool) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil || n == 0 {
		return 0, false
	}
	return uint(n), true
}

// PageParam reads a 1-based page number, defaulting to 1.
func PageParam(s string) int {
	if p := StringToInt(s); p > 0 {
		return p
	}
	return 1
}
