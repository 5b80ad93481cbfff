/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2026 Markus Stenberg
 *
 * Created:       Mon Oct  5 10:50:40 2026 mstenber
 * Last modified: Wed Oct 14 11:02:19 2026 mstenber
 * Edit time:     7 min
 *
 */

package util

func IMin(i int, ints ...int) int {
	for _, v := range ints {
		if v < i {
			i = v
		}
	}
	return i
}

func IMax(i int, ints ...int) int {
	for _, v := range ints {
		if v > i {
			i = v
		}
	}
	return i
}

// CeilDiv is integer division rounding up.
func CeilDiv(a, b uint32) uint32 {
	return (a + b - 1) / b
}

// SOr returns the first non-empty string.
func SOr(i string, strings ...string) string {
	if i != "" {
		return i
	}
	for _, v := range strings {
		if v != "" {
			return v
		}
	}
	return ""
}
