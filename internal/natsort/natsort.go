package natsort

import (
	"sort"
	"strings"
)

// Compare compares two strings in natural order: embedded digit runs are
// compared by numeric value rather than lexicographically, and letters are
// compared case-insensitively. Returns -1, 0 or 1.
//
// Examples: "page2" < "page10", "Artist2" < "artist10", "a" < "b".
func Compare(a, b string) int {
	la := strings.ToLower(a)
	lb := strings.ToLower(b)

	i, j := 0, 0
	for i < len(la) && j < len(lb) {
		ca, cb := la[i], lb[j]

		if isDigit(ca) && isDigit(cb) {
			// Compare the full digit runs numerically.
			si, sj := i, j
			for i < len(la) && isDigit(la[i]) {
				i++
			}
			for j < len(lb) && isDigit(lb[j]) {
				j++
			}

			na := strings.TrimLeft(la[si:i], "0")
			nb := strings.TrimLeft(lb[sj:j], "0")

			// After stripping leading zeros a longer run is a bigger number.
			if len(na) != len(nb) {
				if len(na) < len(nb) {
					return -1
				}
				return 1
			}
			if na != nb {
				if na < nb {
					return -1
				}
				return 1
			}
			continue
		}

		if ca != cb {
			if ca < cb {
				return -1
			}
			return 1
		}
		i++
		j++
	}

	// One string is a prefix of the other; the shorter sorts first.
	switch {
	case len(la)-i < len(lb)-j:
		return -1
	case len(la)-i > len(lb)-j:
		return 1
	}

	// Equal ignoring case; fall back to a byte compare so ordering stays total.
	return strings.Compare(a, b)
}

// Less reports whether a sorts before b in natural order.
func Less(a, b string) bool {
	return Compare(a, b) < 0
}

// Strings sorts a slice of strings in natural order, in place.
func Strings(s []string) {
	sort.Slice(s, func(i, j int) bool {
		return Compare(s[i], s[j]) < 0
	})
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
