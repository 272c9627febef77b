// Package padding implements the xhttp X-Padding header value: a string
// of '0' characters with length drawn uniformly from an "a-b" range.
package padding

import (
	"math/rand"
	"strconv"
	"strings"
)

// Random returns a padding string of '0' with length uniform in [a,b]
// for a rangeSpec of "a-b" with 1 <= a <= b. A malformed spec, or "0",
// disables padding and returns "".
func Random(rangeSpec string) string {
	a, b, ok := parseRange(rangeSpec)
	if !ok {
		return ""
	}
	n := a
	if b > a {
		n = a + rand.Intn(b-a+1)
	}
	return strings.Repeat("0", n)
}

func parseRange(spec string) (int, int, bool) {
	parts := strings.SplitN(spec, "-", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	a, errA := strconv.Atoi(strings.TrimSpace(parts[0]))
	b, errB := strconv.Atoi(strings.TrimSpace(parts[1]))
	if errA != nil || errB != nil || a < 1 || b < a {
		return 0, 0, false
	}
	return a, b, true
}
