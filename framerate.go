package videobridge

import (
	"math"
	"strconv"
	"strings"
)

// maxFractionDigits bounds the decimal precision of FPSToFraction so the
// denominator stays within a caps fraction.
const maxFractionDigits = 6

// FPSToFraction converts a frame rate to numerator/denominator form by
// reading its decimal expansion: 30 → 30/1, 29.97 → 2997/100, 0.5 → 1/2.
// The result is reduced. Non-positive or non-finite input yields 0/1.
func FPSToFraction(fps float64) (num, den int) {
	if fps <= 0 || math.IsNaN(fps) || math.IsInf(fps, 0) {
		return 0, 1
	}
	if fps == math.Floor(fps) {
		return int(fps), 1
	}

	s := strconv.FormatFloat(fps, 'f', -1, 64)
	digits := 0
	if i := strings.IndexByte(s, '.'); i >= 0 {
		digits = len(s) - i - 1
	}
	digits = min(digits, maxFractionDigits)

	den = int(math.Pow10(digits))
	num = int(math.Round(fps * float64(den)))
	g := gcd(num, den)
	return num / g, den / g
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	if a == 0 {
		return 1
	}
	return a
}

// validFrameRate reports whether fps is a usable input rate (zero allowed).
func validFrameRate(fps float64) bool {
	return !math.IsNaN(fps) && !math.IsInf(fps, 0) && fps >= 0
}
