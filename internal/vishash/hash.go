package vishash

import (
	"fmt"
	"image"
	"math/bits"
	"sort"
	"strconv"
)

// FingerprintLen is the length of a hex-encoded fingerprint (64 bits).
const FingerprintLen = 16

const (
	ahashGrid = 8
	phashGrid = 32
	phashLow  = 8
)

// HashFunc computes a fingerprint for an image.
type HashFunc func(image.Image) string

// ForMethod resolves a method name ("ahash" or "phash") to its hash
// function. Returns false for anything else, including "none": callers
// must not reach for a hash function when verification is disabled.
func ForMethod(method string) (HashFunc, bool) {
	switch method {
	case "ahash":
		return AverageHash, true
	case "phash":
		return PerceptualHash, true
	default:
		return nil, false
	}
}

// AverageHash computes the 64-bit average hash of img.
func AverageHash(img image.Image) string {
	grid := downsampleGray(img, ahashGrid, ahashGrid)

	var sum float64
	for _, row := range grid {
		for _, v := range row {
			sum += v
		}
	}
	mean := sum / float64(ahashGrid*ahashGrid)

	var h uint64
	for y := 0; y < ahashGrid; y++ {
		for x := 0; x < ahashGrid; x++ {
			h <<= 1
			if grid[y][x] > mean {
				h |= 1
			}
		}
	}
	return encode(h)
}

// PerceptualHash computes the 64-bit DCT-based perceptual hash of img.
func PerceptualHash(img image.Image) string {
	grid := downsampleGray(img, phashGrid, phashGrid)
	coeffs := dct2d(grid)

	// Retain the low-frequency block, excluding the DC term at (0,0).
	retained := make([]float64, 0, phashLow*phashLow-1)
	for y := 0; y < phashLow; y++ {
		for x := 0; x < phashLow; x++ {
			if x == 0 && y == 0 {
				continue
			}
			retained = append(retained, coeffs[y][x])
		}
	}
	med := median(retained)

	// Bit 63 (the DC slot) is a constant zero pad; the remaining 63 bits
	// are the median comparisons in row-major order.
	var h uint64
	for _, c := range retained {
		h <<= 1
		if c > med {
			h |= 1
		}
	}
	return encode(h)
}

// Distance returns the Hamming distance between two fingerprints.
// Both must be 16 hex characters.
func Distance(a, b string) (int, error) {
	av, err := decode(a)
	if err != nil {
		return 0, fmt.Errorf("fingerprint a: %w", err)
	}
	bv, err := decode(b)
	if err != nil {
		return 0, fmt.Errorf("fingerprint b: %w", err)
	}
	return bits.OnesCount64(av ^ bv), nil
}

// Compare measures the distance between two fingerprints and applies the
// threshold. The boundary is inclusive: distance == threshold passes.
func Compare(a, b string, threshold int) (distance int, pass bool, err error) {
	distance, err = Distance(a, b)
	if err != nil {
		return 0, false, err
	}
	return distance, distance <= threshold, nil
}

func encode(h uint64) string {
	return fmt.Sprintf("%016x", h)
}

func decode(s string) (uint64, error) {
	if len(s) != FingerprintLen {
		return 0, fmt.Errorf("expected %d hex characters, got %d", FingerprintLen, len(s))
	}
	v, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("not a hex fingerprint: %q", s)
	}
	return v, nil
}

func median(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
