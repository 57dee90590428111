package vishash

import "math"

// dct2d applies a 2D type-II discrete cosine transform to a square grid.
// Computed separably: rows first, then columns. Grid sizes here are tiny
// (32x32), so the O(n^3) direct form is fine.
func dct2d(grid [][]float64) [][]float64 {
	n := len(grid)

	rows := make([][]float64, n)
	for i, row := range grid {
		rows[i] = dct1d(row)
	}

	out := make([][]float64, n)
	for i := range out {
		out[i] = make([]float64, n)
	}
	col := make([]float64, n)
	for x := 0; x < n; x++ {
		for y := 0; y < n; y++ {
			col[y] = rows[y][x]
		}
		t := dct1d(col)
		for y := 0; y < n; y++ {
			out[y][x] = t[y]
		}
	}
	return out
}

// dct1d computes the orthonormal type-II DCT of one row.
func dct1d(in []float64) []float64 {
	n := len(in)
	out := make([]float64, n)
	for k := 0; k < n; k++ {
		var sum float64
		for i := 0; i < n; i++ {
			sum += in[i] * math.Cos(math.Pi*float64(k)*(2*float64(i)+1)/(2*float64(n)))
		}
		scale := math.Sqrt(2 / float64(n))
		if k == 0 {
			scale = math.Sqrt(1 / float64(n))
		}
		out[k] = sum * scale
	}
	return out
}
