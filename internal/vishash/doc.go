// Package vishash computes perceptual fingerprints of image regions and
// compares them by Hamming distance.
//
// Two algorithms are provided, both producing a 64-bit fingerprint encoded
// as 16 hex characters regardless of input image size:
//
// AVERAGE HASH (ahash):
//
// The region is downsampled to an 8x8 grayscale grid by block averaging.
// Each bit is 1 if its cell is strictly above the grid-wide mean intensity,
// 0 otherwise. Bits are packed row-major, most significant bit first.
//
// PERCEPTUAL HASH (phash):
//
// The region is downsampled to a 32x32 grayscale grid and transformed with
// a 2D type-II discrete cosine transform. The top-left 8x8 block of
// coefficients holds the low-frequency content; the DC term (overall
// brightness) is excluded. Each of the 63 remaining coefficients is
// compared against their median; the 64-bit fingerprint is a zero pad bit
// followed by the 63 comparison bits. phash is markedly more robust than
// ahash against brightness and contrast shifts.
//
// COMPARISON:
//
// Distance is the number of differing bits between two fingerprints.
// Compare passes when distance <= threshold; the boundary is inclusive.
//
// REGION EXTRACTION:
//
// Validation is local to the area an action affected: Region crops a
// fixed-size square centered on the action's target coordinate, shifted
// (not shrunk) when the square would cross the frame edge. Actions with no
// target coordinate fingerprint the full frame.
package vishash
