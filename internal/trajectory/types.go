package trajectory

import "time"

// VerificationMethod selects the visual fingerprint algorithm for a document.
type VerificationMethod string

const (
	// MethodPHash is the perceptual (DCT-based) hash.
	MethodPHash VerificationMethod = "phash"

	// MethodAHash is the average (mean-intensity) hash.
	MethodAHash VerificationMethod = "ahash"

	// MethodNone disables visual verification entirely. Steps carry no
	// fingerprint and replay validation always passes.
	MethodNone VerificationMethod = "none"
)

// ValidVerificationMethods defines the allowed method values.
var ValidVerificationMethods = map[VerificationMethod]bool{
	MethodPHash: true,
	MethodAHash: true,
	MethodNone:  true,
}

// Threshold bounds for the Hamming distance comparison. Fingerprints are
// 64 bits, so 64 is the maximum possible distance.
const (
	MinThreshold = 0
	MaxThreshold = 64
)

// Metadata describes a recorded document: when and why it was recorded,
// and how its steps are visually verified.
type Metadata struct {
	Version             string             `json:"version"`
	CreatedAt           time.Time          `json:"created_at"`
	Goal                string             `json:"goal"`
	VerificationMethod  VerificationMethod `json:"visual_verification_method"`
	ValidationRegionPx  int                `json:"visual_validation_region_size"`
	ValidationThreshold int                `json:"visual_validation_threshold"`
}

// Step is one recorded action. Input values may contain {{name}} placeholder
// tokens; each referenced name must exist in the document's Parameters map.
type Step struct {
	// Type discriminates the record family. Always "tool_use" in the
	// current schema; reserved for future step families.
	Type string `json:"type"`

	// Name is the action kind ("click", "type", "key", "wait", "scroll").
	Name string `json:"name"`

	// Input maps argument name to value. Shape depends on Name; see
	// validateInput.
	Input map[string]any `json:"input"`

	// Fingerprint is the 16-hex-character visual fingerprint of the
	// interface state captured after this action, or empty when the
	// document's verification method is "none".
	Fingerprint string `json:"visual_representation,omitempty"`
}

// Document is the persisted unit: one complete recorded run.
type Document struct {
	Metadata   Metadata          `json:"metadata"`
	Trajectory []Step            `json:"trajectory"`
	Parameters map[string]string `json:"cache_parameters"`
}

// Clone returns a deep copy of the document. Replay substitutes into the
// copy so the loaded document remains textually unchanged.
func (d *Document) Clone() *Document {
	out := &Document{
		Metadata:   d.Metadata,
		Trajectory: make([]Step, len(d.Trajectory)),
		Parameters: make(map[string]string, len(d.Parameters)),
	}
	for i, s := range d.Trajectory {
		out.Trajectory[i] = s.Clone()
	}
	for k, v := range d.Parameters {
		out.Parameters[k] = v
	}
	return out
}

// Clone returns a deep copy of the step with its own input map.
func (s Step) Clone() Step {
	in := make(map[string]any, len(s.Input))
	for k, v := range s.Input {
		in[k] = v
	}
	s.Input = in
	return s
}
