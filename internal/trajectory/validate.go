package trajectory

import "fmt"

// Validate checks every data-model invariant. It returns the first
// violation found; a document for which Validate returns nil is safe to
// replay. Load paths must call this before handing the document to anyone.
func (d *Document) Validate() error {
	if !SupportedVersions[d.Metadata.Version] {
		return fmt.Errorf("unsupported schema version %q", d.Metadata.Version)
	}

	method := d.Metadata.VerificationMethod
	if !ValidVerificationMethods[method] {
		return fmt.Errorf("invalid visual verification method %q", method)
	}

	if t := d.Metadata.ValidationThreshold; t < MinThreshold || t > MaxThreshold {
		return fmt.Errorf("validation threshold %d out of range [%d, %d]", t, MinThreshold, MaxThreshold)
	}

	if method != MethodNone && d.Metadata.ValidationRegionPx <= 0 {
		return fmt.Errorf("validation region size %d must be positive", d.Metadata.ValidationRegionPx)
	}

	if len(d.Trajectory) == 0 {
		return fmt.Errorf("trajectory is empty")
	}

	for i, step := range d.Trajectory {
		if step.Type != StepTypeToolUse {
			return fmt.Errorf("step %d: unknown step type %q", i, step.Type)
		}
		if err := validateInput(step, i); err != nil {
			return err
		}
		if err := validateFingerprint(step, i, method); err != nil {
			return err
		}
	}

	// Every referenced placeholder must be declared.
	for _, name := range d.ReferencedParameters() {
		if _, declared := d.Parameters[name]; !declared {
			return fmt.Errorf("placeholder %q is referenced but not declared in cache_parameters", name)
		}
	}

	return nil
}

// validateFingerprint checks fingerprint presence against the document
// method: required (and well-formed) for phash/ahash, forbidden for none.
func validateFingerprint(step Step, index int, method VerificationMethod) error {
	if method == MethodNone {
		if step.Fingerprint != "" {
			return fmt.Errorf("step %d: fingerprint present but verification method is %q", index, MethodNone)
		}
		return nil
	}

	if step.Fingerprint == "" {
		return fmt.Errorf("step %d: missing fingerprint for verification method %q", index, method)
	}
	if len(step.Fingerprint) != 16 {
		return fmt.Errorf("step %d: fingerprint must be 16 hex characters, got %d", index, len(step.Fingerprint))
	}
	for _, c := range step.Fingerprint {
		if !isHexDigit(c) {
			return fmt.Errorf("step %d: fingerprint contains non-hex character %q", index, c)
		}
	}
	return nil
}

func isHexDigit(c rune) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
