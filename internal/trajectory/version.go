package trajectory

// Version constants for the cache document schema.
const (
	// SchemaVersion is the version written into new documents.
	SchemaVersion = "0.2"

	// StepTypeToolUse is the only step record family in this schema.
	StepTypeToolUse = "tool_use"
)

// SupportedVersions defines the schema versions this build can load.
// Documents with any other version fail to load as invalid.
var SupportedVersions = map[string]bool{
	"0.2": true,
}
