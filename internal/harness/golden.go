package harness

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/retracehq/retrace/internal/trajectory"
)

// AssertDocumentGolden compares a recorded document against its golden
// file under testdata/golden/{name}.golden. Map keys serialize sorted,
// and harness recordings use a fixed clock, so the bytes are stable.
func AssertDocumentGolden(t *testing.T, name string, doc *trajectory.Document) {
	t.Helper()

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		t.Fatalf("failed to marshal document: %v", err)
	}
	data = append(data, '\n')

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
}
