package testsupport

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

// LoadFixture reads a file relative to the test package directory and fails
// the test if it cannot be read.
func LoadFixture(t *testing.T, path string) []byte {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("fixture %s: %v", path, err)
	}
	return data
}

// LoadFixtureJSON decodes a JSON fixture into dest. Unknown fields fail the
// test so a typo in a scenario file cannot silently drop an expectation.
func LoadFixtureJSON(t *testing.T, path string, dest any) {
	t.Helper()

	dec := json.NewDecoder(bytes.NewReader(LoadFixture(t, path)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dest); err != nil {
		t.Fatalf("fixture %s: decode: %v", path, err)
	}
}

// FixturePath returns testdata/<filename>.
func FixturePath(filename string) string {
	return filepath.Join("testdata", filename)
}
