package plugins

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"porenet/internal/validation"
)

// TestPluginsDependOnCoreOnly enforces that rule packs reach shared types
// through the internal/core re-exports and never touch storage or blob
// drivers.
func TestPluginsDependOnCoreOnly(t *testing.T) {
	root, err := os.Getwd()
	if err != nil {
		t.Fatalf("cannot get working dir: %v", err)
	}

	forbidden := []string{"porenet/pkg/domain", "porenet/internal/infra", "porenet/internal/blob", "porenet/internal/archive"}
	isForbidden := func(path string) bool {
		for _, f := range forbidden {
			if path == f || strings.HasPrefix(path, f+"/") {
				return true
			}
		}
		return false
	}

	var violations []string
	walkErr := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}
		// #nosec G304 -- path comes from WalkDir over the plugins tree.
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		inImport := false
		for _, raw := range strings.Split(string(data), "\n") {
			line := strings.TrimSpace(raw)
			if !inImport {
				if strings.HasPrefix(line, "import (") {
					inImport = true
					continue
				}
				if strings.HasPrefix(line, "import ") && isForbidden(extractQuoted(line)) {
					violations = append(violations, path)
				}
				continue
			}
			if line == ")" {
				inImport = false
				continue
			}
			if isForbidden(extractQuoted(line)) {
				violations = append(violations, path)
			}
		}
		return nil
	})
	if walkErr != nil {
		t.Fatalf("walk plugins dir: %v", walkErr)
	}
	for _, v := range violations {
		t.Errorf("plugin file imports a forbidden package: %s", v)
	}
}

// TestRulePacksFollowConventions runs the rule pack validator over every
// plugin directory.
func TestRulePacksFollowConventions(t *testing.T) {
	entries, err := os.ReadDir(".")
	if err != nil {
		t.Fatalf("read plugins dir: %v", err)
	}
	checked := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		checked++
		for _, v := range validation.ValidateRulePackDirectory(entry.Name()) {
			t.Errorf("%s:%d: %s (%s)", v.File, v.Line, v.Message, v.Code)
		}
	}
	if checked == 0 {
		t.Fatalf("no rule packs found")
	}
}

// extractQuoted returns the first double-quoted string on line.
func extractQuoted(line string) string {
	start := strings.Index(line, "\"")
	if start == -1 {
		return ""
	}
	end := strings.Index(line[start+1:], "\"")
	if end == -1 {
		return ""
	}
	return line[start+1 : start+1+end]
}
