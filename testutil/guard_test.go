package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestPredicates(t *testing.T) {
	cases := []struct {
		name string
		fn   func(string) bool
		in   string
		want bool
	}{
		{"domain", DomainImportForbidden, "porenet/pkg/domain", true},
		{"domain versioned", DomainImportForbidden, "example.com/mod/pkg/domain@v1", true},
		{"domain lookalike", DomainImportForbidden, "porenet/pkg/domainx", false},
		{"internal", InternalImportForbidden, "porenet/internal/core", true},
		{"internal root module", InternalImportForbidden, "porenet/pkg/domain", false},
		{"internal of dependency", InternalImportForbidden, "github.com/vmihailenco/tagparser/v2/internal/parser", false},
		{"infra driver", InfraImportForbidden, "porenet/internal/infra/persistence/sqlite", true},
		{"infra root", InfraImportForbidden, "porenet/internal/infra", true},
		{"infra lookalike", InfraImportForbidden, "porenet/internal/infrastructure", false},
		{"rule pack core", RulePackImportForbidden, "porenet/internal/core", false},
		{"rule pack network", RulePackImportForbidden, "porenet/internal/network", false},
		{"rule pack blob", RulePackImportForbidden, "porenet/internal/blob/core", true},
		{"rule pack archive", RulePackImportForbidden, "porenet/internal/archive", true},
		{"rule pack domain", RulePackImportForbidden, "porenet/pkg/domain", true},
	}
	for _, c := range cases {
		if got := c.fn(c.in); got != c.want {
			t.Fatalf("%s: predicate(%q)=%v want %v", c.name, c.in, got, c.want)
		}
	}
}

func TestDirectImportViolations(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"a.go":      "package tmp\nimport \"porenet/internal/infra/blob/s3\"\n",
		"b.go":      "package tmp\nimport \"fmt\"\nfunc X(){fmt.Println(1)}\n",
		"a_test.go": "package tmp\nimport \"porenet/pkg/domain\"\n",
		"notes.txt": "import \"porenet/pkg/domain\"",
	}
	for name, src := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(src), 0o600); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	viols, err := directImportViolations(dir, RulePackImportForbidden)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(viols) != 1 || !strings.Contains(viols[0], "a.go") {
		t.Fatalf("expected one violation in a.go, got %v", viols)
	}
	if _, err := directImportViolations(filepath.Join(dir, "missing"), RulePackImportForbidden); err == nil {
		t.Fatalf("expected error for missing directory")
	}
}

type recorder struct{ msg string }

func (r *recorder) Fatalf(format string, args ...any) { r.msg = format }

func TestFailHelpers(t *testing.T) {
	r := &recorder{}
	failIfDirectViolations(r, "reason", nil)
	failIfTransitiveViolations(r, "reason", nil)
	if r.msg != "" {
		t.Fatalf("no violations should not fail")
	}
	failIfDirectViolations(r, "reason", []string{"x"})
	if !strings.Contains(r.msg, "direct") {
		t.Fatalf("expected direct failure, got %q", r.msg)
	}
	failIfTransitiveViolations(r, "reason", []string{"x"})
	if !strings.Contains(r.msg, "transitive") {
		t.Fatalf("expected transitive failure, got %q", r.msg)
	}
}

func TestTransitiveViolationsUsesGoList(t *testing.T) {
	orig := goListDeps
	t.Cleanup(func() { goListDeps = orig })
	goListDeps = func(string) ([]byte, error) {
		return []byte("fmt\nporenet/pkg/domain\n\nporenet/internal/core\n"), nil
	}
	viols, _, err := transitiveDependencyViolations(".", InternalImportForbidden)
	if err != nil {
		t.Fatalf("violations: %v", err)
	}
	if len(viols) != 1 || viols[0] != "porenet/internal/core" {
		t.Fatalf("unexpected violations %v", viols)
	}
}
