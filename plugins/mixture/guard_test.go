package mixture

import (
	"testing"

	"porenet/testutil"
)

func TestRulePackBoundary(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.RulePackImportForbidden, "rule packs depend on internal/core only")
}
