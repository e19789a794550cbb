// Package validation checks rule pack sources against the conventions the
// engine relies on: rule ids namespaced by their plugin, keys built through
// core helpers and shared state keys taken from the core re-exports.
package validation

import (
	"bufio"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// Error represents a convention violation found in rule pack code.
type Error struct {
	File    string
	Line    int
	Message string
	Code    string
}

// ValidateRulePackDirectory validates all non-test Go files under dir.
func ValidateRulePackDirectory(dir string) []Error {
	var errs []Error

	err := filepath.Walk(dir, func(path string, _ os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}
		errs = append(errs, validateRulePackFile(path)...)
		return nil
	})
	if err != nil {
		errs = append(errs, Error{
			File:    dir,
			Message: "Failed to walk directory: " + err.Error(),
		})
	}
	return errs
}

func validateRulePackFile(filePath string) []Error {
	errs := validateFileText(filePath)
	return append(errs, validateFileAST(filePath)...)
}

var antiPatterns = []struct {
	pattern *regexp.Regexp
	message string
}{
	{regexp.MustCompile(`"(pore|throat)\.[A-Za-z_]`), "Use the node/edge domains; pore and throat are accepted only as input aliases"},
	{regexp.MustCompile(`"(node|edge)\.[A-Za-z_][A-Za-z0-9_.]*"`), "Build keys with core.NodeKey/core.EdgeKey instead of raw key literals"},
	{regexp.MustCompile(`\bdomain\.(NodeKey|EdgeKey|ParseKey)\(`), "Reach key helpers through the internal/core re-exports"},
}

func validateFileText(filePath string) []Error {
	var errs []Error

	file, err := os.Open(filepath.Clean(filePath))
	if err != nil {
		return append(errs, Error{File: filePath, Message: "Failed to open file: " + err.Error()})
	}
	defer func() {
		_ = file.Close()
	}()

	scanner := bufio.NewScanner(file)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" || isCommentLine(line) {
			continue
		}
		for _, ap := range antiPatterns {
			if ap.pattern.MatchString(line) {
				errs = append(errs, Error{
					File:    filePath,
					Line:    lineNum,
					Message: ap.message,
					Code:    strings.TrimSpace(line),
				})
			}
		}
	}
	return errs
}

// wellKnownKeys maps node property names to the core variable that should
// be used in their place.
var wellKnownKeys = map[string]string{
	"temperature":            "core.KeyTemperature",
	"pressure":               "core.KeyPressure",
	"mole_fraction":          "core.KeyMoleFraction",
	"molecular_weight":       "core.KeyMolecularWeight",
	"molar_diffusion_volume": "core.KeyDiffusionVolume",
}

func validateFileAST(filePath string) []Error {
	var errs []Error

	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, filePath, nil, parser.ParseComments)
	if err != nil {
		return errs
	}
	pkg := file.Name.Name

	ast.Inspect(file, func(n ast.Node) bool {
		switch node := n.(type) {
		case *ast.GenDecl:
			errs = append(errs, validateRuleIDs(fset, pkg, node)...)
		case *ast.FuncDecl:
			errs = append(errs, validatePluginName(fset, pkg, node)...)
		case *ast.CallExpr:
			errs = append(errs, validateKeyCall(fset, node)...)
		}
		return true
	})
	return errs
}

// validateRuleIDs requires Rule* string constants to carry the package name
// as their namespace.
func validateRuleIDs(fset *token.FileSet, pkg string, decl *ast.GenDecl) []Error {
	var errs []Error
	if decl.Tok != token.CONST {
		return errs
	}
	for _, spec := range decl.Specs {
		vs, ok := spec.(*ast.ValueSpec)
		if !ok {
			continue
		}
		for i, name := range vs.Names {
			if !strings.HasPrefix(name.Name, "Rule") || i >= len(vs.Values) {
				continue
			}
			id, ok := stringLiteral(vs.Values[i])
			if !ok || strings.HasPrefix(id, pkg+".") {
				continue
			}
			pos := fset.Position(name.Pos())
			errs = append(errs, Error{
				File:    pos.Filename,
				Line:    pos.Line,
				Message: "Rule ids must be namespaced by the plugin package (" + pkg + ".<rule>)",
				Code:    name.Name + " = " + strconv.Quote(id),
			})
		}
	}
	return errs
}

// validatePluginName requires a Name method returning a literal to return
// the package name, so rule namespaces and plugin names agree.
func validatePluginName(fset *token.FileSet, pkg string, fn *ast.FuncDecl) []Error {
	if fn.Recv == nil || fn.Name.Name != "Name" || fn.Body == nil || len(fn.Body.List) != 1 {
		return nil
	}
	ret, ok := fn.Body.List[0].(*ast.ReturnStmt)
	if !ok || len(ret.Results) != 1 {
		return nil
	}
	name, ok := stringLiteral(ret.Results[0])
	if !ok || name == pkg {
		return nil
	}
	pos := fset.Position(ret.Pos())
	return []Error{{
		File:    pos.Filename,
		Line:    pos.Line,
		Message: "Plugin name must match its package name " + pkg,
		Code:    "return " + strconv.Quote(name),
	}}
}

// validateKeyCall flags core.NodeKey("temperature") and friends.
func validateKeyCall(fset *token.FileSet, call *ast.CallExpr) []Error {
	sel, ok := call.Fun.(*ast.SelectorExpr)
	if !ok || sel.Sel.Name != "NodeKey" || len(call.Args) != 1 {
		return nil
	}
	if ident, ok := sel.X.(*ast.Ident); !ok || ident.Name != "core" {
		return nil
	}
	name, ok := stringLiteral(call.Args[0])
	if !ok {
		return nil
	}
	suggestion, known := wellKnownKeys[name]
	if !known {
		return nil
	}
	pos := fset.Position(call.Pos())
	return []Error{{
		File:    pos.Filename,
		Line:    pos.Line,
		Message: "Use " + suggestion + " for shared state keys",
		Code:    "core.NodeKey(" + strconv.Quote(name) + ")",
	}}
}

func stringLiteral(expr ast.Expr) (string, bool) {
	lit, ok := expr.(*ast.BasicLit)
	if !ok || lit.Kind != token.STRING {
		return "", false
	}
	s, err := strconv.Unquote(lit.Value)
	if err != nil {
		return "", false
	}
	return s, true
}

func isCommentLine(line string) bool {
	trimmed := strings.TrimSpace(line)
	return strings.HasPrefix(trimmed, "//") || strings.HasPrefix(trimmed, "/*")
}
