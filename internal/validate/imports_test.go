// SPDX-License-Identifier: MIT

package validate

import (
	"fmt"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const modulePath = "github.com/pkepg/epgstitch"

// TestLayeringRules keeps the guide model and the schedule algorithms free
// of I/O so they stay testable without servers or files.
func TestLayeringRules(t *testing.T) {
	projectRoot := findProjectRoot(t)

	var violations []string

	// The model and codec depend on nothing else in the module.
	violations = append(violations, checkForbiddenImport(
		t, projectRoot,
		"internal/epg",
		modulePath+"/internal/",
		"internal/epg is the leaf of the dependency graph",
	)...)

	// Schedule algorithms see only the model.
	violations = append(violations, checkForbiddenImportExcept(
		t, projectRoot,
		"internal/schedule",
		modulePath+"/internal/",
		[]string{modulePath + "/internal/epg"},
		"schedule must stay pure (no transport, storage or config)",
	)...)

	// Adapters never reach up into orchestration.
	for _, upper := range []string{"jobs", "api", "daemon", "config"} {
		violations = append(violations, checkForbiddenImport(
			t, projectRoot,
			"internal/source",
			modulePath+"/internal/"+upper,
			"adapters are configured by jobs, not the other way round",
		)...)
	}

	// Library packages never import the CLI.
	violations = append(violations, checkForbiddenImport(
		t, projectRoot,
		"internal",
		modulePath+"/cmd",
		"internal packages must not import cmd",
	)...)

	if len(violations) > 0 {
		t.Errorf("Layering violations detected:\n\n%s", strings.Join(violations, "\n"))
	}
}

// TestNoUtilsPackages prevents creation of catch-all helper packages.
func TestNoUtilsPackages(t *testing.T) {
	projectRoot := findProjectRoot(t)

	for _, dir := range []string{"internal/utils", "internal/util", "internal/common", "internal/helpers"} {
		if _, err := os.Stat(filepath.Join(projectRoot, dir)); err == nil {
			t.Errorf("forbidden package detected: %s (name packages after what they do)", dir)
		}
	}
}

// --- Helper Functions ---

func checkForbiddenImport(t *testing.T, projectRoot, sourceDir, forbiddenImportPrefix, reason string) []string {
	return checkForbiddenImportExcept(t, projectRoot, sourceDir, forbiddenImportPrefix, nil, reason)
}

func checkForbiddenImportExcept(t *testing.T, projectRoot, sourceDir, forbiddenImportPrefix string, allowedImports []string, reason string) []string {
	t.Helper()

	sourcePath := filepath.Join(projectRoot, sourceDir)
	files, err := findGoFiles(sourcePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // Directory doesn't exist - no violation
		}
		t.Fatalf("Failed to scan %s: %v", sourceDir, err)
	}

	// Build set of allowed imports for fast lookup
	allowedSet := make(map[string]bool)
	for _, allowed := range allowedImports {
		allowedSet[allowed] = true
	}

	violations := []string{}
	for _, file := range files {
		imports, err := extractImports(file)
		if err != nil {
			t.Logf("failed to parse %s: %v", file, err)
			continue
		}

		for _, imp := range imports {
			if strings.HasPrefix(imp, forbiddenImportPrefix) {
				// Check if this import is explicitly allowed
				if allowedSet[imp] {
					continue
				}
				relPath, _ := filepath.Rel(projectRoot, file)
				violations = append(violations, fmt.Sprintf(
					"  %s imports %s\n     reason: %s",
					relPath, imp, reason,
				))
			}
		}
	}

	return violations
}

func findGoFiles(root string) ([]string, error) {
	var files []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && strings.HasSuffix(path, ".go") && !strings.HasSuffix(path, "_test.go") {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

func extractImports(filePath string) ([]string, error) {
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, filePath, nil, parser.ImportsOnly)
	if err != nil {
		return nil, err
	}

	imports := []string{}
	for _, imp := range f.Imports {
		importPath := strings.Trim(imp.Path.Value, `"`)
		imports = append(imports, importPath)
	}
	return imports, nil
}

func findProjectRoot(t *testing.T) string {
	t.Helper()
	cwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}

	// Walk up until we find go.mod
	dir := cwd
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatalf("Could not find project root (no go.mod found)")
		}
		dir = parent
	}
}
