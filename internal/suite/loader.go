package suite

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	calerrors "github.com/AndreyAkinshin/calcheck/internal/errors"
	"github.com/AndreyAkinshin/calcheck/internal/schema"
)

// Load reads, resolves and validates the suite at path.
func Load(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, calerrors.NotFound("suite", path)
		}
		return nil, calerrors.Wrap(err, "failed to read suite")
	}

	s, err := Parse(data, filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	s.Path = path
	if s.Name == "" {
		base := filepath.Base(path)
		s.Name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return s, nil
}

// Parse decodes a suite document. $file references are resolved relative
// to baseDir.
func Parse(data []byte, baseDir string) (*Suite, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, calerrors.Validation("invalid YAML", err)
	}
	if raw == nil {
		return nil, calerrors.Config("suite is empty")
	}

	resolved, err := resolveFileRefs(raw, baseDir)
	if err != nil {
		return nil, calerrors.Validation("cannot resolve $file reference", err)
	}

	if err := schema.ValidateSuite(resolved); err != nil {
		return nil, calerrors.Validation("invalid suite", err)
	}

	// Re-encode the resolved tree so referenced files decode into the
	// typed structure exactly like inline content.
	out, err := yaml.Marshal(resolved)
	if err != nil {
		return nil, calerrors.Wrap(err, "failed to re-encode suite")
	}
	var s Suite
	if err := yaml.Unmarshal(out, &s); err != nil {
		return nil, calerrors.Validation("invalid suite", err)
	}

	if err := s.validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// LoadAll loads every suite named by paths. Directories contribute their
// *.yaml, *.yml and *.json files, recursively, in lexical order.
// Subdirectories starting with "_" or "." are skipped.
func LoadAll(paths []string) ([]*Suite, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, calerrors.NotFound("suite", p)
			}
			return nil, calerrors.Wrap(err, "failed to stat suite")
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		matches, err := findSuites(p)
		if err != nil {
			return nil, calerrors.Wrap(err, "failed to scan suite directory")
		}
		files = append(files, matches...)
	}

	suites := make([]*Suite, 0, len(files))
	for _, f := range files {
		s, err := Load(f)
		if err != nil {
			return nil, err
		}
		suites = append(suites, s)
	}
	return suites, nil
}

// validate checks the constraints the schema cannot express.
func (s *Suite) validate() error {
	seen := make(map[string]bool, len(s.Cases))
	for _, c := range s.Cases {
		if seen[c.Name] {
			return calerrors.Validation("invalid suite", fmt.Errorf("duplicate case name %q", c.Name))
		}
		seen[c.Name] = true

		if c.Kind == KindSolve && c.Request != nil {
			if err := c.Request.Validate(); err != nil {
				return calerrors.InCase(c.Name, calerrors.Validation("invalid solver request", err))
			}
		}
	}
	return nil
}

// findSuites lists suite files under dir.
func findSuites(dir string) ([]string, error) {
	var matches []string

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && isDataDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml", ".json":
			matches = append(matches, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(matches)
	return matches, nil
}

// isDataDir reports whether a directory holds $file data rather than
// suites. Such directories start with "_" or ".".
func isDataDir(name string) bool {
	return strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".")
}

// resolveFileRefs recursively resolves $file references in suite data.
func resolveFileRefs(value any, baseDir string) (any, error) {
	switch v := value.(type) {
	case map[string]any:
		if fileRef, ok := v["$file"].(string); ok {
			return loadFileRef(fileRef, baseDir)
		}

		result := make(map[string]any, len(v))
		for key, val := range v {
			resolved, err := resolveFileRefs(val, baseDir)
			if err != nil {
				return nil, err
			}
			result[key] = resolved
		}
		return result, nil

	case []any:
		result := make([]any, len(v))
		for i, val := range v {
			resolved, err := resolveFileRefs(val, baseDir)
			if err != nil {
				return nil, err
			}
			result[i] = resolved
		}
		return result, nil

	default:
		return value, nil
	}
}

// loadFileRef loads a file referenced by $file. JSON and YAML files are
// decoded; anything else is returned as a string.
func loadFileRef(ref, baseDir string) (any, error) {
	if strings.Contains(ref, "..") {
		return nil, fmt.Errorf("$file path contains \"..\": %s", ref)
	}

	path := filepath.Join(baseDir, ref)

	absBase, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, err
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(absPath, absBase) {
		return nil, fmt.Errorf("$file path escapes suite directory: %s", ref)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("$file %q: %w", ref, err)
	}

	var v any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("$file %q: %w", ref, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("$file %q: %w", ref, err)
		}
	default:
		return string(data), nil
	}
	return resolveFileRefs(v, filepath.Dir(path))
}
