package sqa

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// renderAddonDir renders every addon template into <baseDir>/addon/config
// and returns the addon directory. The directory name must be "addon"; the
// SQA lab CLI requires it. Every rendered file is checked to be valid YAML
// so template mistakes fail here instead of inside the test lab.
func renderAddonDir(baseDir string, vars Variables) (string, error) {
	addonDir := filepath.Join(baseDir, "addon")
	configDir := filepath.Join(addonDir, "config")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create addon config directory: %w", err)
	}

	entries, err := templateFS.ReadDir("templates")
	if err != nil {
		return "", fmt.Errorf("failed to read addon templates: %w", err)
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".tmpl") {
			continue
		}

		rendered, err := renderTemplate(name, vars)
		if err != nil {
			return "", err
		}

		outPath := filepath.Join(configDir, strings.TrimSuffix(name, ".tmpl"))
		if err := os.WriteFile(outPath, rendered, 0o600); err != nil {
			return "", fmt.Errorf("failed to write addon config %s: %w", outPath, err)
		}
	}

	return addonDir, nil
}

// renderTemplate renders one embedded template with the variable set and
// validates the output as YAML.
func renderTemplate(name string, vars Variables) ([]byte, error) {
	content, err := templateFS.ReadFile("templates/" + name)
	if err != nil {
		return nil, fmt.Errorf("failed to read addon template %s: %w", name, err)
	}

	tmpl, err := template.New(name).Funcs(templateFuncs(vars)).Parse(string(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse addon template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, vars); err != nil {
		return nil, fmt.Errorf("failed to render addon template %s: %w", name, err)
	}

	var check any
	if err := yaml.Unmarshal(buf.Bytes(), &check); err != nil {
		return nil, fmt.Errorf("rendered addon config %s is not valid YAML: %w", name, err)
	}

	return buf.Bytes(), nil
}

// templateFuncs binds the recognized template functions to one variable set:
//
//	app "<name>"      the application name under the track's naming policy
//	revision "<name>" the charm's revision under test
//	charms            the sorted charm names
func templateFuncs(vars Variables) template.FuncMap {
	return template.FuncMap{
		"app": func(name string) string {
			return vars.Transform.Apply(name)
		},
		"revision": func(charm string) (string, error) {
			rev, ok := vars.Revisions[charm]
			if !ok {
				return "", fmt.Errorf("no revision for charm %s", charm)
			}
			return rev, nil
		},
		"charms": func() []string {
			charms := make([]string, 0, len(vars.Revisions))
			for charm := range vars.Revisions {
				charms = append(charms, charm)
			}
			sort.Strings(charms)
			return charms
		},
	}
}
