package project

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"golang.org/x/mod/modfile"
)

// Manifest is what norms needs from a package manifest: the names under
// which the project imports its own code, and declared workspace members.
type Manifest struct {
	InternalPrefixes []string
	Workspaces       []string // member paths or globs relative to the manifest dir
}

// ReadManifest parses the marker file at path. Unknown marker files
// yield an empty manifest.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}

	switch filepath.Base(path) {
	case "go.mod":
		return parseGoMod(path, data)
	case "go.work":
		return parseGoWork(path, data)
	case "composer.json":
		return parseComposer(data)
	case "package.json":
		return parsePackageJSON(data)
	case "Cargo.toml":
		return parseCargo(data)
	case "pyproject.toml":
		return parsePyproject(data)
	default:
		return &Manifest{}, nil
	}
}

func parseGoMod(path string, data []byte) (*Manifest, error) {
	modFile, err := modfile.Parse(path, data, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to parse go.mod: %w", err)
	}
	m := &Manifest{}
	if modFile.Module != nil && modFile.Module.Mod.Path != "" {
		m.InternalPrefixes = []string{modFile.Module.Mod.Path}
	}
	return m, nil
}

func parseGoWork(path string, data []byte) (*Manifest, error) {
	work, err := modfile.ParseWork(path, data, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to parse go.work: %w", err)
	}
	m := &Manifest{}
	for _, use := range work.Use {
		m.Workspaces = append(m.Workspaces, filepath.ToSlash(filepath.Clean(use.Path)))
	}
	return m, nil
}

func parseComposer(data []byte) (*Manifest, error) {
	var composer struct {
		Name     string `json:"name"`
		Autoload struct {
			PSR4 map[string]any `json:"psr-4"`
		} `json:"autoload"`
		AutoloadDev struct {
			PSR4 map[string]any `json:"psr-4"`
		} `json:"autoload-dev"`
	}
	if err := json.Unmarshal(data, &composer); err != nil {
		return nil, fmt.Errorf("failed to parse composer.json: %w", err)
	}

	m := &Manifest{}
	for ns := range composer.Autoload.PSR4 {
		m.InternalPrefixes = append(m.InternalPrefixes, strings.TrimRight(ns, `\`))
	}
	for ns := range composer.AutoloadDev.PSR4 {
		m.InternalPrefixes = append(m.InternalPrefixes, strings.TrimRight(ns, `\`))
	}
	sort.Strings(m.InternalPrefixes)
	return m, nil
}

func parsePackageJSON(data []byte) (*Manifest, error) {
	var pkg struct {
		Name       string          `json:"name"`
		Workspaces json.RawMessage `json:"workspaces"`
	}
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil, fmt.Errorf("failed to parse package.json: %w", err)
	}

	m := &Manifest{}
	if pkg.Name != "" {
		m.InternalPrefixes = []string{pkg.Name}
	}

	// workspaces is either ["packages/*"] or {"packages": ["packages/*"]}
	if len(pkg.Workspaces) > 0 {
		var list []string
		if err := json.Unmarshal(pkg.Workspaces, &list); err != nil {
			var obj struct {
				Packages []string `json:"packages"`
			}
			if err := json.Unmarshal(pkg.Workspaces, &obj); err == nil {
				list = obj.Packages
			}
		}
		m.Workspaces = list
	}
	return m, nil
}

func parseCargo(data []byte) (*Manifest, error) {
	var cargo struct {
		Package struct {
			Name string `toml:"name"`
		} `toml:"package"`
		Workspace struct {
			Members []string `toml:"members"`
		} `toml:"workspace"`
	}
	if err := toml.Unmarshal(data, &cargo); err != nil {
		return nil, fmt.Errorf("failed to parse Cargo.toml: %w", err)
	}

	m := &Manifest{Workspaces: cargo.Workspace.Members}
	m.InternalPrefixes = []string{"crate", "super"}
	if cargo.Package.Name != "" {
		m.InternalPrefixes = append(m.InternalPrefixes, strings.ReplaceAll(cargo.Package.Name, "-", "_"))
	}
	return m, nil
}

func parsePyproject(data []byte) (*Manifest, error) {
	var py struct {
		Project struct {
			Name string `toml:"name"`
		} `toml:"project"`
		Tool struct {
			Poetry struct {
				Name string `toml:"name"`
			} `toml:"poetry"`
		} `toml:"tool"`
	}
	if err := toml.Unmarshal(data, &py); err != nil {
		return nil, fmt.Errorf("failed to parse pyproject.toml: %w", err)
	}

	name := py.Project.Name
	if name == "" {
		name = py.Tool.Poetry.Name
	}
	m := &Manifest{}
	if name != "" {
		m.InternalPrefixes = []string{strings.ReplaceAll(name, "-", "_")}
	}
	return m, nil
}
