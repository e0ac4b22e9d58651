package project

import (
	"path/filepath"
	"strings"
)

// Language names used across norms
const (
	PHP        = "php"
	Go         = "go"
	Rust       = "rust"
	Python     = "python"
	Ruby       = "ruby"
	Java       = "java"
	TypeScript = "typescript"
	JavaScript = "javascript"
	Unknown    = "unknown"
)

// Language describes the source files of one ecosystem
type Language struct {
	Name       string
	Extensions []string
}

// KnownLanguages lists every language norms can classify and extract,
// in tie-break order.
var KnownLanguages = []Language{
	{Name: PHP, Extensions: []string{".php"}},
	{Name: Go, Extensions: []string{".go"}},
	{Name: Rust, Extensions: []string{".rs"}},
	{Name: Python, Extensions: []string{".py"}},
	{Name: Ruby, Extensions: []string{".rb", ".rake"}},
	{Name: Java, Extensions: []string{".java"}},
	{Name: TypeScript, Extensions: []string{".ts", ".tsx", ".mts", ".cts"}},
	{Name: JavaScript, Extensions: []string{".js", ".jsx", ".mjs", ".cjs", ".vue", ".svelte"}},
}

var extensionIndex = func() map[string]string {
	idx := make(map[string]string)
	for _, lang := range KnownLanguages {
		for _, ext := range lang.Extensions {
			idx[ext] = lang.Name
		}
	}
	return idx
}()

// LanguageOf returns the language of a source file by extension, or ""
// when the extension is not recognised.
func LanguageOf(path string) string {
	return extensionIndex[strings.ToLower(filepath.Ext(path))]
}

// IsSource reports whether path has a recognised source extension
func IsSource(path string) bool {
	return LanguageOf(path) != ""
}

func languageRank(name string) int {
	for i, lang := range KnownLanguages {
		if lang.Name == name {
			return i
		}
	}
	return len(KnownLanguages)
}

// Marker is a manifest file whose presence identifies a language
type Marker struct {
	File     string
	Language string
}

// Markers is the detection priority table. The first marker found at the
// root decides the primary language. JavaScript manifests come last
// because they often sit next to a backend purely for asset tooling.
var Markers = []Marker{
	{File: "composer.json", Language: PHP},
	{File: "go.mod", Language: Go},
	{File: "go.work", Language: Go},
	{File: "Cargo.toml", Language: Rust},
	{File: "pyproject.toml", Language: Python},
	{File: "setup.py", Language: Python},
	{File: "requirements.txt", Language: Python},
	{File: "Gemfile", Language: Ruby},
	{File: "pom.xml", Language: Java},
	{File: "build.gradle", Language: Java},
	{File: "build.gradle.kts", Language: Java},
	{File: "tsconfig.json", Language: TypeScript},
	{File: "package.json", Language: JavaScript},
}

func markerRank(file string) int {
	for i, m := range Markers {
		if m.File == file {
			return i
		}
	}
	return len(Markers)
}
