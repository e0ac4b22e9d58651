package extract

import (
	"strings"

	"github.com/simonhull/norms/pkg/pattern"
)

type importStmt struct {
	path     string
	line     int
	block    int
	local    bool
	wildcard bool
}

// extractImports reports the layout of the import statements of a file.
// Blocks are runs of imports separated by blank lines or other code; a
// file is sorted when every block is sorted, and grouped when internal and
// external imports never interleave.
func extractImports(lines []line, p *Profile, internal []string) *pattern.ImportStyle {
	if p.ImportStart == nil && p.ImportBlock == nil {
		return nil
	}
	internal = append(ownPackagePrefix(lines, p), internal...)

	var (
		stmts []importStmt
		block = -1
		prev  = -2 // index of the last line belonging to an import
	)
	add := func(path string, no int, stmt string, rel bool) {
		if path == "" {
			return
		}
		stmts = append(stmts, importStmt{
			path:     path,
			line:     no,
			block:    block,
			local:    rel || isLocal(path, p, internal),
			wildcard: p.Wildcard != nil && p.Wildcard.MatchString(stmt),
		})
	}

	for i := 0; i < len(lines); i++ {
		l := lines[i]
		if !l.topLevel(p.Blocks) {
			continue
		}

		if p.ImportBlock != nil && p.ImportBlock.MatchString(l.Masked) {
			if prev != i-1 {
				block++
			}
			j := i + 1
			for ; j < len(lines); j++ {
				item := lines[j]
				if strings.HasPrefix(strings.TrimSpace(item.Masked), ")") {
					break
				}
				if item.blank() {
					block++
					continue
				}
				if m := p.ImportItem.FindStringSubmatch(item.Code); m != nil {
					add(m[p.ImportItem.SubexpIndex("path")], item.No, item.Code, false)
				}
			}
			i, prev = j, j
			continue
		}

		if p.ImportStart == nil || !p.ImportStart.MatchString(l.Masked) {
			continue
		}
		if prev != i-1 {
			block++
		}
		stmt, end := statement(lines, i)
		path, rel := importPath(p, stmt)
		add(path, l.No, stmt, rel)
		i, prev = end, end
	}

	if len(stmts) == 0 {
		return nil
	}

	style := &pattern.ImportStyle{
		Sorted:  true,
		Grouped: grouped(stmts),
		Count:   len(stmts),
		Line:    stmts[0].line,
	}
	blocks := make(map[int][]string)
	for _, s := range stmts {
		blocks[s.block] = append(blocks[s.block], strings.ToLower(s.path))
		if s.wildcard {
			style.Wildcard = true
		}
	}
	style.Blocks = len(blocks)
	for _, paths := range blocks {
		for k := 1; k < len(paths); k++ {
			if paths[k-1] > paths[k] {
				style.Sorted = false
			}
		}
	}
	return style
}

// statement joins an import that spans lines until its brackets balance
func statement(lines []line, i int) (string, int) {
	var b strings.Builder
	depth := 0
	for j := i; j < len(lines) && j < i+64; j++ {
		b.WriteString(lines[j].Code)
		b.WriteByte(' ')
		for _, c := range lines[j].Masked {
			switch c {
			case '(', '{', '[':
				depth++
			case ')', '}', ']':
				depth--
			}
		}
		if depth <= 0 {
			return b.String(), j
		}
	}
	return b.String(), i
}

func importPath(p *Profile, stmt string) (string, bool) {
	m := p.ImportPath.FindStringSubmatch(stmt)
	if m == nil {
		return "", false
	}
	path := m[p.ImportPath.SubexpIndex("path")]
	rel := false
	if idx := p.ImportPath.SubexpIndex("rel"); idx > 0 {
		rel = m[idx] != ""
	}
	return path, rel
}

func isLocal(path string, p *Profile, internal []string) bool {
	if p.LocalImport != nil && p.LocalImport.MatchString(path) {
		return true
	}
	norm := strings.TrimLeft(strings.ReplaceAll(path, `\`, "/"), "/")
	for _, prefix := range internal {
		prefix = strings.Trim(strings.ReplaceAll(prefix, `\`, "/"), "/")
		if prefix == "" {
			continue
		}
		if norm == prefix || strings.HasPrefix(norm, prefix+"/") || strings.HasPrefix(norm, prefix+".") || strings.HasPrefix(norm, prefix+"::") {
			return true
		}
	}
	return false
}

// ownPackagePrefix derives an internal prefix from the file's own package
// declaration, for languages whose imports are package-qualified.
func ownPackagePrefix(lines []line, p *Profile) []string {
	if p.PackageDecl == nil {
		return nil
	}
	for _, l := range lines {
		m := p.PackageDecl.FindStringSubmatch(l.Masked)
		if m == nil {
			continue
		}
		segments := strings.Split(m[p.PackageDecl.SubexpIndex("path")], ".")
		if len(segments) > p.PackageLength {
			segments = segments[:p.PackageLength]
		}
		return []string{strings.Join(segments, ".")}
	}
	return nil
}

// grouped reports whether the internal and external imports each form one
// contiguous run
func grouped(stmts []importStmt) bool {
	switches := 0
	for k := 1; k < len(stmts); k++ {
		if stmts[k].local != stmts[k-1].local {
			switches++
		}
	}
	return switches <= 1
}
