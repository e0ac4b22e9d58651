// Package filesystem walks project trees with the ignore rules a
// convention scan needs.
//
// # Overview
//
// Dependency and build output never carries project conventions, so
// traversal skips it:
//   - well-known directories (node_modules, vendor, target, .git, ...)
//   - hidden files and directories unless IncludeHidden is set
//   - paths matched by the root .gitignore and .normsignore
//
// # Usage
//
// List every regular file, root-relative and sorted:
//
//	files, err := filesystem.ListFiles(root, filesystem.WalkOptions{
//	    RespectGitignore: true,
//	})
//	for _, f := range files {
//	    fmt.Println(f.Path, f.Info.Size())
//	}
//
// Custom walk with ignore patterns:
//
//	err := filesystem.Walk(root, filesystem.WalkOptions{
//	    IgnoreDirs:     []string{".git", "storage"},
//	    IgnorePatterns: []string{"*.min.js"},
//	}, func(path string, info os.FileInfo) error {
//	    return nil
//	})
package filesystem
