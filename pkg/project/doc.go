// Package project identifies what kind of repository norms is looking at.
//
// # Overview
//
// Detection is marker based: the first manifest found at the root in
// Markers order decides the primary language. Conventional monorepo
// directories (packages/, apps/, services/) are scanned one level deep,
// and workspace declarations in go.work, package.json and Cargo.toml add
// further package roots. When no marker exists anywhere the profile falls
// back to the majority source extension and is flagged LowConfidence.
//
// Manifests also provide internal import prefixes (Go module path, PSR-4
// namespaces, package names) which the extractor uses to tell first-party
// imports from third-party ones.
//
// # Usage
//
//	profile, err := project.NewDetector(cfg.Scan.MonorepoDirs).
//	    WithLogger(log).
//	    Detect(ctx, root)
//	var detErr *project.DetectionError
//	if errors.As(err, &detErr) {
//	    // root missing or unreadable
//	}
package project
