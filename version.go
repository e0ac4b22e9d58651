// Package norms checks that changed files follow the conventions the rest
// of their repository already uses.
package norms

// Version is the norms release
const Version = "0.1.0"
