// Package command provides CLI command definitions for valtok.
//
// This package defines all CLI commands using urfave/cli/v2:
//
//   - root.go: Root command, global flags, local or remote mode
//   - token.go: Token generate/validate
//   - stamp.go: Security stamp generation
//   - key.go: Key ring material generation and derivation
//   - config.go: Configuration show/validate
//   - version.go: Build information
//
// Commands that need a key ring run against the local configuration unless
// --server points them at a running valtok-server.
package command
