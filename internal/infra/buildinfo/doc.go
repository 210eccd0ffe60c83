// Package buildinfo exposes version metadata.
//
// Values are injected at build time via ldflags:
//
//	go build -ldflags "-X github.com/yndnr/valtok-go/internal/infra/buildinfo.Version=v1.0.0"
//
// When they are not set, commit and Go version fall back to the module
// build info embedded by the toolchain.
package buildinfo
