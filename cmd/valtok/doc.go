// Package main provides the entry point for valtok.
//
// The CLI issues and checks tokens either against the local key ring
// described by the configuration file or against a running valtok-server:
//
//   - Token generation and validation
//   - Security stamp generation
//   - Key ring material (random or passphrase derived)
//   - Configuration inspection and validation
//
// Usage:
//
//	valtok stamp
//	valtok -c valtok.yaml token generate -p ConfirmEmail -r user-42 -s STAMP
//	valtok --server localhost:8080 token validate -t TOKEN -p ConfirmEmail -r user-42 -s STAMP
//	valtok key generate -o yaml
package main
