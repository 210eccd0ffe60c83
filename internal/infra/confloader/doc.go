// Package confloader loads configuration with koanf and watches files for
// changes with fsnotify.
//
// Priority (highest to lowest):
//
//  1. Maps loaded after Load (flags)
//  2. Environment variables (VALTOK_ prefix)
//  3. Configuration file (YAML)
//  4. Values already present in the target struct (defaults)
//
// Environment names are matched against the target's koanf keys, so
// VALTOK_SERVER_RATE_LIMIT sets server.rate_limit rather than
// server.rate.limit.
package confloader
