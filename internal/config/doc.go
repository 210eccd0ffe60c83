// Package config defines the valtok configuration, its defaults and its
// validation, and turns the keys section into a dataprotect key ring.
//
// Files are YAML; every key can be overridden by a VALTOK_ environment
// variable (see confloader).
package config
