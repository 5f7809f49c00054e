// Package config defines the declarative install manifest and provides
// helpers to load, validate and save it in YAML format.
//
// The Manifest type declares the application identity, install scope,
// packaged files with versioning policies, shortcuts, and the PATH-append
// behavior of the generated installer.
package config
