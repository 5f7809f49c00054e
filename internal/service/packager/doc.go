// Package packager generates the self-contained installer from a manifest.
//
// It validates every referenced source file up front (reporting all missing
// files at once), resolves scope tokens, fingerprints the packaged bytes,
// assembles the install plan, and attaches plan and files to the installer
// runtime stub. Output is deterministic for identical inputs.
package packager
