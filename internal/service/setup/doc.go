// Package setup is the installer runtime executed on the end-user machine.
//
// It reads the install plan embedded in its own executable, places files
// under their versioning policies with checksum-verified writes, appends the
// install directory to the scope's PATH exactly once, registers Start-menu
// shortcuts, and records everything it did so uninstall can apply the
// precise inverse.
package setup
