// Package plan defines the resolved install plan an installer executes and
// the uninstall record it leaves behind.
//
// A plan is built once by the packager, embedded as YAML in the installer
// payload, and consumed exactly once by the installer runtime on the target
// machine. The uninstall record is its runtime counterpart: the precise set
// of files, shortcuts and the environment segment the install actually
// created, enabling an exact inverse.
package plan
