// Package payload implements the self-extracting installer format: a stub
// executable, an appended zip archive holding the install plan and packaged
// files, and a fixed-size trailer that locates the archive.
//
// The installer runtime opens its own executable through OpenSelf and reads
// the plan and files back out. Writing is deterministic so identical inputs
// produce a byte-identical installer.
package payload
