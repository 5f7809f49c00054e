// Package scope resolves per-user and per-machine well-known directories.
//
// Manifests reference directories through tokens ({app}); token validity is
// checked when the installer is generated, while concrete absolute paths are
// resolved on the target machine, where the user's profile directories are
// actually known. Environment lookup is injected so tests can run against a
// fixed fake environment.
package scope
