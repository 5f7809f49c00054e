// Package envstore models the environment variables of a scope as an
// externally-owned resource behind a narrow read/write/broadcast capability.
//
// On Windows the store is backed by the registry (HKCU\Environment or the
// HKLM session-manager key); the Memory implementation substitutes for it in
// tests so the PATH mutation pipeline can run without touching a real
// registry.
package envstore
