package envstore

// Store is the narrow capability the installer holds over one environment
// scope: read a variable, write a whole new value, and trigger a session
// refresh. The PATH algorithm computes complete values outside the store,
// so a Store never performs incremental writes.
type Store interface {
	// Get returns the variable's current value; ok reports whether the
	// variable is set at all. An unset variable is not an error.
	Get(name string) (value string, ok bool, err error)
	// Set replaces the variable with the provided value. The write either
	// fully succeeds or fails; callers must not broadcast after a failed Set.
	Set(name, value string) error
	// Broadcast notifies the session that environment values changed so
	// newly spawned processes observe them. It never mutates any variable.
	Broadcast() error
}
