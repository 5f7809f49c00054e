//go:build !windows

package envstore

import (
	"errors"
	"fmt"

	"github.com/idrisfallout/artemis-installer/internal/domain/scope"
)

// errUnsupportedPlatform is returned on platforms without an environment registry.
var errUnsupportedPlatform = errors.New("environment store is only available on Windows")

// ForScope always fails off Windows; tests substitute a Memory store.
func ForScope(s scope.Scope) (Store, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%q: %w", s, scope.ErrUnknownScope)
	}

	return nil, errUnsupportedPlatform
}
