//go:build !windows

package shortcut

import (
	"context"
	"errors"
)

var errUnsupportedPlatform = errors.New("shortcut registration is only available on Windows")

type unsupportedCreator struct{}

// New returns a Creator that always fails; tests substitute their own fake.
func New() Creator {
	return unsupportedCreator{}
}

func (unsupportedCreator) Create(context.Context, string, string, string, string) error {
	return errUnsupportedPlatform
}
