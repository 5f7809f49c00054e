//go:build windows

package envstore

import (
	"errors"
	"fmt"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows/registry"

	"github.com/idrisfallout/artemis-installer/internal/domain/scope"
)

// Registry paths holding environment values per scope.
const (
	userEnvironmentKey    = `Environment`
	machineEnvironmentKey = `SYSTEM\CurrentControlSet\Control\Session Manager\Environment`
)

// WM_SETTINGCHANGE broadcast parameters.
const (
	hwndBroadcast    = uintptr(0xFFFF)
	wmSettingChange  = uintptr(0x001A)
	smtoAbortIfHung  = uintptr(0x0002)
	broadcastTimeout = uintptr(5000)
)

//nolint:gochecknoglobals // Lazy proc handles are the canonical way to call user32.
var (
	user32             = syscall.NewLazyDLL("user32.dll")
	sendMessageTimeout = user32.NewProc("SendMessageTimeoutW")
)

// registryStore reads and writes one environment registry key.
type registryStore struct {
	root registry.Key
	path string
}

// ForScope returns the registry-backed environment store for the scope:
// HKCU\Environment for per-user, the session-manager Environment key under
// HKLM for per-machine.
func ForScope(s scope.Scope) (Store, error) {
	switch s {
	case scope.PerUser:
		return &registryStore{root: registry.CURRENT_USER, path: userEnvironmentKey}, nil
	case scope.PerMachine:
		return &registryStore{root: registry.LOCAL_MACHINE, path: machineEnvironmentKey}, nil
	default:
		return nil, fmt.Errorf("%q: %w", s, scope.ErrUnknownScope)
	}
}

// Get reads the variable's current value. A variable that does not exist
// yet reports ok=false without an error.
func (r *registryStore) Get(name string) (string, bool, error) {
	key, err := registry.OpenKey(r.root, r.path, registry.QUERY_VALUE)
	if err != nil {
		return "", false, fmt.Errorf("open environment key: %w", err)
	}
	defer key.Close()

	value, _, err := key.GetStringValue(name)
	if errors.Is(err, registry.ErrNotExist) {
		return "", false, nil
	}

	if err != nil {
		return "", false, fmt.Errorf("read %s: %w", name, err)
	}

	return value, true, nil
}

// Set writes the variable, preserving an existing REG_SZ value type and
// defaulting to REG_EXPAND_SZ otherwise, so values holding %references%
// keep expanding.
func (r *registryStore) Set(name, value string) error {
	key, err := registry.OpenKey(r.root, r.path, registry.QUERY_VALUE|registry.SET_VALUE)
	if err != nil {
		return fmt.Errorf("open environment key for writing: %w", err)
	}
	defer key.Close()

	_, valueType, err := key.GetStringValue(name)
	if err == nil && valueType == registry.SZ {
		if err = key.SetStringValue(name, value); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}

		return nil
	}

	if err = key.SetExpandStringValue(name, value); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}

	return nil
}

// Broadcast sends WM_SETTINGCHANGE for the "Environment" section so newly
// spawned shells re-read the registry. The refresh never re-applies the
// mutation.
func (r *registryStore) Broadcast() error {
	section, err := syscall.UTF16PtrFromString("Environment")
	if err != nil {
		return fmt.Errorf("encode broadcast section: %w", err)
	}

	result, _, callErr := sendMessageTimeout.Call(
		hwndBroadcast,
		wmSettingChange,
		0,
		uintptr(unsafe.Pointer(section)),
		smtoAbortIfHung,
		broadcastTimeout,
		0,
	)
	if result == 0 {
		return fmt.Errorf("broadcast environment change: %w", callErr)
	}

	return nil
}
