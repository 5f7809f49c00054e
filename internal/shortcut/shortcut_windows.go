//go:build windows

package shortcut

import (
	"context"
	"fmt"
	"os/exec"
)

// comCreator drives the WScript.Shell COM object through PowerShell to
// write .lnk files; Windows offers no file-format API for them.
type comCreator struct{}

// New returns the Windows shortcut creator.
func New() Creator {
	return comCreator{}
}

// Create writes the .lnk file at linkPath.
func (comCreator) Create(ctx context.Context, linkPath, targetPath, workDir, iconPath string) error {
	script := fmt.Sprintf(
		`$ws = New-Object -ComObject WScript.Shell; `+
			`$s = $ws.CreateShortcut('%s'); `+
			`$s.TargetPath = '%s'; `+
			`$s.WorkingDirectory = '%s'; `,
		escapeSingleQuotes(linkPath),
		escapeSingleQuotes(targetPath),
		escapeSingleQuotes(workDir),
	)

	if iconPath != "" {
		script += fmt.Sprintf(`$s.IconLocation = '%s,0'; `, escapeSingleQuotes(iconPath))
	}

	script += `$s.Save()`

	cmd := exec.CommandContext(ctx, "powershell", "-NoProfile", "-NonInteractive", "-Command", script)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("create shortcut %s: %w: %s", linkPath, err, out)
	}

	return nil
}
