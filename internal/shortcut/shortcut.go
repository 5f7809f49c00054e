package shortcut

import (
	"context"
	"strings"
)

// Creator registers one shortcut pointing at an installed executable.
// Shortcuts carry no state beyond creation, so the interface is a single call.
type Creator interface {
	Create(ctx context.Context, linkPath, targetPath, workDir, iconPath string) error
}

// escapeSingleQuotes prepares a value for embedding in a single-quoted
// PowerShell string literal, where quotes are escaped by doubling.
func escapeSingleQuotes(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
