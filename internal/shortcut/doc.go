// Package shortcut registers Start-menu shortcuts for installed executables.
//
// The Windows implementation shells out to PowerShell's WScript.Shell COM
// object to write .lnk files, matching how installers without a native COM
// binding create them.
package shortcut
