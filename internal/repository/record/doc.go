// Package record implements persistence for the uninstall record.
//
// The FileRepository stores and loads the record as YAML inside the install
// root and exposes a Repository interface the installer runtime depends on.
package record
