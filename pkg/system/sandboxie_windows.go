//go:build windows

package system

import (
	"path/filepath"

	"golang.org/x/sys/windows/registry"
)

// sandboxieFromRegistry reads the Sandboxie-Plus install location left
// by its installer. Per-user installs are checked before machine-wide
// ones.
func sandboxieFromRegistry() string {
	for _, root := range []registry.Key{registry.CURRENT_USER, registry.LOCAL_MACHINE} {
		key, err := registry.OpenKey(root, `SOFTWARE\Sandboxie-Plus`, registry.QUERY_VALUE)
		if err != nil {
			continue
		}
		path, _, err := key.GetStringValue("InstallPath")
		key.Close()
		if err == nil && path != "" {
			return filepath.Join(path, "Start.exe")
		}
	}
	return ""
}
