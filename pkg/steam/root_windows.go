//go:build windows

package steam

import "golang.org/x/sys/windows/registry"

// steamRoot locates the Steam install directory from the registry,
// preferring the per-user value the client itself maintains.
func steamRoot() string {
	lookups := []struct {
		root  registry.Key
		path  string
		value string
	}{
		{registry.CURRENT_USER, `SOFTWARE\Valve\Steam`, "SteamPath"},
		{registry.LOCAL_MACHINE, `SOFTWARE\WOW6432Node\Valve\Steam`, "InstallPath"},
		{registry.LOCAL_MACHINE, `SOFTWARE\Valve\Steam`, "InstallPath"},
	}
	for _, l := range lookups {
		key, err := registry.OpenKey(l.root, l.path, registry.QUERY_VALUE)
		if err != nil {
			continue
		}
		path, _, err := key.GetStringValue(l.value)
		key.Close()
		if err == nil && path != "" {
			return path
		}
	}
	return ""
}
