//go:build !windows

package system

func sandboxieFromRegistry() string { return "" }
