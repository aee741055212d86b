package system

import (
	"bufio"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// Profile describes the host and the launch helpers reachable on it.
// Path fields are empty when the helper is absent.
type Profile struct {
	OS      string
	Distro  string
	Version string
	Kernel  string
	Arch    string
	Shell   string

	// WSL reports whether wsl.exe is reachable from a Windows host.
	WSL bool
	// GitBash is the bash.exe of a Git for Windows install.
	GitBash string
	// Sandboxie is the Sandboxie-Plus Start.exe used to wrap launches.
	Sandboxie string
	// ShellWrapper is a user-provided PowerShell script that runs
	// shell scripts on Windows.
	ShellWrapper string
}

// Detect inspects the running host. Detection never fails; helpers
// that cannot be found are simply reported as absent.
func Detect() *Profile {
	profile := &Profile{
		OS:   runtime.GOOS,
		Arch: detectArch(),
	}

	switch runtime.GOOS {
	case "linux":
		profile.Shell = os.Getenv("SHELL")
		distro, version := parseOSRelease("/etc/os-release")
		profile.Distro = distro
		profile.Version = version
		profile.Kernel, _ = uname("-r")
	case "darwin":
		profile.Shell = os.Getenv("SHELL")
		profile.Distro = "macos"
		if version, err := swVers("-productVersion"); err == nil {
			profile.Version = version
		}
		profile.Kernel, _ = uname("-r")
	case "windows":
		profile.Shell = detectWindowsShell()
		profile.Distro = "windows"
		profile.Version = detectWindowsVersion()
	}

	profile.WSL = wslAvailable()
	profile.GitBash = findGitBash()
	profile.Sandboxie = findSandboxie()
	profile.ShellWrapper = findShellWrapper()
	return profile
}

// Windows reports whether launches use Windows semantics.
func (p *Profile) Windows() bool {
	return p.OS == "windows"
}

// SandboxAvailable reports whether launches can be wrapped in
// Sandboxie on this host.
func (p *Profile) SandboxAvailable() bool {
	return p.Windows() && p.Sandboxie != ""
}

func wslAvailable() bool {
	if runtime.GOOS != "windows" {
		return false
	}
	sysRoot := os.Getenv("SystemRoot")
	if sysRoot == "" {
		sysRoot = `C:\Windows`
	}
	_, err := os.Stat(filepath.Join(sysRoot, "System32", "wsl.exe"))
	return err == nil
}

func findGitBash() string {
	if runtime.GOOS != "windows" {
		return ""
	}
	for _, candidate := range []string{
		`C:\Program Files\Git\bin\bash.exe`,
		`C:\Program Files\Git\usr\bin\bash.exe`,
		`C:\Program Files (x86)\Git\bin\bash.exe`,
		`C:\Program Files (x86)\Git\usr\bin\bash.exe`,
	} {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// findSandboxie prefers an explicit override, then the registry, then
// the stock install path. Whatever wins must actually exist.
func findSandboxie() string {
	if path := os.Getenv("GAMESHELF_SANDBOXIE"); path != "" {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	if path := sandboxieFromRegistry(); path != "" {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	stock := `C:\Program Files\Sandboxie-Plus\Start.exe`
	if _, err := os.Stat(stock); err == nil {
		return stock
	}
	return ""
}

func findShellWrapper() string {
	if path := os.Getenv("GAMESHELF_WSL_WRAPPER"); path != "" {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

func parseOSRelease(path string) (string, string) {
	file, err := os.Open(path)
	if err != nil {
		return "", ""
	}
	defer file.Close()

	var distro, version string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "ID=") {
			distro = trimValue(strings.TrimPrefix(line, "ID="))
		}
		if strings.HasPrefix(line, "VERSION_ID=") {
			version = trimValue(strings.TrimPrefix(line, "VERSION_ID="))
		}
	}
	return distro, version
}

func trimValue(val string) string {
	return strings.Trim(val, "\"'")
}

func uname(arg string) (string, error) {
	out, err := exec.Command("uname", arg).Output()
	if err != nil {
		return "", fmt.Errorf("uname %s: %w", arg, err)
	}
	return strings.TrimSpace(string(out)), nil
}

func swVers(arg string) (string, error) {
	out, err := exec.Command("sw_vers", arg).Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

func detectWindowsShell() string {
	if os.Getenv("PSModulePath") != "" {
		return "powershell"
	}
	if os.Getenv("ComSpec") != "" {
		return "cmd"
	}
	return "powershell"
}

func detectWindowsVersion() string {
	if ver := os.Getenv("OS"); ver != "" {
		return ver
	}
	return "windows"
}

func detectArch() string {
	if runtime.GOOS == "windows" {
		if arch := os.Getenv("PROCESSOR_ARCHITECTURE"); arch != "" {
			return arch
		}
	}
	if out, err := uname("-m"); err == nil {
		return out
	}
	return runtime.GOARCH
}
