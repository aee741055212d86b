package env

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// LoadFromDir reads dir/.env if present and exports its entries into
// the process environment.
func LoadFromDir(dir string) error {
	return Load(filepath.Join(dir, ".env"))
}

// Load parses a dotenv file and sets each KEY=VALUE pair that is not
// already present in the environment. A missing file is not an error,
// so callers can unconditionally load before reading configuration.
func Load(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		key, val, ok := parseLine(scanner.Text())
		if !ok {
			continue
		}
		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		_ = os.Setenv(key, val)
	}
	return scanner.Err()
}

// parseLine splits one dotenv line into key and value. Comments, blank
// lines, and lines without "=" report ok false. An "export " prefix
// and single or double quotes around the value are stripped.
func parseLine(raw string) (key, val string, ok bool) {
	line := strings.TrimSpace(raw)
	if line == "" || strings.HasPrefix(line, "#") {
		return "", "", false
	}
	if strings.HasPrefix(line, "export ") {
		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
	}
	parts := strings.SplitN(line, "=", 2)
	if len(parts) != 2 {
		return "", "", false
	}
	key = strings.TrimSpace(parts[0])
	if key == "" {
		return "", "", false
	}
	val = strings.Trim(strings.TrimSpace(parts[1]), `"'`)
	return key, val, true
}
