package ignore

import (
	"os"
	"path"
	"strings"
)

// Rule is one parsed exclusion pattern. A trailing "/" in the source
// pattern scopes the rule to a directory subtree; a leading "!" negates
// a previous match.
type Rule struct {
	pattern string
	negate  bool
	dirOnly bool
}

// Load reads pattern rules from path. A missing file yields no rules;
// the file is meant to be re-read on every discovery pass so edits take
// effect without a restart.
func Load(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return Parse(strings.Split(string(data), "\n")), nil
}

// Parse compiles raw pattern lines into rules. Blank lines and
// #-comments are skipped; backslashes are normalized to forward
// slashes.
func Parse(lines []string) []Rule {
	rules := make([]Rule, 0, len(lines))
	for _, line := range lines {
		s := strings.TrimSpace(line)
		if s == "" || strings.HasPrefix(s, "#") {
			continue
		}
		s = strings.ReplaceAll(s, "\\", "/")

		rule := Rule{}
		if strings.HasPrefix(s, "!") {
			rule.negate = true
			s = s[1:]
		}
		s = strings.TrimLeft(s, "/")
		if strings.HasSuffix(s, "/") {
			rule.dirOnly = true
			s = strings.TrimSuffix(s, "/")
		}
		rule.pattern = s
		rules = append(rules, rule)
	}
	return rules
}

// Ignored reports whether the slash-separated relative path rel is
// excluded by rules. Later rules override earlier ones; a path no rule
// matches is not ignored.
func Ignored(rel string, rules []Rule) bool {
	rel = strings.TrimLeft(strings.ReplaceAll(rel, "\\", "/"), "/")

	ignored := false
	for _, rule := range rules {
		if rule.hits(rel) {
			ignored = !rule.negate
		}
	}
	return ignored
}

func (r Rule) hits(rel string) bool {
	if rel == r.pattern || strings.HasPrefix(rel, r.pattern+"/") {
		return true
	}
	if r.dirOnly {
		return false
	}
	ok, err := path.Match(r.pattern, rel)
	return err == nil && ok
}
