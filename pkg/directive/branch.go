package directive

import (
	"fmt"
	"strings"
)

// ValidateBranchName applies the rules of git check-ref-format --branch.
// Branch names reach git as command arguments, so anything git could read
// as an option, a pathspec or a revision expression is rejected.
func ValidateBranchName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("branch name is empty")
	case name == "@" || name == "HEAD":
		return fmt.Errorf("branch name '%s' is reserved", name)
	case strings.HasPrefix(name, "-"):
		return fmt.Errorf("branch name '%s' starts with '-'", name)
	case strings.HasPrefix(name, "/") || strings.HasSuffix(name, "/"):
		return fmt.Errorf("branch name '%s' starts or ends with '/'", name)
	case strings.HasSuffix(name, "."):
		return fmt.Errorf("branch name '%s' ends with '.'", name)
	case strings.Contains(name, ".."), strings.Contains(name, "//"), strings.Contains(name, "@{"):
		return fmt.Errorf("branch name '%s' contains a forbidden sequence", name)
	}

	for _, r := range name {
		if r < 0x20 || r == 0x7f || strings.ContainsRune(" ~^:?*[\\", r) {
			return fmt.Errorf("branch name '%s' contains forbidden character %q", name, r)
		}
	}

	for _, component := range strings.Split(name, "/") {
		if strings.HasPrefix(component, ".") || strings.HasSuffix(component, ".lock") {
			return fmt.Errorf("branch name '%s' has invalid component '%s'", name, component)
		}
	}

	return nil
}
