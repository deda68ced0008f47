// Package naming checks and composes hierarchical component names such as
// "Core.DCache".
package naming

import (
	"fmt"
	"strings"
)

// A NameError reports a name that does not follow the naming convention.
type NameError struct {
	Name   string
	Reason string
}

func (e *NameError) Error() string {
	return fmt.Sprintf("name %q is not valid: %s", e.Name, e.Reason)
}

// Validate checks that name is a series of dot-separated elements. Elements
// must not be empty, must start with a capital letter, and must not contain
// underscores, quotes or dashes.
func Validate(name string) error {
	for _, elem := range strings.Split(name, ".") {
		if reason := elementProblem(elem); reason != "" {
			return &NameError{Name: name, Reason: reason}
		}
	}

	return nil
}

func elementProblem(elem string) string {
	if elem == "" {
		return "element must not be empty"
	}

	for _, c := range []string{"_", "\"", "'", "-"} {
		if strings.Contains(elem, c) {
			return "element must not contain " + c
		}
	}

	if elem[0] < 'A' || elem[0] > 'Z' {
		return "element must start with a capital letter"
	}

	return ""
}

// BuildName builds a name from a parent name and an element name.
func BuildName(parentName, elementName string) string {
	if parentName == "" {
		return elementName
	}

	return parentName + "." + elementName
}
