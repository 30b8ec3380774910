package assets

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"strings"
)

var (
	ErrTemplateNotFound = errors.New("template not found")
	// ErrInvalidAssetName rejects names that could escape templates/.
	ErrInvalidAssetName = errors.New("invalid template name")
)

// SmokeTemplate names the document compiled by health checks.
const SmokeTemplate = "smoke"

// DefaultTemplate names the starter document used when none is given.
const DefaultTemplate = "article"

const templateExt = ".tex"

//go:embed templates/*.tex
var templates embed.FS

// LoadTemplate returns the TeX source of an embedded template by name.
// Returns ErrInvalidAssetName if the name contains path separators or dots,
// ErrTemplateNotFound if no such template is embedded.
func LoadTemplate(name string) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}

	content, err := templates.ReadFile("templates/" + name + templateExt)
	if err != nil {
		return "", fmt.Errorf("%w: %q (available: %s)", ErrTemplateNotFound, name, strings.Join(TemplateNames(), ", "))
	}
	return string(content), nil
}

// TemplateNames lists embedded templates, sorted, without extension.
func TemplateNames() []string {
	entries, err := fs.ReadDir(templates, "templates")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if name, ok := strings.CutSuffix(e.Name(), templateExt); ok {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

// ValidateName accepts bare template names only: no separators, dots or NUL.
func ValidateName(name string) error {
	if name == "" || strings.ContainsAny(name, "/\\.\x00") {
		return fmt.Errorf("%w: %q", ErrInvalidAssetName, name)
	}
	return nil
}
