package config

import (
	"os"
	"path/filepath"
	"strings"
)

// GuideFiles are the project-local files whose content is passed to the
// generator as extra writing instructions, in lookup order.
var GuideFiles = []string{"DOCWEAVE.md", ".docweave.md"}

// LoadGuide reads the first guide file found in the given project root.
// Returns an empty string if none exists or the file is blank.
func LoadGuide(projectRoot string) (string, error) {
	for _, name := range GuideFiles {
		data, err := os.ReadFile(filepath.Join(projectRoot, name))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return "", err
		}
		return strings.TrimSpace(string(data)), nil
	}
	return "", nil
}
