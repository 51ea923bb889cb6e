package profile

import (
	"fmt"
	"path"
	"sort"
	"strings"
)

// Signals is the raw bag of repository facts supplied by a repository-analysis
// collaborator. It is the only input to Classify.
type Signals struct {
	RepositoryURL string
	Name          string
	Description   string
	Topics        []string
	Readme        string

	// Languages maps a language name to its weight in the repository (lines
	// for local scans, bytes or percentages for hosted sources). A nil or
	// all-zero histogram means no language could be detected.
	Languages map[string]int64

	// Manifests holds repository-relative paths of detected build manifests.
	Manifests    []string
	Dependencies []string

	LOC          int
	FileCount    int
	LOCEstimated bool
}

// Size is a coarse bucket derived from line and file counts.
type Size string

const (
	SizeTiny   Size = "tiny"
	SizeSmall  Size = "small"
	SizeMedium Size = "medium"
	SizeLarge  Size = "large"
	SizeHuge   Size = "huge"
)

// Stack is the detected technology stack. Each category is an ordered set and
// a technology appears in at most one category.
type Stack struct {
	Languages  []string `json:"languages"`
	Frameworks []string `json:"frameworks"`
	Frontend   []string `json:"frontend"`
	Backend    []string `json:"backend"`
	Databases  []string `json:"databases"`
	DevOps     []string `json:"devops"`
}

// All returns every technology in category order.
func (s Stack) All() []string {
	var out []string
	for _, c := range [][]string{s.Languages, s.Frameworks, s.Frontend, s.Backend, s.Databases, s.DevOps} {
		out = append(out, c...)
	}
	return out
}

// Has reports whether the stack contains a technology, ignoring case.
func (s Stack) Has(name string) bool {
	for _, t := range s.All() {
		if strings.EqualFold(t, name) {
			return true
		}
	}
	return false
}

// Profile is the classification summary of one repository. It is immutable once
// produced by Classify.
type Profile struct {
	RepositoryURL       string `json:"repositoryUrl"`
	Name                string `json:"name"`
	Description         string `json:"description,omitempty"`
	BusinessDomain      string `json:"businessDomain"`
	ArchitecturePattern string `json:"architecturePattern"`
	TechnologyStack     Stack  `json:"technologyStack"`
	SizeSignal          Size   `json:"sizeSignal"`
	LinesOfCode         int    `json:"linesOfCode"`
	FileCount           int    `json:"fileCount"`
	LOCEstimated        bool   `json:"locEstimated,omitempty"`
}

// IncompleteError reports a required profile field that could not be derived
// from the supplied signals.
type IncompleteError struct {
	Field string
}

func (e *IncompleteError) Error() string {
	return fmt.Sprintf("profile incomplete: missing %s", e.Field)
}

// Classify derives a Profile from signals. It is a pure function: the same
// signals always produce the same profile.
func Classify(sig Signals) (Profile, error) {
	url := strings.TrimSpace(sig.RepositoryURL)
	if url == "" {
		return Profile{}, &IncompleteError{Field: "repositoryUrl"}
	}
	langs := rankLanguages(sig.Languages)
	if len(langs) == 0 {
		return Profile{}, &IncompleteError{Field: "languageHistogram"}
	}
	if sig.LOC <= 0 && sig.FileCount <= 0 {
		return Profile{}, &IncompleteError{Field: "sizeSignal"}
	}

	name := sig.Name
	if name == "" {
		name = nameFromURL(url)
	}

	text := corpus(sig, name)
	return Profile{
		RepositoryURL:       url,
		Name:                name,
		Description:         strings.TrimSpace(sig.Description),
		BusinessDomain:      classifyDomain(text),
		ArchitecturePattern: classifyPattern(text, sig),
		TechnologyStack:     detectStack(langs, sig.Manifests, sig.Dependencies),
		SizeSignal:          sizeFor(sig.LOC, sig.FileCount),
		LinesOfCode:         sig.LOC,
		FileCount:           sig.FileCount,
		LOCEstimated:        sig.LOCEstimated,
	}, nil
}

// rankLanguages orders languages by weight descending, then name ascending.
func rankLanguages(hist map[string]int64) []string {
	langs := make([]string, 0, len(hist))
	for lang, w := range hist {
		if w > 0 && strings.TrimSpace(lang) != "" {
			langs = append(langs, lang)
		}
	}
	sort.Slice(langs, func(i, j int) bool {
		wi, wj := hist[langs[i]], hist[langs[j]]
		if wi != wj {
			return wi > wj
		}
		return langs[i] < langs[j]
	})
	return langs
}

func nameFromURL(url string) string {
	trimmed := strings.TrimSuffix(strings.TrimRight(url, "/"), ".git")
	return path.Base(trimmed)
}

// corpus is the lowercased free text the keyword rules are matched against.
func corpus(sig Signals, name string) string {
	parts := []string{name, sig.Description, strings.Join(sig.Topics, " "), sig.Readme}
	return strings.ToLower(strings.Join(parts, "\n"))
}

func sizeFor(loc, files int) Size {
	if loc <= 0 {
		// Rough lines-per-file figure when only a file count is known.
		loc = files * 100
	}
	switch {
	case loc < 1_000:
		return SizeTiny
	case loc < 10_000:
		return SizeSmall
	case loc < 100_000:
		return SizeMedium
	case loc < 1_000_000:
		return SizeLarge
	default:
		return SizeHuge
	}
}
