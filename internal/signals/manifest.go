package signals

import (
	"bufio"
	"bytes"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"path"
	"regexp"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"golang.org/x/mod/modfile"
	"gopkg.in/yaml.v3"
)

// manifestNames are lowercased base names recognised as build or deployment
// manifests.
var manifestNames = set(
	"package.json", "package-lock.json", "yarn.lock", "pnpm-lock.yaml", "tsconfig.json",
	"go.mod", "cargo.toml", "pom.xml", "build.gradle", "build.gradle.kts",
	"requirements.txt", "pipfile", "pyproject.toml", "setup.py", "gemfile", "composer.json",
	"pubspec.yaml", "dockerfile", "docker-compose.yml", "docker-compose.yaml", "makefile",
	"cmakelists.txt", "jenkinsfile", ".gitlab-ci.yml", ".travis.yml", "chart.yaml", "main.tf",
	"angular.json", "next.config.js", "nuxt.config.js", "vue.config.js", "vite.config.js",
	"vite.config.ts", "webpack.config.js", "nginx.conf",
)

// isManifest reports whether a slash-separated path is a manifest.
func isManifest(rel string) bool {
	if manifestNames[strings.ToLower(path.Base(rel))] {
		return true
	}
	ext := path.Ext(rel)
	return strings.HasPrefix(rel, ".github/workflows/") && (ext == ".yml" || ext == ".yaml") ||
		rel == ".circleci/config.yml"
}

// manifestInfo is what a manifest says about its project.
type manifestInfo struct {
	Description  string
	Keywords     []string
	Dependencies []string
}

var manifestParsers = map[string]func([]byte) (manifestInfo, error){
	"package.json":     parsePackageJSON,
	"composer.json":    parseComposer,
	"go.mod":           parseGoMod,
	"cargo.toml":       parseCargo,
	"pyproject.toml":   parsePyproject,
	"pipfile":          parsePipfile,
	"requirements.txt": parseRequirements,
	"pubspec.yaml":     parsePubspec,
	"gemfile":          parseGemfile,
	"pom.xml":          parsePom,
	"build.gradle":     parseGradle,
	"build.gradle.kts": parseGradle,
}

// hasParser reports whether dependencies can be read from the manifest.
func hasParser(rel string) bool {
	_, ok := manifestParsers[strings.ToLower(path.Base(rel))]
	return ok
}

// parseManifest reads a manifest. Manifests without a parser yield nothing.
func parseManifest(rel string, data []byte) (manifestInfo, error) {
	parse, ok := manifestParsers[strings.ToLower(path.Base(rel))]
	if !ok {
		return manifestInfo{}, nil
	}
	info, err := parse(data)
	if err != nil {
		return manifestInfo{}, fmt.Errorf("parse %s: %w", rel, err)
	}
	info.Description = strings.TrimSpace(info.Description)
	sort.Strings(info.Dependencies)
	return info, nil
}

func keys[V any](maps ...map[string]V) []string {
	var out []string
	for _, m := range maps {
		for k := range m {
			out = append(out, k)
		}
	}
	return out
}

func parsePackageJSON(data []byte) (manifestInfo, error) {
	var pkg struct {
		Description      string            `json:"description"`
		Keywords         []string          `json:"keywords"`
		Dependencies     map[string]string `json:"dependencies"`
		DevDependencies  map[string]string `json:"devDependencies"`
		PeerDependencies map[string]string `json:"peerDependencies"`
	}
	if err := json.Unmarshal(data, &pkg); err != nil {
		return manifestInfo{}, err
	}
	return manifestInfo{
		Description:  pkg.Description,
		Keywords:     pkg.Keywords,
		Dependencies: keys(pkg.Dependencies, pkg.DevDependencies, pkg.PeerDependencies),
	}, nil
}

func parseComposer(data []byte) (manifestInfo, error) {
	var c struct {
		Description string            `json:"description"`
		Keywords    []string          `json:"keywords"`
		Require     map[string]string `json:"require"`
		RequireDev  map[string]string `json:"require-dev"`
	}
	if err := json.Unmarshal(data, &c); err != nil {
		return manifestInfo{}, err
	}
	var deps []string
	for _, d := range keys(c.Require, c.RequireDev) {
		if d == "php" || strings.HasPrefix(d, "ext-") {
			continue
		}
		deps = append(deps, d)
	}
	return manifestInfo{Description: c.Description, Keywords: c.Keywords, Dependencies: deps}, nil
}

func parseGoMod(data []byte) (manifestInfo, error) {
	f, err := modfile.ParseLax("go.mod", data, nil)
	if err != nil {
		return manifestInfo{}, err
	}
	var deps []string
	for _, r := range f.Require {
		if !r.Indirect {
			deps = append(deps, r.Mod.Path)
		}
	}
	return manifestInfo{Dependencies: deps}, nil
}

func parseCargo(data []byte) (manifestInfo, error) {
	var c struct {
		Package struct {
			Description string   `toml:"description"`
			Keywords    []string `toml:"keywords"`
		} `toml:"package"`
		Dependencies      map[string]any `toml:"dependencies"`
		DevDependencies   map[string]any `toml:"dev-dependencies"`
		BuildDependencies map[string]any `toml:"build-dependencies"`
	}
	if _, err := toml.Decode(string(data), &c); err != nil {
		return manifestInfo{}, err
	}
	return manifestInfo{
		Description:  c.Package.Description,
		Keywords:     c.Package.Keywords,
		Dependencies: keys(c.Dependencies, c.DevDependencies, c.BuildDependencies),
	}, nil
}

func parsePyproject(data []byte) (manifestInfo, error) {
	var p struct {
		Project struct {
			Description          string              `toml:"description"`
			Keywords             []string            `toml:"keywords"`
			Dependencies         []string            `toml:"dependencies"`
			OptionalDependencies map[string][]string `toml:"optional-dependencies"`
		} `toml:"project"`
		Tool struct {
			Poetry struct {
				Description     string         `toml:"description"`
				Keywords        []string       `toml:"keywords"`
				Dependencies    map[string]any `toml:"dependencies"`
				DevDependencies map[string]any `toml:"dev-dependencies"`
			} `toml:"poetry"`
		} `toml:"tool"`
	}
	if _, err := toml.Decode(string(data), &p); err != nil {
		return manifestInfo{}, err
	}
	info := manifestInfo{Description: p.Project.Description, Keywords: p.Project.Keywords}
	if info.Description == "" {
		info.Description = p.Tool.Poetry.Description
	}
	if len(info.Keywords) == 0 {
		info.Keywords = p.Tool.Poetry.Keywords
	}
	specs := append([]string(nil), p.Project.Dependencies...)
	for _, group := range p.Project.OptionalDependencies {
		specs = append(specs, group...)
	}
	specs = append(specs, keys(p.Tool.Poetry.Dependencies, p.Tool.Poetry.DevDependencies)...)
	info.Dependencies = requirementNames(specs)
	return info, nil
}

func parsePipfile(data []byte) (manifestInfo, error) {
	var p struct {
		Packages    map[string]any `toml:"packages"`
		DevPackages map[string]any `toml:"dev-packages"`
	}
	if _, err := toml.Decode(string(data), &p); err != nil {
		return manifestInfo{}, err
	}
	return manifestInfo{Dependencies: requirementNames(keys(p.Packages, p.DevPackages))}, nil
}

func parseRequirements(data []byte) (manifestInfo, error) {
	var specs []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if i := strings.Index(line, " #"); i >= 0 {
			line = line[:i]
		}
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "-") {
			continue
		}
		specs = append(specs, line)
	}
	return manifestInfo{Dependencies: requirementNames(specs)}, sc.Err()
}

// requirementNames reduces PEP 508 requirement strings to package names and
// drops the interpreter pin.
func requirementNames(specs []string) []string {
	var out []string
	for _, s := range specs {
		name := strings.ToLower(strings.TrimSpace(s))
		if i := strings.IndexAny(name, "=<>!~;[ @("); i >= 0 {
			name = name[:i]
		}
		if name != "" && name != "python" {
			out = append(out, name)
		}
	}
	return out
}

func parsePubspec(data []byte) (manifestInfo, error) {
	var p struct {
		Description     string         `yaml:"description"`
		Dependencies    map[string]any `yaml:"dependencies"`
		DevDependencies map[string]any `yaml:"dev_dependencies"`
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return manifestInfo{}, err
	}
	return manifestInfo{Description: p.Description, Dependencies: keys(p.Dependencies, p.DevDependencies)}, nil
}

var gemLine = regexp.MustCompile(`(?m)^\s*gem\s+['"]([^'"]+)['"]`)

func parseGemfile(data []byte) (manifestInfo, error) {
	var deps []string
	for _, m := range gemLine.FindAllSubmatch(data, -1) {
		deps = append(deps, string(m[1]))
	}
	return manifestInfo{Dependencies: deps}, nil
}

func parsePom(data []byte) (manifestInfo, error) {
	type coord struct {
		GroupID    string `xml:"groupId"`
		ArtifactID string `xml:"artifactId"`
	}
	var pom struct {
		Description  string  `xml:"description"`
		Parent       coord   `xml:"parent"`
		Dependencies []coord `xml:"dependencies>dependency"`
	}
	if err := xml.Unmarshal(data, &pom); err != nil {
		return manifestInfo{}, err
	}
	seen := make(map[string]bool)
	var deps []string
	for _, c := range append([]coord{pom.Parent}, pom.Dependencies...) {
		g := strings.TrimSpace(c.GroupID)
		if g != "" && !seen[g] {
			seen[g] = true
			deps = append(deps, g)
		}
	}
	return manifestInfo{Description: pom.Description, Dependencies: deps}, nil
}

var (
	gradleDep    = regexp.MustCompile(`(?m)^\s*(?:implementation|api|compile|compileOnly|runtimeOnly|testImplementation)\s*\(?\s*['"]([^:'"]+):`)
	gradlePlugin = regexp.MustCompile(`(?m)^\s*id\s*\(?\s*['"]([^'"]+)['"]`)
)

func parseGradle(data []byte) (manifestInfo, error) {
	seen := make(map[string]bool)
	var deps []string
	for _, re := range []*regexp.Regexp{gradlePlugin, gradleDep} {
		for _, m := range re.FindAllSubmatch(data, -1) {
			if g := string(m[1]); !seen[g] {
				seen[g] = true
				deps = append(deps, g)
			}
		}
	}
	return manifestInfo{Dependencies: deps}, nil
}
