package profile

import (
	"path"
	"regexp"
	"sort"
	"strings"
)

// DefaultDomain is used when no domain keyword matches.
const DefaultDomain = "Software Development"

// DefaultPattern is used when no architecture rule matches.
const DefaultPattern = "Component-based"

type domainRule struct {
	name     string
	keywords []string
}

// Table order breaks score ties.
var domainRules = []domainRule{
	{"Web Development", []string{"web", "website", "frontend", "backend", "api", "rest", "graphql", "spa", "pwa"}},
	{"Mobile Development", []string{"mobile", "ios", "android", "react-native", "flutter", "xamarin", "cordova"}},
	{"Data Science", []string{"data science", "machine learning", "ai", "artificial intelligence", "ml", "deep learning", "neural", "tensorflow", "pytorch"}},
	{"DevOps", []string{"devops", "deployment", "ci/cd", "infrastructure", "monitoring", "observability", "kubernetes", "docker"}},
	{"Game Development", []string{"game", "gaming", "unity", "unreal", "opengl", "directx", "graphics"}},
	{"Blockchain", []string{"blockchain", "cryptocurrency", "bitcoin", "ethereum", "smart contract", "defi", "nft"}},
	{"IoT", []string{"iot", "internet of things", "embedded", "arduino", "raspberry pi", "sensor"}},
	{"Security", []string{"security", "cybersecurity", "encryption", "authentication", "authorization", "vulnerability"}},
	{"Developer Tools", []string{"tool", "library", "framework", "sdk", "cli", "plugin", "extension", "utility"}},
	{"E-commerce", []string{"ecommerce", "e-commerce", "shopping", "payment", "cart", "checkout", "storefront"}},
	{"Education", []string{"education", "learning", "tutorial", "course", "training", "academic"}},
	{"Healthcare", []string{"healthcare", "medical", "health", "patient", "hospital", "clinical"}},
	{"Finance", []string{"finance", "financial", "banking", "trading", "investment", "accounting"}},
	{"Productivity", []string{"productivity", "collaboration", "project management", "task", "workflow", "automation"}},
}

type patternRule struct {
	name     string
	keywords []string
	// deps are dependency or manifest names that select the pattern on their own.
	deps []string
}

// Rules are evaluated in order and the first hit wins.
var patternRules = []patternRule{
	{name: "Microservices", keywords: []string{"microservice", "service-oriented", "soa", "service mesh"}},
	{name: "Monolithic", keywords: []string{"monolith", "monolithic", "single application"}},
	{name: "Component-based", keywords: []string{"component", "modular", "reusable"}},
	{name: "Layered", keywords: []string{"layered", "n-tier", "three-tier", "presentation layer", "data access layer"}},
	{name: "Event-driven", keywords: []string{"event-driven", "event sourcing", "pub/sub", "publish/subscribe", "message broker"},
		deps: []string{"kafkajs", "kafka-python", "github.com/segmentio/kafka-go", "github.com/ibm/sarama", "github.com/nats-io/nats.go", "amqplib", "pika", "github.com/rabbitmq/amqp091-go"}},
	{name: "MVC", keywords: []string{"mvc", "model-view-controller"}},
	{name: "MVVM", keywords: []string{"mvvm", "model-view-viewmodel", "viewmodel"}},
	{name: "Serverless", keywords: []string{"serverless", "lambda", "faas"},
		deps: []string{"serverless.yml", "serverless.yaml", "github.com/aws/aws-lambda-go"}},
	{name: "Client-Server", keywords: []string{"client-server", "client server"}},
	{name: "Peer-to-Peer", keywords: []string{"peer-to-peer", "p2p"},
		deps: []string{"github.com/libp2p/go-libp2p"}},
	{name: "Plugin", keywords: []string{"plugin architecture", "plugin system", "extensible", "plugins"}},
	{name: "Pipeline", keywords: []string{"pipeline", "etl", "stream processing"}},
	{name: "Library/Utility", keywords: []string{"library", "sdk", "toolkit", "utility", "utilities"}},
}

// manifestTech maps a lowercased manifest base name to the technologies it implies.
var manifestTech = map[string][]string{
	"package.json":        {"Node.js", "JavaScript", "npm"},
	"requirements.txt":    {"Python"},
	"pipfile":             {"Python"},
	"pyproject.toml":      {"Python"},
	"setup.py":            {"Python"},
	"cargo.toml":          {"Rust"},
	"go.mod":              {"Go"},
	"pom.xml":             {"Java", "Maven"},
	"build.gradle":        {"Java", "Gradle"},
	"build.gradle.kts":    {"Kotlin", "Gradle"},
	"dockerfile":          {"Docker"},
	"docker-compose.yml":  {"Docker", "Docker Compose"},
	"docker-compose.yaml": {"Docker", "Docker Compose"},
	"composer.json":       {"PHP"},
	"gemfile":             {"Ruby"},
	"yarn.lock":           {"Node.js", "Yarn"},
	"package-lock.json":   {"Node.js", "npm"},
	"pnpm-lock.yaml":      {"Node.js", "pnpm"},
	"tsconfig.json":       {"TypeScript"},
	"webpack.config.js":   {"Webpack"},
	"vite.config.js":      {"Vite"},
	"vite.config.ts":      {"Vite"},
	"next.config.js":      {"Next.js"},
	"nuxt.config.js":      {"Nuxt.js"},
	"vue.config.js":       {"Vue.js"},
	"angular.json":        {"Angular"},
	"pubspec.yaml":        {"Dart", "Flutter"},
	"cmakelists.txt":      {"C++", "CMake"},
	"makefile":            {"Make"},
	"jenkinsfile":         {"Jenkins"},
	".gitlab-ci.yml":      {"GitLab CI"},
	".travis.yml":         {"Travis CI"},
	"nginx.conf":          {"Nginx"},
	"main.tf":             {"Terraform"},
	"chart.yaml":          {"Kubernetes", "Helm"},
}

// manifestDirTech maps directories holding CI definitions to technologies.
var manifestDirTech = []struct {
	dir   string
	techs []string
}{
	{".github/workflows", []string{"GitHub Actions"}},
	{".circleci", []string{"CircleCI"}},
}

// dependencyTech maps a lowercased dependency name (or Go module path prefix)
// to the technology it implies.
var dependencyTech = map[string]string{
	"react":                              "React",
	"react-dom":                          "React",
	"react-native":                       "React Native",
	"vue":                                "Vue.js",
	"@angular/core":                      "Angular",
	"next":                               "Next.js",
	"nuxt":                               "Nuxt.js",
	"svelte":                             "Svelte",
	"express":                            "Express",
	"fastify":                            "Fastify",
	"@nestjs/core":                       "NestJS",
	"fastapi":                            "FastAPI",
	"django":                             "Django",
	"flask":                              "Flask",
	"rails":                              "Ruby on Rails",
	"laravel/framework":                  "Laravel",
	"symfony/symfony":                    "Symfony",
	"org.springframework.boot":           "Spring",
	"github.com/gin-gonic/gin":           "Gin",
	"github.com/labstack/echo":           "Echo",
	"github.com/gofiber/fiber":           "Fiber",
	"github.com/go-chi/chi":              "chi",
	"github.com/spf13/cobra":             "Cobra",
	"github.com/charmbracelet/bubbletea": "Bubble Tea",
	"google.golang.org/grpc":             "gRPC",
	"pg":                                 "PostgreSQL",
	"psycopg2":                           "PostgreSQL",
	"github.com/jackc/pgx":               "PostgreSQL",
	"github.com/lib/pq":                  "PostgreSQL",
	"mysql":                              "MySQL",
	"mysql2":                             "MySQL",
	"github.com/go-sql-driver/mysql":     "MySQL",
	"mongodb":                            "MongoDB",
	"mongoose":                           "MongoDB",
	"pymongo":                            "MongoDB",
	"go.mongodb.org/mongo-driver":        "MongoDB",
	"redis":                              "Redis",
	"ioredis":                            "Redis",
	"github.com/redis/go-redis":          "Redis",
	"modernc.org/sqlite":                 "SQLite",
	"sqlite3":                            "SQLite",
	"github.com/mattn/go-sqlite3":        "SQLite",
	"elasticsearch":                      "Elasticsearch",
	"@elastic/elasticsearch":             "Elasticsearch",
	"kafkajs":                            "Apache Kafka",
	"kafka-python":                       "Apache Kafka",
	"github.com/segmentio/kafka-go":      "Apache Kafka",
	"github.com/ibm/sarama":              "Apache Kafka",
	"amqplib":                            "RabbitMQ",
	"pika":                               "RabbitMQ",
	"github.com/rabbitmq/amqp091-go":     "RabbitMQ",
	"github.com/nats-io/nats.go":         "NATS",
	"tensorflow":                         "TensorFlow",
	"torch":                              "PyTorch",
	"numpy":                              "NumPy",
	"pandas":                             "pandas",
	"flutter":                            "Flutter",
	"k8s.io/client-go":                   "Kubernetes",
}

var (
	languageTech = set("JavaScript", "TypeScript", "Python", "Java", "Go", "Rust", "PHP", "Ruby",
		"C", "C++", "C#", "Swift", "Kotlin", "Dart", "Scala", "Elixir", "Haskell", "Lua", "Shell")
	frontendTech = set("React", "Vue.js", "Angular", "Next.js", "Nuxt.js", "Svelte", "Webpack", "Vite",
		"React Native", "Flutter")
	backendTech = set("Node.js", "Express", "Fastify", "NestJS", "FastAPI", "Django", "Flask",
		"Ruby on Rails", "Spring", "Laravel", "Symfony", "Gin", "Echo", "Fiber", "chi", "gRPC")
	databaseTech = set("PostgreSQL", "MySQL", "MongoDB", "Redis", "SQLite", "Elasticsearch",
		"Apache Kafka", "RabbitMQ", "NATS")
	devopsTech = set("Docker", "Docker Compose", "Kubernetes", "Helm", "Terraform", "Ansible", "Jenkins",
		"GitHub Actions", "GitLab CI", "Travis CI", "CircleCI", "Nginx", "Apache", "Make", "CMake")
)

func set(items ...string) map[string]bool {
	m := make(map[string]bool, len(items))
	for _, it := range items {
		m[it] = true
	}
	return m
}

var matcherCache = map[string]*regexp.Regexp{}

func init() {
	for _, r := range domainRules {
		for _, k := range r.keywords {
			matcherCache[k] = compileKeyword(k)
		}
	}
	for _, r := range patternRules {
		for _, k := range r.keywords {
			matcherCache[k] = compileKeyword(k)
		}
	}
}

// compileKeyword matches a keyword on word boundaries, allowing a plural "s".
func compileKeyword(k string) *regexp.Regexp {
	return regexp.MustCompile(`(^|[^a-z0-9])` + regexp.QuoteMeta(k) + `s?([^a-z0-9]|$)`)
}

func hit(text, keyword string) bool {
	re, ok := matcherCache[keyword]
	if !ok {
		re = compileKeyword(keyword)
	}
	return re.MatchString(text)
}

func classifyDomain(text string) string {
	best, bestScore := DefaultDomain, 0
	for _, r := range domainRules {
		score := 0
		for _, k := range r.keywords {
			if hit(text, k) {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = r.name, score
		}
	}
	return best
}

func classifyPattern(text string, sig Signals) string {
	names := make(map[string]bool, len(sig.Dependencies)+len(sig.Manifests))
	for _, d := range sig.Dependencies {
		names[normalizeDep(d)] = true
	}
	for _, m := range sig.Manifests {
		names[strings.ToLower(path.Base(m))] = true
	}

	for _, r := range patternRules {
		for _, d := range r.deps {
			if names[d] {
				return r.name
			}
		}
		for _, k := range r.keywords {
			if hit(text, k) {
				return r.name
			}
		}
	}
	return DefaultPattern
}

// normalizeDep lowercases a dependency and strips a Go major-version suffix.
func normalizeDep(dep string) string {
	d := strings.ToLower(strings.TrimSpace(dep))
	if i := strings.LastIndex(d, "/v"); i > 0 && isDigits(d[i+2:]) {
		d = d[:i]
	}
	return d
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func lookupDependency(dep string) (string, bool) {
	d := normalizeDep(dep)
	if tech, ok := dependencyTech[d]; ok {
		return tech, true
	}
	// Go packages below a known module path; the longest prefix wins.
	best, tech := "", ""
	for prefix, t := range dependencyTech {
		if strings.Contains(prefix, "/") && strings.HasPrefix(d, prefix+"/") && len(prefix) > len(best) {
			best, tech = prefix, t
		}
	}
	return tech, best != ""
}

type stackBuilder struct {
	stack Stack
	seen  map[string]bool
}

func (b *stackBuilder) add(tech string) {
	if tech == "" || b.seen[tech] {
		return
	}
	b.seen[tech] = true
	switch {
	case languageTech[tech]:
		b.stack.Languages = append(b.stack.Languages, tech)
	case frontendTech[tech]:
		b.stack.Frontend = append(b.stack.Frontend, tech)
	case backendTech[tech]:
		b.stack.Backend = append(b.stack.Backend, tech)
	case databaseTech[tech]:
		b.stack.Databases = append(b.stack.Databases, tech)
	case devopsTech[tech]:
		b.stack.DevOps = append(b.stack.DevOps, tech)
	default:
		b.stack.Frameworks = append(b.stack.Frameworks, tech)
	}
}

// detectStack builds the technology stack. Histogram languages come first in
// rank order; the remaining inputs are sorted so map order never leaks in.
func detectStack(langs, manifests, deps []string) Stack {
	b := &stackBuilder{seen: map[string]bool{}}
	for _, l := range langs {
		b.seen[l] = true
		b.stack.Languages = append(b.stack.Languages, l)
	}

	ms := append([]string(nil), manifests...)
	sort.Strings(ms)
	for _, m := range ms {
		lower := strings.ToLower(m)
		for _, tech := range manifestTech[path.Base(lower)] {
			b.add(tech)
		}
		for _, dt := range manifestDirTech {
			if strings.HasPrefix(lower, dt.dir+"/") {
				for _, tech := range dt.techs {
					b.add(tech)
				}
			}
		}
	}

	ds := append([]string(nil), deps...)
	sort.Strings(ds)
	for _, d := range ds {
		if tech, ok := lookupDependency(d); ok {
			b.add(tech)
		}
	}

	s := b.stack
	for _, c := range []*[]string{&s.Languages, &s.Frameworks, &s.Frontend, &s.Backend, &s.Databases, &s.DevOps} {
		if *c == nil {
			*c = []string{}
		}
	}
	return s
}
