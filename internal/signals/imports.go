package signals

import "strings"

var pythonStdlib = set("os", "sys", "re", "json", "typing", "collections", "itertools", "functools",
	"pathlib", "logging", "unittest", "datetime", "time", "math", "random", "subprocess", "abc",
	"argparse", "asyncio", "dataclasses", "enum", "io", "shutil", "tempfile", "threading", "uuid",
	"__future__")

var rustBuiltin = set("std", "core", "alloc", "crate", "self", "super")

var nodeBuiltin = set("fs", "path", "os", "http", "https", "url", "util", "events", "stream",
	"crypto", "child_process", "assert", "buffer", "zlib", "net", "readline")

// hostedGoPrefixes are hosts whose module paths are host/owner/repo.
var hostedGoPrefixes = []string{"github.com/", "gitlab.com/", "bitbucket.org/"}

// importModule maps an import path to the third-party module it belongs to.
// Relative, standard library and header imports report false.
func importModule(lang, imp string) (string, bool) {
	imp = strings.TrimSpace(imp)
	if imp == "" || strings.HasPrefix(imp, ".") || strings.HasPrefix(imp, "/") {
		return "", false
	}
	switch lang {
	case "Go":
		first, _, _ := strings.Cut(imp, "/")
		if !strings.Contains(first, ".") {
			return "", false
		}
		for _, host := range hostedGoPrefixes {
			if strings.HasPrefix(imp, host) {
				return firstSegments(imp, "/", 3), true
			}
		}
		return imp, true
	case "JavaScript", "TypeScript":
		if strings.HasPrefix(imp, "node:") {
			return "", false
		}
		if strings.HasPrefix(imp, "@") {
			return firstSegments(imp, "/", 2), true
		}
		return keep(firstSegments(imp, "/", 1), nodeBuiltin)
	case "Python":
		return keep(firstSegments(imp, ".", 1), pythonStdlib)
	case "Rust":
		return keep(firstSegments(imp, "::", 1), rustBuiltin)
	case "Java":
		if strings.HasPrefix(imp, "java.") || strings.HasPrefix(imp, "javax.") {
			return "", false
		}
		return firstSegments(imp, ".", 3), true
	case "Ruby":
		return firstSegments(imp, "/", 1), true
	}
	return "", false
}

func keep(mod string, builtin map[string]bool) (string, bool) {
	if builtin[mod] {
		return "", false
	}
	return mod, true
}

func firstSegments(s, sep string, n int) string {
	parts := strings.SplitN(s, sep, n+1)
	if len(parts) > n {
		parts = parts[:n]
	}
	return strings.Join(parts, sep)
}

func set(items ...string) map[string]bool {
	m := make(map[string]bool, len(items))
	for _, it := range items {
		m[it] = true
	}
	return m
}
