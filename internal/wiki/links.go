package wiki

import (
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"
)

// indexFile is the bundle's root page. A topic titled README gets a
// different file name so it never overwrites the index.
const indexFile = "README.md"

var hostileChars = strings.NewReplacer(
	"/", "_", `\`, "_", ":", "_", "*", "_", "?", "_",
	`"`, "_", "<", "_", ">", "_", "|", "_",
)

// FileName maps a title to its markdown file name. Spaces are kept and
// characters that are unsafe in file names become underscores.
func FileName(title string) string {
	name := strings.TrimSpace(hostileChars.Replace(title))
	if name == "" {
		name = "_"
	}
	if strings.EqualFold(name, "README") {
		name += "_"
	}
	return name + ".md"
}

// RelativePath is the link destination for a node's page from any other page
// in the same flat bundle.
func RelativePath(n Node) string { return "./" + FileName(n.Title) }

// mdLink renders a link whose destination may contain spaces.
func mdLink(title, dest string) string {
	return fmt.Sprintf("[%s](<%s>)", title, dest)
}

// Reconcile adds navigation to every document: top-level pages list their
// subsections, subsections link back to their parent, and pages with siblings
// get a Related Documentation block. Local .md links written by the generator
// are rewritten to canonical paths when they name a node and reduced to plain
// text when they do not. Links to stubbed nodes are emitted like any other.
//
// Reconcile must see a document for every node. It returns new documents and
// leaves its input untouched.
func Reconcile(t *Tree, docs Documents) (Documents, error) {
	for id := range docs {
		if _, ok := t.Node(id); !ok {
			return nil, &TreeInvariantError{Node: id, Reason: "document for a node outside the tree"}
		}
	}

	targets := linkTargets(t)
	out := make(Documents, len(docs))
	for _, n := range t.Nodes() {
		doc, ok := docs[n.ID]
		if !ok {
			return nil, &TreeInvariantError{Node: n.ID, Reason: "no document to reconcile"}
		}

		body, inline := normalizeLinks(doc.Content, targets)
		nav, links := navigation(t, n)

		var b strings.Builder
		b.WriteString(strings.TrimRight(body, "\n"))
		b.WriteString("\n")
		if nav != "" {
			b.WriteString("\n")
			b.WriteString(nav)
		}

		doc.Content = b.String()
		doc.CrossLinks = mergeLinks(links, inline)
		if err := checkLinks(t, n.ID, doc.CrossLinks); err != nil {
			return nil, err
		}
		out[n.ID] = doc
	}
	return out, nil
}

func navigation(t *Tree, n Node) (string, []CrossLink) {
	var b strings.Builder
	var links []CrossLink
	link := func(target Node) string {
		rel := RelativePath(target)
		links = append(links, CrossLink{Target: target.ID, RelativePath: rel})
		return mdLink(target.Title, rel)
	}

	if kids := t.Children(n.ID); len(kids) > 0 {
		b.WriteString("## Subsections\n\n")
		for _, c := range kids {
			fmt.Fprintf(&b, "- %s\n", link(c))
		}
		b.WriteString("\n")
	}
	if parent, ok := t.Parent(n.ID); ok {
		fmt.Fprintf(&b, "**Parent:** %s\n\n", link(parent))
	}
	if sibs := t.Siblings(n.ID); len(sibs) > 0 {
		b.WriteString("## Related Documentation\n\n")
		for _, s := range sibs {
			fmt.Fprintf(&b, "- %s\n", link(s))
		}
		b.WriteString("\n")
	}
	if b.Len() == 0 {
		return "", nil
	}
	return "---\n\n" + strings.TrimRight(b.String(), "\n") + "\n", links
}

func mergeLinks(groups ...[]CrossLink) []CrossLink {
	seen := make(map[NodeID]bool)
	out := []CrossLink{}
	for _, g := range groups {
		for _, l := range g {
			if seen[l.Target] {
				continue
			}
			seen[l.Target] = true
			out = append(out, l)
		}
	}
	return out
}

// checkLinks guards the invariant that every link targets a node in the tree
// at the path derived from its title.
func checkLinks(t *Tree, source NodeID, links []CrossLink) error {
	for _, l := range links {
		target, ok := t.Node(l.Target)
		if !ok || RelativePath(target) != l.RelativePath {
			return &BrokenLinkInvariantError{Source: source, Target: l.Target, Path: l.RelativePath}
		}
	}
	return nil
}

// linkTargets indexes nodes by lowercased title and file name stem.
func linkTargets(t *Tree) map[string]Node {
	m := make(map[string]Node)
	for _, n := range t.Nodes() {
		m[strings.ToLower(n.Title)] = n
		m[strings.ToLower(strings.TrimSuffix(FileName(n.Title), ".md"))] = n
	}
	return m
}

// inlineLink matches [text](dest) and [text](<dest> "title").
var inlineLink = regexp.MustCompile(`\[([^\[\]]*)\]\(\s*(<[^<>\n]*>|[^()\s]+)(?:\s+"[^"]*")?\s*\)`)

// normalizeLinks rewrites local .md links outside code fences and inline
// code spans.
func normalizeLinks(content string, targets map[string]Node) (string, []CrossLink) {
	var links []CrossLink
	lines := strings.Split(content, "\n")
	inFence := false
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			inFence = !inFence
			continue
		}
		if inFence || !strings.Contains(line, "](") {
			continue
		}
		lines[i] = rewriteLine(line, targets, &links)
	}
	return strings.Join(lines, "\n"), links
}

// codeSpans returns the [start, end) byte ranges of inline code on a line.
// A span opens with a run of backticks and closes at the next run of the
// same length; an unclosed run is literal text.
func codeSpans(line string) [][2]int {
	var spans [][2]int
	for i := 0; i < len(line); {
		if line[i] != '`' {
			i++
			continue
		}
		open := i
		for i < len(line) && line[i] == '`' {
			i++
		}
		n := i - open
		for j := i; j < len(line); {
			if line[j] != '`' {
				j++
				continue
			}
			k := j
			for k < len(line) && line[k] == '`' {
				k++
			}
			if k-j == n {
				spans = append(spans, [2]int{open, k})
				i = k
				break
			}
			j = k
		}
	}
	return spans
}

func inSpan(spans [][2]int, pos int) bool {
	for _, s := range spans {
		if pos >= s[0] && pos < s[1] {
			return true
		}
	}
	return false
}

func rewriteLine(line string, targets map[string]Node, links *[]CrossLink) string {
	matches := inlineLink.FindAllStringSubmatchIndex(line, -1)
	if matches == nil {
		return line
	}
	spans := codeSpans(line)
	var b strings.Builder
	last := 0
	for _, m := range matches {
		start, end := m[0], m[1]
		if start > 0 && line[start-1] == '!' || inSpan(spans, start) {
			continue
		}
		text := line[m[2]:m[3]]
		dest := strings.Trim(line[m[4]:m[5]], "<>")

		b.WriteString(line[last:start])
		last = end

		stem, fragment, local := localPage(dest)
		if !local {
			b.WriteString(line[start:end])
			continue
		}
		n, ok := targets[strings.ToLower(stem)]
		if !ok && strings.EqualFold(stem+".md", indexFile) {
			b.WriteString(mdLink(text, "./"+indexFile))
			continue
		}
		if !ok {
			b.WriteString(text)
			continue
		}
		rel := RelativePath(n)
		*links = append(*links, CrossLink{Target: n.ID, RelativePath: rel})
		b.WriteString(mdLink(text, rel+fragment))
	}
	b.WriteString(line[last:])
	return b.String()
}

// localPage reports whether dest points at a markdown page in the bundle and
// returns its name without extension along with any #fragment.
func localPage(dest string) (stem, fragment string, ok bool) {
	if strings.Contains(dest, "://") || strings.HasPrefix(dest, "mailto:") || strings.HasPrefix(dest, "#") {
		return "", "", false
	}
	if i := strings.IndexByte(dest, '#'); i >= 0 {
		dest, fragment = dest[:i], dest[i:]
	}
	if !strings.HasSuffix(strings.ToLower(dest), ".md") {
		return "", "", false
	}
	if unescaped, err := url.PathUnescape(dest); err == nil {
		dest = unescaped
	}
	base := path.Base(strings.ReplaceAll(dest, `\`, "/"))
	return base[:len(base)-len(".md")], fragment, true
}
