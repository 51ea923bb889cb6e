package signals

import (
	"context"
	"log"
	"math"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/julianshen/docweave/internal/profile"
)

// bytesPerLine converts hosted byte counts into an estimated line count.
const bytesPerLine = 40

// maxHostedManifests bounds how many manifests are fetched from an API.
const maxHostedManifests = 12

// hostedFetchConcurrency bounds in-flight manifest fetches.
const hostedFetchConcurrency = 4

// hostedTree is the file listing and file fetcher a hosting API provides.
type hostedTree struct {
	paths []string
	fetch func(ctx context.Context, path string) ([]byte, error)
}

// fill completes sig from a repository listing: file count, manifests,
// dependencies read from manifests and the README. Fetch failures are logged
// and skipped.
func (h hostedTree) fill(ctx context.Context, sig *profile.Signals) {
	var readmes, parseable []string
	deps := make(map[string]bool)
	infos := make(map[string]manifestInfo)
	for _, p := range h.paths {
		if shouldSkip(p) {
			continue
		}
		sig.FileCount++
		if isReadme(p) {
			readmes = append(readmes, p)
		}
		if isManifest(p) {
			sig.Manifests = append(sig.Manifests, p)
			if hasParser(p) {
				parseable = append(parseable, p)
			}
		}
	}
	sort.Strings(sig.Manifests)

	// Root manifests first, then by path.
	sort.SliceStable(parseable, func(i, j int) bool {
		di, dj := strings.Count(parseable[i], "/"), strings.Count(parseable[j], "/")
		if di != dj {
			return di < dj
		}
		return parseable[i] < parseable[j]
	})
	if len(parseable) > maxHostedManifests {
		parseable = parseable[:maxHostedManifests]
	}
	parsed := make([]*manifestInfo, len(parseable))
	var g errgroup.Group
	g.SetLimit(hostedFetchConcurrency)
	for i, p := range parseable {
		g.Go(func() error {
			data, err := h.fetch(ctx, p)
			if err != nil {
				log.Printf("WARNING: fetching %s: %v", p, err)
				return nil
			}
			mi, err := parseManifest(p, data)
			if err != nil {
				log.Printf("WARNING: %v", err)
				return nil
			}
			parsed[i] = &mi
			return nil
		})
	}
	_ = g.Wait()
	for i, p := range parseable {
		if parsed[i] == nil {
			continue
		}
		infos[p] = *parsed[i]
		for _, d := range parsed[i].Dependencies {
			deps[d] = true
		}
	}
	sig.Dependencies = sortedKeys(deps)

	desc, topics := describe(sig.Manifests, infos)
	if sig.Description == "" {
		sig.Description = desc
	}
	if len(sig.Topics) == 0 {
		sig.Topics = topics
	}

	if sig.Readme == "" && len(readmes) > 0 {
		sort.Slice(readmes, func(i, j int) bool { return better(readmes[i], readmes[j]) })
		data, err := h.fetch(ctx, readmes[0])
		if err != nil {
			log.Printf("WARNING: fetching %s: %v", readmes[0], err)
			return
		}
		sig.Readme = truncate(string(data), DefaultLocalOptions().MaxReadmeBytes)
	}
}

// histogram drops zero weights and returns nil when nothing is left.
func histogram[V int | int64 | float32 | float64](in map[string]V, scale float64) map[string]int64 {
	out := make(map[string]int64, len(in))
	for lang, v := range in {
		if w := int64(math.Round(float64(v) * scale)); w > 0 {
			out[lang] = w
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
