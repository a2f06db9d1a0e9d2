package parser

import (
	"path/filepath"
	"regexp"
	"strings"
)

// Extras live either in a marker directory or carry a marker suffix on the
// filename. Both conventions are common in curated libraries.

var extrasDirPatterns = []struct {
	rx   *regexp.Regexp
	kind string
}{
	{regexp.MustCompile(`(?i)^trailers?$`), "trailer"},
	{regexp.MustCompile(`(?i)^extras?$`), "other"},
	{regexp.MustCompile(`(?i)^bonus$`), "other"},
	{regexp.MustCompile(`(?i)^deleted[\s._-]?scenes?$`), "deleted-scene"},
	{regexp.MustCompile(`(?i)^behind[\s._-]?the[\s._-]?scenes?$`), "behind-the-scene"},
	{regexp.MustCompile(`(?i)^interviews?$`), "interview"},
	{regexp.MustCompile(`(?i)^featurettes?$`), "featurette"},
	{regexp.MustCompile(`(?i)^shorts?$`), "other"},
	{regexp.MustCompile(`(?i)^special[\s._-]?features?$`), "other"},
}

var extrasSuffixPatterns = []struct {
	rx   *regexp.Regexp
	kind string
}{
	{regexp.MustCompile(`(?i)[\s._-]trailer$`), "trailer"},
	{regexp.MustCompile(`(?i)[\s._-]behindthescenes$`), "behind-the-scene"},
	{regexp.MustCompile(`(?i)[\s._-]deleted(?:scene)?$`), "deleted-scene"},
	{regexp.MustCompile(`(?i)[\s._-]featurette$`), "featurette"},
	{regexp.MustCompile(`(?i)[\s._-]interview$`), "interview"},
	{regexp.MustCompile(`(?i)[\s._-]short$`), "other"},
	{regexp.MustCompile(`(?i)[\s._-]extra$`), "other"},
	{regexp.MustCompile(`(?i)[\s._-]other$`), "other"},
}

// extraKind classifies a path as an extra. It returns the extra kind and a
// display name, or "" when the path is regular content.
func extraKind(path string) (kind, name string) {
	base := filepath.Base(path)
	if i := strings.LastIndexByte(base, '.'); i > 0 {
		base = base[:i]
	}
	dir := filepath.Base(filepath.Dir(path))

	for _, p := range extrasDirPatterns {
		if p.rx.MatchString(dir) {
			return p.kind, cleanTitle(base)
		}
	}
	for _, p := range extrasSuffixPatterns {
		if loc := p.rx.FindStringIndex(base); loc != nil {
			return p.kind, cleanTitle(base[:loc[0]])
		}
	}
	return "", ""
}
