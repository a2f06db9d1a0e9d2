// Package parser extracts a metadata guess from a video file path. A regex
// tokenizer marks the known token shapes, a rule pipeline cleans up the
// usual release-name ambiguities, and the leftovers become the title.
package parser

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/solidstone/mediascan/internal/models"
)

// ParseError reports a path the parser could not make sense of. Callers
// surface it as a catalog issue instead of enqueueing the file.
type ParseError struct {
	Path   string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %q: %s", e.Path, e.Reason)
}

// Parser is safe for concurrent use once configured. Expected titles come
// from TheXEM and unlock the scene-name fixup rule.
type Parser struct {
	xemTitles map[string]bool
}

func New() *Parser {
	return &Parser{xemTitles: map[string]bool{}}
}

// SetExpectedTitles installs the normalised scene titles the fixup rule may
// merge towards. Replaces any previous set.
func (p *Parser) SetExpectedTitles(titles []string) {
	set := make(map[string]bool, len(titles))
	for _, t := range titles {
		set[Clean(t)] = true
	}
	p.xemTitles = set
}

// Parse reads a path into a Video carrying the guess and the rendering hash.
func (p *Parser) Parse(path string) (*models.Video, error) {
	if kind, name := extraKind(path); kind != "" {
		return p.extraVideo(path, kind, name), nil
	}

	t := tokenize(path)
	applyRules(t, p.xemTitles)

	title := ""
	for _, i := range t.named(matchTitle) {
		title = cleanTitle(t.matches[i].text)
		break
	}
	if title == "" {
		title = parentTitle(path)
	}
	if title == "" {
		return nil, &ParseError{Path: path, Reason: "no title found"}
	}

	var years []int
	seenYear := map[int]bool{}
	for _, i := range t.named(matchYear) {
		if y := t.matches[i].num; !seenYear[y] {
			seenYear[y] = true
			years = append(years, y)
		}
	}

	var seasons, episodes []int
	for _, i := range t.named(matchSeason) {
		seasons = append(seasons, t.matches[i].num)
	}
	for _, i := range t.named(matchEpisode) {
		episodes = append(episodes, t.matches[i].num)
	}

	pairs, err := zipEpisodes(path, seasons, episodes)
	if err != nil {
		return nil, err
	}

	externalID := map[string]string{}
	for _, i := range t.named(matchExternalID) {
		m := t.matches[i]
		externalID[m.provider] = m.text
	}

	kind := models.GuessKindMovie
	if len(pairs) > 0 {
		kind = models.GuessKindEpisode
	}

	version := 1
	var part *int
	var stripped []match
	for _, i := range t.named(matchVersion) {
		version = t.matches[i].num
		stripped = append(stripped, t.matches[i])
	}
	for _, i := range t.named(matchPart) {
		v := t.matches[i].num
		part = &v
		stripped = append(stripped, t.matches[i])
	}

	return &models.Video{
		Path:          path,
		RenderingHash: renderingHash(path, stripped),
		Part:          part,
		Version:       version,
		Guess: models.Guess{
			Title:      title,
			Kind:       kind,
			Years:      years,
			Episodes:   pairs,
			ExternalID: externalID,
			From:       "mediascan",
			Raw: map[string]any{
				"seasons":  seasons,
				"episodes": episodes,
			},
		},
	}, nil
}

func (p *Parser) extraVideo(path, kind, name string) *models.Video {
	k := kind
	return &models.Video{
		Path:          path,
		RenderingHash: renderingHash(path, nil),
		Version:       1,
		Guess: models.Guess{
			Title:      name,
			Kind:       models.GuessKindExtra,
			ExtraKind:  &k,
			ExternalID: map[string]string{},
			From:       "mediascan",
		},
	}
}

// zipEpisodes pairs seasons with episodes, broadcasting a singleton side
// across the other. Mismatched plurals are ambiguous.
func zipEpisodes(path string, seasons, episodes []int) ([]models.GuessEpisode, error) {
	switch {
	case len(episodes) == 0 && len(seasons) == 0:
		return nil, nil
	case len(episodes) == 0:
		if len(seasons) > 1 {
			return nil, &ParseError{Path: path, Reason: "multiple seasons without episodes"}
		}
		return nil, nil
	case len(seasons) == 0:
		out := make([]models.GuessEpisode, len(episodes))
		for i, e := range episodes {
			out[i] = models.GuessEpisode{Episode: e}
		}
		return out, nil
	case len(seasons) == 1:
		s := seasons[0]
		out := make([]models.GuessEpisode, len(episodes))
		for i, e := range episodes {
			season := s
			out[i] = models.GuessEpisode{Season: &season, Episode: e}
		}
		return out, nil
	case len(episodes) == 1:
		e := episodes[0]
		out := make([]models.GuessEpisode, len(seasons))
		for i, s := range seasons {
			season := s
			out[i] = models.GuessEpisode{Season: &season, Episode: e}
		}
		return out, nil
	case len(seasons) == len(episodes):
		out := make([]models.GuessEpisode, len(episodes))
		for i, e := range episodes {
			season := seasons[i]
			out[i] = models.GuessEpisode{Season: &season, Episode: e}
		}
		return out, nil
	default:
		return nil, &ParseError{Path: path, Reason: fmt.Sprintf("%d seasons for %d episodes", len(seasons), len(episodes))}
	}
}

// renderingHash hashes the path with the version and part spans spliced out,
// so all renditions of one release share a hash.
func renderingHash(path string, stripped []match) string {
	if len(stripped) == 0 {
		sum := sha256.Sum256([]byte(path))
		return hex.EncodeToString(sum[:])
	}
	keep := make([]bool, len(path))
	for i := range keep {
		keep[i] = true
	}
	for _, m := range stripped {
		for i := m.start; i < m.end && i < len(keep); i++ {
			keep[i] = false
		}
	}
	var b strings.Builder
	for i := 0; i < len(path); i++ {
		if keep[i] {
			b.WriteByte(path[i])
		}
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

var separatorRunRx = regexp.MustCompile(`[\s._]+`)

func cleanTitle(s string) string {
	s = separatorRunRx.ReplaceAllString(s, " ")
	return strings.Trim(s, " -")
}

// parentTitle falls back to the directory name when the filename is nothing
// but episode markers ("Show Name/S01E01.mkv").
func parentTitle(path string) string {
	dir := filepath.Base(filepath.Dir(path))
	if dir == "." || dir == "/" || dir == "" {
		return ""
	}
	if seasonWordRx.MatchString(dir) {
		dir = filepath.Base(filepath.Dir(filepath.Dir(path)))
		if dir == "." || dir == "/" || dir == "" {
			return ""
		}
	}
	dir = yearRx.ReplaceAllString(dir, " ")
	dir = bracketGroupRx.ReplaceAllString(dir, " ")
	return cleanTitle(dir)
}

var parenGroupRx = regexp.MustCompile(`\([^)]*\)`)
var cleanSepRx = regexp.MustCompile(`[\s._\-:]+`)

// Clean normalises a title for comparisons: lowercase, parenthesised groups
// removed, separator runs collapsed to one space.
func Clean(s string) string {
	s = strings.ToLower(s)
	s = parenGroupRx.ReplaceAllString(s, " ")
	s = cleanSepRx.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
