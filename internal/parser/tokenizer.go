package parser

import (
	"regexp"
	"strconv"
	"strings"
)

type matchKind int

const (
	matchTitle matchKind = iota
	matchEpisodeTitle
	matchYear
	matchSeason
	matchEpisode
	matchVersion
	matchPart
	matchExternalID
	matchNoise
)

// match is one recognised token with its span in the full path. Weak episode
// matches come from bare numbers and may be folded back into the title by the
// fixup rules. Matches expanded from a single source token (season ranges)
// share an initiator id.
type match struct {
	kind      matchKind
	start     int
	end       int
	text      string
	num       int
	weak      bool
	initiator int
	provider  string
}

// tokens is the working state of one parse: the path, the matched spans and
// the segment under analysis (the basename without its extension).
type tokens struct {
	path     string
	segStart int
	segEnd   int
	matches  []match
	covered  []bool
	initSeq  int
}

var extensionRx = regexp.MustCompile(`\.[A-Za-z0-9]{2,4}$`)

var (
	inlineIDPatterns = []struct {
		rx       *regexp.Regexp
		provider string
	}{
		{regexp.MustCompile(`(?i)\[tmdbid[=-](\d+)\]`), "themoviedatabase"},
		{regexp.MustCompile(`(?i)\{tmdb[=-](\d+)\}`), "themoviedatabase"},
		{regexp.MustCompile(`(?i)\[imdbid[=-](tt\d+)\]`), "imdb"},
		{regexp.MustCompile(`(?i)\{imdb[=-](tt\d+)\}`), "imdb"},
		{regexp.MustCompile(`(?i)\[tvdbid[=-](\d+)\]`), "thetvdb"},
		{regexp.MustCompile(`(?i)\{tvdb[=-](\d+)\}`), "thetvdb"},
		{regexp.MustCompile(`(?i)\[anilist[=-](\d+)\]`), "anilist"},
	}

	yearRx        = regexp.MustCompile(`[\(\[\.\-_,\s]((?:19|20)\d{2})(?:[\)\]\.\-_,\s]|$)`)
	yearParenRx   = regexp.MustCompile(`[\(\[]((?:19|20)\d{2})[\)\]]`)
	seasonPackRx  = regexp.MustCompile(`(?i)(?:^|[\s._-])seasons?[\s._-]*(\d{1,3})\s*-\s*(\d{1,4})(?:$|[\s._)\]-])`)
	seasonWordRx  = regexp.MustCompile(`(?i)(?:^|[\s._-])seasons?[\s._-]*(\d{1,3})(?:$|[\s._)\]-])`)
	sxxExxRx      = regexp.MustCompile(`(?i)(?:^|[\s._\-\[\(])S(\d{1,3})((?:[\s.]?[-E]{1,2}[\s.]?\d{1,4})+)(?:$|[\s._\-\)\]])`)
	crossRx       = regexp.MustCompile(`(?i)(?:^|[\s._-])(\d{1,2})x(\d{1,4})(?:$|[\s._-])`)
	episodeWordRx = regexp.MustCompile(`(?i)(?:^|[\s._-])(?:e|ep|episode)[\s._]*(\d{1,4})(?:$|[\s._\-\)\]])`)
	dashNumberRx  = regexp.MustCompile(`(?:^|[\s._])-[\s._](\d{1,4})(?:v\d)?(?:$|[\s._\-\[\(])`)
	bareSeasonRx  = regexp.MustCompile(`(?i)(?:^|[\s._-])S(\d{1,2})(?:$|[\s._-])`)
	versionRx     = regexp.MustCompile(`(?i)[\s._-]?v(\d{1,2})(?:$|[\s._\-\[\)])`)
	partRx        = regexp.MustCompile(`(?i)[\s._-](?:part|pt|cd|disc|disk)[\s._-]?(\d{1,2})(?:$|[\s._-])`)

	numGroupRx       = regexp.MustCompile(`\d{1,4}`)
	numericRx        = regexp.MustCompile(`^\d{1,4}$`)
	trailingNumberRx = regexp.MustCompile(`[\s._](\d{1,4})$`)

	bracketGroupRx = regexp.MustCompile(`\[[^\]]*\]|\([^\)]*\)|\{[^\}]*\}`)

	noiseRx = regexp.MustCompile(`(?i)(?:^|[\s._\-\[\(])(` +
		`2160p|1080p|720p|480p|4k|uhd|hdr10?|10bit|8bit|` +
		`x26[45]|h[\s.]?26[45]|hevc|avc|av1|xvid|divx|` +
		`blu[\s._-]?ray|bdrip|brrip|web[\s._-]?dl|webrip|hdtv|dvdrip|dvd|remux|` +
		`aac(?:2[\s._-]?0)?|ac3|eac3|dts(?:[\s._-]?hd)?|truehd|atmos|flac|opus|mp3|` +
		`proper|repack|internal|limited|extended|unrated|remastered|complete|` +
		`multi|dual[\s._-]?audio|vostfr|subbed|dubbed|uncensored` +
		`)(?:$|[\s._\-\]\)])`)
)

func tokenize(path string) *tokens {
	segStart := strings.LastIndexByte(path, '/') + 1
	segEnd := len(path)
	if loc := extensionRx.FindStringIndex(path[segStart:]); loc != nil {
		segEnd = segStart + loc[0]
	}

	t := &tokens{
		path:     path,
		segStart: segStart,
		segEnd:   segEnd,
		covered:  make([]bool, len(path)),
	}

	t.scanSegment(segStart, segEnd)
	t.scanParent()
	t.scanHoles()
	t.sort()
	return t
}

// scanSegment runs the strong patterns over one path segment. Earlier
// patterns win overlaps.
func (t *tokens) scanSegment(start, end int) {
	seg := t.path[start:end]

	for _, p := range inlineIDPatterns {
		for _, loc := range p.rx.FindAllStringSubmatchIndex(seg, -1) {
			t.add(match{
				kind:     matchExternalID,
				start:    start + loc[0],
				end:      start + loc[1],
				text:     seg[loc[2]:loc[3]],
				provider: p.provider,
			})
		}
	}

	// Season packs like "Season 2 - 08". The two numbers share an initiator
	// so the multiple-season rule can rewrite them as (season, episode).
	for _, loc := range seasonPackRx.FindAllStringSubmatchIndex(seg, -1) {
		if t.overlaps(start+loc[0], start+loc[1]) {
			continue
		}
		t.initSeq++
		t.add(match{
			kind:      matchSeason,
			start:     start + loc[2],
			end:       start + loc[3],
			text:      seg[loc[2]:loc[3]],
			num:       atoi(seg[loc[2]:loc[3]]),
			initiator: t.initSeq,
		})
		t.add(match{
			kind:      matchSeason,
			start:     start + loc[4],
			end:       start + loc[5],
			text:      seg[loc[4]:loc[5]],
			num:       atoi(seg[loc[4]:loc[5]]),
			initiator: t.initSeq,
		})
		t.cover(start+loc[0], start+loc[1])
	}

	for _, loc := range sxxExxRx.FindAllStringSubmatchIndex(seg, -1) {
		if t.overlaps(start+loc[0], start+loc[1]) {
			continue
		}
		t.add(match{
			kind:  matchSeason,
			start: start + loc[2],
			end:   start + loc[3],
			text:  seg[loc[2]:loc[3]],
			num:   atoi(seg[loc[2]:loc[3]]),
		})
		// The episode block may chain several numbers (E01E02, E01-03).
		for _, nloc := range numGroupRx.FindAllStringIndex(seg[loc[4]:loc[5]], -1) {
			s := loc[4] + nloc[0]
			e := loc[4] + nloc[1]
			t.add(match{
				kind:  matchEpisode,
				start: start + s,
				end:   start + e,
				text:  seg[s:e],
				num:   atoi(seg[s:e]),
			})
		}
		t.cover(start+loc[0], start+loc[1])
	}

	for _, loc := range crossRx.FindAllStringSubmatchIndex(seg, -1) {
		if t.overlaps(start+loc[0], start+loc[1]) {
			continue
		}
		t.add(match{kind: matchSeason, start: start + loc[2], end: start + loc[3], text: seg[loc[2]:loc[3]], num: atoi(seg[loc[2]:loc[3]])})
		t.add(match{kind: matchEpisode, start: start + loc[4], end: start + loc[5], text: seg[loc[4]:loc[5]], num: atoi(seg[loc[4]:loc[5]])})
		t.cover(start+loc[0], start+loc[1])
	}

	// Parenthesised years win; a bare year is only trusted when no
	// parenthesised one exists, and then only the last occurrence, so
	// "Blade Runner 2049 (2017)" keeps 2049 in the title.
	parenYears := yearParenRx.FindAllStringSubmatchIndex(seg, -1)
	if len(parenYears) > 0 {
		for _, loc := range parenYears {
			if t.overlaps(start+loc[2], start+loc[3]) {
				continue
			}
			t.add(match{kind: matchYear, start: start + loc[2], end: start + loc[3], text: seg[loc[2]:loc[3]], num: atoi(seg[loc[2]:loc[3]])})
		}
	} else if locs := yearRx.FindAllStringSubmatchIndex(seg, -1); len(locs) > 0 {
		loc := locs[len(locs)-1]
		if !t.overlaps(start+loc[2], start+loc[3]) {
			t.add(match{kind: matchYear, start: start + loc[2], end: start + loc[3], text: seg[loc[2]:loc[3]], num: atoi(seg[loc[2]:loc[3]])})
		}
	}

	for _, loc := range seasonWordRx.FindAllStringSubmatchIndex(seg, -1) {
		if t.overlaps(start+loc[2], start+loc[3]) {
			continue
		}
		t.add(match{kind: matchSeason, start: start + loc[2], end: start + loc[3], text: seg[loc[2]:loc[3]], num: atoi(seg[loc[2]:loc[3]])})
		t.cover(start+loc[0], start+loc[1])
	}

	for _, loc := range episodeWordRx.FindAllStringSubmatchIndex(seg, -1) {
		if t.overlaps(start+loc[2], start+loc[3]) {
			continue
		}
		t.add(match{kind: matchEpisode, start: start + loc[2], end: start + loc[3], text: seg[loc[2]:loc[3]], num: atoi(seg[loc[2]:loc[3]])})
		t.cover(start+loc[0], start+loc[1])
	}

	for _, loc := range bareSeasonRx.FindAllStringSubmatchIndex(seg, -1) {
		if t.overlaps(start+loc[2], start+loc[3]) {
			continue
		}
		t.add(match{kind: matchSeason, start: start + loc[2], end: start + loc[3], text: seg[loc[2]:loc[3]], num: atoi(seg[loc[2]:loc[3]])})
		t.cover(start+loc[0], start+loc[1])
	}

	for _, loc := range dashNumberRx.FindAllStringSubmatchIndex(seg, -1) {
		if t.overlaps(start+loc[2], start+loc[3]) {
			continue
		}
		t.add(match{kind: matchEpisode, start: start + loc[2], end: start + loc[3], text: seg[loc[2]:loc[3]], num: atoi(seg[loc[2]:loc[3]])})
		t.cover(start+loc[0], start+loc[3])
	}

	for _, loc := range partRx.FindAllStringSubmatchIndex(seg, -1) {
		if t.overlaps(start+loc[2], start+loc[3]) {
			continue
		}
		t.add(match{kind: matchPart, start: start + loc[0], end: start + loc[1], text: seg[loc[2]:loc[3]], num: atoi(seg[loc[2]:loc[3]])})
		t.cover(start+loc[0], start+loc[1])
	}

	for _, loc := range versionRx.FindAllStringSubmatchIndex(seg, -1) {
		if t.overlaps(start+loc[2], start+loc[3]) {
			continue
		}
		// The span covers the leading separator so stripping it from the
		// path yields the other renditions' exact path.
		t.add(match{kind: matchVersion, start: start + loc[0], end: start + loc[3], text: seg[loc[2]:loc[3]], num: atoi(seg[loc[2]:loc[3]])})
		t.cover(start+loc[0], start+loc[3])
	}

	for _, loc := range noiseRx.FindAllStringSubmatchIndex(seg, -1) {
		if t.overlaps(start+loc[2], start+loc[3]) {
			continue
		}
		t.cover(start+loc[2], start+loc[3])
	}

	// Whatever survives inside bracket groups is release tags, checksums or
	// subtitle notes, never title material.
	for _, loc := range bracketGroupRx.FindAllStringIndex(seg, -1) {
		t.cover(start+loc[0], start+loc[1])
	}
}

// scanParent pulls season and year hints from the directory right above the
// file when the filename itself had none.
func (t *tokens) scanParent() {
	if t.segStart == 0 {
		return
	}
	parentEnd := t.segStart - 1
	parentStart := strings.LastIndexByte(t.path[:parentEnd], '/') + 1
	if parentStart >= parentEnd {
		return
	}
	parent := t.path[parentStart:parentEnd]

	if len(t.named(matchSeason)) == 0 {
		if loc := seasonWordRx.FindStringSubmatchIndex(parent); loc != nil {
			t.add(match{
				kind:  matchSeason,
				start: parentStart + loc[2],
				end:   parentStart + loc[3],
				text:  parent[loc[2]:loc[3]],
				num:   atoi(parent[loc[2]:loc[3]]),
			})
		}
	}
}

// scanHoles turns the uncovered stretches of the filename segment into title
// and episode-title matches. The stretch before the first strong match is the
// title, split on " - " into adjacent parts; later stretches after episode or
// season evidence become episode titles (numeric ones are promoted to
// episodes by the rule pipeline).
func (t *tokens) scanHoles() {
	firstMarker := t.segEnd
	hasEvidence := false
	for _, m := range t.matches {
		if m.start < t.segStart || m.start >= t.segEnd {
			continue
		}
		if m.kind == matchSeason || m.kind == matchEpisode {
			hasEvidence = true
			if m.start < firstMarker {
				firstMarker = m.start
			}
		}
	}

	holes := t.holes(t.segStart, t.segEnd)
	titleDone := false
	for _, h := range holes {
		text := t.path[h[0]:h[1]]
		trimmed := strings.Trim(text, " ._-()[]{}")
		if trimmed == "" {
			continue
		}
		if !titleDone && h[0] < firstMarker {
			t.addTitleParts(h[0], h[1], hasEvidence)
			titleDone = true
			continue
		}
		s := h[0] + strings.Index(text, trimmed)
		t.add(match{kind: matchEpisodeTitle, start: s, end: s + len(trimmed), text: trimmed})
	}
}

// addTitleParts splits the title hole on " - " separators, emitting adjacent
// title matches. A trailing bare number is split off as a weak episode when
// the segment carries other season or episode evidence; the fixup rules
// decide whether it belongs to the title after all.
func (t *tokens) addTitleParts(start, end int, evidence bool) {
	region := t.path[start:end]
	offset := 0
	for _, chunk := range strings.Split(region, " - ") {
		s := start + offset
		offset += len(chunk) + len(" - ")
		trimmed := strings.Trim(chunk, " ._-()[]{}")
		if trimmed == "" {
			continue
		}
		s += strings.Index(chunk, trimmed)
		e := s + len(trimmed)

		if evidence {
			if loc := trailingNumberRx.FindStringSubmatchIndex(trimmed); loc != nil {
				numStart := s + loc[2]
				t.add(match{
					kind:  matchEpisode,
					start: numStart,
					end:   s + loc[3],
					text:  trimmed[loc[2]:loc[3]],
					num:   atoi(trimmed[loc[2]:loc[3]]),
					weak:  true,
				})
				head := strings.Trim(trimmed[:loc[0]], " ._-")
				if head != "" {
					t.add(match{kind: matchTitle, start: s, end: s + len(head), text: head})
				}
				continue
			}
		}
		if numericRx.MatchString(trimmed) {
			// A purely numeric chunk is an episode number, weak so the
			// title rules may reclaim it.
			t.add(match{kind: matchEpisode, start: s, end: e, text: trimmed, num: atoi(trimmed), weak: true})
			continue
		}
		t.add(match{kind: matchTitle, start: s, end: e, text: trimmed})
	}
}

func (t *tokens) add(m match) {
	t.matches = append(t.matches, m)
	t.cover(m.start, m.end)
}

func (t *tokens) cover(start, end int) {
	for i := start; i < end && i < len(t.covered); i++ {
		t.covered[i] = true
	}
}

func (t *tokens) overlaps(start, end int) bool {
	for i := start; i < end && i < len(t.covered); i++ {
		if t.covered[i] {
			return true
		}
	}
	return false
}

// holes returns the uncovered byte ranges of [start, end).
func (t *tokens) holes(start, end int) [][2]int {
	var out [][2]int
	i := start
	for i < end {
		if t.covered[i] {
			i++
			continue
		}
		j := i
		for j < end && !t.covered[j] {
			j++
		}
		out = append(out, [2]int{i, j})
		i = j
	}
	return out
}

func (t *tokens) sort() {
	for i := 1; i < len(t.matches); i++ {
		for j := i; j > 0 && t.matches[j].start < t.matches[j-1].start; j-- {
			t.matches[j], t.matches[j-1] = t.matches[j-1], t.matches[j]
		}
	}
}

func (t *tokens) named(kind matchKind) []int {
	var out []int
	for i, m := range t.matches {
		if m.kind == kind {
			out = append(out, i)
		}
	}
	return out
}

func (t *tokens) remove(indexes ...int) {
	drop := make(map[int]bool, len(indexes))
	for _, i := range indexes {
		drop[i] = true
	}
	kept := t.matches[:0]
	for i, m := range t.matches {
		if !drop[i] {
			kept = append(kept, m)
		}
	}
	t.matches = kept
}

// separatorGap reports whether [start, end) holds only soft separators, the
// adjacency test of the title fixup rules. A dash is a hard separator.
func (t *tokens) separatorGap(start, end int) bool {
	for i := start; i < end; i++ {
		switch t.path[i] {
		case ' ', '.', '_':
		default:
			return false
		}
	}
	return true
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
