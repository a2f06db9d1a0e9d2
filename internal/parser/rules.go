package parser

import (
	"log"
	"strings"
)

// The post-process rules run in a fixed order over the token list. Each rule
// mirrors a known failure mode of the tokenizer on real release names.

func applyRules(t *tokens, xemTitles map[string]bool) {
	unlistTitles(t)
	episodeTitlePromotion(t)
	titleNumberFixup(t)
	multipleSeasonRule(t)
	xemFixup(t, xemTitles)
	seasonYearDedup(t)
}

// unlistTitles joins consecutive title matches into one, as produced by
// " - " splits inside a single segment ("Demon Slayer - Kimetsu no Yaiba").
// Titles separated by another match are not part of the main title.
func unlistTitles(t *tokens) {
	titles := t.named(matchTitle)
	if len(titles) <= 1 {
		return
	}

	joined := t.matches[titles[0]]
	absorbed := []int{titles[0]}
	for _, ti := range titles[1:] {
		if next, ok := t.nextMatch(joined.end); !ok || next != ti {
			log.Printf("[parser] ignoring potential part of title: %q", t.matches[ti].text)
			continue
		}
		joined.text = joined.text + " - " + t.matches[ti].text
		joined.end = t.matches[ti].end
		absorbed = append(absorbed, ti)
	}
	if len(absorbed) == 1 {
		return
	}
	t.remove(absorbed...)
	t.add(joined)
	t.sort()
}

// episodeTitlePromotion turns a purely numeric episode title into the episode
// number ("... S3 - 05" where 05 landed in the title slot).
func episodeTitlePromotion(t *tokens) {
	for _, i := range t.named(matchEpisodeTitle) {
		m := t.matches[i]
		if !numericRx.MatchString(m.text) {
			continue
		}
		t.matches[i] = match{
			kind:  matchEpisode,
			start: m.start,
			end:   m.end,
			text:  m.text,
			num:   atoi(m.text),
			weak:  true,
		}
	}
	t.sort()
}

// titleNumberFixup folds a bare number back into the title it trails
// ("Zom 100", "Mob Psycho 100"). Only weak episode matches directly after a
// title, with nothing but soft separators in between, qualify.
func titleNumberFixup(t *tokens) {
	for {
		fixed := false
		for _, ei := range t.named(matchEpisode) {
			ep := t.matches[ei]
			if !ep.weak {
				continue
			}
			pi, ok := t.prevMatch(ep.start)
			if !ok {
				continue
			}
			title := t.matches[pi]
			if title.kind != matchTitle || !t.separatorGap(title.end, ep.start) {
				continue
			}

			merged := title
			merged.text = title.text + " " + ep.text
			merged.end = ep.end

			// Text trailing the number without a dash belongs to the title
			// too ("Mob Psycho 100 II").
			if tail, tailEnd, ok := t.holeAfter(ep.end); ok {
				if i := strings.Index(tail, "-"); i >= 0 {
					tail = tail[:i]
					tailEnd = ep.end + i
				}
				if tail = strings.Trim(tail, " ._"); tail != "" {
					merged.text = merged.text + " " + tail
					merged.end = tailEnd
				}
			}

			t.remove(pi, ei)
			t.add(merged)
			t.sort()
			fixed = true
			break
		}
		if !fixed {
			return
		}
	}
}

// multipleSeasonRule rewrites season ranges produced by one source token:
// "Season 2 - 08" tokenizes as two seasons sharing an initiator, and means
// season 2, episode 8.
func multipleSeasonRule(t *tokens) {
	seasons := t.named(matchSeason)
	if len(seasons) < 2 {
		return
	}
	initiator := t.matches[seasons[0]].initiator
	if initiator == 0 {
		return
	}
	for _, si := range seasons[1:] {
		if t.matches[si].initiator != initiator {
			return
		}
	}
	for _, si := range seasons[1:] {
		m := t.matches[si]
		t.matches[si] = match{
			kind:  matchEpisode,
			start: m.start,
			end:   m.end,
			text:  m.text,
			num:   m.num,
		}
	}
	t.sort()
}

// xemFixup merges the title with the following title or season match when the
// combined form is a known scene name ("Owarimonogatari S2").
func xemFixup(t *tokens, xemTitles map[string]bool) {
	if len(xemTitles) == 0 {
		return
	}
	titles := t.named(matchTitle)
	if len(titles) == 0 {
		return
	}
	ti := titles[0]
	title := t.matches[ti]

	ni, ok := t.nextMatch(title.end)
	if !ok {
		return
	}
	next := t.matches[ni]
	if next.kind != matchTitle && next.kind != matchSeason {
		return
	}

	combined := strings.Trim(t.path[title.start:next.end], " ._-")
	if !xemTitles[Clean(combined)] {
		return
	}
	t.remove(ti, ni)
	t.add(match{kind: matchTitle, start: title.start, end: next.end, text: combined})
	t.sort()
}

// seasonYearDedup drops a lone season equal to the lone year: "One Piece
// (1999)" is the show's year, not season 1999.
func seasonYearDedup(t *tokens) {
	seasons := t.named(matchSeason)
	years := t.named(matchYear)
	if len(seasons) == 1 && len(years) == 1 && t.matches[seasons[0]].num == t.matches[years[0]].num {
		t.remove(seasons[0])
	}
}

// nextMatch returns the index of the first match starting at or after pos.
func (t *tokens) nextMatch(pos int) (int, bool) {
	best := -1
	for i, m := range t.matches {
		if m.kind == matchNoise || m.start < pos {
			continue
		}
		if best == -1 || m.start < t.matches[best].start {
			best = i
		}
	}
	return best, best != -1
}

// prevMatch returns the index of the last match ending at or before pos.
func (t *tokens) prevMatch(pos int) (int, bool) {
	best := -1
	for i, m := range t.matches {
		if m.kind == matchNoise || m.end > pos {
			continue
		}
		if best == -1 || m.end > t.matches[best].end {
			best = i
		}
	}
	return best, best != -1
}

// holeAfter returns the uncovered text starting exactly at pos within the
// file segment.
func (t *tokens) holeAfter(pos int) (string, int, bool) {
	if pos >= t.segEnd || pos < 0 || pos >= len(t.covered) || t.covered[pos] {
		return "", 0, false
	}
	end := pos
	for end < t.segEnd && !t.covered[end] {
		end++
	}
	return t.path[pos:end], end, true
}
