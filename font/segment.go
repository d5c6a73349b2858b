package font

import (
	"github.com/go-text/typesetting/language"
	"golang.org/x/text/unicode/bidi"
)

// Segment is a contiguous run of cell text sharing one direction and one
// script, ready to be shaped as a unit. Start and End are rune indices
// into the segmented slice, End exclusive.
type Segment struct {
	Start  int
	End    int
	Script language.Script
	RTL    bool
}

// SegmentRunes splits a row's text into direction and script runs. The
// base direction is left to right, matching grid storage order.
func SegmentRunes(runes []rune) []Segment {
	if len(runes) == 0 {
		return nil
	}
	levels := bidiLevels(runes)
	scripts := resolveScripts(runes)

	segs := make([]Segment, 0, 4)
	start := 0
	for i := 1; i < len(runes); i++ {
		if levels[i] == levels[start] && scripts[i] == scripts[start] {
			continue
		}
		segs = append(segs, Segment{
			Start:  start,
			End:    i,
			Script: scripts[start],
			RTL:    levels[start]%2 == 1,
		})
		start = i
	}
	segs = append(segs, Segment{
		Start:  start,
		End:    len(runes),
		Script: scripts[start],
		RTL:    levels[start]%2 == 1,
	})
	return segs
}

func bidiLevels(runes []rune) []int {
	levels := make([]int, len(runes))

	p := bidi.Paragraph{}
	_, _ = p.SetString(string(runes), bidi.DefaultDirection(bidi.LeftToRight))
	ordering, err := p.Order()
	if err != nil {
		return levels
	}

	// run.Pos() returns rune indices, end inclusive.
	for i := 0; i < ordering.NumRuns(); i++ {
		run := ordering.Run(i)
		startRune, endRune := run.Pos()
		level := 0
		if run.Direction() == bidi.RightToLeft {
			level = 1
		}
		for j := startRune; j <= endRune && j < len(levels); j++ {
			levels[j] = level
		}
	}
	return levels
}

// resolveScripts assigns each rune a concrete script, folding Inherited
// marks into the preceding script and Common punctuation into the
// surrounding run so that "fn(x)" shapes as a single segment.
func resolveScripts(runes []rune) []language.Script {
	scripts := make([]language.Script, len(runes))
	for i, r := range runes {
		scripts[i] = language.LookupScript(r)
	}

	last := language.Latin
	for i := range scripts {
		switch scripts[i] {
		case language.Inherited, language.Unknown:
			scripts[i] = last
		case language.Common:
		default:
			last = scripts[i]
		}
	}

	last = language.Common
	for i := range scripts {
		if scripts[i] != language.Common {
			last = scripts[i]
			continue
		}
		if last != language.Common {
			scripts[i] = last
			continue
		}
		if next := nextConcreteScript(scripts, i+1); next != language.Common {
			scripts[i] = next
		} else {
			scripts[i] = language.Latin
		}
	}
	return scripts
}

func nextConcreteScript(scripts []language.Script, start int) language.Script {
	for j := start; j < len(scripts); j++ {
		if scripts[j] != language.Common {
			return scripts[j]
		}
	}
	return language.Common
}
