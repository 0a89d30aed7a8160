package grammar

import (
	"fmt"
	"regexp/syntax"
	"unicode"
)

// FromRegex builds a canonical grammar whose start rule matches exactly the
// given regular expression, anchored as the full input. The pattern is
// lowered to the expression IR directly; no grammar text is synthesized, so
// the pattern may contain any characters.
func FromRegex(pattern string) (*Grammar, error) {
	n, err := regexNode(pattern)
	if err != nil {
		return nil, err
	}
	return &Grammar{Start: "start", Rules: map[string]Node{"start": n}}, nil
}

func regexNode(pattern string) (Node, error) {
	re, err := syntax.Parse(pattern, syntax.Perl)
	if err != nil {
		return nil, fmt.Errorf("parse regex: %w", err)
	}
	return lowerRegexp(trimAnchors(re.Simplify()))
}

// trimAnchors rewrites ^ at the start and $ at the end of the expression to
// empty matches; the whole pattern is anchored as the full input, so edge
// anchors are no-ops there. Anywhere else they change the match set (a
// mid-pattern anchor matches nothing) and are left for lowerRegexp to
// reject.
func trimAnchors(re *syntax.Regexp) *syntax.Regexp {
	empty := &syntax.Regexp{Op: syntax.OpEmptyMatch}
	switch re.Op {
	case syntax.OpBeginText, syntax.OpEndText:
		return empty
	case syntax.OpAlternate:
		for i, sub := range re.Sub {
			re.Sub[i] = trimAnchors(sub)
		}
	case syntax.OpConcat:
		if len(re.Sub) > 0 && re.Sub[0].Op == syntax.OpBeginText {
			re.Sub[0] = empty
		}
		if n := len(re.Sub) - 1; n >= 0 && re.Sub[n].Op == syntax.OpEndText {
			re.Sub[n] = empty
		}
	}
	return re
}

func lowerRegexp(re *syntax.Regexp) (Node, error) {
	switch re.Op {
	case syntax.OpEmptyMatch:
		return Literal(""), nil
	case syntax.OpLiteral:
		if re.Flags&syntax.FoldCase != 0 {
			parts := make(Concat, 0, len(re.Rune))
			for _, r := range re.Rune {
				parts = append(parts, foldClass(r))
			}
			return parts, nil
		}
		return Literal(string(re.Rune)), nil
	case syntax.OpCharClass:
		if len(re.Rune) == 0 {
			return nil, fmt.Errorf("regex contains an empty character class")
		}
		c := make(Class, 0, len(re.Rune)/2)
		for i := 0; i+1 < len(re.Rune); i += 2 {
			c = append(c, Range{Lo: re.Rune[i], Hi: re.Rune[i+1]})
		}
		return c, nil
	case syntax.OpAnyChar:
		return Class{{Lo: 0, Hi: unicode.MaxRune}}, nil
	case syntax.OpAnyCharNotNL:
		return Class{{Lo: 0, Hi: '\n' - 1}, {Lo: '\n' + 1, Hi: unicode.MaxRune}}, nil
	case syntax.OpConcat:
		parts := make(Concat, 0, len(re.Sub))
		for _, sub := range re.Sub {
			n, err := lowerRegexp(sub)
			if err != nil {
				return nil, err
			}
			parts = append(parts, n)
		}
		return parts, nil
	case syntax.OpAlternate:
		branches := make(Alt, 0, len(re.Sub))
		for _, sub := range re.Sub {
			n, err := lowerRegexp(sub)
			if err != nil {
				return nil, err
			}
			branches = append(branches, n)
		}
		return branches, nil
	case syntax.OpStar:
		return lowerRepeat(re.Sub[0], 0, -1)
	case syntax.OpPlus:
		return lowerRepeat(re.Sub[0], 1, -1)
	case syntax.OpQuest:
		return lowerRepeat(re.Sub[0], 0, 1)
	case syntax.OpRepeat:
		return lowerRepeat(re.Sub[0], re.Min, re.Max)
	case syntax.OpCapture:
		return lowerRegexp(re.Sub[0])
	case syntax.OpBeginText, syntax.OpEndText:
		// Edge anchors were rewritten by trimAnchors; what remains is
		// mid-pattern and matches nothing.
		return nil, fmt.Errorf("regex anchor is only supported at the pattern edges")
	default:
		return nil, fmt.Errorf("regex operator %v is not supported", re.Op)
	}
}

func lowerRepeat(sub *syntax.Regexp, min, max int) (Node, error) {
	body, err := lowerRegexp(sub)
	if err != nil {
		return nil, err
	}
	return Repeat{Body: body, Min: min, Max: max}, nil
}

// foldClass returns the class of case-folding equivalents of r.
func foldClass(r rune) Class {
	c := Class{{Lo: r, Hi: r}}
	for f := unicode.SimpleFold(r); f != r; f = unicode.SimpleFold(f) {
		c = append(c, Range{Lo: f, Hi: f})
	}
	return c
}
