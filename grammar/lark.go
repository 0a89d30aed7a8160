package grammar

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
)

// ParseLark parses grammar text in the lark-style notation:
//
//	start: "true" | "false"
//	pair : key ":" value
//	key  : /[a-z]+/
//
// Rules are one per line; a line beginning with "|" continues the previous
// rule. Literals are double-quoted, terminals may be regexes between
// slashes, and items take the postfix operators *, +, ? and ~ n..m.
// Lines beginning with "//" are comments; "%" directives are ignored.
// The start rule must be named "start".
func ParseLark(src string) (*Grammar, error) {
	type rawRule struct {
		name string
		text string
	}
	var rules []rawRule

	for i, line := range strings.Split(src, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "" || strings.HasPrefix(trimmed, "//"):
			continue
		case strings.HasPrefix(trimmed, "%"):
			slog.Debug("ignoring grammar directive", "line", i+1, "directive", trimmed)
			continue
		case strings.HasPrefix(trimmed, "|"):
			if len(rules) == 0 {
				return nil, fmt.Errorf("line %d: continuation with no preceding rule", i+1)
			}
			rules[len(rules)-1].text += " " + trimmed
			continue
		}

		name, rest, ok := strings.Cut(trimmed, ":")
		if !ok {
			return nil, fmt.Errorf("line %d: expected \"name: expansion\"", i+1)
		}
		name = strings.TrimSpace(name)
		name = strings.TrimLeft(name, "?!")
		if !isRuleName(name) {
			return nil, fmt.Errorf("line %d: invalid rule name %q", i+1, name)
		}
		rules = append(rules, rawRule{name: name, text: rest})
	}

	g := &Grammar{Start: "start", Rules: make(map[string]Node, len(rules))}
	for _, r := range rules {
		if _, ok := g.Rules[r.name]; ok {
			return nil, fmt.Errorf("rule %q is defined twice", r.name)
		}
		p := &larkParser{s: r.text}
		n, err := p.parseAlt()
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", r.name, err)
		}
		p.skipSpace()
		if !p.eof() {
			return nil, fmt.Errorf("rule %q: unexpected %q", r.name, p.rest())
		}
		g.Rules[r.name] = n
	}

	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

func isRuleName(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		ok := r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || i > 0 && r >= '0' && r <= '9'
		if !ok {
			return false
		}
	}
	return true
}

type larkParser struct {
	s   string
	pos int
}

func (p *larkParser) eof() bool { return p.pos >= len(p.s) }

func (p *larkParser) rest() string { return p.s[p.pos:] }

func (p *larkParser) peek() byte {
	if p.eof() {
		return 0
	}
	return p.s[p.pos]
}

func (p *larkParser) skipSpace() {
	for !p.eof() {
		switch {
		case p.s[p.pos] == ' ' || p.s[p.pos] == '\t':
			p.pos++
		case strings.HasPrefix(p.s[p.pos:], "//"):
			p.pos = len(p.s)
		default:
			return
		}
	}
}

func (p *larkParser) parseAlt() (Node, error) {
	first, err := p.parseSeq()
	if err != nil {
		return nil, err
	}
	branches := Alt{first}
	for {
		p.skipSpace()
		if p.peek() != '|' {
			break
		}
		p.pos++
		n, err := p.parseSeq()
		if err != nil {
			return nil, err
		}
		branches = append(branches, n)
	}
	if len(branches) == 1 {
		return branches[0], nil
	}
	return branches, nil
}

func (p *larkParser) parseSeq() (Node, error) {
	var parts Concat
	for {
		p.skipSpace()
		if p.eof() || p.peek() == '|' || p.peek() == ')' {
			break
		}
		n, err := p.parseItem()
		if err != nil {
			return nil, err
		}
		parts = append(parts, n)
	}
	switch len(parts) {
	case 0:
		return Literal(""), nil
	case 1:
		return parts[0], nil
	}
	return parts, nil
}

func (p *larkParser) parseItem() (Node, error) {
	n, err := p.parseAtom()
	if err != nil {
		return nil, err
	}
	for {
		p.skipSpace()
		switch p.peek() {
		case '*':
			p.pos++
			n = Repeat{Body: n, Min: 0, Max: -1}
		case '+':
			p.pos++
			n = Repeat{Body: n, Min: 1, Max: -1}
		case '?':
			p.pos++
			n = Repeat{Body: n, Min: 0, Max: 1}
		case '~':
			p.pos++
			min, max, err := p.parseRepeatBounds()
			if err != nil {
				return nil, err
			}
			n = Repeat{Body: n, Min: min, Max: max}
		default:
			return n, nil
		}
	}
}

func (p *larkParser) parseRepeatBounds() (int, int, error) {
	p.skipSpace()
	min, err := p.parseInt()
	if err != nil {
		return 0, 0, fmt.Errorf("after ~: %w", err)
	}
	if !strings.HasPrefix(p.rest(), "..") {
		return min, min, nil
	}
	p.pos += 2
	max, err := p.parseInt()
	if err != nil {
		return 0, 0, fmt.Errorf("after ~ %d..: %w", min, err)
	}
	if max < min {
		return 0, 0, fmt.Errorf("repeat bounds %d..%d are inverted", min, max)
	}
	return min, max, nil
}

func (p *larkParser) parseInt() (int, error) {
	start := p.pos
	for !p.eof() && p.s[p.pos] >= '0' && p.s[p.pos] <= '9' {
		p.pos++
	}
	if start == p.pos {
		return 0, fmt.Errorf("expected a number")
	}
	return strconv.Atoi(p.s[start:p.pos])
}

func (p *larkParser) parseAtom() (Node, error) {
	p.skipSpace()
	switch c := p.peek(); {
	case c == '"':
		return p.parseString()
	case c == '/':
		return p.parseRegex()
	case c == '(':
		p.pos++
		n, err := p.parseAlt()
		if err != nil {
			return nil, err
		}
		p.skipSpace()
		if p.peek() != ')' {
			return nil, fmt.Errorf("missing closing parenthesis")
		}
		p.pos++
		return n, nil
	case c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z':
		start := p.pos
		for !p.eof() {
			c := p.s[p.pos]
			if c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' {
				p.pos++
				continue
			}
			break
		}
		return Ref(p.s[start:p.pos]), nil
	case p.eof():
		return nil, fmt.Errorf("unexpected end of rule")
	default:
		return nil, fmt.Errorf("unexpected character %q", string(c))
	}
}

func (p *larkParser) parseString() (Node, error) {
	p.pos++ // opening quote
	var b strings.Builder
	for !p.eof() {
		c := p.s[p.pos]
		switch c {
		case '"':
			p.pos++
			return Literal(b.String()), nil
		case '\\':
			r, n, err := unescapeAt(p.s[p.pos:])
			if err != nil {
				return nil, err
			}
			b.WriteRune(r)
			p.pos += n
		default:
			b.WriteByte(c)
			p.pos++
		}
	}
	return nil, fmt.Errorf("unterminated string literal")
}

func (p *larkParser) parseRegex() (Node, error) {
	p.pos++ // opening slash
	var b strings.Builder
	for !p.eof() {
		c := p.s[p.pos]
		switch c {
		case '/':
			p.pos++
			pattern := b.String()
			for !p.eof() && p.s[p.pos] >= 'a' && p.s[p.pos] <= 'z' {
				switch p.s[p.pos] {
				case 'i':
					pattern = "(?i)" + pattern
				case 's':
					pattern = "(?s)" + pattern
				default:
					return nil, fmt.Errorf("unsupported regex flag %q", string(p.s[p.pos]))
				}
				p.pos++
			}
			return regexNode(pattern)
		case '\\':
			if p.pos+1 >= len(p.s) {
				return nil, fmt.Errorf("trailing backslash in regex")
			}
			if p.s[p.pos+1] == '/' {
				b.WriteByte('/')
			} else {
				b.WriteByte('\\')
				b.WriteByte(p.s[p.pos+1])
			}
			p.pos += 2
		default:
			b.WriteByte(c)
			p.pos++
		}
	}
	return nil, fmt.Errorf("unterminated regex")
}

// unescapeAt decodes the escape sequence at the start of s (which begins
// with a backslash), returning the rune and the input length consumed.
func unescapeAt(s string) (rune, int, error) {
	if len(s) < 2 {
		return 0, 0, fmt.Errorf("trailing backslash")
	}
	switch s[1] {
	case 'n':
		return '\n', 2, nil
	case 't':
		return '\t', 2, nil
	case 'r':
		return '\r', 2, nil
	case 'f':
		return '\f', 2, nil
	case 'b':
		return '\b', 2, nil
	case '0':
		return 0, 2, nil
	case '\\', '"', '\'', '/':
		return rune(s[1]), 2, nil
	case 'x':
		if len(s) < 4 {
			return 0, 0, fmt.Errorf("incomplete \\x escape")
		}
		v, err := strconv.ParseUint(s[2:4], 16, 8)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid \\x escape: %w", err)
		}
		return rune(v), 4, nil
	case 'u':
		if len(s) < 6 {
			return 0, 0, fmt.Errorf("incomplete \\u escape")
		}
		v, err := strconv.ParseUint(s[2:6], 16, 32)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid \\u escape: %w", err)
		}
		return rune(v), 6, nil
	default:
		return 0, 0, fmt.Errorf("unknown escape \\%s", string(s[1]))
	}
}
