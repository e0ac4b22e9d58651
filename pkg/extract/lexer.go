package extract

import (
	"strings"
)

// line is one source line after lexing. Code has comments removed; Masked
// additionally blanks the contents of string literals so that regexes never
// match inside them.
type line struct {
	No     int
	Code   string
	Masked string
	Depth  int // brace depth at the start of the line
	Indent int // leading whitespace width, tabs count as four
	Parens int // open parens and brackets at the start of the line
	InStr  bool
}

// blank reports whether the line holds no code
func (l line) blank() bool {
	return strings.TrimSpace(l.Masked) == ""
}

// topLevel reports whether the line starts outside any block
func (l line) topLevel(style BlockStyle) bool {
	if l.InStr {
		return false
	}
	if style == Indent {
		return l.Indent == 0 && l.Parens == 0
	}
	return l.Depth == 0
}

type lexState int

const (
	stCode lexState = iota
	stLineComment
	stBlockComment
	stString
)

// lex splits src into lines while tracking comments, strings and nesting
func lex(src string, p *Profile) []line {
	var (
		lines   []line
		code    strings.Builder
		masked  strings.Builder
		state   = stCode
		closer  string // end delimiter of the current comment or string
		raw     bool
		multi   bool
		depth   int
		blocks  []bool // open braces; false for transparent ones
		parens  int
		current = line{No: 1}
	)

	flush := func() {
		current.Code = code.String()
		current.Masked = masked.String()
		current.Indent = indentWidth(current.Code)
		lines = append(lines, current)
		code.Reset()
		masked.Reset()
		current = line{No: current.No + 1, Depth: depth, Parens: parens, InStr: state == stString || state == stBlockComment}
	}

	for i := 0; i < len(src); {
		c := src[i]
		if c == '\n' {
			switch state {
			case stLineComment:
				state = stCode
			case stString:
				if !multi {
					state = stCode
				}
			}
			flush()
			i++
			continue
		}

		switch state {
		case stLineComment:
			i++
			continue

		case stBlockComment:
			if strings.HasPrefix(src[i:], closer) {
				state = stCode
				i += len(closer)
				code.WriteByte(' ')
				masked.WriteByte(' ')
				continue
			}
			i++
			continue

		case stString:
			if c == '\\' && !raw && i+1 < len(src) && src[i+1] != '\n' {
				code.WriteString(src[i : i+2])
				masked.WriteString("  ")
				i += 2
				continue
			}
			if strings.HasPrefix(src[i:], closer) {
				code.WriteString(closer)
				masked.WriteString(closer)
				i += len(closer)
				state = stCode
				continue
			}
			code.WriteByte(c)
			masked.WriteByte(' ')
			i++
			continue
		}

		if tok, ok := hasAnyPrefix(src[i:], p.LineComments); ok {
			state = stLineComment
			i += len(tok)
			continue
		}
		if pair, ok := blockCommentAt(src[i:], p.BlockComments); ok {
			state = stBlockComment
			closer = pair[1]
			i += len(pair[0])
			continue
		}
		if tok, ok := hasAnyPrefix(src[i:], p.MultilineQuotes); ok {
			state, closer, multi, raw = stString, tok, true, false
			code.WriteString(tok)
			masked.WriteString(tok)
			i += len(tok)
			continue
		}
		if tok, ok := hasAnyPrefix(src[i:], p.RawQuotes); ok {
			state, closer, multi, raw = stString, tok, true, true
			code.WriteString(tok)
			masked.WriteString(tok)
			i += len(tok)
			continue
		}
		if tok, ok := hasAnyPrefix(src[i:], p.Quotes); ok {
			state, closer, multi, raw = stString, tok, false, false
			code.WriteString(tok)
			masked.WriteString(tok)
			i += len(tok)
			continue
		}

		switch c {
		case '{':
			nests := !opensTransparent(p, masked.String(), lines)
			blocks = append(blocks, nests)
			if nests {
				depth++
			}
		case '}':
			if n := len(blocks); n > 0 {
				if blocks[n-1] {
					depth--
				}
				blocks = blocks[:n-1]
			}
		case '(', '[':
			parens++
		case ')', ']':
			if parens > 0 {
				parens--
			}
		}
		code.WriteByte(c)
		masked.WriteByte(c)
		i++
	}
	if code.Len() > 0 || masked.Len() > 0 || len(lines) == 0 {
		flush()
	}
	return lines
}

// opensTransparent reports whether a brace following before on the
// current line, or alone on it after the previous line, opens a block
// whose contents stay at the outer depth
func opensTransparent(p *Profile, before string, lines []line) bool {
	if p.Transparent == nil {
		return false
	}
	if strings.TrimSpace(before) == "" && len(lines) > 0 {
		before = lines[len(lines)-1].Masked
	}
	return p.Transparent.MatchString(before)
}

func hasAnyPrefix(s string, prefixes []string) (string, bool) {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return p, true
		}
	}
	return "", false
}

func blockCommentAt(s string, pairs [][2]string) ([2]string, bool) {
	for _, pair := range pairs {
		if strings.HasPrefix(s, pair[0]) {
			return pair, true
		}
	}
	return [2]string{}, false
}

func indentWidth(s string) int {
	w := 0
	for _, r := range s {
		switch r {
		case ' ':
			w++
		case '\t':
			w += 4
		default:
			return w
		}
	}
	return w
}

// joined concatenates masked text from lines[i] on, starting at column
// col, until the bracket opened at col is closed. It returns the inner
// text, the remainder of the closing line and the index of that line.
func joined(lines []line, i, col int) (inner, tail string, end int, ok bool) {
	var b strings.Builder
	depth := 0
	for j := i; j < len(lines) && j < i+64; j++ {
		text := lines[j].Masked
		start := 0
		if j == i {
			start = col
		}
		for k := start; k < len(text); k++ {
			switch text[k] {
			case '(', '[', '{':
				depth++
				if depth == 1 {
					continue
				}
			case ')', ']', '}':
				depth--
				if depth == 0 {
					return b.String(), text[k+1:], j, true
				}
			}
			b.WriteByte(text[k])
		}
		b.WriteByte(' ')
	}
	return "", "", i, false
}
