package dsl

import (
	"fmt"
	"strconv"
	"strings"
	"text/scanner"

	"github.com/cockroachdb/errors"
)

// ErrSyntax matches every error returned by Parse.
var ErrSyntax = errors.New("dsl: syntax error")

// SyntaxError reports a malformed query with the byte offset of the problem.
type SyntaxError struct {
	Pos int
	Msg string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("dsl: %s at offset %d", e.Msg, e.Pos)
}

func (e *SyntaxError) Is(target error) bool {
	return target == ErrSyntax
}

var accessByName = map[string]Access{
	"in":     AccessIn,
	"out":    AccessOut,
	"inout":  AccessInOut,
	"filter": AccessFilter,
	"none":   AccessNone,
}

type parser struct {
	s    scanner.Scanner
	tok  rune
	text string
	pos  int
	err  error
}

// Parse parses a query expression. Errors match ErrSyntax and carry a
// *SyntaxError.
func Parse(src string) (*Query, error) {
	p := &parser{}
	p.s.Init(strings.NewReader(src))
	p.s.Mode = scanner.ScanIdents
	p.s.Error = func(s *scanner.Scanner, msg string) {
		if p.err == nil {
			p.err = p.errorAt(s.Pos().Offset, msg)
		}
	}
	p.next()
	q := &Query{}
	if p.tok == scanner.EOF {
		return nil, p.errorAt(0, "empty query")
	}
	for {
		t, err := p.term()
		if err != nil {
			return nil, err
		}
		q.Terms = append(q.Terms, t)
		switch p.tok {
		case scanner.EOF:
			if p.err != nil {
				return nil, p.err
			}
			return q, nil
		case ',':
			p.next()
		case '|':
			p.next()
			if p.tok != '|' {
				return nil, p.unexpected("'|'")
			}
			p.next()
			last := &q.Terms[len(q.Terms)-1]
			if last.Oper != OperAnd {
				return nil, p.errorAt(last.Pos, fmt.Sprintf("%s term cannot be part of an or chain", last.Oper))
			}
			last.Oper = OperOr
		default:
			return nil, p.unexpected("',' or '||'")
		}
		if p.tok == scanner.EOF {
			return nil, p.errorAt(p.pos, "expected term after separator")
		}
	}
}

func (p *parser) next() {
	p.tok = p.s.Scan()
	p.text = p.s.TokenText()
	p.pos = p.s.Position.Offset
	if p.tok == scanner.EOF {
		p.pos = p.s.Pos().Offset
	}
}

func (p *parser) errorAt(pos int, msg string) error {
	return &SyntaxError{Pos: pos, Msg: msg}
}

func (p *parser) unexpected(want string) error {
	if p.err != nil {
		return p.err
	}
	var got string
	switch p.tok {
	case scanner.EOF:
		got = "end of input"
	case scanner.Ident:
		got = strconv.Quote(p.text)
	default:
		got = strconv.QuoteRune(p.tok)
	}
	return p.errorAt(p.pos, fmt.Sprintf("expected %s, found %s", want, got))
}

func (p *parser) expect(tok rune, want string) error {
	if p.tok != tok {
		return p.unexpected(want)
	}
	p.next()
	return nil
}

func (p *parser) term() (Term, error) {
	t := Term{Pos: p.pos}
	if p.tok == '[' {
		p.next()
		if p.tok != scanner.Ident {
			return t, p.unexpected("access")
		}
		a, ok := accessByName[p.text]
		if !ok {
			return t, p.errorAt(p.pos, fmt.Sprintf("unknown access %q", p.text))
		}
		t.Access = a
		p.next()
		if err := p.expect(']', "']'"); err != nil {
			return t, err
		}
	}
	switch p.tok {
	case '!':
		t.Oper = OperNot
		p.next()
	case '?':
		t.Oper = OperOptional
		p.next()
	}
	if p.tok == '*' {
		p.next()
		if p.tok != scanner.Ident && p.tok != '(' {
			return t, p.errorAt(t.Pos, "wildcard can only be used inside a pair")
		}
		t.Mutable = true
	}
	if p.tok == '(' {
		p.next()
		first, err := p.name(true)
		if err != nil {
			return t, err
		}
		if err := p.expect(',', "','"); err != nil {
			return t, err
		}
		second, err := p.name(true)
		if err != nil {
			return t, err
		}
		if err := p.expect(')', "')'"); err != nil {
			return t, err
		}
		t.First, t.Second = first, second
	} else {
		name, err := p.name(false)
		if err != nil {
			return t, err
		}
		t.First = name
	}
	if p.tok == '(' {
		p.next()
		if err := p.source(&t); err != nil {
			return t, err
		}
		if err := p.expect(')', "')'"); err != nil {
			return t, err
		}
	}
	return t, nil
}

// name parses a dotted identifier.
func (p *parser) name(wildcard bool) (string, error) {
	if wildcard && p.tok == '*' {
		p.next()
		return Wildcard, nil
	}
	if p.tok != scanner.Ident {
		return "", p.unexpected("name")
	}
	name := p.text
	p.next()
	for p.tok == '.' {
		p.next()
		if p.tok != scanner.Ident {
			return "", p.unexpected("name")
		}
		name += "." + p.text
		p.next()
	}
	return name, nil
}

func (p *parser) source(t *Term) error {
	if p.tok == '$' {
		t.Source = SourceSingleton
		p.next()
		return nil
	}
	if p.tok != scanner.Ident {
		return p.unexpected("source")
	}
	switch p.text {
	case "self":
		t.Source = SourceSelf
		p.next()
	case "up", "cascade":
		t.Source = SourceUp
		if p.text == "cascade" {
			t.Source = SourceCascade
		}
		p.next()
		if p.tok == scanner.Ident {
			rel, err := p.name(false)
			if err != nil {
				return err
			}
			t.SourceName = rel
		}
	default:
		name, err := p.name(false)
		if err != nil {
			return err
		}
		t.Source = SourceEntity
		t.SourceName = name
	}
	return nil
}
