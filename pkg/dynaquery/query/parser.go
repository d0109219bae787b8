package query

import (
	"fmt"
	"strconv"
	"strings"

	mserrors "github.com/nonibytes/dynaquery/pkg/dynaquery/errors"
	"github.com/nonibytes/dynaquery/pkg/dynaquery/value"
)

// Clause is one parsed condition of a where clause.
type Clause struct {
	Term    Term
	Field   string
	Alias   string
	Operand value.Value
}

func (c Clause) String() string {
	return fmt.Sprintf("%s %s %s %s", c.Term, c.Field, c.Alias, value.Canonical(c.Operand))
}

// ParseWhere parses a flat where clause such as
//
//	Amt > 15 AND Id < 3 OR Id = 3
//	Name StartsWith "ab" AND Id In (1, 2, 3) AND Amt Between 10 AND 20
//
// Clauses are applied left to right; there is no grouping.
func ParseWhere(input string) ([]Clause, error) {
	if strings.TrimSpace(input) == "" {
		return nil, nil
	}
	tokens, err := Lex(input)
	if err != nil {
		return nil, mserrors.Wrap(mserrors.ErrQueryParse, "lex where clause", err)
	}

	p := &parser{tokens: tokens, pos: 0}
	clauses, err := p.parseClauses()
	if err != nil {
		return nil, mserrors.Wrap(mserrors.ErrQueryParse, "parse where clause", err)
	}
	return clauses, nil
}

type parser struct {
	tokens []Token
	pos    int
}

func (p *parser) parseClauses() ([]Clause, error) {
	var clauses []Clause
	term := TermAnd
	for {
		c, err := p.parseClause()
		if err != nil {
			return nil, err
		}
		c.Term = term
		clauses = append(clauses, c)

		switch p.current().Kind {
		case TokAnd:
			term = TermAnd
		case TokOr:
			term = TermOr
		case TokEOF:
			return clauses, nil
		default:
			return nil, fmt.Errorf("expected AND, OR or end of input, got %v", p.current())
		}
		p.advance()
	}
}

func (p *parser) parseClause() (Clause, error) {
	var c Clause
	switch p.current().Kind {
	case TokIdent, TokString:
		c.Field = p.current().Value
	default:
		return c, fmt.Errorf("expected field name, got %v", p.current())
	}
	p.advance()

	tok := p.current()
	switch tok.Kind {
	case TokEq, TokNe, TokGt, TokGte, TokLt, TokLte:
		c.Alias = tok.Value
	case TokIdent:
		cond, ok := Lookup(tok.Value)
		if !ok {
			return c, fmt.Errorf("unknown condition %q", tok.Value)
		}
		c.Alias = cond.Alias()
	default:
		return c, fmt.Errorf("expected condition after %q, got %v", c.Field, tok)
	}
	p.advance()

	var err error
	switch {
	case strings.EqualFold(c.Alias, AliasIn):
		c.Operand, err = p.parseList()
	case strings.EqualFold(c.Alias, AliasBetween):
		c.Operand, err = p.parseRange()
	case strings.EqualFold(c.Alias, AliasFalse):
		c.Operand = value.Null()
	default:
		c.Operand, err = p.parseLiteral()
	}
	return c, err
}

// parseList reads "(a, b, c)" or a single literal.
func (p *parser) parseList() (value.Value, error) {
	if !p.match(TokLParen) {
		v, err := p.parseLiteral()
		if err != nil {
			return value.Null(), err
		}
		return value.List(v), nil
	}
	p.advance()

	var items []value.Value
	for !p.match(TokRParen) {
		v, err := p.parseLiteral()
		if err != nil {
			return value.Null(), err
		}
		items = append(items, v)
		if p.match(TokComma) {
			p.advance()
			continue
		}
		if !p.match(TokRParen) {
			return value.Null(), fmt.Errorf("expected ',' or ')', got %v", p.current())
		}
	}
	p.advance()
	return value.List(items...), nil
}

// parseRange reads "lo AND hi" or "lo..hi".
func (p *parser) parseRange() (value.Value, error) {
	lo, err := p.parseLiteral()
	if err != nil {
		return value.Null(), err
	}
	if !p.match(TokAnd) && !p.match(TokDotDot) {
		return value.Null(), fmt.Errorf("expected AND or '..' in range, got %v", p.current())
	}
	p.advance()
	hi, err := p.parseLiteral()
	if err != nil {
		return value.Null(), err
	}
	return value.List(lo, hi), nil
}

func (p *parser) parseLiteral() (value.Value, error) {
	tok := p.current()
	switch tok.Kind {
	case TokNumber:
		p.advance()
		if i, err := strconv.ParseInt(tok.Value, 10, 64); err == nil {
			return value.Int(i), nil
		}
		return value.Real(tok.Num), nil
	case TokString:
		p.advance()
		return value.Text(tok.Value), nil
	case TokIdent:
		p.advance()
		return value.Parse(tok.Value), nil
	default:
		return value.Null(), fmt.Errorf("expected value, got %v", tok)
	}
}

func (p *parser) current() Token {
	if p.pos < len(p.tokens) {
		return p.tokens[p.pos]
	}
	return Token{Kind: TokEOF}
}

func (p *parser) advance() {
	if p.pos < len(p.tokens) {
		p.pos++
	}
}

func (p *parser) match(kind TokenKind) bool {
	return p.current().Kind == kind
}

// ApplyWhere parses input and appends its clauses to b.
func (b *Builder[T]) ApplyWhere(input string) error {
	clauses, err := ParseWhere(input)
	if err != nil {
		return err
	}
	for _, c := range clauses {
		if err := b.Where(c.Term, c.Field, c.Alias, c.Operand); err != nil {
			return err
		}
	}
	return nil
}
