package query

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// TokenKind classifies a where-clause token.
type TokenKind int

const (
	TokIdent TokenKind = iota
	TokString
	TokNumber
	TokAnd
	TokOr
	TokLParen
	TokRParen
	TokComma
	TokEq
	TokNe
	TokGt
	TokGte
	TokLt
	TokLte
	TokDotDot
	TokEOF
)

var tokenNames = [...]string{
	TokIdent:  "Ident",
	TokString: "String",
	TokNumber: "Number",
	TokAnd:    "And",
	TokOr:     "Or",
	TokLParen: "LParen",
	TokRParen: "RParen",
	TokComma:  "Comma",
	TokEq:     "Eq",
	TokNe:     "Ne",
	TokGt:     "Gt",
	TokGte:    "Gte",
	TokLt:     "Lt",
	TokLte:    "Lte",
	TokDotDot: "DotDot",
	TokEOF:    "EOF",
}

func (k TokenKind) String() string {
	if k >= 0 && int(k) < len(tokenNames) {
		return tokenNames[k]
	}
	return "Unknown"
}

// Token is one lexeme. Comparison operators carry the condition alias they
// stand for in Value; numbers keep their source text in Value and the parsed
// form in Num.
type Token struct {
	Kind  TokenKind
	Value string
	Num   float64
}

func (t Token) String() string {
	if t.Value == "" {
		return t.Kind.String()
	}
	return fmt.Sprintf("%s(%s)", t.Kind, t.Value)
}

// Longer spellings come first so "<=" never lexes as "<" "=".
var operators = []struct {
	text string
	tok  Token
}{
	{"..", Token{Kind: TokDotDot}},
	{"==", Token{Kind: TokEq, Value: AliasEquals}},
	{"!=", Token{Kind: TokNe, Value: AliasNotEqual}},
	{"<>", Token{Kind: TokNe, Value: AliasNotEqual}},
	{">=", Token{Kind: TokGte, Value: AliasGreaterEqual}},
	{"<=", Token{Kind: TokLte, Value: AliasLessEqual}},
	{"&&", Token{Kind: TokAnd}},
	{"||", Token{Kind: TokOr}},
	{"=", Token{Kind: TokEq, Value: AliasEquals}},
	{">", Token{Kind: TokGt, Value: AliasGreater}},
	{"<", Token{Kind: TokLt, Value: AliasLess}},
	{"&", Token{Kind: TokAnd}},
	{"|", Token{Kind: TokOr}},
	{"(", Token{Kind: TokLParen}},
	{")", Token{Kind: TokRParen}},
	{",", Token{Kind: TokComma}},
}

var escapes = map[byte]byte{'n': '\n', 't': '\t', 'r': '\r'}

// Lex splits a where clause into tokens. The result always ends with TokEOF.
func Lex(input string) ([]Token, error) {
	var toks []Token
	pos := 0
	for {
		for pos < len(input) {
			r, w := utf8.DecodeRuneInString(input[pos:])
			if !unicode.IsSpace(r) {
				break
			}
			pos += w
		}
		if pos == len(input) {
			return append(toks, Token{Kind: TokEOF}), nil
		}
		tok, n, err := lexOne(input[pos:])
		if err != nil {
			return nil, fmt.Errorf("offset %d: %w", pos, err)
		}
		toks = append(toks, tok)
		pos += n
	}
}

// lexOne reads the token at the start of s and returns it with its length.
func lexOne(s string) (Token, int, error) {
	r, _ := utf8.DecodeRuneInString(s)
	switch {
	case r == '"' || r == '\'':
		return lexQuoted(s, s[0])
	case isDigit(s[0]), s[0] == '-' && len(s) > 1 && isDigit(s[1]):
		return lexNumber(s)
	case unicode.IsLetter(r) || r == '_':
		return lexWord(s)
	}
	for _, op := range operators {
		if strings.HasPrefix(s, op.text) {
			return op.tok, len(op.text), nil
		}
	}
	return Token{}, 0, fmt.Errorf("unexpected character %q", r)
}

func lexQuoted(s string, quote byte) (Token, int, error) {
	var sb strings.Builder
	for i := 1; i < len(s); i++ {
		switch c := s[i]; {
		case c == quote:
			return Token{Kind: TokString, Value: sb.String()}, i + 1, nil
		case c == '\\' && i+1 < len(s):
			i++
			if e, ok := escapes[s[i]]; ok {
				sb.WriteByte(e)
			} else {
				sb.WriteByte(s[i])
			}
		default:
			sb.WriteByte(c)
		}
	}
	return Token{}, 0, fmt.Errorf("unterminated string")
}

// lexNumber reads an optionally negative decimal. A dot followed by another
// dot is the range operator and ends the number.
func lexNumber(s string) (Token, int, error) {
	n := 0
	if s[0] == '-' {
		n++
	}
	n += countDigits(s[n:])
	if strings.HasPrefix(s[n:], ".") && !strings.HasPrefix(s[n:], "..") {
		n++
		n += countDigits(s[n:])
	}
	text := s[:n]
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return Token{}, 0, fmt.Errorf("invalid number %q", text)
	}
	return Token{Kind: TokNumber, Value: text, Num: f}, n, nil
}

func lexWord(s string) (Token, int, error) {
	n := 0
	for n < len(s) {
		r, w := utf8.DecodeRuneInString(s[n:])
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			break
		}
		n += w
	}
	word := s[:n]
	switch {
	case strings.EqualFold(word, "and"):
		return Token{Kind: TokAnd}, n, nil
	case strings.EqualFold(word, "or"):
		return Token{Kind: TokOr}, n, nil
	}
	return Token{Kind: TokIdent, Value: word}, n, nil
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func countDigits(s string) int {
	n := 0
	for n < len(s) && isDigit(s[n]) {
		n++
	}
	return n
}
