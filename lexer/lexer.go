// Package lexer turns MyPL source text into a stream of tokens.
package lexer

import (
	"strings"
	"unicode"

	"github.com/mypl-lang/mypl/internal/diag"
	"github.com/mypl-lang/mypl/token"
)

// Lexer scans a fixed input string one byte at a time, tracking 1-based
// line and column positions for diagnostics.
type Lexer struct {
	input        string
	position     int
	readPosition int
	ch           byte
	line         int
	column       int
}

func New(input string) *Lexer {
	l := &Lexer{input: input, line: 1, column: 0}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.readPosition >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPosition]
	}
	l.position = l.readPosition
	l.readPosition++
	if l.ch == '\n' {
		l.line++
		l.column = 0
	} else {
		l.column++
	}
}

func (l *Lexer) peekChar() byte {
	if l.readPosition >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition]
}

// Next returns the next token in the stream, or a *diag.LexerError.
func (l *Lexer) Next() (token.Token, error) {
	l.skipWhitespaceAndComments()

	switch {
	case l.ch == 0:
		return token.New(token.EOS, "", l.line, l.column), nil
	case l.ch == '(':
		return l.simple(token.LPAREN), nil
	case l.ch == ')':
		return l.simple(token.RPAREN), nil
	case l.ch == '{':
		return l.simple(token.LBRACE), nil
	case l.ch == '}':
		return l.simple(token.RBRACE), nil
	case l.ch == '[':
		return l.simple(token.LBRACKET), nil
	case l.ch == ']':
		return l.simple(token.RBRACKET), nil
	case l.ch == ';':
		return l.simple(token.SEMICOLON), nil
	case l.ch == '.':
		return l.simple(token.DOT), nil
	case l.ch == ',':
		return l.simple(token.COMMA), nil
	case l.ch == '+':
		return l.simple(token.PLUS), nil
	case l.ch == '-':
		return l.simple(token.MINUS), nil
	case l.ch == '*':
		return l.simple(token.TIMES), nil
	case l.ch == '/':
		return l.simple(token.DIVIDE), nil
	case l.ch == '=':
		return l.twoChar('=', token.EQUAL, token.ASSIGN), nil
	case l.ch == '<':
		return l.twoChar('=', token.LESS_EQ, token.LESS), nil
	case l.ch == '>':
		return l.twoChar('=', token.GREATER_EQ, token.GREATER), nil
	case l.ch == '!':
		if l.peekChar() == '=' {
			startLine, startCol := l.line, l.column
			l.readChar()
			l.readChar()
			return token.New(token.NOT_EQUAL, "!=", startLine, startCol), nil
		}
		return token.Token{}, diag.NewLexerError(l.line, l.column, "expecting '!=' found '!%c'", l.peekChar())
	case l.ch == '"':
		return l.readString()
	case l.ch == '\'':
		return l.readChar_()
	case isDigit(l.ch):
		return l.readNumber()
	case isLetter(l.ch):
		return l.readIdentifier(), nil
	default:
		return token.Token{}, diag.NewLexerError(l.line, l.column, "unexpected character '%c'", l.ch)
	}
}

func (l *Lexer) simple(kind token.Kind) token.Token {
	t := token.New(kind, string(l.ch), l.line, l.column)
	l.readChar()
	return t
}

func (l *Lexer) twoChar(second byte, twoKind, oneKind token.Kind) token.Token {
	line, col := l.line, l.column
	first := l.ch
	if l.peekChar() == second {
		l.readChar()
		l.readChar()
		return token.New(twoKind, string(first)+string(second), line, col)
	}
	l.readChar()
	return token.New(oneKind, string(first), line, col)
}

func (l *Lexer) skipWhitespaceAndComments() {
	for {
		for l.ch == ' ' || l.ch == '\t' || l.ch == '\r' || l.ch == '\n' {
			l.readChar()
		}
		if l.ch == '#' {
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
			continue
		}
		break
	}
}

func (l *Lexer) readNumber() (token.Token, error) {
	line, col := l.line, l.column
	start := l.position

	if l.ch == '0' && isDigit(l.peekChar()) {
		return token.Token{}, diag.NewLexerError(line, col, "leading zero in number")
	}
	for isDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' {
		l.readChar()
		if !isDigit(l.ch) {
			return token.Token{}, diag.NewLexerError(l.line, l.column, "missing digit in %s", l.input[start:l.position])
		}
		for isDigit(l.ch) {
			l.readChar()
		}
		return token.New(token.DOUBLE_VAL, l.input[start:l.position], line, col), nil
	}
	return token.New(token.INT_VAL, l.input[start:l.position], line, col), nil
}

func (l *Lexer) readIdentifier() token.Token {
	line, col := l.line, l.column
	start := l.position
	for isLetter(l.ch) || isDigit(l.ch) || l.ch == '_' {
		l.readChar()
	}
	lexeme := l.input[start:l.position]
	if kind, ok := token.Keywords[lexeme]; ok {
		return token.New(kind, lexeme, line, col)
	}
	return token.New(token.ID, lexeme, line, col)
}

func (l *Lexer) readString() (token.Token, error) {
	line, col := l.line, l.column
	var sb strings.Builder
	for {
		l.readChar()
		if l.ch == 0 || l.ch == '\n' {
			return token.Token{}, diag.NewLexerError(line, col, "non-terminated string")
		}
		if l.ch == '"' {
			l.readChar()
			break
		}
		sb.WriteByte(l.ch)
	}
	return token.New(token.STRING_VAL, sb.String(), line, col), nil
}

// readChar_ reads a char literal 'X' (or the two-character escapes '\n'
// and '\t', which are kept as two-character lexemes and never
// re-interpreted at runtime).
func (l *Lexer) readChar_() (token.Token, error) {
	line, col := l.line, l.column
	l.readChar() // consume opening '
	if l.ch == '\'' {
		return token.Token{}, diag.NewLexerError(line, col, "empty character literal")
	}
	var lexeme string
	if l.ch == '\\' && (l.peekChar() == 'n' || l.peekChar() == 't') {
		lexeme = string(l.ch) + string(l.peekChar())
		l.readChar()
		l.readChar()
	} else {
		if l.ch == 0 || l.ch == '\n' {
			return token.Token{}, diag.NewLexerError(line, col, "non-terminated character")
		}
		lexeme = string(l.ch)
		l.readChar()
	}
	if l.ch != '\'' {
		return token.Token{}, diag.NewLexerError(line, col, "expecting ' found multi-character char")
	}
	l.readChar()
	return token.New(token.CHAR_VAL, lexeme, line, col), nil
}

func isLetter(ch byte) bool { return unicode.IsLetter(rune(ch)) }
func isDigit(ch byte) bool  { return ch >= '0' && ch <= '9' }
