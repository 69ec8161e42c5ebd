package clause

import "strings"

// 文档注释：where 子句词法分析
// 约束：标识符统一小写；字符串保留原文，'' 表示转义的单引号；未闭合字符串产出 ILLEGAL。
type Lexer struct {
	input   string
	pos     int
	readPos int
	ch      byte
}

func NewLexer(input string) *Lexer {
	l := &Lexer{input: input}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.readPos >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPos]
	}
	l.pos = l.readPos
	l.readPos++
}

func (l *Lexer) peekChar() byte {
	if l.readPos >= len(l.input) {
		return 0
	}
	return l.input[l.readPos]
}

// NextToken 返回下一个词法单元；输入结束后持续返回 EOF
func (l *Lexer) NextToken() Token {
	l.skipWhitespace()
	start := l.pos
	var tok Token

	switch l.ch {
	case 0:
		return Token{Type: TokenEOF, Pos: start}
	case '=':
		tok = Token{Type: TokenEQ, Literal: "="}
	case '<':
		switch l.peekChar() {
		case '=':
			l.readChar()
			tok = Token{Type: TokenLE, Literal: "<="}
		case '>':
			l.readChar()
			tok = Token{Type: TokenNE, Literal: "<>"}
		default:
			tok = Token{Type: TokenLT, Literal: "<"}
		}
	case '>':
		if l.peekChar() == '=' {
			l.readChar()
			tok = Token{Type: TokenGE, Literal: ">="}
		} else {
			tok = Token{Type: TokenGT, Literal: ">"}
		}
	case '!':
		if l.peekChar() == '=' {
			l.readChar()
			tok = Token{Type: TokenNE, Literal: "!="}
		} else {
			tok = Token{Type: TokenIllegal, Literal: "!"}
		}
	case '(':
		tok = Token{Type: TokenLParen, Literal: "("}
	case ')':
		tok = Token{Type: TokenRParen, Literal: ")"}
	case ',':
		tok = Token{Type: TokenComma, Literal: ","}
	case '%':
		tok = Token{Type: TokenPercent, Literal: "%"}
	case '\'':
		lit, ok := l.readString()
		if !ok {
			return Token{Type: TokenIllegal, Literal: lit, Pos: start}
		}
		return Token{Type: TokenString, Literal: lit, Pos: start}
	default:
		switch {
		case isLetter(l.ch):
			return Token{Type: TokenIdent, Literal: strings.ToLower(l.readIdentifier()), Pos: start}
		case isDigit(l.ch):
			return Token{Type: TokenNumber, Literal: l.readNumber(), Pos: start}
		default:
			tok = Token{Type: TokenIllegal, Literal: string(l.ch)}
		}
	}
	tok.Pos = start
	l.readChar()
	return tok
}

// Tokenize 读取全部词法单元，不含结尾 EOF
func Tokenize(input string) []Token {
	l := NewLexer(input)
	var out []Token
	for {
		tok := l.NextToken()
		if tok.Type == TokenEOF {
			return out
		}
		out = append(out, tok)
	}
}

func (l *Lexer) skipWhitespace() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
		l.readChar()
	}
}

func (l *Lexer) readString() (string, bool) {
	var sb strings.Builder
	l.readChar() // 跳过起始引号
	for {
		switch l.ch {
		case 0:
			return sb.String(), false
		case '\'':
			if l.peekChar() == '\'' {
				sb.WriteByte('\'')
				l.readChar()
				l.readChar()
				continue
			}
			l.readChar()
			return sb.String(), true
		}
		sb.WriteByte(l.ch)
		l.readChar()
	}
}

func (l *Lexer) readIdentifier() string {
	start := l.pos
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	return l.input[start:l.pos]
}

func (l *Lexer) readNumber() string {
	start := l.pos
	for isDigit(l.ch) {
		l.readChar()
	}
	return l.input[start:l.pos]
}

func isLetter(ch byte) bool {
	return ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z' || ch == '_' || ch >= 0x80
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}
