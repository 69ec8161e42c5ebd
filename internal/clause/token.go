package clause

// TokenType 词法单元类型
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenIllegal
	TokenIdent  // 已转小写
	TokenString // 单引号内原文
	TokenNumber // 仅十进制数字
	TokenEQ     // =
	TokenNE     // <> 或 !=
	TokenLT     // <
	TokenGT     // >
	TokenLE     // <=
	TokenGE     // >=
	TokenLParen
	TokenRParen
	TokenComma
	TokenPercent
)

// Token 词法单元
type Token struct {
	Type    TokenType
	Literal string
	Pos     int
}

func (t TokenType) String() string {
	switch t {
	case TokenEOF:
		return "EOF"
	case TokenIllegal:
		return "ILLEGAL"
	case TokenIdent:
		return "IDENT"
	case TokenString:
		return "STRING"
	case TokenNumber:
		return "NUMBER"
	case TokenEQ:
		return "="
	case TokenNE:
		return "<>"
	case TokenLT:
		return "<"
	case TokenGT:
		return ">"
	case TokenLE:
		return "<="
	case TokenGE:
		return ">="
	case TokenLParen:
		return "("
	case TokenRParen:
		return ")"
	case TokenComma:
		return ","
	case TokenPercent:
		return "%"
	}
	return "?"
}
