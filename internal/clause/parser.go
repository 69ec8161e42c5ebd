package clause

import (
	"strconv"
	"strings"
)

// 文档注释：解析 where 子句为谓词（全函数，从不失败）
// 背景：上游自然语言翻译无法保证语法纯净，按三条可选原子规则扫描词法单元，未识别的片段（含 AND/OR）直接跳过。
// 约束：
//   - type = '<v>' 仅首个非空值生效
//   - year <op> <int> 每次出现各成一条比较，op ∈ {=,<,>,<=,>=}
//   - change like '<s>' 仅首个生效；去掉一个前导 % 与一个尾随 %，剩余为空则忽略
//   - 任意位置出现 1 = 1 即为全匹配，其余片段不再参与
func Parse(where string) Predicate {
	toks := Tokenize(where)
	var (
		p          Predicate
		haveType   bool
		haveChange bool
	)
	for i := 0; i < len(toks); {
		switch {
		case isUniversal(toks, i):
			return Predicate{Universal: true}

		case at(toks, i, TokenIdent, "type") && at(toks, i+1, TokenEQ, "") && at(toks, i+2, TokenString, ""):
			if v := toks[i+2].Literal; !haveType && v != "" {
				p.Terms = append(p.Terms, CategoryEquals{Value: v})
				haveType = true
			}
			i += 3

		case at(toks, i, TokenIdent, "year") && i+2 < len(toks) && toks[i+2].Type == TokenNumber:
			op, ok := compareOp(toks[i+1].Type)
			if !ok {
				i++
				continue
			}
			if n, err := strconv.Atoi(toks[i+2].Literal); err == nil {
				p.Terms = append(p.Terms, YearCompare{Op: op, Value: n})
			}
			i += 3

		case at(toks, i, TokenIdent, "change") && at(toks, i+1, TokenIdent, "like") && at(toks, i+2, TokenString, ""):
			if s := stripWildcards(toks[i+2].Literal); !haveChange && s != "" {
				p.Terms = append(p.Terms, ChangeContains{Substring: s})
				haveChange = true
			}
			i += 3

		default:
			i++
		}
	}
	return p
}

func isUniversal(toks []Token, i int) bool {
	return at(toks, i, TokenNumber, "1") && at(toks, i+1, TokenEQ, "") && at(toks, i+2, TokenNumber, "1")
}

// at 判断位置 i 的单元类型，lit 非空时同时比较字面量
func at(toks []Token, i int, typ TokenType, lit string) bool {
	if i >= len(toks) || toks[i].Type != typ {
		return false
	}
	return lit == "" || toks[i].Literal == lit
}

func compareOp(t TokenType) (CompareOp, bool) {
	switch t {
	case TokenEQ:
		return OpEQ, true
	case TokenLT:
		return OpLT, true
	case TokenGT:
		return OpGT, true
	case TokenLE:
		return OpLE, true
	case TokenGE:
		return OpGE, true
	}
	return 0, false
}

func stripWildcards(s string) string {
	s = strings.TrimPrefix(s, "%")
	s = strings.TrimSuffix(s, "%")
	return s
}
