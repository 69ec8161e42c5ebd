// 包 clause：受限 where 子句的解析与求值
package clause

import (
	"strconv"
	"strings"
)

// CompareOp 年份比较运算符
type CompareOp int

const (
	OpEQ CompareOp = iota
	OpLT
	OpGT
	OpLE
	OpGE
)

func (o CompareOp) String() string {
	switch o {
	case OpLT:
		return "<"
	case OpGT:
		return ">"
	case OpLE:
		return "<="
	case OpGE:
		return ">="
	}
	return "="
}

// Term 原子比较（封闭接口）
type Term interface {
	isTerm()
	String() string
}

// CategoryEquals：type = '<Value>'，大小写不敏感
type CategoryEquals struct {
	Value string
}

// YearCompare：year <Op> <Value>
type YearCompare struct {
	Op    CompareOp
	Value int
}

// ChangeContains：change like '%<Substring>%'，大小写不敏感的子串包含
type ChangeContains struct {
	Substring string
}

func (CategoryEquals) isTerm() {}
func (YearCompare) isTerm()    {}
func (ChangeContains) isTerm() {}

func (c CategoryEquals) String() string { return "type = " + quote(c.Value) }
func (y YearCompare) String() string {
	return "year " + y.Op.String() + " " + strconv.Itoa(y.Value)
}
func (c ChangeContains) String() string { return "change like " + quote("%"+c.Substring+"%") }

// 文档注释：原子比较的合取
// 约束：Universal 为真时忽略 Terms；Terms 为空时匹配全部要素。
type Predicate struct {
	Universal bool
	Terms     []Term
}

// String 返回规范化后的子句文本
func (p Predicate) String() string {
	if p.Universal || len(p.Terms) == 0 {
		return "1=1"
	}
	parts := make([]string, len(p.Terms))
	for i, t := range p.Terms {
		parts[i] = t.String()
	}
	return strings.Join(parts, " AND ")
}

// MatchesAll：无需逐条求值即可判定全部命中
func (p Predicate) MatchesAll() bool {
	return p.Universal || len(p.Terms) == 0
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
