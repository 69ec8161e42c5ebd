package clause

import "strings"

// Subject：参与求值的要素属性
type Subject interface {
	CategoryValue() string
	// YearValue 第二返回值为假表示年份缺失，所有年份比较均不成立
	YearValue() (int, bool)
	// ChangeText 第二返回值为假表示无变化标注，子串比较不成立
	ChangeText() (string, bool)
}

// 文档注释：对单个要素求值
// 约束：全部比较成立才为真；空谓词为真；字符串比较大小写不敏感。
func Evaluate(p Predicate, s Subject) bool {
	if p.MatchesAll() {
		return true
	}
	for _, t := range p.Terms {
		if !evalTerm(t, s) {
			return false
		}
	}
	return true
}

func evalTerm(t Term, s Subject) bool {
	switch v := t.(type) {
	case CategoryEquals:
		return strings.EqualFold(s.CategoryValue(), v.Value)
	case YearCompare:
		y, ok := s.YearValue()
		if !ok {
			return false
		}
		switch v.Op {
		case OpEQ:
			return y == v.Value
		case OpLT:
			return y < v.Value
		case OpGT:
			return y > v.Value
		case OpLE:
			return y <= v.Value
		case OpGE:
			return y >= v.Value
		}
	case ChangeContains:
		text, ok := s.ChangeText()
		if !ok {
			return false
		}
		return strings.Contains(strings.ToLower(text), strings.ToLower(v.Substring))
	}
	return false
}

// Filter 保持输入顺序返回命中项
func Filter[S Subject](p Predicate, items []S) []S {
	out := make([]S, 0, len(items))
	for _, it := range items {
		if Evaluate(p, it) {
			out = append(out, it)
		}
	}
	return out
}
