package interpret

import (
	"context"
	"regexp"
	"strings"
)

var (
	yearPattern   = regexp.MustCompile(`\b(?:(after|before|since|from|in)\s+)?(1[89]\d{2}|2\d{3})\b`)
	changePattern = regexp.MustCompile(`\b(change|changed|changes|updated)\b`)
	wordPattern   = regexp.MustCompile(`[a-z]+`)
)

// 年份前置词到比较符；未列出的（含无前置词）为 >=
var yearOps = map[string]string{
	"after":  ">",
	"before": "<",
	"in":     "=",
	"since":  ">=",
	"from":   ">=",
	"":       ">=",
}

// 文档注释：关键词兜底解释器（未配置模型密钥时使用）
// 约束：命中类别词（含复数 s）生成 type = '<cat>'；四位年份按前置词生成 year > N（after）、year < N（before）、year = N（in），其余为 year >= N；change/changed/updated 生成 change like '%changed%'；
// 各部分以 AND 连接，全部未命中时返回 1=1。
type Keywords struct {
	categories []string
}

func NewKeywords(categories []string) *Keywords {
	cs := make([]string, 0, len(categories))
	for _, c := range categories {
		if c = strings.ToLower(strings.TrimSpace(c)); c != "" {
			cs = append(cs, c)
		}
	}
	return &Keywords{categories: cs}
}

func (k *Keywords) Interpret(_ context.Context, text string) (string, error) {
	q := strings.ToLower(strings.TrimSpace(text))
	if q == "" {
		return "", ErrEmptyQuery
	}
	var parts []string
	if cat := k.category(q); cat != "" {
		parts = append(parts, "type = '"+cat+"'")
	}
	if m := yearPattern.FindStringSubmatch(q); m != nil {
		parts = append(parts, "year "+yearOps[m[1]]+" "+m[2])
	}
	if changePattern.MatchString(q) {
		parts = append(parts, "change like '%changed%'")
	}
	if len(parts) == 0 {
		return "1=1", nil
	}
	return strings.Join(parts, " AND "), nil
}

func (k *Keywords) category(q string) string {
	for _, w := range wordPattern.FindAllString(q, -1) {
		for _, c := range k.categories {
			if w == c || w == c+"s" {
				return c
			}
		}
	}
	return ""
}
