// 包 interpret：自然语言查询到 where 子句的转换（OpenAI、关键词兜底、两级缓存）
package interpret

import (
	"context"
	"errors"
	"strings"
)

// ErrEmptyQuery：输入为空
var ErrEmptyQuery = errors.New("empty query")

// Interpreter 输出普通 where 子句字符串，调用方按常规子句解析，不额外信任
type Interpreter interface {
	Interpret(ctx context.Context, text string) (string, error)
}

// 系统提示词：限定字段词表并给出示例
const systemPrompt = `You are a GIS assistant. Convert user natural-language queries into SQL-like 'where' clauses supported by ArcGIS Feature Services.
Only use fields: type (e.g., 'park', 'garden'), year (e.g., 2023), and change (text like "Area changed by 15.2%").
Examples:
- "Show only parks" => "type = 'park'"
- "Parks after 2021" => "type = 'park' AND year > 2021"
- "Features that changed more than 10%" => "change LIKE '%10%'"
Return only the expression without any explanation.`

// cleanClause 去掉模型常见的包裹（代码块围栏、成对引号）
func cleanClause(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if i := strings.IndexByte(s, '\n'); i >= 0 {
			s = s[i+1:]
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
		s = strings.TrimSpace(s)
	}
	for _, q := range []string{`"`, "`"} {
		if len(s) >= 2 && strings.HasPrefix(s, q) && strings.HasSuffix(s, q) {
			s = strings.TrimSpace(s[1 : len(s)-1])
		}
	}
	return s
}
