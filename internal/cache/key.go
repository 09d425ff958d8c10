package cache

import (
	"net/url"
	"strings"
)

// Param 保留查询参数的原始值与是否出现，缺失与空值在缓存键中需要区分。
type Param struct {
	Value   string
	Present bool
}

// Query 是参与缓存键计算的查询参数，其它参数一律忽略。
type Query struct {
	Width  Param
	Height Param
	Format Param
}

// Key 构建渲染请求的规范化签名：folder/file + 出现过的 w/h/format 原始值。
// format 统一转为大写；各分量均做转义，避免拼接歧义。
func Key(folder, file string, q Query) string {
	var b strings.Builder
	b.WriteString(url.PathEscape(strings.Trim(folder, "/")))
	b.WriteByte('/')
	b.WriteString(url.PathEscape(file))

	sep := byte('?')
	write := func(name string, p Param, upper bool) {
		if !p.Present {
			return
		}
		value := p.Value
		if upper {
			value = strings.ToUpper(value)
		}
		b.WriteByte(sep)
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(value))
		sep = '&'
	}
	write("w", q.Width, false)
	write("h", q.Height, false)
	write("format", q.Format, true)
	return b.String()
}
