package config

import "fmt"

// FieldError 提供字段路径与错误原因，便于 CLI 向用户反馈。
type FieldError struct {
	Field  string
	Reason string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// newFieldError 创建包含字段路径与原因的 error，便于 CLI 定位。
func newFieldError(field, reason string) error {
	return FieldError{Field: field, Reason: reason}
}

// globalField 拼接 Global.Field 形式的字段路径，并附带对应环境变量名。
func globalField(field string) string {
	if env, ok := envBindings[field]; ok {
		return fmt.Sprintf("Global.%s(%s)", field, env)
	}
	return "Global." + field
}
