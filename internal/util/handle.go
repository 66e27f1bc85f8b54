package util

import (
	"strings"
	"unicode"
)

// DeriveUsername 根据邮箱、姓名和用户ID生成默认用户名
//
// 优先使用邮箱前缀，其次是名字，最后回退到 user_ 前缀；均追加用户ID的后四位。
func DeriveUsername(id, email, fullName string) string {
	suffix := id
	if len(suffix) > 4 {
		suffix = suffix[len(suffix)-4:]
	}

	if local, _, ok := strings.Cut(email, "@"); ok && local != "" {
		return sanitizeHandle(local) + "_" + suffix
	}

	if first := strings.Fields(fullName); len(first) > 0 {
		if h := sanitizeHandle(strings.ToLower(first[0])); h != "" {
			return h + "_" + suffix
		}
	}

	return "user_" + suffix
}

func sanitizeHandle(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '.' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
