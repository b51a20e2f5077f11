package cache

import (
	"net/url"
	"sort"
	"strings"
)

// 精确匹配的追踪参数；utm_ 与 mc_ 前缀另行处理
var trackingParams = map[string]struct{}{
	"gclid":  {},
	"fbclid": {},
	"mc_cid": {},
	"mc_eid": {},
}

// 各 scheme 的默认端口，规范化时省略
var defaultPorts = map[string]string{
	"http":  "80",
	"https": "443",
	"ws":    "80",
	"wss":   "443",
	"ftp":   "21",
}

type queryPair struct {
	key   string
	value string
}

// NormalizeURL 计算缓存键使用的规范化 URL，无法解析时返回空字符串
func NormalizeURL(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	if port := u.Port(); port != "" && defaultPorts[u.Scheme] == port {
		u.Host = strings.TrimSuffix(u.Host, ":"+port)
	}
	u.Fragment = ""
	u.RawFragment = ""

	pairs := parseQuery(u.RawQuery)
	kept := pairs[:0]
	for _, p := range pairs {
		if isTrackingParam(p.key) {
			continue
		}
		kept = append(kept, p)
	}
	sort.SliceStable(kept, func(i, j int) bool {
		ki, kj := strings.ToLower(kept[i].key), strings.ToLower(kept[j].key)
		if ki != kj {
			return ki < kj
		}
		return kept[i].value < kept[j].value
	})

	var q strings.Builder
	for i, p := range kept {
		if i > 0 {
			q.WriteByte('&')
		}
		q.WriteString(formEscape(p.key))
		q.WriteByte('=')
		q.WriteString(formEscape(p.value))
	}
	u.RawQuery = q.String()
	u.ForceQuery = false

	u.Path = stripTrailingSlash(u.Path)
	if u.RawPath != "" {
		u.RawPath = stripTrailingSlash(u.RawPath)
	}
	return u.String()
}

func isTrackingParam(key string) bool {
	k := strings.ToLower(key)
	if strings.HasPrefix(k, "utm_") || strings.HasPrefix(k, "mc_") {
		return true
	}
	_, ok := trackingParams[k]
	return ok
}

// parseQuery 按出现顺序解析查询串，url.ParseQuery 会丢失顺序
func parseQuery(raw string) []queryPair {
	var out []queryPair
	for _, part := range strings.Split(raw, "&") {
		if part == "" {
			continue
		}
		k, v, _ := strings.Cut(part, "=")
		out = append(out, queryPair{key: unescape(k), value: unescape(v)})
	}
	return out
}

// unescape 表单解码："+" 视为空格，非法的 % 序列原样保留
func unescape(s string) string {
	if !strings.ContainsAny(s, "+%") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '+':
			b.WriteByte(' ')
		case c == '%' && i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]):
			b.WriteByte(unhex(s[i+1])<<4 | unhex(s[i+2]))
			i += 2
		default:
			b.WriteByte(c)
		}
	}
	return strings.ToValidUTF8(b.String(), "\uFFFD")
}

// formEscape application/x-www-form-urlencoded 编码：仅字母数字与 *-._ 保持原样，空格写为 "+"
func formEscape(s string) string {
	const hexDigits = "0123456789ABCDEF"
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9',
			c == '*', c == '-', c == '.', c == '_':
			b.WriteByte(c)
		case c == ' ':
			b.WriteByte('+')
		default:
			b.WriteByte('%')
			b.WriteByte(hexDigits[c>>4])
			b.WriteByte(hexDigits[c&0x0f])
		}
	}
	return b.String()
}

func isHex(c byte) bool {
	return '0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F'
}

func unhex(c byte) byte {
	switch {
	case '0' <= c && c <= '9':
		return c - '0'
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}

func stripTrailingSlash(p string) string {
	if p == "" || p == "/" {
		return "/"
	}
	p = strings.TrimRight(p, "/")
	if p == "" {
		return "/"
	}
	return p
}
