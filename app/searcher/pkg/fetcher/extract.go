package fetcher

import (
	"net/url"
	"regexp"
	"strings"

	readability "github.com/go-shiori/go-readability"
)

const fallbackPageURL = "https://local/"

// extractReadable 使用 readability 提取正文，失败或为空时返回空字符串
func extractReadable(html, pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil || u.Host == "" {
		u, _ = url.Parse(fallbackPageURL)
	}
	article, err := readability.FromReader(strings.NewReader(html), u)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(article.TextContent)
}

type replacement struct {
	re   *regexp.Regexp
	with string
}

// 顺序敏感
var stripRules = []replacement{
	{regexp.MustCompile(`(?i)<script\b[^>]*>[\s\S]*?</script>`), " "},
	{regexp.MustCompile(`(?i)<style\b[^>]*>[\s\S]*?</style>`), " "},
	{regexp.MustCompile(`(?i)<\s*br\s*/?>`), "\n"},
	{regexp.MustCompile(`(?i)<\s*/p\s*>`), "\n"},
	{regexp.MustCompile(`(?i)<\s*/li\s*>`), "\n"},
	{regexp.MustCompile(`(?i)<\s*p\b[^>]*>`), ""},
	{regexp.MustCompile(`(?i)<\s*li\b[^>]*>`), "- "},
	{regexp.MustCompile(`<[^>]+>`), " "},
	{regexp.MustCompile(`(?i)&nbsp;`), " "},
	{regexp.MustCompile(`(?i)&amp;`), "&"},
	{regexp.MustCompile(`(?i)&lt;`), "<"},
	{regexp.MustCompile(`(?i)&gt;`), ">"},
	{regexp.MustCompile(`(?i)&quot;`), `"`},
	{regexp.MustCompile(`(?i)&#39;`), "'"},
	{regexp.MustCompile(`\r`), "\n"},
	{regexp.MustCompile(`[ \t\f\v]+`), " "},
	{regexp.MustCompile(`\n\s+\n`), "\n\n"},
}

// stripHTML 确定性的标签剥离，作为 readability 的兜底
func stripHTML(html string) string {
	s := html
	for _, r := range stripRules {
		s = r.re.ReplaceAllLiteralString(s, r.with)
	}
	return strings.TrimSpace(s)
}

// extractText 按内容类型提取正文
func extractText(raw, contentType, pageURL string) string {
	if contentType == "text/plain" {
		return raw
	}
	if text := extractReadable(raw, pageURL); text != "" {
		return text
	}
	return stripHTML(raw)
}
