package render

import (
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/iWorld-y/web_searcher/app/searcher/pkg/model"
)

const (
	headerLine = "[CONTEXT_PACK ucp-1]"
	typeLine   = "type: web_search_results"
	footerLine = "[/CONTEXT_PACK]"

	// 少于该行数时不再整块删除
	minLinesForBlockRemoval = 10
)

// Limits 渲染预算（字符数），<=0 表示不限制
type Limits struct {
	MaxContextChars        int
	MaxSnippetChars        int
	MaxContentCharsPerItem int
}

// ContextPack 将结果渲染为确定性的文本块
func ContextPack(items []model.SearchResultItem, lim Limits) string {
	lines := []string{headerLine, typeLine}

	if len(items) == 0 {
		lines = append(lines, "status: empty", "", "(no results returned by backend)", "", footerLine)
		return strings.Join(lines, "\n")
	}

	for _, it := range items {
		lines = append(lines, "", fmt.Sprintf("#%d %s", it.Rank, it.Title))

		engines := strings.Join(it.Engines, ",")
		if engines != "" || it.Domain != "" {
			lines = append(lines, fmt.Sprintf("[%s | %s]", orDash(engines), orDash(it.Domain)))
		}

		lines = append(lines, it.URL)

		if sn := model.TruncateChars(it.Snippet, lim.MaxSnippetChars); sn != "" {
			lines = append(lines, sn)
		}

		if it.Fetch.Fetched() && it.Fetch.Text != "" {
			lines = append(lines, "", "CONTENT:", model.TruncateChars(it.Fetch.Text, lim.MaxContentCharsPerItem))
		}
	}
	lines = append(lines, "", footerLine)

	text := strings.Join(lines, "\n")
	if lim.MaxContextChars <= 0 || charLen(text) <= lim.MaxContextChars {
		return text
	}

	// 先从尾部整块删除条目，仍超出时再按字符硬截断
	all := strings.Split(text, "\n")
	for charLen(strings.Join(all, "\n")) > lim.MaxContextChars && len(all) > minLinesForBlockRemoval {
		next, ok := dropLastBlock(all)
		if !ok {
			break
		}
		all = next
	}
	return model.TruncateChars(strings.Join(all, "\n"), lim.MaxContextChars)
}

// dropLastBlock 删除结束标记之前的最后一个条目块（连同其前面的空行）
func dropLastBlock(lines []string) ([]string, bool) {
	endIdx := -1
	for i := len(lines) - 1; i >= 0; i-- {
		if lines[i] == footerLine {
			endIdx = i
			break
		}
	}
	if endIdx <= 0 {
		return lines, false
	}

	cutFrom := -1
	for j := endIdx - 1; j >= 0; j-- {
		if strings.HasPrefix(lines[j], "#") {
			cutFrom = j
			for cutFrom > 0 && lines[cutFrom-1] != "" {
				cutFrom--
			}
			if cutFrom > 0 && lines[cutFrom-1] == "" {
				cutFrom--
			}
			break
		}
	}
	if cutFrom < 0 {
		return lines, false
	}
	return slices.Delete(lines, cutFrom, endIdx), true
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func charLen(s string) int {
	return utf8.RuneCountInString(s)
}
