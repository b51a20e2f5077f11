package fetcher

import (
	"context"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/iWorld-y/web_searcher/app/searcher/pkg/model"
)

// fetchViaReader 通过远程阅读服务（baseURL + 目标 URL）获取正文
//
// 只应用提取字符上限，不做内容类型与字节数判断。
func (f *Fetcher) fetchViaReader(ctx context.Context, rawURL string, b model.Budget, out *model.FetchOutcome) *model.FetchOutcome {
	base := f.jinaBaseURL
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}

	ctx, cancel := withTimeout(ctx, b.FetchTimeout)
	defer cancel()

	req, err := f.newRequest(ctx, base+rawURL)
	if err != nil {
		return out
	}
	if f.jinaAPIKey != "" {
		req.Header.Set("Authorization", "Bearer "+f.jinaAPIKey)
	}

	resp, err := f.readerClient.Do(req)
	if err != nil {
		out.SkipReason = classify(ctx, err)
		return out
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		out.SkipReason = classify(ctx, err)
		return out
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		out.SkipReason = fmt.Sprintf("http_%d", resp.StatusCode)
		return out
	}

	text := model.TruncateChars(strings.ToValidUTF8(string(body), string(utf8.RuneError)), b.MaxExtractCharsPerPage)
	out.Status = model.FetchStatusFetched
	out.SkipReason = ""
	out.ContentType = "text/plain"
	out.DownloadedBytes = int64(len(body))
	out.Text = text
	out.ExtractedChars = utf8.RuneCountInString(text)
	return out
}
