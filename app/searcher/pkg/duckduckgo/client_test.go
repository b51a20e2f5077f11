package duckduckgo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iWorld-y/web_searcher/app/searcher/pkg/search"
)

func newServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "json", q.Get("format"))
		assert.Equal(t, "1", q.Get("no_html"))
		assert.Equal(t, "1", q.Get("skip_disambig"))
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestInstantAnswerIsRankOne(t *testing.T) {
	srv := newServer(t, http.StatusOK, `{
		"Answer": "",
		"AbstractText": "Go is a programming language.",
		"Heading": "Go (programming language)",
		"AbstractURL": "https://en.wikipedia.org/wiki/Go_(programming_language)",
		"AnswerType": "",
		"RelatedTopics": [
			{"Text": "Gopher - The Go mascot", "FirstURL": "https://duckduckgo.com/Gopher"},
			{"Name": "See also", "Topics": [{"Text": "nested", "FirstURL": "https://duckduckgo.com/n"}]},
			{"Text": "", "FirstURL": "https://duckduckgo.com/empty"},
			{"Text": "Rob Pike - Canadian programmer", "FirstURL": "https://duckduckgo.com/Rob_Pike"}
		]
	}`)

	resp, err := NewClient(srv.URL).Search(context.Background(), &search.Request{Query: "golang"})
	require.NoError(t, err)
	require.Len(t, resp.Items, 3)

	assert.Equal(t, 1, resp.Items[0].Rank)
	assert.Equal(t, "Go (programming language)", resp.Items[0].Title)
	assert.Equal(t, "Go is a programming language.", resp.Items[0].Snippet)
	assert.Equal(t, "en.wikipedia.org", resp.Items[0].Domain)
	assert.Equal(t, []string{"duckduckgo"}, resp.Items[0].Engines)

	assert.Equal(t, 2, resp.Items[1].Rank)
	assert.Equal(t, "Gopher", resp.Items[1].Title)
	assert.Equal(t, "Gopher - The Go mascot", resp.Items[1].Snippet)

	// 被跳过的条目不影响后续名次连续
	assert.Equal(t, 3, resp.Items[2].Rank)
	assert.Equal(t, "Rob Pike", resp.Items[2].Title)
}

func TestAnswerWinsAndCarriesAnswerType(t *testing.T) {
	srv := newServer(t, http.StatusOK, `{
		"Answer": "42",
		"AbstractText": "ignored",
		"AnswerType": "calc",
		"RelatedTopics": []
	}`)

	resp, err := NewClient(srv.URL).Search(context.Background(), &search.Request{Query: "6*7"})
	require.NoError(t, err)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "42", resp.Items[0].Snippet)
	assert.Equal(t, defaultInstantTitle, resp.Items[0].Title)
	assert.Equal(t, []string{"duckduckgo:calc"}, resp.Items[0].Engines)
	assert.Equal(t, "", resp.Items[0].URL)
	assert.Equal(t, "", resp.Items[0].Domain)
}

func TestLimitTruncates(t *testing.T) {
	srv := newServer(t, http.StatusOK, `{
		"Definition": "a definition",
		"RelatedTopics": [
			{"Text": "a", "FirstURL": "https://a.example"},
			{"Text": "b", "FirstURL": "https://b.example"}
		]
	}`)

	resp, err := NewClient(srv.URL).Search(context.Background(), &search.Request{Query: "q", MaxResults: 2})
	require.NoError(t, err)
	require.Len(t, resp.Items, 2)
	assert.Equal(t, "a definition", resp.Items[0].Snippet)
	assert.Equal(t, "https://a.example", resp.Items[1].URL)
}

func TestNegativeLimitReturnsNothing(t *testing.T) {
	srv := newServer(t, http.StatusOK, `{
		"Definition": "a definition",
		"RelatedTopics": [{"Text": "a", "FirstURL": "https://a.example"}]
	}`)

	resp, err := NewClient(srv.URL).Search(context.Background(), &search.Request{Query: "q", MaxResults: -1})
	require.NoError(t, err)
	assert.Empty(t, resp.Items)
}

func TestObjectAnswerIsIgnored(t *testing.T) {
	srv := newServer(t, http.StatusOK, `{"Answer": {"from": "calculator"}, "RelatedTopics": []}`)

	resp, err := NewClient(srv.URL).Search(context.Background(), &search.Request{Query: "q"})
	require.NoError(t, err)
	assert.Empty(t, resp.Items)
}

func TestNon2xxIsBackendError(t *testing.T) {
	srv := newServer(t, http.StatusServiceUnavailable, "")

	_, err := NewClient(srv.URL).Search(context.Background(), &search.Request{Query: "q"})
	require.Error(t, err)
	assert.Equal(t, "DuckDuckGo request failed: DuckDuckGo HTTP 503", err.Error())
}
