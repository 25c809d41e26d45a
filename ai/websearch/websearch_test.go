package websearch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestExtractURLs(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "plain url",
			text: "看看这个 https://example.com/a 怎么样",
			want: []string{"https://example.com/a"},
		},
		{
			name: "deduped and ordered",
			text: "http://a.com http://b.com http://a.com",
			want: []string{"http://a.com", "http://b.com"},
		},
		{
			name: "stops at closing bracket",
			text: "(见 https://example.com/path)",
			want: []string{"https://example.com/path"},
		},
		{
			name: "no urls",
			text: "今天天气不错",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, ExtractURLs(tt.text))
		})
	}
}

func TestFetchMainContentSelectorPriority(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head><script>ignored()</script></head>
			<body>边栏噪音 <article>正文  内容
			第二行</article></body></html>`)
	}))
	defer srv.Close()

	f := NewFetcher(5 * time.Second)
	text, err := f.FetchMainContent(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Equal(t, "正文 内容 第二行", text)
}

func TestFetchMainContentFallsBackToBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>只有 body 文本</body></html>`)
	}))
	defer srv.Close()

	f := NewFetcher(5 * time.Second)
	text, err := f.FetchMainContent(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Equal(t, "只有 body 文本", text)
}

func TestFetchMainContentTruncates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<html><body><main>%s</main></body></html>`, strings.Repeat("字", 6000))
	}))
	defer srv.Close()

	f := NewFetcher(5 * time.Second)
	text, err := f.FetchMainContent(context.Background(), srv.URL)
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(text, truncationSuffix))
	require.Len(t, []rune(text), maxContentChars+len([]rune(truncationSuffix)))
}

func TestFetchMainContentErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := NewFetcher(5 * time.Second)
	_, err := f.FetchMainContent(context.Background(), srv.URL)
	require.ErrorContains(t, err, "status 404")
}

func TestSearxSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/search", r.URL.Path)
		require.Equal(t, "golang 泛型", r.URL.Query().Get("q"))
		require.Equal(t, "json", r.URL.Query().Get("format"))
		require.Equal(t, "1", r.URL.Query().Get("pageno"))
		fmt.Fprint(w, `{"results":[
			{"title":"A","url":"https://a.com","content":"第一条摘要"},
			{"title":"B","url":"https://b.com","content":"第二条摘要"},
			{"title":"C","url":"https://c.com","content":"第三条摘要"},
			{"title":"D","url":"https://d.com","content":"第四条摘要"}]}`)
	}))
	defer srv.Close()

	c := NewSearxClient(srv.URL, 5*time.Second)
	results, err := c.Search(context.Background(), "golang 泛型", 3)
	require.NoError(t, err)
	require.Len(t, results, 3)

	formatted := FormatResults(results)
	require.Contains(t, formatted, "1. A\n链接: https://a.com\n摘要: 第一条摘要")
	require.Contains(t, formatted, "3. C")
}

func TestSearxDisabled(t *testing.T) {
	var c *SearxClient
	results, err := c.Search(context.Background(), "q", 3)
	require.NoError(t, err)
	require.Nil(t, results)
	require.Nil(t, NewSearxClient("", 0))
}
