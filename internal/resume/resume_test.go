package resume

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveInlineText(t *testing.T) {
	f := NewFetcher(0, nil)

	text, err := f.Resolve(context.Background(), "  Built a churn model in Python.  ")
	require.NoError(t, err)
	assert.Equal(t, "Built a churn model in Python.", text)

	_, err = f.Resolve(context.Background(), "   ")
	assert.True(t, errors.Is(err, ErrEmpty))
}

func TestResolveURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/cv.html":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte(`<html><head><style>p{}</style></head><body>
<nav>Home</nav>
<h1>Alice   Doe</h1>
<ul><li>Python, SQL</li><li>github.com/alice</li></ul>
<script>track()</script>
</body></html>`))
		case "/cv.txt":
			w.Header().Set("Content-Type", "text/plain")
			_, _ = w.Write([]byte("Plain resume\r\n\r\n\r\n\r\nSecond line"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := NewFetcherWithClient(srv.Client(), nil)

	text, err := f.Resolve(context.Background(), srv.URL+"/cv.html")
	require.NoError(t, err)
	assert.Equal(t, "Alice Doe\nPython, SQL\ngithub.com/alice", text)

	text, err = f.Resolve(context.Background(), srv.URL+"/cv.txt")
	require.NoError(t, err)
	assert.Equal(t, "Plain resume\n\nSecond line", text)

	_, err = f.Resolve(context.Background(), srv.URL+"/missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestResolvePDF(t *testing.T) {
	broken := []byte("%PDF-1.4\n1 0 obj << /Type /Catalog >> endobj\n")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/cv.pdf":
			w.Header().Set("Content-Type", "application/pdf")
		default:
			w.Header().Set("Content-Type", "application/octet-stream")
		}
		_, _ = w.Write(broken)
	}))
	defer srv.Close()

	f := NewFetcherWithClient(srv.Client(), nil)

	for _, path := range []string{"/cv.pdf", "/download?id=7"} {
		text, err := f.Resolve(context.Background(), srv.URL+path)
		require.Error(t, err, "pdf bytes must not pass as resume text")
		assert.Contains(t, err.Error(), "pdf")
		assert.Empty(t, text)
	}
}

func TestIsPDF(t *testing.T) {
	assert.True(t, isPDF("application/pdf; qs=0.9", nil))
	assert.True(t, isPDF("", []byte("%PDF-1.7\n")))
	assert.False(t, isPDF("text/plain", []byte("plain resume")))
}

func TestResolveRespectsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := NewFetcherWithClient(srv.Client(), nil).Resolve(ctx, srv.URL)
	require.Error(t, err)
}

func TestIsURL(t *testing.T) {
	assert.True(t, IsURL("https://example.com/cv"))
	assert.False(t, IsURL("example.com/cv"))
	assert.False(t, IsURL("Worked at https://example.com for two years"))
}
