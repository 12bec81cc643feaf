package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/specimap/pkg/errors"
)

func TestGetJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, UserAgent, r.Header.Get("User-Agent"))
		switch r.URL.Path {
		case "/ok":
			_, _ = w.Write([]byte(`{"name":"Agathis"}`))
		case "/missing":
			http.NotFound(w, r)
		case "/limited":
			w.WriteHeader(http.StatusTooManyRequests)
		case "/broken":
			w.WriteHeader(http.StatusBadGateway)
		case "/garbage":
			_, _ = w.Write([]byte(`{`))
		}
	}))
	defer srv.Close()

	c := New("test", WithHTTPClient(srv.Client()))
	ctx := context.Background()

	var out struct{ Name string }
	found, err := c.GetJSON(ctx, srv.URL+"/ok", &out)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "Agathis", out.Name)

	found, err = c.GetJSON(ctx, srv.URL+"/missing", &out)
	require.NoError(t, err)
	assert.False(t, found)

	_, err = c.GetJSON(ctx, srv.URL+"/limited", &out)
	assert.True(t, errors.IsRateLimited(err))

	_, err = c.GetJSON(ctx, srv.URL+"/broken", &out)
	assert.ErrorIs(t, err, errors.ErrSourceUnavailable)

	_, err = c.GetJSON(ctx, srv.URL+"/garbage", &out)
	var perr *errors.ParseError
	assert.ErrorAs(t, err, &perr)
}

func TestGetJSONCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out map[string]any
	_, err := New("test", WithHTTPClient(srv.Client())).GetJSON(ctx, srv.URL, &out)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAuthenticators(t *testing.T) {
	newReq := func() *http.Request {
		return httptest.NewRequest(http.MethodGet, "https://example.org/x?a=1", nil)
	}

	req := newReq()
	(&NoAuth{}).Apply(req, "k")
	assert.Empty(t, req.Header.Get("Authorization"))

	req = newReq()
	(&QueryAuth{Param: "key"}).Apply(req, "k")
	assert.Equal(t, "k", req.URL.Query().Get("key"))
	assert.Equal(t, "1", req.URL.Query().Get("a"))
}

func TestBuildURL(t *testing.T) {
	got := BuildURL("https://api.gbif.org/v1/", "/grscicoll/institution", url.Values{"code": {"MNHN"}})
	assert.Equal(t, "https://api.gbif.org/v1/grscicoll/institution?code=MNHN", got)
	assert.Equal(t, "https://x.org/a", BuildURL("https://x.org", "a", nil))
}
