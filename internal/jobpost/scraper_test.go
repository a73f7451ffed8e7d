package jobpost

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePage = `<html><head><script>var x = 1;</script></head><body>
<nav>Home | Jobs</nav>
<div class="job-description">
  <h1>Senior Go Engineer</h1>
  <p>You will   build services.</p>
  <p>Requirements: Go.</p>
</div>
<footer>Copyright</footer>
</body></html>`

func TestExtractText(t *testing.T) {
	text, err := ExtractText(samplePage)
	require.NoError(t, err)
	assert.Equal(t, "Senior Go Engineer\nYou will build services.\nRequirements: Go.", text)
}

func TestScraperFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(samplePage))
	}))
	defer srv.Close()

	s := NewScraper(srv.Client())

	content, ok, err := s.Fetch(context.Background(), srv.URL+"/job")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, content, "Senior Go Engineer")

	content, ok, err = s.Fetch(context.Background(), srv.URL+"/missing")
	assert.Error(t, err)
	assert.False(t, ok)
	assert.Equal(t, PlaceholderContent(srv.URL+"/missing"), content)
}

func TestScraperFetch_RejectsPrivateAddresses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html><body><main>internal-admin-secret-token</main></body></html>"))
	}))
	defer srv.Close()

	s := NewScraper(nil)

	content, ok, err := s.Fetch(context.Background(), srv.URL+"/admin")
	require.Error(t, err)
	assert.ErrorIs(t, err, errBlockedAddress)
	assert.False(t, ok)
	assert.Equal(t, PlaceholderContent(srv.URL+"/admin"), content)
	assert.NotContains(t, content, "secret")
}

func TestIsPublic(t *testing.T) {
	tests := []struct {
		ip   string
		want bool
	}{
		{"127.0.0.1", false},
		{"::1", false},
		{"10.1.2.3", false},
		{"192.168.0.10", false},
		{"172.16.5.4", false},
		{"169.254.169.254", false},
		{"fe80::1", false},
		{"0.0.0.0", false},
		{"93.184.216.34", true},
		{"2606:4700::1111", true},
	}
	for _, tt := range tests {
		t.Run(tt.ip, func(t *testing.T) {
			assert.Equal(t, tt.want, isPublic(net.ParseIP(tt.ip)))
		})
	}
}

func TestPublicOnlyClient_BlocksRedirectToPrivateIP(t *testing.T) {
	c := publicOnlyClient(time.Second)
	req := httptest.NewRequest(http.MethodGet, "http://10.0.0.1/admin", nil)
	assert.ErrorIs(t, c.CheckRedirect(req, nil), errBlockedAddress)
}
