package update

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonical(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1.2.3", "v1.2.3"},
		{"v1.2", "v1.2.0"},
		{" v2.0.0 ", "v2.0.0"},
		{"dev", ""},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Canonical(tt.in), tt.in)
	}
}

func releaseServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestCheckForNewVersion(t *testing.T) {
	const release = `{"tag_name": "v1.4.0", "html_url": "https://example.com/r/1.4.0", "published_at": "2026-02-01T10:00:00Z"}`

	tests := []struct {
		name          string
		current       string
		body          string
		wantAvailable bool
		wantLatest    string
	}{
		{"newer release", "1.3.2", release, true, "v1.4.0"},
		{"same version", "v1.4.0", release, false, "v1.4.0"},
		{"ahead of release", "1.5.0", release, false, "v1.4.0"},
		{"dev build", "dev", release, false, "v1.4.0"},
		{"prerelease ignored", "1.0.0", `{"tag_name": "2.0.0-rc.1", "prerelease": true}`, false, "v2.0.0-rc.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := releaseServer(t, http.StatusOK, tt.body)

			info, err := New(server.URL, tt.current, WithHTTPClient(server.Client())).CheckForNewVersion(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.wantAvailable, info.Available)
			assert.Equal(t, tt.wantLatest, info.Latest)
			assert.Equal(t, tt.current, info.Current)
		})
	}
}

func TestCheckForNewVersion_Errors(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		errContains string
	}{
		{"server error", http.StatusBadGateway, "", "502"},
		{"bad json", http.StatusOK, "{", "decode"},
		{"not a version", http.StatusOK, `{"tag_name": "nightly"}`, "not a version"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := releaseServer(t, tt.status, tt.body)

			_, err := New(server.URL, "1.0.0").CheckForNewVersion(context.Background())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errContains)
		})
	}

	_, err := New("", "1.0.0").CheckForNewVersion(context.Background())
	assert.Error(t, err)
}
