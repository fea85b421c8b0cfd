package updater

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// --- isNewer ---

func TestIsNewer(t *testing.T) {
	tests := []struct {
		name    string
		current string
		latest  string
		want    bool
	}{
		{"newer patch", "0.2.0", "0.2.1", true},
		{"newer minor", "0.2.0", "0.3.0", true},
		{"newer major", "0.2.0", "1.0.0", true},
		{"same version", "0.2.0", "0.2.0", false},
		{"older version", "0.3.0", "0.2.0", false},
		{"empty current", "", "0.2.0", false},
		{"empty latest", "0.2.0", "", false},
		{"dev current", "dev", "0.2.0", false},
		{"two part version", "0.2", "0.3.0", true},
		{"minor jump", "0.9.0", "0.10.0", true},
		{"prerelease suffix", "1.0.0-rc1", "1.0.1", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isNewer(tt.current, tt.latest); got != tt.want {
				t.Errorf("isNewer(%q, %q) = %v, want %v", tt.current, tt.latest, got, tt.want)
			}
		})
	}
}

// --- fake releases API ---

func tarGz(t *testing.T, name string, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	if err := tw.WriteHeader(&tar.Header{Name: name, Mode: 0o755, Size: int64(len(data))}); err != nil {
		t.Fatal(err)
	}
	if _, err := tw.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := gz.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// fakeReleases serves a latest release tagged tag whose linux/amd64 asset
// contains archive.
func fakeReleases(t *testing.T, tag string, archive []byte) *Client {
	t.Helper()
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	c := &Client{Endpoint: srv.URL + "/latest", HTTP: srv.Client(), GOOS: "linux", GOARCH: "amd64"}
	asset := c.AssetName(strings.TrimPrefix(tag, "v"))
	mux.HandleFunc("/latest", func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.Header.Get("User-Agent"), BinaryName+"/") {
			t.Errorf("User-Agent = %q", r.Header.Get("User-Agent"))
		}
		_ = json.NewEncoder(w).Encode(Release{
			TagName: tag,
			HTMLURL: "https://github.com/" + Repo + "/releases/" + tag,
			Assets:  []Asset{{Name: asset, BrowserDownloadURL: srv.URL + "/download"}},
		})
	})
	mux.HandleFunc("/download", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(archive)
	})
	return c
}

// --- Check ---

func TestCheck(t *testing.T) {
	c := fakeReleases(t, "v0.3.0", nil)

	got := c.Check(context.Background(), "v0.2.0")
	if !got.Available || got.Current != "0.2.0" || got.Latest != "0.3.0" {
		t.Errorf("Check = %+v", got)
	}
	if !strings.HasSuffix(got.ReleaseURL, "/v0.3.0") {
		t.Errorf("ReleaseURL = %q", got.ReleaseURL)
	}

	if got := c.Check(context.Background(), "0.3.0"); got.Available {
		t.Errorf("same version reported an update: %+v", got)
	}
}

func TestCheck_ServerErrorMeansNoUpdate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusForbidden)
	}))
	defer srv.Close()

	c := &Client{Endpoint: srv.URL, HTTP: srv.Client(), GOOS: "linux", GOARCH: "amd64"}
	if got := c.Check(context.Background(), "0.1.0"); got.Available || got.Latest != "" {
		t.Errorf("Check = %+v", got)
	}
}

// --- Update ---

func TestUpdate_ReplacesBinary(t *testing.T) {
	exe := filepath.Join(t.TempDir(), BinaryName)
	if err := os.WriteFile(exe, []byte("old"), 0o755); err != nil {
		t.Fatal(err)
	}
	c := fakeReleases(t, "v1.1.0", tarGz(t, "semantic-hooks_1.1.0/"+BinaryName, []byte("new binary")))

	v, err := c.Update(context.Background(), "1.0.0", exe)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if v != "1.1.0" {
		t.Errorf("version = %q, want 1.1.0", v)
	}
	got, err := os.ReadFile(exe)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "new binary" {
		t.Errorf("binary = %q", got)
	}
}

func TestUpdate_UpToDate(t *testing.T) {
	c := fakeReleases(t, "v1.0.0", nil)
	_, err := c.Update(context.Background(), "1.0.0", filepath.Join(t.TempDir(), BinaryName))
	if !errors.Is(err, ErrUpToDate) {
		t.Errorf("err = %v, want ErrUpToDate", err)
	}
}

func TestUpdate_BinaryMissingFromArchive(t *testing.T) {
	exe := filepath.Join(t.TempDir(), BinaryName)
	if err := os.WriteFile(exe, []byte("old"), 0o755); err != nil {
		t.Fatal(err)
	}
	c := fakeReleases(t, "v2.0.0", tarGz(t, "README.md", []byte("docs")))

	if _, err := c.Update(context.Background(), "1.0.0", exe); err == nil {
		t.Fatal("expected error for archive without the binary")
	}
	if got, _ := os.ReadFile(exe); string(got) != "old" {
		t.Errorf("binary changed to %q after failed update", got)
	}
}

func TestUpdate_NoAssetForPlatform(t *testing.T) {
	c := fakeReleases(t, "v2.0.0", nil)
	c.GOARCH = "riscv64"
	if _, err := c.Update(context.Background(), "1.0.0", filepath.Join(t.TempDir(), BinaryName)); err == nil ||
		!strings.Contains(err.Error(), "no release asset") {
		t.Errorf("err = %v", err)
	}
}

func TestAssetName(t *testing.T) {
	tests := []struct {
		goos string
		want string
	}{
		{"linux", "semantic-hooks_1.2.3_linux_arm64.tar.gz"},
		{"darwin", "semantic-hooks_1.2.3_darwin_arm64.tar.gz"},
		{"windows", "semantic-hooks_1.2.3_windows_arm64.zip"},
	}
	for _, tt := range tests {
		c := &Client{GOOS: tt.goos, GOARCH: "arm64"}
		if got := c.AssetName("1.2.3"); got != tt.want {
			t.Errorf("AssetName on %s = %q, want %q", tt.goos, got, tt.want)
		}
	}
}
