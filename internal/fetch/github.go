package fetch

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"devstrap/internal/logger"
)

// Release mirrors the GitHub release JSON we consume.
type Release struct {
	TagName string  `json:"tag_name"`
	Assets  []Asset `json:"assets"`
}

// Asset is one downloadable file attached to a release.
type Asset struct {
	Name               string `json:"name"`
	BrowserDownloadURL string `json:"browser_download_url"`
}

// ResolveAsset looks up repo at tag and returns the download URL of the named
// asset. Matching is exact first, then falls back to a case-insensitive
// substring match so a config can say "JetBrainsMono" and still find
// "JetBrainsMono.zip".
func (f *Fetcher) ResolveAsset(repo, tag, asset string) (string, error) {
	url := fmt.Sprintf("%s/repos/%s/releases/tags/%s", f.apiBase(), repo, tag)
	logger.Debug("[DEBUG] Fetching GitHub release from URL: %s\n", url)

	resp, err := f.client().Get(url)
	if err != nil {
		return "", fmt.Errorf("fetch release %s@%s: %w", repo, tag, err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			logger.Warn("[WARN] Failed to close response body: %v\n", cerr)
		}
	}()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch release %s@%s: HTTP status %d", repo, tag, resp.StatusCode)
	}

	var rel Release
	if err := json.NewDecoder(resp.Body).Decode(&rel); err != nil {
		return "", fmt.Errorf("decode release %s@%s: %w", repo, tag, err)
	}
	logger.Debug("[DEBUG] Release %s has %d assets\n", rel.TagName, len(rel.Assets))

	for _, a := range rel.Assets {
		if a.Name == asset {
			return a.BrowserDownloadURL, nil
		}
	}
	for _, a := range rel.Assets {
		if strings.Contains(strings.ToLower(a.Name), strings.ToLower(asset)) {
			return a.BrowserDownloadURL, nil
		}
	}
	return "", fmt.Errorf("release %s@%s has no asset matching %q", repo, tag, asset)
}

func (f *Fetcher) apiBase() string {
	if f.APIBase != "" {
		return f.APIBase
	}
	return "https://api.github.com"
}
