package downloader

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/grailbio/base/errors"
)

// Hub is a parsed UCSC assembly hub description (hub.txt), the manifest an
// accession-style reference (e.g. GCF_000005845.2) points a download at.
// Example: https://hgdownload.soe.ucsc.edu/hubs/GCF/000/005/845/GCF_000005845.2/hub.txt
type Hub struct {
	URL             string
	TwoBitURL       string
	ChromSizesURL   string
	ChromAliasURL   string
	TrackBigDataURL map[string]string // track name -> absolute bigDataUrl
}

// FetchHub downloads and parses the hub.txt file at hubURL.
func FetchHub(ctx context.Context, hubURL string) (*Hub, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, hubURL, nil)
	if err != nil {
		return nil, errors.E(errors.Invalid, err, "downloader.FetchHub: building request for", hubURL)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, errors.E(errors.IO, err, "downloader.FetchHub: fetching", hubURL)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errors.E(errors.IO, fmt.Sprintf("downloader.FetchHub: %s returned status %d", hubURL, resp.StatusCode))
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.E(errors.IO, err, "downloader.FetchHub: reading body of", hubURL)
	}
	return ParseHub(hubURL, string(body)), nil
}

// ParseHub parses a hub.txt body into a Hub, resolving every referenced
// path against hubURL's directory.
func ParseHub(hubURL, body string) *Hub {
	h := &Hub{URL: hubURL, TrackBigDataURL: make(map[string]string)}

	var currentTrack string
	scanner := bufio.NewScanner(strings.NewReader(body))
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			currentTrack = ""
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		key, value := fields[0], fields[1]

		if key == "track" {
			currentTrack = value
			continue
		}
		if currentTrack != "" {
			if key == "bigDataUrl" {
				h.TrackBigDataURL[currentTrack] = joinHubURL(hubURL, value)
			}
			continue
		}
		switch key {
		case "twoBitPath":
			h.TwoBitURL = joinHubURL(hubURL, value)
		case "chromSizes":
			h.ChromSizesURL = joinHubURL(hubURL, value)
		case "chromAliasBb":
			h.ChromAliasURL = joinHubURL(hubURL, value)
		}
	}
	return h
}

// joinHubURL replaces the last path segment of hubURL with fileName,
// resolving a hub.txt-relative reference to an absolute one.
func joinHubURL(hubURL, fileName string) string {
	parts := strings.Split(hubURL, "/")
	if len(parts) == 0 {
		return fileName
	}
	base := strings.Join(parts[:len(parts)-1], "/")
	return base + "/" + fileName
}

// FetchFile downloads url into w, reporting the written byte count. Used
// for 2bit/chromSizes/chromAlias/track payloads, none of which need
// parsing at this layer.
func FetchFile(ctx context.Context, w io.Writer, url string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, errors.E(errors.Invalid, err, "downloader.FetchFile: building request for", url)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, errors.E(errors.IO, err, "downloader.FetchFile: fetching", url)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, errors.E(errors.IO, fmt.Sprintf("downloader.FetchFile: %s returned status %d", url, resp.StatusCode))
	}
	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, errors.E(errors.IO, err, "downloader.FetchFile: copying body of", url)
	}
	return n, nil
}

// RelevantTracks returns the hub's track names that should be converted to
// embedded SQL tables: a gene track on trackservice.PreferredTrackNames, or
// a cytoband track named "cytoBandIdeo", per spec.md §4.11.
func (h *Hub) RelevantTracks(preferredNames []string) []string {
	var out []string
	for _, name := range preferredNames {
		if _, ok := h.TrackBigDataURL[name]; ok {
			out = append(out, name)
		}
	}
	if _, ok := h.TrackBigDataURL["cytoBandIdeo"]; ok {
		out = append(out, "cytoBandIdeo")
	}
	return out
}
