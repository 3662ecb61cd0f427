package utils

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/h2non/filetype"
)

const hlsContentType = "application/x-mpegURL"

// ErrUnknownType is returned when the media type cannot be determined.
var ErrUnknownType = errors.New("unknown media type")

// IsHLSStream returns true for HLS playlist URLs or HLS mime types.
func IsHLSStream(mediaURL, mediaType string) bool {
	trimmedURL := strings.TrimSpace(mediaURL)
	if trimmedURL != "" {
		u, err := url.Parse(trimmedURL)
		if err == nil && strings.EqualFold(path.Ext(u.Path), ".m3u8") {
			return true
		}
	}

	return strings.Contains(strings.ToLower(strings.TrimSpace(mediaType)), "mpegurl")
}

// GetMimeDetailsFromStream sniffs the mime type from the first bytes of s.
func GetMimeDetailsFromStream(s io.Reader) (string, error) {
	head := make([]byte, 261)
	n, err := io.ReadFull(s, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", fmt.Errorf("getMimeDetailsFromStream error: %w", err)
	}

	kind, err := filetype.Match(head[:n])
	if err != nil {
		return "", fmt.Errorf("getMimeDetailsFromStream error #2: %w", err)
	}
	if kind == filetype.Unknown {
		return "", ErrUnknownType
	}

	return kind.MIME.Value, nil
}

// MediaContentType resolves the content type of a remote media URL. HLS
// playlists are recognized by extension, media Content-Type headers are
// trusted, anything else is sniffed from the first bytes.
func MediaContentType(ctx context.Context, client *http.Client, mediaURL string) (string, error) {
	if IsHLSStream(mediaURL, "") {
		return hlsContentType, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return "", fmt.Errorf("MediaContentType failed to build request: %w", err)
	}
	req.Header.Set("Range", "bytes=0-260")

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("MediaContentType failed to client.Do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		return "", fmt.Errorf("MediaContentType bad status code: %d", resp.StatusCode)
	}

	if mt, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type")); err == nil {
		if strings.HasPrefix(mt, "video/") || strings.HasPrefix(mt, "audio/") || IsHLSStream("", mt) {
			return mt, nil
		}
	}

	return GetMimeDetailsFromStream(resp.Body)
}
