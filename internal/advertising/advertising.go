// Package advertising loads the advertising block that is handed to the
// receiver in the media custom data.
package advertising

import (
	"context"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"
	"go2tv.app/adcast/castprotocol"
)

const (
	httpClientTimeout         = 20 * time.Second
	httpDialTimeout           = 5 * time.Second
	httpKeepAlive             = 30 * time.Second
	httpTLSHandshakeTimeout   = 5 * time.Second
	httpResponseHeaderTimeout = 10 * time.Second
	httpIdleConnTimeout       = 90 * time.Second

	defaultRetryMax = 3
	maxConfigSize   = 1 << 20
)

var httpTransport = &http.Transport{
	Proxy: http.ProxyFromEnvironment,
	DialContext: (&net.Dialer{
		Timeout:   httpDialTimeout,
		KeepAlive: httpKeepAlive,
	}).DialContext,
	TLSHandshakeTimeout:   httpTLSHandshakeTimeout,
	ResponseHeaderTimeout: httpResponseHeaderTimeout,
	IdleConnTimeout:       httpIdleConnTimeout,
}

// NewHTTPClient returns an http.Client that retries transient failures.
func NewHTTPClient(retryMax int) *http.Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = retryMax
	retryClient.RetryWaitMin = 100 * time.Millisecond
	retryClient.RetryWaitMax = 2 * time.Second
	retryClient.Logger = nil
	retryClient.HTTPClient = &http.Client{
		Timeout:   httpClientTimeout,
		Transport: httpTransport,
	}

	return retryClient.StandardClient()
}

// Load reads an advertising configuration from a local path or an
// http(s) URL.
func Load(ctx context.Context, source string) (*castprotocol.CustomData, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return Fetch(ctx, NewHTTPClient(defaultRetryMax), source)
	}
	return ReadFile(source)
}

// ReadFile parses the advertising configuration stored at path.
func ReadFile(path string) (*castprotocol.CustomData, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read advertising file")
	}
	return parse(b)
}

// Fetch downloads and parses the advertising configuration at url.
func Fetch(ctx context.Context, client *http.Client, url string) (*castprotocol.CustomData, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build advertising request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "fetch advertising")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("fetch advertising: unexpected status %s", resp.Status)
	}

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxConfigSize))
	if err != nil {
		return nil, errors.Wrap(err, "read advertising response")
	}
	return parse(b)
}

func parse(b []byte) (*castprotocol.CustomData, error) {
	adConfig, err := castprotocol.ParseCustomData(b)
	if err != nil {
		return nil, errors.Wrap(err, "decode advertising")
	}
	return adConfig, nil
}
