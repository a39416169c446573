// Package fetcher downloads source documents and dataset files over HTTP and FTP.
package fetcher

import (
	"context"
	"io"
	"net/url"

	"github.com/rotisserie/eris"
)

// Fetcher defines the interface for downloading remote data.
type Fetcher interface {
	// Download fetches the URL and returns the response body.
	Download(ctx context.Context, url string) (io.ReadCloser, error)

	// DownloadToFile fetches the URL and writes it to the given path. Returns bytes written.
	DownloadToFile(ctx context.Context, url string, path string) (int64, error)
}

// Dispatcher routes downloads to the HTTP or FTP fetcher based on URL scheme.
type Dispatcher struct {
	HTTP Fetcher
	FTP  Fetcher
}

// NewDispatcher creates a Dispatcher over the given fetchers.
func NewDispatcher(httpFetcher, ftpFetcher Fetcher) *Dispatcher {
	return &Dispatcher{HTTP: httpFetcher, FTP: ftpFetcher}
}

func (d *Dispatcher) forURL(rawURL string) (Fetcher, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, eris.Wrapf(err, "parse url %s", rawURL)
	}
	switch u.Scheme {
	case "http", "https":
		return d.HTTP, nil
	case "ftp":
		return d.FTP, nil
	default:
		return nil, eris.Errorf("unsupported url scheme %q", u.Scheme)
	}
}

// Download fetches the URL using the fetcher matching its scheme.
func (d *Dispatcher) Download(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	f, err := d.forURL(rawURL)
	if err != nil {
		return nil, err
	}
	return f.Download(ctx, rawURL)
}

// DownloadToFile fetches the URL to a local file using the fetcher matching its scheme.
func (d *Dispatcher) DownloadToFile(ctx context.Context, rawURL string, path string) (int64, error) {
	f, err := d.forURL(rawURL)
	if err != nil {
		return 0, err
	}
	return f.DownloadToFile(ctx, rawURL, path)
}
