package fetcher

import (
	"context"
	"io"
	"net"
	"net/url"
	"os"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// FTPOptions configures the FTP fetcher. Most statistical-agency mirrors
// accept anonymous login; User/Password cover the few that issue accounts
// for bulk dataset access.
type FTPOptions struct {
	Timeout  time.Duration
	User     string
	Password string
}

// FTPFetcher downloads dataset exports from FTP mirrors. Central banks and
// statistics offices still publish bulk CSV/XLSX drops this way.
type FTPFetcher struct {
	opts FTPOptions
}

// NewFTPFetcher creates a new FTPFetcher with the given options.
func NewFTPFetcher(opts FTPOptions) *FTPFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.User == "" {
		opts.User = "anonymous"
		opts.Password = "anonymous@"
	}
	return &FTPFetcher{opts: opts}
}

// datasetAddr splits an ftp:// dataset URL into a dialable host:port and the
// remote file path.
func datasetAddr(rawURL string) (addr string, remotePath string, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", eris.Wrapf(err, "parse dataset url %s", rawURL)
	}
	if u.Scheme != "ftp" {
		return "", "", eris.Errorf("expected ftp scheme, got %q", u.Scheme)
	}

	addr = u.Host
	if _, _, splitErr := net.SplitHostPort(addr); splitErr != nil {
		addr = net.JoinHostPort(addr, "21")
	}

	remotePath = u.Path
	if remotePath == "" {
		return "", "", eris.Errorf("dataset url %s has no file path", rawURL)
	}

	return addr, remotePath, nil
}

// retrReader ties the RETR response to its control connection so closing the
// reader also disconnects from the mirror.
type retrReader struct {
	resp *ftp.Response
	conn *ftp.ServerConn
}

func (r *retrReader) Read(p []byte) (int, error) {
	return r.resp.Read(p)
}

func (r *retrReader) Close() error {
	respErr := r.resp.Close()
	quitErr := r.conn.Quit()
	if respErr != nil {
		return eris.Wrap(respErr, "close ftp transfer")
	}
	if quitErr != nil {
		return eris.Wrap(quitErr, "quit ftp connection")
	}
	return nil
}

// Download retrieves the dataset file behind an ftp:// URL. The caller must
// close the returned ReadCloser to release the mirror connection.
func (f *FTPFetcher) Download(ctx context.Context, ftpURL string) (io.ReadCloser, error) {
	addr, remotePath, err := datasetAddr(ftpURL)
	if err != nil {
		return nil, err
	}

	conn, err := ftp.Dial(addr, ftp.DialWithTimeout(f.opts.Timeout), ftp.DialWithContext(ctx))
	if err != nil {
		return nil, eris.Wrapf(err, "ftp dial %s", addr)
	}

	if err := conn.Login(f.opts.User, f.opts.Password); err != nil {
		conn.Quit() //nolint:errcheck
		return nil, eris.Wrapf(err, "ftp login %s", addr)
	}

	// SIZE is advisory; mirrors that refuse it still serve RETR fine.
	if size, err := conn.FileSize(remotePath); err == nil {
		zap.L().Info("ftp: dataset located",
			zap.String("host", addr),
			zap.String("path", remotePath),
			zap.Int64("bytes", size),
		)
	}

	resp, err := conn.Retr(remotePath)
	if err != nil {
		conn.Quit() //nolint:errcheck
		return nil, eris.Wrapf(err, "ftp retrieve %s", remotePath)
	}

	return &retrReader{resp: resp, conn: conn}, nil
}

// DownloadToFile downloads the dataset behind an ftp:// URL to a local file.
// Returns bytes written.
func (f *FTPFetcher) DownloadToFile(ctx context.Context, ftpURL string, path string) (int64, error) {
	rc, err := f.Download(ctx, ftpURL)
	if err != nil {
		return 0, err
	}
	defer rc.Close()

	file, err := os.Create(path)
	if err != nil {
		return 0, eris.Wrapf(err, "create %s", path)
	}
	defer file.Close()

	n, err := io.Copy(file, rc)
	if err != nil {
		return n, eris.Wrapf(err, "write %s", path)
	}

	zap.L().Info("ftp: dataset downloaded",
		zap.String("url", ftpURL),
		zap.String("path", path),
		zap.Int64("bytes", n),
	)
	return n, nil
}
