package fetcher

import (
	"context"
	"io"
	"net"
	"net/url"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/exoplanet-cli/internal/resilience"
)

// FTPOptions configures the FTP fetcher.
type FTPOptions struct {
	Timeout  time.Duration
	User     string // default "anonymous"
	Password string // default "anonymous@"

	// Retry governs reconnects after transient dial failures. Zero values
	// take resilience defaults.
	Retry resilience.Policy
}

// FTPFetcher downloads tables from FTP mirrors.
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
		if opts.Password == "" {
			opts.Password = "anonymous@"
		}
	}
	return &FTPFetcher{opts: opts}
}

// parseFTPURL extracts host (with port), path and optional credentials from
// an FTP URL.
func parseFTPURL(rawURL string) (host, path string, user *url.Userinfo, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", nil, eris.Wrap(err, "parse ftp url")
	}
	if u.Scheme != "ftp" {
		return "", "", nil, eris.Errorf("expected ftp scheme, got %q", u.Scheme)
	}

	host = u.Host
	if _, _, splitErr := net.SplitHostPort(host); splitErr != nil {
		host = net.JoinHostPort(host, "21")
	}

	path = u.Path
	if path == "" {
		return "", "", nil, eris.New("empty path in ftp url")
	}

	return host, path, u.User, nil
}

// ftpConnReader closes the FTP response and the connection together.
type ftpConnReader struct {
	resp *ftp.Response
	conn *ftp.ServerConn
}

func (r *ftpConnReader) Read(p []byte) (int, error) {
	return r.resp.Read(p)
}

func (r *ftpConnReader) Close() error {
	respErr := r.resp.Close()
	quitErr := r.conn.Quit()
	if respErr != nil {
		return eris.Wrap(respErr, "close ftp response")
	}
	if quitErr != nil {
		return eris.Wrap(quitErr, "quit ftp connection")
	}
	return nil
}

// Download connects to the FTP server, retrieves the file, and returns a reader.
// Credentials in the URL override the configured ones.
// The caller must close the returned ReadCloser to release the FTP connection.
func (f *FTPFetcher) Download(ctx context.Context, ftpURL string) (io.ReadCloser, error) {
	host, path, userinfo, err := parseFTPURL(ftpURL)
	if err != nil {
		return nil, err
	}

	user, pass := f.opts.User, f.opts.Password
	if userinfo != nil {
		user = userinfo.Username()
		pass, _ = userinfo.Password()
	}

	zap.L().Debug("ftp: connecting", zap.String("host", host), zap.String("path", path))

	var conn *ftp.ServerConn
	err = resilience.Do(ctx, f.opts.Retry, func(ctx context.Context) error {
		var dialErr error
		conn, dialErr = ftp.Dial(host, ftp.DialWithTimeout(f.opts.Timeout), ftp.DialWithContext(ctx))
		return dialErr
	})
	if err != nil {
		return nil, eris.Wrap(err, "ftp dial")
	}

	if err := conn.Login(user, pass); err != nil {
		_ = conn.Quit()
		return nil, eris.Wrap(err, "ftp login")
	}

	resp, err := conn.Retr(path)
	if err != nil {
		_ = conn.Quit()
		return nil, eris.Wrap(err, "ftp retrieve")
	}

	return &ftpConnReader{resp: resp, conn: conn}, nil
}

// DownloadToFile downloads the FTP URL to a local file. Returns bytes written.
func (f *FTPFetcher) DownloadToFile(ctx context.Context, ftpURL string, path string) (int64, error) {
	rc, err := f.Download(ctx, ftpURL)
	if err != nil {
		return 0, err
	}
	defer rc.Close() //nolint:errcheck

	return writeFile(path, rc)
}
