package httpclient

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/torosent/burst/internal/config"
)

// Payload supplies the body of each POST, PUT or PATCH request. Open returns
// a fresh reader and the exact number of bytes it will yield.
type Payload interface {
	Open() (io.ReadCloser, int64, error)
}

// PayloadFor returns the configured body: the inline text, a file reopened
// for every request, or an empty body.
func PayloadFor(cfg *config.Config) (Payload, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	path := strings.TrimSpace(cfg.BodyFile)
	switch {
	case cfg.Body != "" && path != "":
		return nil, errors.New("body and body_file are mutually exclusive")
	case path != "":
		p := filePayload(path)
		rc, _, err := p.Open()
		if err != nil {
			return nil, err
		}
		_ = rc.Close()
		return p, nil
	default:
		return bytesPayload(cfg.Body), nil
	}
}

type bytesPayload []byte

func (p bytesPayload) Open() (io.ReadCloser, int64, error) {
	return io.NopCloser(bytes.NewReader(p)), int64(len(p)), nil
}

// filePayload is a path read anew for each request so edits made during a
// run reach the next burst.
type filePayload string

// Open sizes the body from the descriptor it returns and stops reading at
// that size, so a file that grows mid-request still matches Content-Length.
func (p filePayload) Open() (io.ReadCloser, int64, error) {
	f, err := os.Open(string(p))
	if err != nil {
		return nil, 0, fmt.Errorf("body file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, 0, fmt.Errorf("body file: %w", err)
	}
	if info.IsDir() {
		_ = f.Close()
		return nil, 0, fmt.Errorf("body file %q is a directory", string(p))
	}
	size := info.Size()
	return struct {
		io.Reader
		io.Closer
	}{io.LimitReader(f, size), f}, size, nil
}
