// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package config

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/z5labs/cooked/pkg/httpclient"
)

// HTTPStatusError occurs when a remote document cannot be fetched because
// the server answered with a non 2xx status code.
type HTTPStatusError struct {
	URL        string
	StatusCode int
}

// Error implements the error interface.
func (e HTTPStatusError) Error() string {
	return fmt.Sprintf("failed to fetch %s: %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// HTTPReader is an io.Reader over a remote document. The document is
// requested on the first call to Read.
type HTTPReader struct {
	ctx    context.Context
	url    string
	client *http.Client

	getOnce sync.Once
	getErr  error
	body    io.ReadCloser
}

// NewHTTPReader configures an HTTPReader which fetches url with a
// client built from the given options.
func NewHTTPReader(ctx context.Context, url string, opts ...httpclient.Option) *HTTPReader {
	return &HTTPReader{
		ctx:    ctx,
		url:    url,
		client: httpclient.New(opts...),
	}
}

// Read implements the io.Reader interface.
func (r *HTTPReader) Read(b []byte) (int, error) {
	r.getOnce.Do(func() {
		r.body, r.getErr = r.get()
	})
	if r.getErr != nil {
		return 0, r.getErr
	}
	if r.body == nil {
		return 0, io.ErrClosedPipe
	}
	return r.body.Read(b)
}

func (r *HTTPReader) get() (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(r.ctx, http.MethodGet, r.url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, HTTPStatusError{URL: r.url, StatusCode: resp.StatusCode}
	}
	return resp.Body, nil
}

// Close implements the io.Closer interface.
func (r *HTTPReader) Close() error {
	if r.body == nil {
		return nil
	}

	err := r.body.Close()
	r.body = nil
	return err
}
