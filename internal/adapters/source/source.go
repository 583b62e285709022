// Package source fetches the tabular feeds behind each dataset and decodes
// them into rows of trimmed string cells.
package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/standings/internal/domain/types"
	"github.com/okian/standings/pkg/logger"
	"github.com/okian/standings/pkg/metrics"
)

const (
	defaultTimeout      = 10 * time.Second
	defaultMaxBodyBytes = 32 << 20
)

// Source yields the current rows of a dataset.
type Source interface {
	Fetch(ctx context.Context, dataset types.DatasetID) ([]types.Row, error)
}

// Option applies a configuration option to the HTTPSource.
type Option func(*HTTPSource)

// WithHTTPClient sets the client used for http(s) feeds.
func WithHTTPClient(c *http.Client) Option {
	return func(s *HTTPSource) {
		if c != nil {
			s.client = c
		}
	}
}

// WithTimeout bounds every fetch.
func WithTimeout(d time.Duration) Option {
	return func(s *HTTPSource) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithMaxBodyBytes caps the size of a feed body; a larger one fails the
// fetch with ErrBodyTooLarge.
func WithMaxBodyBytes(n int64) Option {
	return func(s *HTTPSource) {
		if n > 0 {
			s.maxBody = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *HTTPSource) {
		if l != nil {
			s.logger = l
		}
	}
}

// HTTPSource reads feeds over HTTP or from local files. It is safe for
// concurrent use; feeds are fixed at construction.
type HTTPSource struct {
	feeds   map[types.DatasetID]Feed
	client  *http.Client
	timeout time.Duration
	maxBody int64
	logger  logger.Logger
}

// NewHTTPSource creates a source for feeds.
func NewHTTPSource(feeds []Feed, opts ...Option) (*HTTPSource, error) {
	s := &HTTPSource{
		feeds:   make(map[types.DatasetID]Feed, len(feeds)),
		client:  http.DefaultClient,
		timeout: defaultTimeout,
		maxBody: defaultMaxBodyBytes,
		logger:  logger.Get().Named("source"),
	}
	for _, opt := range opts {
		opt(s)
	}
	for _, f := range feeds {
		if f.Dataset == "" || f.URL == "" {
			return nil, fmt.Errorf("%w: dataset %q needs a url", ErrInvalidFeed, f.Dataset)
		}
		if _, dup := s.feeds[f.Dataset]; dup {
			return nil, fmt.Errorf("%w: duplicate dataset %q", ErrInvalidFeed, f.Dataset)
		}
		format, err := ParseFormat(string(f.Format))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidFeed, err)
		}
		f.Format = format
		s.feeds[f.Dataset] = f
	}
	return s, nil
}

// Datasets returns the configured datasets in name order.
func (s *HTTPSource) Datasets() []types.DatasetID {
	ids := make([]types.DatasetID, 0, len(s.feeds))
	for id := range s.feeds {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Fetch downloads and decodes the dataset. Any failure is a *FetchError.
func (s *HTTPSource) Fetch(ctx context.Context, dataset types.DatasetID) ([]types.Row, error) {
	const op = "source.Fetch"

	feed, ok := s.feeds[dataset]
	if !ok {
		return nil, &FetchError{Dataset: dataset, Err: ErrUnknownDataset}
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	body, contentType, status, err := s.read(ctx, feed)
	metrics.RecordFetchDuration(string(dataset), float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.RecordFetchError(string(dataset))
		return nil, &FetchError{Dataset: dataset, URL: feed.URL, StatusCode: status, Err: err}
	}

	format := feed.formatFor(contentType)
	rows, dropped, err := Decode(feed, format, body)
	if err != nil {
		metrics.RecordFetchError(string(dataset))
		return nil, &FetchError{Dataset: dataset, URL: feed.URL, StatusCode: status, Err: err}
	}
	if len(dropped) > 0 {
		metrics.RecordParseErrors(string(dataset), len(dropped))
		for _, pe := range dropped {
			s.logger.Debug(ctx, "row dropped",
				logger.String("op", op),
				logger.String("dataset", string(dataset)),
				logger.Int("line", pe.Line),
				logger.String("reason", pe.Reason))
		}
	}

	s.logger.Debug(ctx, "dataset fetched",
		logger.String("dataset", string(dataset)),
		logger.String("format", string(format)),
		logger.Int("rows", len(rows)),
		logger.Int("dropped", len(dropped)),
		logger.Duration("took", time.Since(start)))
	return rows, nil
}

func (s *HTTPSource) read(ctx context.Context, feed Feed) (body []byte, contentType string, status int, err error) {
	if p, ok := feed.local(); ok {
		f, err := os.Open(p)
		if err != nil {
			return nil, "", 0, err
		}
		defer f.Close()
		body, err = s.readBody(f)
		return body, "", 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feed.URL, nil)
	if err != nil {
		return nil, "", 0, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, "", 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return nil, "", resp.StatusCode, fmt.Errorf("%w: %s", ErrStatus, resp.Status)
	}
	body, err = s.readBody(resp.Body)
	if err != nil {
		return nil, "", resp.StatusCode, err
	}
	return body, resp.Header.Get("Content-Type"), resp.StatusCode, nil
}

// readBody reads at most maxBody bytes. A longer body is an error rather
// than a truncated dataset.
func (s *HTTPSource) readBody(r io.Reader) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r, s.maxBody+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > s.maxBody {
		return nil, fmt.Errorf("%w: over %d bytes", ErrBodyTooLarge, s.maxBody)
	}
	return body, nil
}

// Result is the outcome of one dataset fetch.
type Result struct {
	Dataset types.DatasetID
	Rows    []types.Row
	Err     error
	Took    time.Duration
}

// FetchAll fetches every dataset concurrently and waits for all of them.
// Results keep the order of datasets. One failure never cancels or alters
// another dataset's fetch.
func FetchAll(ctx context.Context, src Source, datasets []types.DatasetID) []Result {
	results := make([]Result, len(datasets))
	var g errgroup.Group
	for i, id := range datasets {
		g.Go(func() error {
			start := time.Now()
			rows, err := src.Fetch(ctx, id)
			results[i] = Result{Dataset: id, Rows: rows, Err: err, Took: time.Since(start)}
			return nil
		})
	}
	_ = g.Wait()
	return results
}
