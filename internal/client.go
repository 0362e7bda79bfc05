package internal

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/chrisconley/gareport/internal/infra"
	"github.com/chrisconley/gareport/specs"
)

// Client runs report queries against a page transport. A Client holds no state
// between queries and may be shared by concurrent callers.
type Client struct {
	fetch  specs.FetchPage
	logger logrus.FieldLogger
	bus    *infra.Bus
	newID  func() string
}

type ClientOption func(*Client)

// WithLogger sets the logger; the default is the logrus standard logger.
func WithLogger(logger logrus.FieldLogger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithBus publishes query lifecycle events on bus.
func WithBus(bus *infra.Bus) ClientOption {
	return func(c *Client) { c.bus = bus }
}

func NewClient(fetch specs.FetchPage, opts ...ClientOption) *Client {
	c := &Client{
		fetch:  fetch,
		logger: logrus.StandardLogger(),
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Query runs request and blocks until QueryAsync delivers its result. Failures
// are reported through the result, never as a panic or error. Do not call it
// from a handler running inside another query.
func (c *Client) Query(ctx context.Context, request RequestConfiguration) ReportResult {
	return <-c.QueryAsync(ctx, request)
}

// QueryAsync runs request in its own goroutine. The channel delivers exactly
// one result and is then closed.
func (c *Client) QueryAsync(ctx context.Context, request RequestConfiguration) <-chan ReportResult {
	results := make(chan ReportResult, 1)
	go func() {
		defer close(results)
		results <- c.run(ctx, request)
	}()
	return results
}

// QueryFunc builds a request with configure and runs it. The error is only
// set for builder-time failures; query failures are in the result.
func (c *Client) QueryFunc(ctx context.Context, configure func(ProfileStage) RequestBuilder) (ReportResult, error) {
	request, err := buildRequest(configure)
	if err != nil {
		return ReportResult{}, err
	}
	return c.Query(ctx, request), nil
}

// QueryFuncAsync is the asynchronous form of QueryFunc.
func (c *Client) QueryFuncAsync(ctx context.Context, configure func(ProfileStage) RequestBuilder) (<-chan ReportResult, error) {
	request, err := buildRequest(configure)
	if err != nil {
		return nil, err
	}
	return c.QueryAsync(ctx, request), nil
}

// QueryAll runs independent requests concurrently, at most limit at a time
// (unbounded when limit <= 0). Results are returned in request order.
func (c *Client) QueryAll(ctx context.Context, requests []RequestConfiguration, limit int) []ReportResult {
	results := make([]ReportResult, len(requests))

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, request := range requests {
		g.Go(func() error {
			results[i] = c.run(ctx, request)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func buildRequest(configure func(ProfileStage) RequestBuilder) (RequestConfiguration, error) {
	if configure == nil {
		return RequestConfiguration{}, fmt.Errorf("%w: request configurer is nil", ErrInvalidArgument)
	}
	builder := configure(NewRequest())
	if builder == nil {
		return RequestConfiguration{}, fmt.Errorf("%w: request configurer returned no builder", ErrInvalidArgument)
	}
	return builder.Build()
}

// run executes the paging loop and converts every failure, panics included,
// into a failed result.
func (c *Client) run(ctx context.Context, request RequestConfiguration) (result ReportResult) {
	queryID := c.newID()
	log := c.logger.WithFields(logrus.Fields{
		"query_id":   queryID,
		"profile_id": request.ProfileID(),
	})
	defer func() {
		if r := recover(); r != nil {
			result = newFailureResult(queryID, request, fmt.Sprintf("query panicked: %v", r), fmt.Errorf("%w: panic: %v", ErrQueryFailed, r))
		}
		if result.Success() {
			data, _ := result.Data()
			log.WithFields(logrus.Fields{
				"rows":    data.RowCount(),
				"pages":   result.Pages(),
				"sampled": result.IsSampled(),
			}).Info("report query completed")
			c.publish(log, QuerySucceededEvent{QueryID: queryID, Rows: data.RowCount(), Pages: result.Pages(), Sampled: result.IsSampled()})
			return
		}
		log.WithError(result.Err().Cause).Warn("report query failed")
		c.publish(log, QueryFailedEvent{QueryID: queryID, Err: result.Err()})
	}()
	c.publish(log, QueryStartedEvent{QueryID: queryID, Request: request})

	data, sampled, pages, err := c.collect(ctx, queryID, request, log)
	if err != nil {
		return newFailureResult(queryID, request, err.Error(), fmt.Errorf("%w: %w", ErrQueryFailed, err))
	}
	return newSuccessResult(queryID, request, data, sampled, pages)
}

// collect fetches pages until the transport has no more rows or MaxResults rows
// have been gathered, merging them into one table.
func (c *Client) collect(ctx context.Context, queryID string, request RequestConfiguration, log logrus.FieldLogger) (TabularData, bool, int, error) {
	pageRequest := newPageRequest(request)

	page, err := c.fetchPage(ctx, pageRequest)
	if err != nil {
		return TabularData{}, false, 0, fmt.Errorf("page 1: %w", err)
	}
	data, err := TabularDataFromPage(page)
	if err != nil {
		return TabularData{}, false, 0, fmt.Errorf("page 1: %w", err)
	}
	pages := 1
	sampled := page.Sampled
	c.pageFetched(queryID, pages, pageRequest.PageCursor, page, log)

	for page.MoreAvailable && data.RowCount() < request.MaxResults() {
		if len(page.Rows) == 0 {
			return TabularData{}, false, 0, fmt.Errorf("page %d reported more rows but returned none", pages)
		}
		pageRequest.PageCursor += len(page.Rows)

		page, err = c.fetchPage(ctx, pageRequest)
		pages++
		if err != nil {
			return TabularData{}, false, 0, fmt.Errorf("page %d: %w", pages, err)
		}
		if err := data.appendPage(page); err != nil {
			return TabularData{}, false, 0, fmt.Errorf("page %d: %w", pages, err)
		}
		sampled = sampled || page.Sampled
		c.pageFetched(queryID, pages, pageRequest.PageCursor, page, log)
	}

	return data, sampled, pages, nil
}

func (c *Client) fetchPage(ctx context.Context, request specs.PageRequestSpec) (specs.PageSpec, error) {
	if c.fetch == nil {
		return specs.PageSpec{}, fmt.Errorf("no transport configured")
	}
	if err := ctx.Err(); err != nil {
		return specs.PageSpec{}, err
	}
	return c.fetch(ctx, request)
}

func (c *Client) pageFetched(queryID string, n, cursor int, page specs.PageSpec, log logrus.FieldLogger) {
	log.WithFields(logrus.Fields{
		"page":           n,
		"cursor":         cursor,
		"rows":           len(page.Rows),
		"more_available": page.MoreAvailable,
	}).Debug("fetched report page")
	c.publish(log, PageFetchedEvent{
		QueryID:       queryID,
		Page:          n,
		Cursor:        cursor,
		Rows:          len(page.Rows),
		MoreAvailable: page.MoreAvailable,
		Sampled:       page.Sampled,
	})
}

// publish delivers e to the bus subscribers. A panicking handler is logged and
// never changes the outcome of the query.
func (c *Client) publish(log logrus.FieldLogger, e infra.Event) {
	defer func() {
		if r := recover(); r != nil {
			log.WithFields(logrus.Fields{
				"event": e.EventType().String(),
				"panic": r,
			}).Error("event handler panicked")
		}
	}()
	c.bus.Publish(e)
}

func newPageRequest(request RequestConfiguration) specs.PageRequestSpec {
	return specs.PageRequestSpec{
		ProfileID:  request.ProfileID(),
		StartDate:  formatSpecDate(request.StartDate()),
		EndDate:    formatSpecDate(request.EndDate()),
		Metrics:    withPrefixes(request.metrics),
		Dimensions: withPrefixes(request.dimensions),
		Filter:     request.Filter(),
		Sort:       request.Sort(),
		Segment:    request.Segment(),
		PageSize:   request.MaxResults(),
	}
}
