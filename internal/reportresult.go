package internal

// QueryError describes why a query failed. Cause wraps ErrQueryFailed.
type QueryError struct {
	Message string
	Cause   error
}

func (e *QueryError) Error() string {
	return e.Message
}

func (e *QueryError) Unwrap() error {
	return e.Cause
}

// ReportResult is the tagged outcome of one query: either data or an error,
// never both. Check Success before reading Data.
type ReportResult struct {
	queryID string
	request RequestConfiguration
	success bool
	data    TabularData
	err     *QueryError
	sampled bool
	pages   int
}

func newSuccessResult(queryID string, request RequestConfiguration, data TabularData, sampled bool, pages int) ReportResult {
	return ReportResult{
		queryID: queryID,
		request: request,
		success: true,
		data:    data,
		sampled: sampled,
		pages:   pages,
	}
}

func newFailureResult(queryID string, request RequestConfiguration, message string, cause error) ReportResult {
	return ReportResult{
		queryID: queryID,
		request: request,
		err:     &QueryError{Message: message, Cause: cause},
	}
}

func (r ReportResult) Success() bool {
	return r.success
}

// Data returns the merged table; ok is false for failed results.
func (r ReportResult) Data() (data TabularData, ok bool) {
	if !r.success {
		return TabularData{}, false
	}
	return r.data, true
}

// Err returns the failure, or nil for successful results.
func (r ReportResult) Err() *QueryError {
	return r.err
}

// IsSampled reports whether any merged page was computed from sampled data.
func (r ReportResult) IsSampled() bool {
	return r.sampled
}

// Request returns the configuration the query ran with.
func (r ReportResult) Request() RequestConfiguration {
	return r.request
}

// QueryID identifies the query in logs and lifecycle events.
func (r ReportResult) QueryID() string {
	return r.queryID
}

// Pages is the number of pages merged into Data.
func (r ReportResult) Pages() int {
	return r.pages
}
