package specs

// PageRequestSpec asks the reporting transport for one page of a report.
//
// The report client issues one PageRequestSpec per page, strictly sequentially:
// a page's cursor depends on how many rows the previous pages returned.
type PageRequestSpec struct {
	// Reporting view identifier, without namespace prefix.
	ProfileID string `json:"profileId"`

	// Reporting window, ISO-8601 dates, inclusive on both ends.
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`

	// Metric and dimension names with the "ga:" namespace prefix applied.
	Metrics    []string `json:"metrics"`
	Dimensions []string `json:"dimensions,omitempty"`

	// Filter expression, sort terms and segment, passed through untouched.
	// Empty strings mean "not set".
	Filter  string `json:"filter,omitempty"`
	Sort    string `json:"sort,omitempty"`
	Segment string `json:"segment,omitempty"`

	// Maximum number of rows the transport should return for this page.
	PageSize int `json:"pageSize"`

	// Zero-based row offset this page resumes from.
	//
	// The first page uses 0; each following page advances by the number of rows
	// the previous page returned.
	PageCursor int `json:"pageCursor"`
}

// PageSpec is one page of report data as returned by the transport.
//
// Cells are transported as strings exactly as the remote service formats them;
// typing happens in the result materializer from the column metadata.
type PageSpec struct {
	// Column metadata in row order: dimensions first, then metrics.
	Columns []ColumnSpec `json:"columns"`

	// Positional rows. Every row must carry one cell per column.
	Rows [][]string `json:"rows"`

	// True when the remote service has more rows after this page.
	MoreAvailable bool `json:"moreAvailable"`

	// True when the remote service computed this page from sampled data.
	Sampled bool `json:"sampled"`
}

// ColumnSpec describes one column of a page.
type ColumnSpec struct {
	// Column name as reported by the remote service, e.g. "ga:sessions".
	Name string `json:"name"`

	// Declared kind of the column values.
	//
	// Recognised kinds (case-insensitive): "integer", "double", "currency", "time".
	// Anything else is treated as text, except the "ga:date" column which holds
	// yyyyMMdd calendar dates.
	Kind string `json:"kind"`
}
