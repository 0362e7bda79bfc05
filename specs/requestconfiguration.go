package specs

// RequestConfigurationSpec is the persisted form of a frozen report request.
//
// Request configurations are exported so that a report can be replayed later or
// handed to another process (a scheduler, a batch runner) without re-running the
// fluent builder. Keys match the builder's public contract verbatim. Fields holding
// a builder default are omitted on export and take the builder default on import.
type RequestConfigurationSpec struct {
	// Identifier of the reporting view the query targets.
	//
	// Stored without the "ga:" namespace prefix. Importing a document whose
	// profileId still carries the prefix strips it, the same way the builder does.
	ProfileID string `json:"profileId,omitempty"`

	// First day of the reporting window, ISO-8601 ("2024-01-31").
	//
	// Must not be after EndDate.
	StartDate string `json:"startDate,omitempty"`

	// Last day of the reporting window, ISO-8601.
	//
	// When absent on import the window ends on the importing day.
	EndDate string `json:"endDate,omitempty"`

	// Metric names in request order, without namespace prefix.
	//
	// Order is significant: it decides the column order of the materialized table.
	// Examples: "sessions", "pageviews", "transactionRevenue".
	Metrics []string `json:"metrics,omitempty"`

	// Dimension names in request order, without namespace prefix.
	//
	// Examples: "date", "country", "deviceCategory".
	Dimensions []string `json:"dimensions,omitempty"`

	// Filter expression in the remote grammar.
	//
	// Either composed by the builder ("ga:country==Ireland;ga:sessions>10") or a
	// verbatim custom expression. Empty means no filter.
	Filter string `json:"filter,omitempty"`

	// Comma-joined sort terms, each optionally prefixed with "-" for descending.
	//
	// Example: "-ga:sessions,ga:date".
	Sort string `json:"sort,omitempty"`

	// Segment identifier or inline segment definition. Empty means no segment.
	Segment string `json:"segment,omitempty"`

	// Upper bound on the number of rows collected, in [1, 10000].
	//
	// Omitted when equal to the default of 1000.
	MaxResults int `json:"maxResults,omitempty"`
}
