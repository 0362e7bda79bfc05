package internal

import (
	"fmt"
	"slices"
	"time"

	"cloud.google.com/go/civil"
)

const (
	DefaultMaxResults = 1000
	MinMaxResults     = 1
	MaxMaxResults     = 10000
)

// today is read whenever a default end date is needed.
var today = func() civil.Date {
	return civil.DateOf(time.Now())
}

// RequestConfiguration is a frozen report request. It has no setters; build one
// with NewRequest or NewRequestConfiguration.
type RequestConfiguration struct {
	profileID  string
	startDate  civil.Date
	endDate    civil.Date
	metrics    []string
	dimensions []string
	filter     string
	sort       string
	segment    string
	maxResults int
}

func (c RequestConfiguration) ProfileID() string {
	return c.profileID
}

func (c RequestConfiguration) StartDate() civil.Date {
	return c.startDate
}

func (c RequestConfiguration) EndDate() civil.Date {
	return c.endDate
}

// Metrics returns a copy of the metric names, without namespace prefix, in request order.
func (c RequestConfiguration) Metrics() []string {
	return slices.Clone(c.metrics)
}

// Dimensions returns a copy of the dimension names, without namespace prefix.
func (c RequestConfiguration) Dimensions() []string {
	return slices.Clone(c.dimensions)
}

func (c RequestConfiguration) Filter() string {
	return c.filter
}

func (c RequestConfiguration) Sort() string {
	return c.sort
}

func (c RequestConfiguration) Segment() string {
	return c.segment
}

func (c RequestConfiguration) MaxResults() int {
	return c.maxResults
}

// requestBuilder is the single mutable state behind every builder stage. The
// first failing call is recorded in err and turns all later calls into no-ops.
type requestBuilder struct {
	config RequestConfiguration
	err    error
}

func newRequestBuilder() *requestBuilder {
	return &requestBuilder{
		config: RequestConfiguration{
			metrics:    []string{},
			dimensions: []string{},
			endDate:    today(),
			maxResults: DefaultMaxResults,
		},
	}
}

func (b *requestBuilder) failed() bool {
	return b.err != nil
}

func (b *requestBuilder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

func (b *requestBuilder) build() (RequestConfiguration, error) {
	if b.err != nil {
		return RequestConfiguration{}, b.err
	}
	frozen := b.config
	frozen.metrics = slices.Clone(b.config.metrics)
	frozen.dimensions = slices.Clone(b.config.dimensions)
	return frozen, nil
}

// RequestBuilder is satisfied by every stage that may be frozen.
type RequestBuilder interface {
	Build() (RequestConfiguration, error)
}

// NewRequest starts a staged request builder.
//
// The stages enforce the construction order profile -> date range -> metrics;
// everything after that is freely composable:
//
//	cfg, err := NewRequest().
//	    WithProfileID("ga:12345").
//	    ForDateRange(start, end).
//	    WithMetrics("sessions", "pageviews").
//	    WithDimensions("date").
//	    FilterBy("country", OpEquals, "Ireland").
//	    AndFilterBy("sessions", OpGreater, "10").
//	    SortBy("sessions", true).
//	    Build()
func NewRequest() ProfileStage {
	return ProfileStage{b: newRequestBuilder()}
}

type ProfileStage struct {
	b *requestBuilder
}

// WithProfileID sets the target view. A namespace prefix on id is stripped.
func (s ProfileStage) WithProfileID(id string) DateRangeStage {
	if !s.b.failed() {
		s.b.config.profileID = RemovePrefix(id)
	}
	return DateRangeStage(s)
}

type DateRangeStage struct {
	b *requestBuilder
}

// ForDateRange sets the inclusive reporting window. The end date is optional and
// defaults to today; a start date after the end date is ErrOutOfRange.
func (s DateRangeStage) ForDateRange(start civil.Date, end ...civil.Date) MetricsStage {
	next := MetricsStage(s)
	if s.b.failed() {
		return next
	}
	if len(end) > 1 {
		s.b.fail(fmt.Errorf("%w: at most one end date may be given, got %d", ErrInvalidArgument, len(end)))
		return next
	}

	endDate := today()
	if len(end) == 1 {
		endDate = end[0]
	}
	if start.After(endDate) {
		s.b.fail(fmt.Errorf("%w: start date %s must be less than or equal to end date %s", ErrOutOfRange, start, endDate))
		return next
	}

	s.b.config.startDate = start
	s.b.config.endDate = endDate
	return next
}

type MetricsStage struct {
	b *requestBuilder
}

// WithMetrics sets the metrics to query. Order decides output column order.
func (s MetricsStage) WithMetrics(metrics ...string) ConfigStage {
	if !s.b.failed() {
		s.b.config.metrics = removePrefixes(metrics)
	}
	return ConfigStage(s)
}

// ConfigStage offers the freely composable configuration operations.
type ConfigStage struct {
	b *requestBuilder
}

// WithDimensions replaces the dimensions to break metrics down by.
func (s ConfigStage) WithDimensions(dimensions ...string) ConfigStage {
	if !s.b.failed() {
		s.b.config.dimensions = removePrefixes(dimensions)
	}
	return s
}

// FilterBy replaces the filter with a single term. Follow it with AndFilterBy or
// OrFilterBy to compose further terms.
func (s ConfigStage) FilterBy(field, operator, value string) CompositeFilterStage {
	next := CompositeFilterStage{ConfigStage: s}
	if s.b.failed() {
		return next
	}
	term, err := BuildFilterTerm(field, operator, value)
	if err != nil {
		s.b.fail(fmt.Errorf("filter by %q: %w", field, err))
		return next
	}
	s.b.config.filter = term
	return next
}

// WithCustomFilter overwrites the filter verbatim, bypassing the term grammar.
func (s ConfigStage) WithCustomFilter(filter string) ConfigStage {
	if !s.b.failed() {
		s.b.config.filter = filter
	}
	return s
}

// SortBy appends a sort term. Repeated calls accumulate in call order.
func (s ConfigStage) SortBy(field string, descending bool) ConfigStage {
	if s.b.failed() {
		return s
	}
	term, err := BuildSortTerm(field, descending)
	if err != nil {
		s.b.fail(fmt.Errorf("sort by %q: %w", field, err))
		return s
	}
	s.b.config.sort = appendSortTerm(s.b.config.sort, term)
	return s
}

// Custom exposes direct setters for segment, filter, sort and max results.
func (s ConfigStage) Custom(configure func(c *CustomConfigurer)) ConfigStage {
	if !s.b.failed() && configure != nil {
		configure(&CustomConfigurer{b: s.b})
	}
	return s
}

// Build freezes the configuration. It returns the first error recorded by any
// stage; no further cross-field validation is done.
func (s ConfigStage) Build() (RequestConfiguration, error) {
	return s.b.build()
}

// CompositeFilterStage is a ConfigStage whose filter already holds a term.
type CompositeFilterStage struct {
	ConfigStage
}

// AndFilterBy appends an AND term to the flat filter expression.
func (s CompositeFilterStage) AndFilterBy(field, operator, value string) CompositeFilterStage {
	return s.compose(FilterAnd, field, operator, value)
}

// OrFilterBy appends an OR term to the flat filter expression.
func (s CompositeFilterStage) OrFilterBy(field, operator, value string) CompositeFilterStage {
	return s.compose(FilterOr, field, operator, value)
}

func (s CompositeFilterStage) compose(separator, field, operator, value string) CompositeFilterStage {
	if s.b.failed() {
		return s
	}
	term, err := BuildFilterTerm(field, operator, value)
	if err != nil {
		s.b.fail(fmt.Errorf("filter by %q: %w", field, err))
		return s
	}
	s.b.config.filter = appendFilterTerm(s.b.config.filter, separator, term)
	return s
}

// CustomConfigurer sets request fields directly. Blank values are ignored.
type CustomConfigurer struct {
	b *requestBuilder
}

func (c *CustomConfigurer) Segment(value string) *CustomConfigurer {
	if !c.b.failed() && !isBlank(value) {
		c.b.config.segment = value
	}
	return c
}

func (c *CustomConfigurer) Filter(value string) *CustomConfigurer {
	if !c.b.failed() && !isBlank(value) {
		c.b.config.filter = value
	}
	return c
}

func (c *CustomConfigurer) Sort(value string) *CustomConfigurer {
	if !c.b.failed() && !isBlank(value) {
		c.b.config.sort = value
	}
	return c
}

// MaxResults bounds the number of rows collected; values outside [1, 10000]
// are ErrOutOfRange.
func (c *CustomConfigurer) MaxResults(value int) *CustomConfigurer {
	if c.b.failed() {
		return c
	}
	if value < MinMaxResults || value > MaxMaxResults {
		c.b.fail(fmt.Errorf("%w: max results must be between %d and %d, got %d", ErrOutOfRange, MinMaxResults, MaxMaxResults, value))
		return c
	}
	c.b.config.maxResults = value
	return c
}
