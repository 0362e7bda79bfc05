// Package gaapi fetches report pages from the Analytics Reporting API v4.
package gaapi

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzhttp"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"
	analyticsreporting "google.golang.org/api/analyticsreporting/v4"
	"google.golang.org/api/option"

	"github.com/chrisconley/gareport/internal"
	"github.com/chrisconley/gareport/specs"
)

const segmentDimension = "ga:segment"

// Transport turns page requests into batchGet calls. Its FetchPage method
// satisfies specs.FetchPage.
type Transport struct {
	reports *analyticsreporting.ReportsService
}

// New wraps an already configured service.
func New(service *analyticsreporting.Service) *Transport {
	return &Transport{reports: service.Reports}
}

// Dial authenticates as the configured service account and returns a transport
// bound to ctx. Extra options are applied after the derived ones.
func Dial(ctx context.Context, cfg internal.ServiceConfiguration, opts ...option.ClientOption) (*Transport, error) {
	service, err := analyticsreporting.NewService(ctx, append(clientOptions(ctx, cfg), opts...)...)
	if err != nil {
		return nil, fmt.Errorf("%w: unable to create reporting service: %v", internal.ErrConfigurationInvalid, err)
	}
	return New(service), nil
}

func clientOptions(ctx context.Context, cfg internal.ServiceConfiguration) []option.ClientOption {
	var base http.RoundTripper = http.DefaultTransport
	if cfg.GZipEnabled() {
		base = gzhttp.Transport(base)
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, &http.Client{Transport: base})

	jwtConfig := &jwt.Config{
		Email:        cfg.ServiceAccountID(),
		PrivateKey:   cfg.PrivateKey(),
		PrivateKeyID: cfg.PrivateKeyID(),
		Scopes:       []string{cfg.Scope()},
		TokenURL:     google.JWTTokenURL,
	}

	opts := []option.ClientOption{option.WithHTTPClient(jwtConfig.Client(ctx))}
	if ua := cfg.UserAgent(); ua != "" {
		opts = append(opts, option.WithUserAgent(ua))
	}
	return opts
}

// FetchPage requests one page of rows.
func (t *Transport) FetchPage(ctx context.Context, request specs.PageRequestSpec) (specs.PageSpec, error) {
	body := &analyticsreporting.GetReportsRequest{
		ReportRequests: []*analyticsreporting.ReportRequest{NewReportRequest(request)},
	}
	response, err := t.reports.BatchGet(body).Context(ctx).Do()
	if err != nil {
		return specs.PageSpec{}, fmt.Errorf("batchGet view %s: %w", request.ProfileID, err)
	}
	if len(response.Reports) != 1 {
		return specs.PageSpec{}, fmt.Errorf("batchGet view %s: expected 1 report, got %d", request.ProfileID, len(response.Reports))
	}
	return PageFromReport(response.Reports[0])
}

// NewReportRequest maps a page request onto the v4 request shape. Sort terms
// prefixed with "-" become descending order-bys, and a segment adds the
// ga:segment dimension the service requires alongside it.
func NewReportRequest(request specs.PageRequestSpec) *analyticsreporting.ReportRequest {
	out := &analyticsreporting.ReportRequest{
		ViewId:            request.ProfileID,
		FiltersExpression: request.Filter,
		PageSize:          int64(request.PageSize),
		DateRanges: []*analyticsreporting.DateRange{{
			StartDate: wireDate(request.StartDate),
			EndDate:   wireDate(request.EndDate),
		}},
	}
	if request.PageCursor > 0 {
		out.PageToken = strconv.Itoa(request.PageCursor)
	}
	for _, m := range request.Metrics {
		out.Metrics = append(out.Metrics, &analyticsreporting.Metric{Expression: m})
	}

	hasSegmentDimension := false
	for _, d := range request.Dimensions {
		hasSegmentDimension = hasSegmentDimension || d == segmentDimension
		out.Dimensions = append(out.Dimensions, &analyticsreporting.Dimension{Name: d})
	}
	if request.Segment != "" {
		out.Segments = []*analyticsreporting.Segment{{SegmentId: request.Segment}}
		if !hasSegmentDimension {
			out.Dimensions = append(out.Dimensions, &analyticsreporting.Dimension{Name: segmentDimension})
		}
	}

	for _, term := range strings.Split(request.Sort, internal.SortSeparator) {
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}
		order := &analyticsreporting.OrderBy{FieldName: term, SortOrder: "ASCENDING"}
		if name, ok := strings.CutPrefix(term, "-"); ok {
			order.FieldName, order.SortOrder = name, "DESCENDING"
		}
		out.OrderBys = append(out.OrderBys, order)
	}
	return out
}

// PageFromReport converts one report into a page. Dimension columns are
// strings; metric columns carry the kind derived from the declared metric type.
func PageFromReport(report *analyticsreporting.Report) (specs.PageSpec, error) {
	if report == nil || report.ColumnHeader == nil {
		return specs.PageSpec{}, fmt.Errorf("report has no column header")
	}

	var page specs.PageSpec
	for _, name := range report.ColumnHeader.Dimensions {
		page.Columns = append(page.Columns, specs.ColumnSpec{Name: name, Kind: "string"})
	}
	metricCount := 0
	if header := report.ColumnHeader.MetricHeader; header != nil {
		for _, entry := range header.MetricHeaderEntries {
			page.Columns = append(page.Columns, specs.ColumnSpec{Name: entry.Name, Kind: metricKind(entry.Type)})
			metricCount++
		}
	}

	if report.Data != nil {
		for i, row := range report.Data.Rows {
			cells := append([]string(nil), row.Dimensions...)
			if metricCount > 0 {
				if len(row.Metrics) == 0 {
					return specs.PageSpec{}, fmt.Errorf("row %d has no metric values", i)
				}
				cells = append(cells, row.Metrics[0].Values...)
			}
			if len(cells) != len(page.Columns) {
				return specs.PageSpec{}, fmt.Errorf("row %d has %d cells, expected %d", i, len(cells), len(page.Columns))
			}
			page.Rows = append(page.Rows, cells)
		}
		page.Sampled = len(report.Data.SamplesReadCounts) > 0 && len(report.Data.SamplingSpaceSizes) > 0
	}
	page.MoreAvailable = report.NextPageToken != ""
	return page, nil
}

func metricKind(metricType string) string {
	switch metricType {
	case "INTEGER":
		return "integer"
	case "FLOAT", "PERCENT":
		return "double"
	case "CURRENCY":
		return "currency"
	case "TIME":
		return "time"
	default:
		return "string"
	}
}

// wireDate accepts yyyy-MM-dd dates, which the service takes as-is, and the
// relative forms it understands ("today", "7daysAgo").
func wireDate(date string) string {
	if date == "" {
		return "today"
	}
	return date
}
