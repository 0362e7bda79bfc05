package internal

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"cloud.google.com/go/civil"
	"github.com/goccy/go-json"
	"github.com/gofrs/flock"

	"github.com/chrisconley/gareport/specs"
)

// NewRequestConfiguration rebuilds a frozen configuration from its persisted form.
// The document is replayed through the staged builder, so absent fields take the
// builder defaults and range checks match a freshly built request.
func NewRequestConfiguration(spec specs.RequestConfigurationSpec) (RequestConfiguration, error) {
	if spec.StartDate == "" {
		return RequestConfiguration{}, fmt.Errorf("invalid start date: %w: startDate is required", ErrInvalidArgument)
	}
	start, err := parseSpecDate(spec.StartDate)
	if err != nil {
		return RequestConfiguration{}, fmt.Errorf("invalid start date: %w", err)
	}

	var end []civil.Date
	if spec.EndDate != "" {
		endDate, err := parseSpecDate(spec.EndDate)
		if err != nil {
			return RequestConfiguration{}, fmt.Errorf("invalid end date: %w", err)
		}
		end = append(end, endDate)
	}

	return NewRequest().
		WithProfileID(spec.ProfileID).
		ForDateRange(start, end...).
		WithMetrics(spec.Metrics...).
		WithDimensions(spec.Dimensions...).
		Custom(func(c *CustomConfigurer) {
			c.Filter(spec.Filter).Sort(spec.Sort).Segment(spec.Segment)
			if spec.MaxResults != 0 {
				c.MaxResults(spec.MaxResults)
			}
		}).
		Build()
}

// Spec converts the configuration to its persisted form, leaving builder
// defaults empty so they are omitted from exported documents.
func (c RequestConfiguration) Spec() specs.RequestConfigurationSpec {
	spec := specs.RequestConfigurationSpec{
		ProfileID: c.profileID,
		StartDate: formatSpecDate(c.startDate),
		EndDate:   formatSpecDate(c.endDate),
		Filter:    c.filter,
		Sort:      c.sort,
		Segment:   c.segment,
	}
	if len(c.metrics) > 0 {
		spec.Metrics = c.Metrics()
	}
	if len(c.dimensions) > 0 {
		spec.Dimensions = c.Dimensions()
	}
	if c.maxResults != DefaultMaxResults {
		spec.MaxResults = c.maxResults
	}
	return spec
}

// ExportTo writes the configuration as an indented JSON document.
func (c RequestConfiguration) ExportTo(w io.Writer) error {
	if w == nil {
		return fmt.Errorf("%w: writer is nil", ErrInvalidArgument)
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(c.Spec()); err != nil {
		return fmt.Errorf("failed to export request configuration: %w", err)
	}
	return nil
}

// ExportToFile writes the configuration to path while holding an exclusive lock
// on path + ".lock".
func (c RequestConfiguration) ExportToFile(path string) error {
	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("failed to lock %s: %w", path, err)
	}
	defer func() { _ = lock.Unlock() }()

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := c.ExportTo(file); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

// ImportFrom reads a configuration document from r.
func ImportFrom(r io.Reader) (RequestConfiguration, error) {
	if r == nil {
		return RequestConfiguration{}, fmt.Errorf("%w: reader is nil", ErrNotFound)
	}
	var spec specs.RequestConfigurationSpec
	if err := json.NewDecoder(r).Decode(&spec); err != nil {
		if errors.Is(err, io.EOF) {
			return RequestConfiguration{}, fmt.Errorf("%w: empty request configuration document", ErrNotFound)
		}
		return RequestConfiguration{}, fmt.Errorf("%w: malformed request configuration: %v", ErrInvalidArgument, err)
	}
	return NewRequestConfiguration(spec)
}

// LoadFrom reads a configuration document from path under a shared lock.
// A missing file is ErrNotFound.
func LoadFrom(path string) (RequestConfiguration, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return RequestConfiguration{}, fmt.Errorf("%w: request configuration %s", ErrNotFound, path)
		}
		return RequestConfiguration{}, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	lock := flock.New(path + ".lock")
	if err := lock.RLock(); err != nil {
		return RequestConfiguration{}, fmt.Errorf("failed to lock %s: %w", path, err)
	}
	defer func() { _ = lock.Unlock() }()

	file, err := os.Open(path)
	if err != nil {
		return RequestConfiguration{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	cfg, err := ImportFrom(file)
	if err != nil {
		return RequestConfiguration{}, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return cfg, nil
}

func parseSpecDate(value string) (civil.Date, error) {
	d, err := civil.ParseDate(value)
	if err != nil {
		return civil.Date{}, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	return d, nil
}

func formatSpecDate(d civil.Date) string {
	if !d.IsValid() {
		return ""
	}
	return d.String()
}
