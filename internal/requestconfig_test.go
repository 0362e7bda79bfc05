package internal

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test helpers

var fixedToday = civil.Date{Year: 2024, Month: 3, Day: 15}

// freezeToday pins the default end date for the duration of the test.
func freezeToday(t *testing.T) {
	t.Helper()
	previous := today
	today = func() civil.Date { return fixedToday }
	t.Cleanup(func() { today = previous })
}

func date(year, month, day int) civil.Date {
	return civil.Date{Year: year, Month: time.Month(month), Day: day}
}

// newTestConfigStage returns a builder past the mandatory stages.
func newTestConfigStage() ConfigStage {
	return NewRequest().
		WithProfileID("12345").
		ForDateRange(date(2024, 1, 1), date(2024, 1, 31)).
		WithMetrics("sessions")
}

func TestNewRequest(t *testing.T) {
	t.Run("builds a configuration with defaults", func(t *testing.T) {
		// Arrange
		freezeToday(t)

		// Act
		cfg, err := NewRequest().
			WithProfileID("ga:12345").
			ForDateRange(date(2024, 1, 1)).
			WithMetrics("ga:sessions", "pageviews").
			Build()

		// Assert
		require.NoError(t, err)
		assert.Equal(t, "12345", cfg.ProfileID())
		assert.Equal(t, date(2024, 1, 1), cfg.StartDate())
		assert.Equal(t, fixedToday, cfg.EndDate())
		assert.Equal(t, []string{"sessions", "pageviews"}, cfg.Metrics())
		assert.Empty(t, cfg.Dimensions())
		assert.Empty(t, cfg.Filter())
		assert.Empty(t, cfg.Sort())
		assert.Empty(t, cfg.Segment())
		assert.Equal(t, DefaultMaxResults, cfg.MaxResults())
	})

	t.Run("frozen configuration is not affected by later builder calls", func(t *testing.T) {
		stage := newTestConfigStage().WithDimensions("date")

		cfg, err := stage.Build()
		require.NoError(t, err)
		stage.WithDimensions("country").SortBy("sessions", true)

		assert.Equal(t, []string{"date"}, cfg.Dimensions())
		assert.Empty(t, cfg.Sort())
	})

	t.Run("accessors return copies", func(t *testing.T) {
		cfg, err := newTestConfigStage().WithDimensions("date").Build()
		require.NoError(t, err)

		cfg.Metrics()[0] = "changed"
		cfg.Dimensions()[0] = "changed"

		assert.Equal(t, []string{"sessions"}, cfg.Metrics())
		assert.Equal(t, []string{"date"}, cfg.Dimensions())
	})
}

func TestForDateRange(t *testing.T) {
	t.Run("accepts equal start and end", func(t *testing.T) {
		cfg, err := NewRequest().
			WithProfileID("1").
			ForDateRange(date(2024, 2, 1), date(2024, 2, 1)).
			WithMetrics("sessions").
			Build()

		require.NoError(t, err)
		assert.Equal(t, cfg.StartDate(), cfg.EndDate())
	})

	t.Run("with start after end returns out of range", func(t *testing.T) {
		_, err := NewRequest().
			WithProfileID("1").
			ForDateRange(date(2024, 2, 2), date(2024, 2, 1)).
			WithMetrics("sessions").
			Build()

		assert.ErrorIs(t, err, ErrOutOfRange)
	})

	t.Run("with start after default end returns out of range", func(t *testing.T) {
		freezeToday(t)

		_, err := NewRequest().
			WithProfileID("1").
			ForDateRange(fixedToday.AddDays(1)).
			WithMetrics("sessions").
			Build()

		assert.ErrorIs(t, err, ErrOutOfRange)
	})

	t.Run("with more than one end date returns invalid argument", func(t *testing.T) {
		_, err := NewRequest().
			WithProfileID("1").
			ForDateRange(date(2024, 1, 1), date(2024, 1, 2), date(2024, 1, 3)).
			WithMetrics("sessions").
			Build()

		assert.ErrorIs(t, err, ErrInvalidArgument)
	})
}

func TestConfigStage_WithDimensions(t *testing.T) {
	t.Run("replaces dimensions and strips prefixes", func(t *testing.T) {
		cfg, err := newTestConfigStage().
			WithDimensions("country").
			WithDimensions("ga:date", "city").
			Build()

		require.NoError(t, err)
		assert.Equal(t, []string{"date", "city"}, cfg.Dimensions())
	})
}

func TestConfigStage_Filters(t *testing.T) {
	t.Run("single term is prefixed", func(t *testing.T) {
		cfg, err := newTestConfigStage().FilterBy("country", OpEquals, "Ireland").Build()

		require.NoError(t, err)
		assert.Equal(t, "ga:country==Ireland", cfg.Filter())
	})

	t.Run("composed terms form one flat expression", func(t *testing.T) {
		cfg, err := newTestConfigStage().
			FilterBy("a", OpEquals, "1").
			AndFilterBy("b", OpEquals, "2").
			OrFilterBy("c", OpEquals, "3").
			Build()

		require.NoError(t, err)
		assert.Equal(t, "ga:a==1;ga:b==2,ga:c==3", cfg.Filter())
	})

	t.Run("FilterBy replaces an earlier filter", func(t *testing.T) {
		cfg, err := newTestConfigStage().
			FilterBy("a", OpEquals, "1").
			AndFilterBy("b", OpEquals, "2").
			FilterBy("c", OpContains, "x").
			Build()

		require.NoError(t, err)
		assert.Equal(t, "ga:c=@x", cfg.Filter())
	})

	t.Run("custom filter is stored verbatim", func(t *testing.T) {
		cfg, err := newTestConfigStage().
			FilterBy("a", OpEquals, "1").
			WithCustomFilter("ga:pagePath=~^/blog").
			Build()

		require.NoError(t, err)
		assert.Equal(t, "ga:pagePath=~^/blog", cfg.Filter())
	})

	t.Run("blank filter parts return invalid argument", func(t *testing.T) {
		_, err := newTestConfigStage().FilterBy(" ", OpEquals, "1").Build()
		assert.ErrorIs(t, err, ErrInvalidArgument)

		_, err = newTestConfigStage().FilterBy("a", OpEquals, "1").AndFilterBy("b", "", "2").Build()
		assert.ErrorIs(t, err, ErrInvalidArgument)
	})
}

func TestConfigStage_SortBy(t *testing.T) {
	t.Run("accumulates in call order", func(t *testing.T) {
		cfg, err := newTestConfigStage().
			SortBy("sessions", true).
			SortBy("ga:date", false).
			Build()

		require.NoError(t, err)
		assert.Equal(t, "-ga:sessions,ga:date", cfg.Sort())
	})

	t.Run("blank field returns invalid argument", func(t *testing.T) {
		_, err := newTestConfigStage().SortBy("", false).Build()

		assert.ErrorIs(t, err, ErrInvalidArgument)
	})
}

func TestConfigStage_Custom(t *testing.T) {
	t.Run("sets fields directly", func(t *testing.T) {
		cfg, err := newTestConfigStage().
			Custom(func(c *CustomConfigurer) {
				c.Segment("gaid::-3").Filter("ga:a==1").Sort("-ga:b").MaxResults(250)
			}).
			Build()

		require.NoError(t, err)
		assert.Equal(t, "gaid::-3", cfg.Segment())
		assert.Equal(t, "ga:a==1", cfg.Filter())
		assert.Equal(t, "-ga:b", cfg.Sort())
		assert.Equal(t, 250, cfg.MaxResults())
	})

	t.Run("blank values are ignored", func(t *testing.T) {
		cfg, err := newTestConfigStage().
			FilterBy("a", OpEquals, "1").
			SortBy("b", false).
			Custom(func(c *CustomConfigurer) {
				c.Segment("").Filter("  ").Sort("")
			}).
			Build()

		require.NoError(t, err)
		assert.Empty(t, cfg.Segment())
		assert.Equal(t, "ga:a==1", cfg.Filter())
		assert.Equal(t, "ga:b", cfg.Sort())
	})

	t.Run("max results bounds", func(t *testing.T) {
		tests := []struct {
			value int
			valid bool
		}{
			{value: 0, valid: false},
			{value: 1, valid: true},
			{value: 10000, valid: true},
			{value: 10001, valid: false},
			{value: -5, valid: false},
		}
		for _, tt := range tests {
			cfg, err := newTestConfigStage().
				Custom(func(c *CustomConfigurer) { c.MaxResults(tt.value) }).
				Build()

			if tt.valid {
				require.NoError(t, err, "value %d", tt.value)
				assert.Equal(t, tt.value, cfg.MaxResults())
			} else {
				assert.ErrorIs(t, err, ErrOutOfRange, "value %d", tt.value)
			}
		}
	})
}

func TestRequestBuilder_FirstErrorWins(t *testing.T) {
	t.Run("later calls after a failure are no-ops", func(t *testing.T) {
		_, err := NewRequest().
			WithProfileID("1").
			ForDateRange(date(2024, 2, 2), date(2024, 2, 1)).
			WithMetrics("sessions").
			FilterBy("", OpEquals, "x").
			ConfigStage.
			Custom(func(c *CustomConfigurer) { c.MaxResults(0) }).
			Build()

		require.Error(t, err)
		assert.ErrorIs(t, err, ErrOutOfRange)
		assert.Contains(t, err.Error(), "start date")
	})
}
