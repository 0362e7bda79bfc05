package main

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/goccy/go-json"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chrisconley/gareport/internal"
	"github.com/chrisconley/gareport/specs"
)

// Test helpers

func runTestQuery(t *testing.T, page specs.PageSpec, fetchErr error) internal.ReportResult {
	t.Helper()
	client := internal.NewClient(func(context.Context, specs.PageRequestSpec) (specs.PageSpec, error) {
		return page, fetchErr
	}, internal.WithLogger(logrus.New()))

	request, err := (&requestFlags{
		profile:    "12345",
		start:      "2024-01-01",
		end:        "2024-01-02",
		metrics:    []string{"sessions"},
		maxResults: internal.DefaultMaxResults,
	}).build()
	require.NoError(t, err)
	return client.Query(context.Background(), request)
}

func newTestResult(t *testing.T) internal.ReportResult {
	t.Helper()
	result := runTestQuery(t, specs.PageSpec{
		Columns: []specs.ColumnSpec{
			{Name: "ga:date", Kind: "string"},
			{Name: "ga:sessions", Kind: "integer"},
			{Name: "ga:revenue", Kind: "currency"},
		},
		Rows: [][]string{
			{"20240101", "12", "19.99"},
			{"20240102", "7", "0.50"},
		},
		Sampled: true,
	}, nil)
	require.True(t, result.Success())
	return result
}

func TestRequestFlags_Build(t *testing.T) {
	t.Run("maps flags onto the builder", func(t *testing.T) {
		flags := requestFlags{
			profile:    "ga:12345",
			start:      "2024-01-01",
			end:        "2024-01-31",
			metrics:    []string{"sessions", "ga:pageviews"},
			dimensions: []string{"date"},
			filter:     "ga:country==Ireland",
			sort:       []string{"-sessions", " date"},
			segment:    "gaid::-1",
			maxResults: 200,
		}

		request, err := flags.build()

		require.NoError(t, err)
		assert.Equal(t, "12345", request.ProfileID())
		assert.Equal(t, []string{"sessions", "pageviews"}, request.Metrics())
		assert.Equal(t, []string{"date"}, request.Dimensions())
		assert.Equal(t, "ga:country==Ireland", request.Filter())
		assert.Equal(t, "-ga:sessions,ga:date", request.Sort())
		assert.Equal(t, "gaid::-1", request.Segment())
		assert.Equal(t, 200, request.MaxResults())
	})

	t.Run("requires profile and start", func(t *testing.T) {
		_, err := (&requestFlags{profile: "1", maxResults: 10}).build()

		assert.ErrorIs(t, err, internal.ErrInvalidArgument)
	})

	t.Run("reports builder range errors", func(t *testing.T) {
		_, err := (&requestFlags{profile: "1", start: "2024-01-01", end: "2024-01-02", maxResults: 0}).build()

		assert.ErrorIs(t, err, internal.ErrOutOfRange)
	})

	t.Run("rejects malformed dates", func(t *testing.T) {
		_, err := (&requestFlags{profile: "1", start: "20240101", maxResults: 10}).build()

		assert.ErrorIs(t, err, internal.ErrInvalidArgument)
	})
}

func TestWriteResult(t *testing.T) {
	t.Run("table", func(t *testing.T) {
		var buf bytes.Buffer

		require.NoError(t, writeResult(&buf, formatTable, newTestResult(t)))

		out := buf.String()
		assert.Contains(t, out, "ga:date")
		assert.Contains(t, out, "2024-01-02")
		assert.Contains(t, out, "19.99")
		assert.Contains(t, out, "(2 rows, sampled)")
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer

		require.NoError(t, writeResult(&buf, formatJSON, newTestResult(t)))

		var rows []map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &rows))
		require.Len(t, rows, 2)
		assert.Equal(t, "2024-01-01", rows[0]["ga:date"])
		assert.Equal(t, float64(12), rows[0]["ga:sessions"])
	})

	t.Run("yaml keeps column order", func(t *testing.T) {
		var buf bytes.Buffer

		require.NoError(t, writeResult(&buf, formatYAML, newTestResult(t)))

		out := buf.String()
		assert.Contains(t, out, "ga:sessions: 12")
		assert.Contains(t, out, "ga:revenue: 19.99")
		assert.Less(t, bytes.Index(buf.Bytes(), []byte("ga:date")), bytes.Index(buf.Bytes(), []byte("ga:sessions")))
	})

	t.Run("arrow stream", func(t *testing.T) {
		var buf bytes.Buffer

		require.NoError(t, writeResult(&buf, formatArrow, newTestResult(t)))

		reader, err := ipc.NewReader(&buf, ipc.WithAllocator(memory.DefaultAllocator))
		require.NoError(t, err)
		defer reader.Release()
		require.True(t, reader.Next())
		assert.Equal(t, int64(2), reader.Record().NumRows())
	})

	t.Run("failed result is written as an error line", func(t *testing.T) {
		var buf bytes.Buffer
		result := runTestQuery(t, specs.PageSpec{}, errors.New("quota exceeded"))

		require.NoError(t, writeResult(&buf, formatTable, result))

		assert.Contains(t, buf.String(), "quota exceeded")
		assert.Error(t, failedQueries(result))
	})

	t.Run("unknown format", func(t *testing.T) {
		err := writeResult(&bytes.Buffer{}, "xml", newTestResult(t))

		assert.ErrorIs(t, err, internal.ErrInvalidArgument)
	})
}

func TestServiceConfiguration(t *testing.T) {
	t.Run("reads settings from a config file and env", func(t *testing.T) {
		// Arrange
		key, err := rsa.GenerateKey(rand.Reader, 2048)
		require.NoError(t, err)
		der, err := x509.MarshalPKCS8PrivateKey(key)
		require.NoError(t, err)
		dir := t.TempDir()
		keyPath := filepath.Join(dir, "key.pem")
		require.NoError(t, os.WriteFile(keyPath, pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}), 0o600))

		configPath := filepath.Join(dir, "gareport.yaml")
		require.NoError(t, os.WriteFile(configPath, []byte("account: reporter@project.iam.gserviceaccount.com\nkey-file: "+keyPath+"\ngzip: false\n"), 0o600))
		t.Setenv("GAREPORT_APP_NAME", "nightly")

		v := viper.New()
		v.SetDefault("scope", internal.ScopeAnalyticsReadonly)

		// Act
		require.NoError(t, loadSettings(v, configPath))
		cfg, err := serviceConfiguration(v)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, "reporter@project.iam.gserviceaccount.com", cfg.ServiceAccountID())
		assert.False(t, cfg.GZipEnabled())
		assert.Equal(t, "nightly", cfg.ApplicationName())
		assert.Equal(t, "nightly", cfg.UserAgent())
	})

	t.Run("missing explicit config file is an error", func(t *testing.T) {
		err := loadSettings(viper.New(), filepath.Join(t.TempDir(), "absent.yaml"))

		assert.Error(t, err)
	})

	t.Run("missing credentials fail validation", func(t *testing.T) {
		_, err := serviceConfiguration(viper.New())

		assert.ErrorIs(t, err, internal.ErrConfigurationInvalid)
	})
}

func TestExportCommand(t *testing.T) {
	t.Run("writes a request document that batch can load", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "request.json")
		rootCmd.SetArgs([]string{
			"export", "--profile", "12345", "--start", "2024-01-01", "--end", "2024-01-31",
			"--metrics", "sessions", "--sort", "-sessions", "--file", path,
		})
		t.Cleanup(func() { rootCmd.SetArgs(nil) })

		require.NoError(t, rootCmd.Execute())

		request, err := internal.LoadFrom(path)
		require.NoError(t, err)
		assert.Equal(t, "12345", request.ProfileID())
		assert.Equal(t, "-ga:sessions", request.Sort())
	})
}
