package internal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldPrefix(t *testing.T) {
	t.Run("WithPrefix is idempotent", func(t *testing.T) {
		assert.Equal(t, "ga:sessions", WithPrefix("sessions"))
		assert.Equal(t, "ga:sessions", WithPrefix("ga:sessions"))
		assert.Equal(t, WithPrefix("x"), WithPrefix(WithPrefix("x")))
	})

	t.Run("RemovePrefix strips one prefix and leaves other names alone", func(t *testing.T) {
		assert.Equal(t, "sessions", RemovePrefix("ga:sessions"))
		assert.Equal(t, "sessions", RemovePrefix("sessions"))
		assert.Equal(t, "", RemovePrefix("ga:"))
	})
}

func TestBuildFilterTerm(t *testing.T) {
	t.Run("renders prefixed field, operator and value", func(t *testing.T) {
		operators := []string{
			OpEquals, OpNotEquals, OpGreater, OpLess, OpGreaterOrEqual,
			OpLessOrEqual, OpMatchesRegex, OpNotRegex, OpContains, OpNotContains,
		}
		for _, op := range operators {
			term, err := BuildFilterTerm("country", op, "Ireland")

			require.NoError(t, err)
			assert.Equal(t, "ga:country"+op+"Ireland", term)
		}
	})

	t.Run("does not double the prefix", func(t *testing.T) {
		term, err := BuildFilterTerm("ga:country", OpEquals, "Ireland")

		require.NoError(t, err)
		assert.Equal(t, "ga:country==Ireland", term)
	})

	t.Run("blank parts return invalid argument", func(t *testing.T) {
		_, err := BuildFilterTerm("", OpEquals, "x")
		assert.ErrorIs(t, err, ErrInvalidArgument)

		_, err = BuildFilterTerm("a", " ", "x")
		assert.ErrorIs(t, err, ErrInvalidArgument)

		_, err = BuildFilterTerm("a", OpEquals, "")
		assert.ErrorIs(t, err, ErrInvalidArgument)
	})
}

func TestBuildSortTerm(t *testing.T) {
	t.Run("ascending and descending", func(t *testing.T) {
		asc, err := BuildSortTerm("date", false)
		require.NoError(t, err)
		desc, err := BuildSortTerm("ga:sessions", true)
		require.NoError(t, err)

		assert.Equal(t, "ga:date", asc)
		assert.Equal(t, "-ga:sessions", desc)
	})
}

func TestAppendFilterTerm(t *testing.T) {
	t.Run("first term on an empty filter is the term itself", func(t *testing.T) {
		assert.Equal(t, "ga:a==1", appendFilterTerm("", FilterAnd, "ga:a==1"))
		assert.Equal(t, "ga:a==1", appendFilterTerm("", FilterOr, "ga:a==1"))
	})

	t.Run("joins with the given separator", func(t *testing.T) {
		assert.Equal(t, "ga:a==1;ga:b==2", appendFilterTerm("ga:a==1", FilterAnd, "ga:b==2"))
		assert.Equal(t, "ga:a==1,ga:b==2", appendFilterTerm("ga:a==1", FilterOr, "ga:b==2"))
	})
}
