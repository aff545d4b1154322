// Package require provides test assertions that stop the test on failure.  It is a thin layer
// over testify's require package with a few additions (YesError, NoDiff, ElementsEqual).
package require

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

// NoError checks for no error.
func NoError(tb testing.TB, err error, msgAndArgs ...interface{}) {
	tb.Helper()
	require.NoError(tb, err, msgAndArgs...)
}

// YesError checks for an error.
func YesError(tb testing.TB, err error, msgAndArgs ...interface{}) {
	tb.Helper()
	require.Error(tb, err, msgAndArgs...)
}

// ErrorIs checks that errors.Is(err, target).
func ErrorIs(tb testing.TB, err, target error, msgAndArgs ...interface{}) {
	tb.Helper()
	require.ErrorIs(tb, err, target, msgAndArgs...)
}

// ErrorContains checks that err is non-nil and its message contains substr.
func ErrorContains(tb testing.TB, err error, substr string, msgAndArgs ...interface{}) {
	tb.Helper()
	require.ErrorContains(tb, err, substr, msgAndArgs...)
}

// Equal checks equality of two values.
func Equal(tb testing.TB, expected, actual interface{}, msgAndArgs ...interface{}) {
	tb.Helper()
	require.Equal(tb, expected, actual, msgAndArgs...)
}

// NotEqual checks inequality of two values.
func NotEqual(tb testing.TB, expected, actual interface{}, msgAndArgs ...interface{}) {
	tb.Helper()
	require.NotEqual(tb, expected, actual, msgAndArgs...)
}

// ElementsEqual checks that two slices contain the same elements, ignoring order.
func ElementsEqual(tb testing.TB, expected, actual interface{}, msgAndArgs ...interface{}) {
	tb.Helper()
	require.ElementsMatch(tb, expected, actual, msgAndArgs...)
}

// NoDiff checks that cmp.Diff reports no difference between want and got.
func NoDiff(tb testing.TB, want, got interface{}, opts []cmp.Option, msgAndArgs ...interface{}) {
	tb.Helper()
	if diff := cmp.Diff(want, got, opts...); diff != "" {
		require.Fail(tb, "unexpected difference (-want +got):\n"+diff, msgAndArgs...)
	}
}

// True checks a value is true.
func True(tb testing.TB, value bool, msgAndArgs ...interface{}) {
	tb.Helper()
	require.True(tb, value, msgAndArgs...)
}

// False checks a value is false.
func False(tb testing.TB, value bool, msgAndArgs ...interface{}) {
	tb.Helper()
	require.False(tb, value, msgAndArgs...)
}

// Nil checks a value is nil.
func Nil(tb testing.TB, object interface{}, msgAndArgs ...interface{}) {
	tb.Helper()
	require.Nil(tb, object, msgAndArgs...)
}

// NotNil checks a value is non-nil.
func NotNil(tb testing.TB, object interface{}, msgAndArgs ...interface{}) {
	tb.Helper()
	require.NotNil(tb, object, msgAndArgs...)
}

// Len checks the length of a slice, map, string, or channel.
func Len(tb testing.TB, object interface{}, length int, msgAndArgs ...interface{}) {
	tb.Helper()
	require.Len(tb, object, length, msgAndArgs...)
}
