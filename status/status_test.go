package status

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodeString(t *testing.T) {
	testCases := []struct {
		code Code
		want string
	}{
		{NotFound, "NotFoundError"},
		{Corruption, "CorruptionError"},
		{NotSupported, "NotSupportedError"},
		{InvalidArgument, "InvalidArgumentError"},
		{CompressionError, "CompressionError"},
		{IOError, "IOError"},
		{Code(99), "UnknownError"},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.want, tc.code.String())
	}
}

func TestErrorRendering(t *testing.T) {
	cause := errors.New("disk on fire")

	testCases := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "message and cause",
			err:  Wrap(IOError, "write log", cause),
			want: "WickDB error [IOError] : write log , raw : disk on fire",
		},
		{
			name: "message only",
			err:  New(Corruption, "bad record"),
			want: "WickDB error [CorruptionError] : bad record",
		},
		{
			name: "cause only",
			err:  Wrap(NotFound, "", cause),
			want: "WickDB error [NotFoundError] : disk on fire",
		},
		{
			name: "kind only",
			err:  New(NotSupported, ""),
			want: "WickDB error [NotSupportedError]",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.err.Error())
		})
	}
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := Wrap(IOError, "append", cause)
	require.ErrorIs(t, err, cause)

	var se *Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, IOError, se.Code)
	assert.Equal(t, "append", se.Msg)
}

func TestIs(t *testing.T) {
	assert.True(t, Is(New(Corruption, "x"), Corruption))
	assert.False(t, Is(New(Corruption, "x"), IOError))
	assert.False(t, Is(errors.New("plain"), Corruption))
	assert.False(t, Is(nil, Corruption))

	// Wrapped with %w, the kind is still found.
	wrapped := fmt.Errorf("context: %w", New(NotFound, "missing"))
	assert.True(t, IsNotFound(wrapped))

	// A status error wrapping another status error reports both kinds.
	nested := Wrap(IOError, "outer", New(Corruption, "inner"))
	assert.True(t, IsIOError(nested))
	assert.True(t, IsCorruption(nested))
	assert.False(t, IsNotFound(nested))
}

func TestPredicates(t *testing.T) {
	assert.True(t, IsNotFound(New(NotFound, "")))
	assert.True(t, IsCorruption(New(Corruption, "")))
	assert.True(t, IsNotSupported(New(NotSupported, "")))
	assert.True(t, IsInvalidArgument(New(InvalidArgument, "")))
	assert.True(t, IsCompressionError(New(CompressionError, "")))
	assert.True(t, IsIOError(New(IOError, "")))
}
