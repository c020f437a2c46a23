package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorFormatting(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		expected string
	}{
		{
			name:     "message only",
			err:      New(CodeInvalidInput, "empty buffer"),
			expected: "empty buffer",
		},
		{
			name:     "with op",
			err:      New(CodeDecodeFailed, "cannot decode").WithOp("convert"),
			expected: "convert: cannot decode",
		},
		{
			name: "with sorted context",
			err: New(CodeMalformed, "bad segment").
				WithContext("offset", 12).
				WithContext("format", "jpeg"),
			expected: "bad segment (format=jpeg, offset=12)",
		},
		{
			name:     "formatted",
			err:      Newf(CodeUnsupported, "%s output", "image/webp"),
			expected: "image/webp output",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestWrap(t *testing.T) {
	t.Run("nil error handling", func(t *testing.T) {
		assert.Nil(t, Wrap(nil, CodeInternal, "msg"))
		assert.Nil(t, WrapWithContext(nil, CodeInternal, "msg", nil))
	})

	t.Run("error chain traversal", func(t *testing.T) {
		cause := stderrors.New("unexpected EOF")
		err := WrapWithContext(cause, CodeMalformed, "scan failed", map[string]interface{}{"offset": 4})
		require.Error(t, err)

		assert.True(t, Is(err, cause))
		assert.Equal(t, CodeMalformed, GetCode(err))
		assert.Equal(t, "scan failed (offset=4): unexpected EOF", err.Error())
	})

	t.Run("code lookup through fmt wrapping", func(t *testing.T) {
		inner := Wrap(stderrors.New("boom"), CodeDecodeFailed, "decode")
		outer := fmt.Errorf("pipeline: %w", inner)

		assert.Equal(t, CodeDecodeFailed, GetCode(outer))
		assert.True(t, HasCode(outer, CodeDecodeFailed))
		assert.False(t, HasCode(outer, CodeEncodeFailed))
	})

	t.Run("nested codes", func(t *testing.T) {
		inner := Wrap(stderrors.New("boom"), CodeMalformed, "scan")
		outer := Wrap(inner, CodeInternal, "strip")

		assert.Equal(t, CodeInternal, GetCode(outer))
		assert.True(t, HasCode(outer, CodeMalformed))

		var e *Error
		require.True(t, As(outer, &e))
		assert.Equal(t, "strip", e.Message)
	})

	t.Run("unknown code", func(t *testing.T) {
		assert.Equal(t, CodeUnknown, GetCode(stderrors.New("plain")))
		assert.Equal(t, CodeUnknown, GetCode(nil))
	})
}
