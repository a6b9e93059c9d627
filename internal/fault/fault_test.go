package fault

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCode(t *testing.T) {
	require.Equal(t, "", Code(nil))
	require.Equal(t, CodeValidation, Code(Validation([]string{"selfie image is required"})))
	require.Equal(t, CodeInput, Code(Input("ocr.extract", errors.New("unreadable image"))))
	require.Equal(t, CodeTransient, Code(Transient("compare", errors.New("connection reset"))))
	require.Equal(t, CodeTimeout, Code(Transient("compare", context.DeadlineExceeded)))
}

func TestClassify(t *testing.T) {
	require.NoError(t, Classify("compare", nil))
	require.True(t, IsTransient(Classify("compare", errors.New("something unexpected"))))
	require.True(t, IsTransient(Classify("compare", context.Canceled)))
	require.Equal(t, CodeTimeout, Code(Classify("compare", context.DeadlineExceeded)))
}

func TestFaultsUnwrap(t *testing.T) {
	cause := errors.New("boom")

	require.ErrorIs(t, Input("op", cause), cause)
	require.ErrorIs(t, Transient("op", cause), cause)
	require.ErrorIs(t, Transient("op", fmt.Errorf("wrapped: %w", context.DeadlineExceeded)), context.DeadlineExceeded)
}

func TestIsTimeoutThroughWrapping(t *testing.T) {
	require.True(t, IsTimeout(Transient("op", context.DeadlineExceeded)))
	require.False(t, IsTimeout(Transient("op", errors.New("other"))))
}
