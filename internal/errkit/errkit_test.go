package errkit

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExitCodeMapping(t *testing.T) {
	cases := []struct {
		kind Kind
		code int
	}{
		{KindUsage, 2},
		{KindSubprocess, 3},
		{KindWalk, 4},
		{KindPlugin, 10},
		{KindAttribute, 11},
		{KindTestSyntax, 12},
		{KindType, 12},
	}
	for _, c := range cases {
		e := New(c.kind, "op", "msg")
		assert.Equal(t, c.code, e.ExitCode(), c.kind)
	}
}

func TestExitCodeUnwrapsThroughWrapping(t *testing.T) {
	base := New(KindAttribute, "resolve", "unknown attribute")
	wrapped := errors.Join(errors.New("context"), base)
	assert.Equal(t, 11, ExitCode(wrapped))
}

func TestExitCodeDefaultsToOneForUnknownErrors(t *testing.T) {
	assert.Equal(t, 1, ExitCode(errors.New("boom")))
	assert.Equal(t, 0, ExitCode(nil))
}

func TestWrapPreservesUnderlyingError(t *testing.T) {
	cause := errors.New("disk full")
	e := Wrap(KindWalk, "walk", "stat failed", cause)
	assert.ErrorIs(t, e, cause)
}
