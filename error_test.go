package hbscontent_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/fwojciec/hbscontent"
	"github.com/stretchr/testify/assert"
)

func TestErrorf(t *testing.T) {
	t.Parallel()

	err := hbscontent.Errorf(hbscontent.ENOTFOUND, "entry %q not found", "a.hbs")

	assert.Equal(t, hbscontent.ENOTFOUND, hbscontent.ErrorCode(err))
	assert.Equal(t, "entry \"a.hbs\" not found", hbscontent.ErrorMessage(err))
}

func TestErrorCode_NilError(t *testing.T) {
	t.Parallel()

	assert.Empty(t, hbscontent.ErrorCode(nil))
}

func TestErrorMessage_NilError(t *testing.T) {
	t.Parallel()

	assert.Empty(t, hbscontent.ErrorMessage(nil))
}

func TestErrorCode_WrappedError(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("saving: %w", hbscontent.Errorf(hbscontent.ECONFLICT, "duplicate"))

	assert.Equal(t, hbscontent.ECONFLICT, hbscontent.ErrorCode(err))
	assert.Equal(t, "duplicate", hbscontent.ErrorMessage(err))
}

func TestErrorCode_InternalError(t *testing.T) {
	t.Parallel()

	err := errors.New("disk on fire")

	assert.Equal(t, hbscontent.EINTERNAL, hbscontent.ErrorCode(err))
	assert.Equal(t, "Internal error.", hbscontent.ErrorMessage(err))
}

func TestParseError(t *testing.T) {
	t.Parallel()

	pe := &hbscontent.ParseError{Line: 3, Column: 7, Message: "unclosed element `div`"}
	err := fmt.Errorf("docs/index.hbs: %w", pe)

	assert.Equal(t, "unclosed element `div` (line 3, column 7)", pe.Error())
	assert.Equal(t, hbscontent.EINVALID, hbscontent.ErrorCode(err))
	assert.Equal(t, pe.Error(), hbscontent.ErrorMessage(err))
}
