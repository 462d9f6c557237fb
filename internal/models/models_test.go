package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchReport(t *testing.T) {
	r := NewBatchReport("regionprops", 3)
	boom := errors.New("corrupt header")

	r.Set(2, FileResult{Path: "c.npy", Rows: 4})
	r.Set(0, FileResult{Path: "a.npy", Rows: 7})
	r.Set(1, FileResult{Path: "b.npy", Err: boom})
	r.Finish()

	assert.Len(t, r.Succeeded(), 2)
	require.Len(t, r.Failed(), 1)
	assert.Equal(t, "b.npy", r.Failed()[0].Path)
	assert.Equal(t, 11, r.Rows())
	assert.Equal(t, "a.npy", r.Results[0].Path)

	err := r.Err()
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "b.npy")

	s := r.Summary()
	assert.Equal(t, 1, s["failed"])
	assert.Equal(t, 3, s["files"])
}

func TestBatchReportNoFailures(t *testing.T) {
	r := NewBatchReport("threshold", 1)
	r.Set(0, FileResult{Path: "x.tif"})
	assert.NoError(t, r.Err())
	assert.Empty(t, r.Failed())
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("min_object_size", -3, "must be >= 0")
	assert.Equal(t, "validation failed for parameter 'min_object_size' with value '-3': must be >= 0", err.Error())

	var ve *ValidationError
	assert.True(t, errors.As(error(err), &ve))
}
