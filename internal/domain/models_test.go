package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPageOffset(t *testing.T) {
	offset, ok := PageOffset(3, 10)
	assert.True(t, ok)
	assert.Equal(t, 20, offset)

	_, ok = PageOffset(math.MaxInt64/5, 10)
	assert.False(t, ok)

	_, ok = PageOffset(math.MaxInt64, 1)
	assert.True(t, ok)

	_, ok = PageOffset(0, 10)
	assert.False(t, ok)
}

func TestNewPagination(t *testing.T) {
	assert.Equal(t, Pagination{Page: 1, PageSize: 5, Total: 8, TotalPages: 2}, NewPagination(1, 5, 8))
	assert.Equal(t, 0, NewPagination(1, 5, 0).TotalPages)
}
