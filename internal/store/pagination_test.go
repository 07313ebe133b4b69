package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	in := OrderCursor{CreatedAt: time.Date(2026, 2, 15, 8, 30, 0, 0, time.UTC), ID: 48}

	out, err := DecodeCursor(EncodeCursor(in))
	require.NoError(t, err)

	assert.True(t, in.CreatedAt.Equal(out.CreatedAt))
	assert.Equal(t, in.ID, out.ID)
}

func TestDecodeCursorRejectsGarbage(t *testing.T) {
	_, err := DecodeCursor("%%%")
	assert.Error(t, err)
}

func TestEmptyCursorStartsAfterNow(t *testing.T) {
	c, err := DecodeCursor("")
	require.NoError(t, err)
	assert.True(t, c.CreatedAt.After(time.Now()))
}

func TestClampPage(t *testing.T) {
	tests := []struct {
		page, size         int
		wantPage, wantSize int
	}{
		{0, 0, 1, DefaultPageSize},
		{3, 50, 3, 50},
		{-1, 1000, 1, MaxPageSize},
	}

	for _, tt := range tests {
		page, size := ClampPage(tt.page, tt.size)
		assert.Equal(t, tt.wantPage, page)
		assert.Equal(t, tt.wantSize, size)
	}
}
