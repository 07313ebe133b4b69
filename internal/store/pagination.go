package store

import (
	"encoding/base64"
	"encoding/json"
	"math"
	"time"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type CursorPage struct {
	Items      interface{} `json:"items"`
	NextCursor string      `json:"next_cursor,omitempty"`
	HasMore    bool        `json:"has_more"`
}

type OffsetPage struct {
	Items      interface{} `json:"items"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	PageSize   int         `json:"page_size"`
	TotalPages int         `json:"total_pages"`
}

// OrderCursor is the keyset position of the last order on a page.
type OrderCursor struct {
	CreatedAt time.Time `json:"created_at"`
	ID        int64     `json:"id"`
}

// ClampPage brings user supplied paging values into range.
func ClampPage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return page, pageSize
}

func newOffsetPage(items interface{}, total int64, page, pageSize int) *OffsetPage {
	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}

	return &OffsetPage{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
}

func EncodeCursor(cursor OrderCursor) string {
	data, err := json.Marshal(cursor)
	if err != nil {
		return ""
	}
	return base64.URLEncoding.EncodeToString(data)
}

// DecodeCursor reads a cursor produced by EncodeCursor. The empty cursor
// starts from the newest order.
func DecodeCursor(encoded string) (OrderCursor, error) {
	var cursor OrderCursor
	if encoded == "" {
		return OrderCursor{
			CreatedAt: time.Now().Add(time.Minute),
			ID:        math.MaxInt64,
		}, nil
	}

	data, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		return cursor, err
	}

	err = json.Unmarshal(data, &cursor)
	return cursor, err
}
