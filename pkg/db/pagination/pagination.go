// Package pagination implements keyset paging over snowflake ids. Rows are
// listed newest first and a page token names the last id already returned.
package pagination

import (
	"encoding/base64"
	"encoding/json"
	"errors"

	"github.com/bwmarrin/snowflake"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 250
)

var ErrInvalidToken = errors.New("invalid page token")

type Request struct {
	PageToken string `form:"page_token"`
	PageSize  int    `form:"page_size"`
}

// Limit clamps PageSize to [1, MaxPageSize], using DefaultPageSize when unset.
func (r Request) Limit() int {
	switch {
	case r.PageSize <= 0:
		return DefaultPageSize
	case r.PageSize > MaxPageSize:
		return MaxPageSize
	default:
		return r.PageSize
	}
}

// Before decodes the token into the id the next page starts below. An empty
// token yields 0, meaning the first page.
func (r Request) Before() (snowflake.ID, error) {
	if r.PageToken == "" {
		return 0, nil
	}
	return DecodeToken(r.PageToken)
}

type Info struct {
	NextPageToken string `json:"next_page_token,omitempty"`
	HasMore       bool   `json:"has_more"`
}

type token struct {
	Before string `json:"before"`
}

func EncodeToken(before snowflake.ID) string {
	b, _ := json.Marshal(token{Before: before.String()})
	return base64.RawURLEncoding.EncodeToString(b)
}

func DecodeToken(raw string) (snowflake.ID, error) {
	b, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		return 0, ErrInvalidToken
	}

	var t token
	if err := json.Unmarshal(b, &t); err != nil {
		return 0, ErrInvalidToken
	}
	id, err := snowflake.ParseString(t.Before)
	if err != nil || id <= 0 {
		return 0, ErrInvalidToken
	}
	return id, nil
}

// Trim cuts rows fetched with limit+1 down to limit and reports whether a
// further page exists.
func Trim[T any](rows []T, limit int, id func(T) snowflake.ID) ([]T, Info) {
	if len(rows) <= limit {
		return rows, Info{}
	}

	rows = rows[:limit]
	return rows, Info{
		NextPageToken: EncodeToken(id(rows[len(rows)-1])),
		HasMore:       true,
	}
}
