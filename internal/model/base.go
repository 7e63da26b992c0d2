package model

import (
	"fmt"
	"strings"
	"time"
)

// Timestamps contains common audit columns
type Timestamps struct {
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Pagination represents common pagination parameters
type Pagination struct {
	Limit  int `json:"limit" form:"limit"`
	Offset int `json:"offset" form:"offset"`
}

// Normalize clamps the page to [1, max] rows.
func (p Pagination) Normalize(max int) Pagination {
	if p.Limit <= 0 || p.Limit > max {
		p.Limit = max
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// MiddleInitial returns "M." for a non-empty middle name or initial.
func MiddleInitial(middle string) string {
	for _, r := range middle {
		return strings.ToUpper(string(r)) + "."
	}
	return ""
}

// FullName renders "First M. Last". An absent middle initial leaves two
// spaces between the names; stored unique codes depend on that exact text.
func FullName(first, middle, last string) string {
	return strings.TrimSpace(fmt.Sprintf("%s %s %s", first, MiddleInitial(middle), last))
}

// FullNameLastFirst renders "Last, First M.".
func FullNameLastFirst(first, middle, last string) string {
	return strings.TrimSpace(fmt.Sprintf("%s, %s %s", last, first, MiddleInitial(middle)))
}
