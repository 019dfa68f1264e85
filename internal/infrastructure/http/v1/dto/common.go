// Package dto provides Data Transfer Objects for API requests/responses.
// Amounts and quantities travel as decimal strings; dates as YYYY-MM-DD or RFC 3339.
package dto

import (
	"fmt"
	"strings"
	"time"

	"pharmaledger/internal/core/apperror"
	"pharmaledger/internal/core/id"
	"pharmaledger/internal/core/types"
)

const dateLayout = "2006-01-02"

// IDResponse is returned by endpoints that only create a record.
type IDResponse struct {
	ID string `json:"id"`
}

// ReasonRequest is the body of the void and reverse endpoints.
type ReasonRequest struct {
	Reason string `json:"reason" binding:"required"`
	UserID string `json:"userId" binding:"required"`
}

// ListResponse wraps a list result.
type ListResponse[T any] struct {
	Items []T `json:"items"`
	Count int `json:"count"`
}

// NewListResponse never renders a null items array.
func NewListResponse[T any](items []T) ListResponse[T] {
	if items == nil {
		items = []T{}
	}
	return ListResponse[T]{Items: items, Count: len(items)}
}

// parser converts request strings to domain values, keeping the first failure.
type parser struct {
	err error
}

func (p *parser) fail(field, msg string) {
	if p.err == nil {
		p.err = apperror.NewInvalidInput(field, msg)
	}
}

func (p *parser) id(field, s string) id.ID {
	v, err := id.Parse(strings.TrimSpace(s))
	if err != nil {
		p.fail(field, fmt.Sprintf("%s is not a valid id", field))
	}
	return v
}

func (p *parser) optID(field string, s *string) *id.ID {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	return id.Ptr(p.id(field, *s))
}

// money parses a decimal string; empty means zero.
func (p *parser) money(field, s string) types.Money {
	s = strings.TrimSpace(s)
	if s == "" {
		return types.Zero()
	}
	v, err := types.NewMoneyFromString(s)
	if err != nil {
		p.fail(field, fmt.Sprintf("%s must be a decimal string", field))
	}
	return v
}

func (p *parser) date(field, s string) time.Time {
	v, err := ParseDate(s)
	if err != nil {
		p.fail(field, err.Error())
	}
	return v
}

// ParseDate accepts YYYY-MM-DD or RFC 3339.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("date %q must be YYYY-MM-DD or RFC 3339", s)
}

// ParseOptionalDate returns nil for an empty string.
func ParseOptionalDate(field, s string) (*time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	t, err := ParseDate(s)
	if err != nil {
		return nil, apperror.NewInvalidInput(field, err.Error())
	}
	return &t, nil
}

// ParseID parses a path or query id.
func ParseID(field, s string) (id.ID, error) {
	var p parser
	v := p.id(field, s)
	return v, p.err
}
