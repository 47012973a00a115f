package domain

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Common domain errors
var (
	ErrUpstreamUnavailable = errors.New("job board unavailable")
	ErrNoData              = errors.New("job board returned no data")
	ErrJobNotFound         = errors.New("job not found")
)

// JobID is the canonical job identifier. Greenhouse sends ids as JSON numbers,
// clients send them as path segments; both normalise to the same string.
type JobID string

// ParseJobID normalises a raw id. Numeric ids lose leading zeros and
// surrounding whitespace so "042" and 42 compare equal.
func ParseJobID(raw string) JobID {
	raw = strings.TrimSpace(raw)
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return JobID(strconv.FormatInt(n, 10))
	}
	return JobID(raw)
}

func (id JobID) String() string {
	return string(id)
}

// IsNumeric reports whether the id is a base-10 integer.
func (id JobID) IsNumeric() bool {
	_, err := strconv.ParseInt(string(id), 10, 64)
	return err == nil
}

// MarshalJSON emits numeric ids as JSON numbers to keep the upstream wire shape.
func (id JobID) MarshalJSON() ([]byte, error) {
	if id.IsNumeric() {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

func (id *JobID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ParseJobID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("job id: %w", err)
	}
	*id = ParseJobID(n.String())
	return nil
}

// JobSummary is one entry of the board listing endpoint.
type JobSummary struct {
	ID JobID `json:"id"`
}

// RawQuestion is an application question as Greenhouse returns it.
type RawQuestion struct {
	Label    string           `json:"label"`
	Required bool             `json:"required"`
	Fields   []map[string]any `json:"fields"`
}

// RawJob is the detail record returned by "{board}/{id}?questions=true".
type RawJob struct {
	ID          JobID           `json:"id"`
	Title       string          `json:"title"`
	Content     string          `json:"content"`
	Offices     json.RawMessage `json:"offices"`
	Departments json.RawMessage `json:"departments"`
	Questions   []RawQuestion   `json:"questions"`
}

// Question is the public question object: label, required and a blank value,
// with the upstream question's first field definition merged on top.
type Question map[string]any

func (q Question) Label() string {
	s, _ := q["label"].(string)
	return s
}

func (q Question) Required() bool {
	b, _ := q["required"].(bool)
	return b
}

// Listing is one job opening exposed by the public API.
type Listing struct {
	ID          JobID           `json:"id"`
	Title       string          `json:"title"`
	Content     string          `json:"content"`
	Offices     json.RawMessage `json:"offices"`
	Departments json.RawMessage `json:"departments"`
	Questions   []Question      `json:"questions"`
}

// JobBoardRepository talks to the upstream job board.
type JobBoardRepository interface {
	FetchListingsSummary(ctx context.Context) ([]JobSummary, error)
	FetchListingDetail(ctx context.Context, id JobID) (*RawJob, error)
	SubmitApplication(ctx context.Context, sub *Submission) error
}

// ListingCache stores the full listing collection and individually resolved jobs.
// The two kinds of entries are populated independently.
type ListingCache interface {
	GetListings() ([]Listing, bool)
	PutListings(listings []Listing)
	GetJob(id JobID) (Listing, bool)
	PutJob(id JobID, listing Listing)
	Len() int
}

type ListingUsecase interface {
	ListListings(ctx context.Context) ([]Listing, error)
	Find(ctx context.Context, id JobID) (Listing, error)
	GetJob(ctx context.Context, id JobID) (Listing, error)
}
