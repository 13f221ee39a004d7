package trainapi

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Enrollment statuses as reported by the remote API.
const (
	EnrollmentPending   = "pending"
	EnrollmentActive    = "active"
	EnrollmentCompleted = "completed"
	EnrollmentCancelled = "cancelled"
)

type (
	Enrollment struct {
		ID         int       `json:"id"`
		CohortID   int       `json:"cohort_id"`
		MemberID   int       `json:"member_id"`
		MemberName string    `json:"member_name"`
		Status     string    `json:"status"`
		EnrolledAt time.Time `json:"enrolled_at"`
	}

	EnrollmentFilter struct {
		OrganizationID int
		CohortID       int
		Status         string
	}

	NewEnrollment struct {
		CohortID int `json:"cohort_id"`
		MemberID int `json:"member_id,omitempty"`
	}

	enrollmentList struct {
		Data []Enrollment `json:"data"`
	}

	enrollmentDetail struct {
		Data Enrollment `json:"data"`
	}
)

func (f EnrollmentFilter) query() url.Values {
	v := make(url.Values)
	if f.OrganizationID > 0 {
		v.Set("organization_id", strconv.Itoa(f.OrganizationID))
	}
	if f.CohortID > 0 {
		v.Set("cohort_id", strconv.Itoa(f.CohortID))
	}
	if f.Status != "" {
		v.Set("status", f.Status)
	}
	return v
}

func (c *Client) ListEnrollments(ctx context.Context, filter EnrollmentFilter) ([]Enrollment, error) {
	var resp enrollmentList
	if err := c.do(ctx, http.MethodGet, "/enrollments", filter.query(), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (c *Client) CreateEnrollment(ctx context.Context, data NewEnrollment) (Enrollment, error) {
	var resp enrollmentDetail
	if err := c.do(ctx, http.MethodPost, "/enrollments", nil, data, &resp); err != nil {
		return Enrollment{}, err
	}
	return resp.Data, nil
}

func (c *Client) CancelEnrollment(ctx context.Context, id int) error {
	return c.do(ctx, http.MethodDelete, "/enrollments/"+strconv.Itoa(id), nil, nil, nil)
}
