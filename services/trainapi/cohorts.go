package trainapi

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/volatiletech/null/v8"
)

type (
	Cohort struct {
		ID          int         `json:"id"`
		TrainingID  int         `json:"training_id"`
		Name        string      `json:"name"`
		Description null.String `json:"description"`
		Capacity    null.Int    `json:"capacity"`
		StartDate   null.Time   `json:"start_date"`
		EndDate     null.Time   `json:"end_date"`
		CreatedAt   time.Time   `json:"created_at"`
	}

	CohortFilter struct {
		OrganizationID int
		TrainingID     int
		Search         string
	}

	NewCohort struct {
		TrainingID  int         `json:"training_id"`
		Name        string      `json:"name"`
		Description null.String `json:"description"`
		Capacity    null.Int    `json:"capacity"`
		StartDate   null.Time   `json:"start_date"`
		EndDate     null.Time   `json:"end_date"`
	}

	UpdateCohort struct {
		Name        null.String `json:"name,omitempty"`
		Description null.String `json:"description,omitempty"`
		Capacity    null.Int    `json:"capacity,omitempty"`
		StartDate   null.Time   `json:"start_date,omitempty"`
		EndDate     null.Time   `json:"end_date,omitempty"`
	}

	cohortList struct {
		Data []Cohort `json:"data"`
	}

	cohortDetail struct {
		Data Cohort `json:"data"`
	}
)

func (f CohortFilter) query() url.Values {
	v := make(url.Values)
	if f.OrganizationID > 0 {
		v.Set("organization_id", strconv.Itoa(f.OrganizationID))
	}
	if f.TrainingID > 0 {
		v.Set("training_id", strconv.Itoa(f.TrainingID))
	}
	if f.Search != "" {
		v.Set("search", f.Search)
	}
	return v
}

func (c *Client) ListCohorts(ctx context.Context, filter CohortFilter) ([]Cohort, error) {
	var resp cohortList
	if err := c.do(ctx, http.MethodGet, "/cohorts", filter.query(), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (c *Client) GetCohort(ctx context.Context, id int) (Cohort, error) {
	var resp cohortDetail
	if err := c.do(ctx, http.MethodGet, "/cohorts/"+strconv.Itoa(id), nil, nil, &resp); err != nil {
		return Cohort{}, err
	}
	return resp.Data, nil
}

func (c *Client) CreateCohort(ctx context.Context, data NewCohort) (Cohort, error) {
	var resp cohortDetail
	if err := c.do(ctx, http.MethodPost, "/cohorts", nil, data, &resp); err != nil {
		return Cohort{}, err
	}
	return resp.Data, nil
}

func (c *Client) UpdateCohort(ctx context.Context, id int, data UpdateCohort) (Cohort, error) {
	var resp cohortDetail
	if err := c.do(ctx, http.MethodPut, "/cohorts/"+strconv.Itoa(id), nil, data, &resp); err != nil {
		return Cohort{}, err
	}
	return resp.Data, nil
}

func (c *Client) DeleteCohort(ctx context.Context, id int) error {
	return c.do(ctx, http.MethodDelete, "/cohorts/"+strconv.Itoa(id), nil, nil, nil)
}
