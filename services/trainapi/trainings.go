package trainapi

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/volatiletech/null/v8"
)

type (
	Training struct {
		ID          int          `json:"id"`
		Title       string       `json:"title"`
		Summary     null.String  `json:"summary"`
		Price       null.Float64 `json:"price"`
		Published   bool         `json:"published"`
		CohortCount int          `json:"cohort_count"`
	}

	TrainingFilter struct {
		Search    string
		Published *bool
	}

	NewTraining struct {
		Title   string       `json:"title"`
		Summary null.String  `json:"summary"`
		Price   null.Float64 `json:"price"`
	}

	UpdateTraining struct {
		Title     null.String  `json:"title,omitempty"`
		Summary   null.String  `json:"summary,omitempty"`
		Price     null.Float64 `json:"price,omitempty"`
		Published null.Bool    `json:"published,omitempty"`
	}

	trainingList struct {
		Data []Training `json:"data"`
	}

	trainingDetail struct {
		Data Training `json:"data"`
	}
)

func (f TrainingFilter) query() url.Values {
	v := make(url.Values)
	if f.Search != "" {
		v.Set("search", f.Search)
	}
	if f.Published != nil {
		v.Set("published", strconv.FormatBool(*f.Published))
	}
	return v
}

func (c *Client) ListTrainings(ctx context.Context, filter TrainingFilter) ([]Training, error) {
	var resp trainingList
	if err := c.do(ctx, http.MethodGet, "/trainings", filter.query(), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (c *Client) GetTraining(ctx context.Context, id int) (Training, error) {
	var resp trainingDetail
	if err := c.do(ctx, http.MethodGet, "/trainings/"+strconv.Itoa(id), nil, nil, &resp); err != nil {
		return Training{}, err
	}
	return resp.Data, nil
}

func (c *Client) CreateTraining(ctx context.Context, data NewTraining) (Training, error) {
	var resp trainingDetail
	if err := c.do(ctx, http.MethodPost, "/trainings", nil, data, &resp); err != nil {
		return Training{}, err
	}
	return resp.Data, nil
}

func (c *Client) UpdateTraining(ctx context.Context, id int, data UpdateTraining) (Training, error) {
	var resp trainingDetail
	if err := c.do(ctx, http.MethodPut, "/trainings/"+strconv.Itoa(id), nil, data, &resp); err != nil {
		return Training{}, err
	}
	return resp.Data, nil
}

func (c *Client) DeleteTraining(ctx context.Context, id int) error {
	return c.do(ctx, http.MethodDelete, "/trainings/"+strconv.Itoa(id), nil, nil, nil)
}
