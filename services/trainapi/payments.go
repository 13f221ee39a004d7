package trainapi

import (
	"context"
	"net/http"

	"github.com/volatiletech/null/v8"
)

// Payment statuses as reported by the remote API.
const (
	PaymentPending   = "pending"
	PaymentCompleted = "completed"
	PaymentFailed    = "failed"
)

type (
	// PaymentRequest initiates a payment for a training with the remote
	// payment provider; the user finishes the flow on the provider's pages.
	PaymentRequest struct {
		TrainingID int    `json:"training_id"`
		CohortID   int    `json:"cohort_id,omitempty"`
		Provider   string `json:"provider"`
		ReturnURL  string `json:"return_url"`
	}

	// PaymentIntent is the provider hand-off returned by the remote API.
	PaymentIntent struct {
		Reference   string `json:"reference"`
		RedirectURL string `json:"redirect_url"`
	}

	PaymentStatus struct {
		Reference string      `json:"reference"`
		Status    string      `json:"status"`
		Amount    null.String `json:"amount"`
		Message   null.String `json:"message"`
	}

	paymentIntentDetail struct {
		Data PaymentIntent `json:"data"`
	}

	paymentStatusDetail struct {
		Data PaymentStatus `json:"data"`
	}
)

func (c *Client) InitiatePayment(ctx context.Context, data PaymentRequest) (PaymentIntent, error) {
	var resp paymentIntentDetail
	if err := c.do(ctx, http.MethodPost, "/payments", nil, data, &resp); err != nil {
		return PaymentIntent{}, err
	}
	return resp.Data, nil
}

func (c *Client) GetPaymentStatus(ctx context.Context, reference string) (PaymentStatus, error) {
	var resp paymentStatusDetail
	if err := c.do(ctx, http.MethodGet, "/payments/"+reference, nil, nil, &resp); err != nil {
		return PaymentStatus{}, err
	}
	return resp.Data, nil
}
