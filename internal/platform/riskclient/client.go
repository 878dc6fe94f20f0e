// Package riskclient fetches baseline mobility recommendations from the
// hospital risk-scoring service.
package riskclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/mobility/mobility/internal/domain/prescription"
	"github.com/mobility/mobility/internal/platform/auth"
)

// ErrPatientNotFound is returned when the risk service has no
// recommendation for the patient.
var ErrPatientNotFound = errors.New("risk service has no recommendation for patient")

// Recommendation is the risk service payload: the baseline dose plus the
// patient flags used for acuity classification.
type Recommendation struct {
	prescription.Baseline
	Patient prescription.PatientContext `json:"patient"`
}

type Options struct {
	BaseURL string
	Timeout time.Duration
	// RetryWait is the initial backoff between retries of 5xx responses.
	RetryWait time.Duration
}

type Client struct {
	http   *resty.Client
	logger zerolog.Logger
}

func New(opts Options, logger zerolog.Logger) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.RetryWait <= 0 {
		opts.RetryWait = 200 * time.Millisecond
	}

	client := resty.New().
		SetBaseURL(opts.BaseURL).
		SetTimeout(opts.Timeout).
		SetRetryCount(2).
		SetRetryWaitTime(opts.RetryWait).
		SetRetryMaxWaitTime(4 * opts.RetryWait).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= http.StatusInternalServerError
		}).
		SetHeader("Accept", "application/json")

	return &Client{http: client, logger: logger}
}

// Recommendation returns the baseline for patientID. The caller's bearer
// token, if any, is forwarded.
func (c *Client) Recommendation(ctx context.Context, patientID string) (*Recommendation, error) {
	if patientID == "" {
		return nil, fmt.Errorf("patient_id is required")
	}

	var rec Recommendation
	req := c.http.R().SetContext(ctx).SetResult(&rec)
	if tok := auth.TokenFromContext(ctx); tok != "" {
		req.SetAuthToken(tok)
	}

	resp, err := req.Get("/patients/" + url.PathEscape(patientID) + "/mobility-recommendation")
	if err != nil {
		c.logger.Error().Err(err).Str("patient_id", patientID).Msg("risk service call failed")
		return nil, fmt.Errorf("call risk service: %w", err)
	}

	switch {
	case resp.StatusCode() == http.StatusNotFound:
		return nil, ErrPatientNotFound
	case !resp.IsSuccess():
		c.logger.Error().
			Str("patient_id", patientID).
			Int("status_code", resp.StatusCode()).
			Msg("risk service returned error")
		return nil, fmt.Errorf("risk service returned status %d", resp.StatusCode())
	}

	if rec.SessionsPerDay <= 0 || rec.WattGoal <= 0 || rec.DurationMinPerSession <= 0 {
		return nil, fmt.Errorf("risk service returned an incomplete recommendation")
	}

	c.logger.Debug().
		Str("patient_id", patientID).
		Float64("energy", rec.Energy()).
		Msg("risk recommendation fetched")
	return &rec, nil
}
