// Package api is the REST client for the Open Observatory platform.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/couchcryptid/open-observatory/internal/domain"
	"github.com/couchcryptid/open-observatory/internal/observability"
)

// Client talks to the platform API. It is safe for concurrent use.
type Client struct {
	http    *resty.Client
	metrics *observability.Metrics
	logger  *slog.Logger

	mu    sync.RWMutex
	token string
}

// NewClient creates a platform client. An empty token sends anonymous requests
// until SetToken is called.
func NewClient(baseURL string, timeout time.Duration, token string, metrics *observability.Metrics, logger *slog.Logger) *Client {
	h := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	return &Client{http: h, metrics: metrics, logger: logger, token: token}
}

// SetToken replaces the bearer token sent with every request.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) request(ctx context.Context) *resty.Request {
	r := c.http.R().SetContext(ctx)
	c.mu.RLock()
	if c.token != "" {
		r.SetAuthToken(c.token)
	}
	c.mu.RUnlock()
	return r
}

// CelestialBodies fetches the catalog of selectable bodies.
func (c *Client) CelestialBodies(ctx context.Context) ([]domain.CelestialBody, error) {
	var bodies []domain.CelestialBody
	err := c.do(ctx, "celestial_bodies", func(r *resty.Request) (*resty.Response, error) {
		return r.SetResult(&bodies).Get("/celestial-bodies")
	})
	if err != nil {
		return nil, err
	}
	return bodies, nil
}

// CreateObservation submits a validated draft and returns the stored record.
func (c *Client) CreateObservation(ctx context.Context, req domain.CreationRequest) (domain.Record, error) {
	var out recordDTO
	err := c.do(ctx, "create_observation", func(r *resty.Request) (*resty.Response, error) {
		return r.SetBody(req).SetResult(&out).Post("/observations")
	})
	if err != nil {
		return domain.Record{}, err
	}
	return out.toDomain(), nil
}

// Observation fetches one record.
func (c *Client) Observation(ctx context.Context, id int) (domain.Record, error) {
	var out recordDTO
	err := c.do(ctx, "observation", func(r *resty.Request) (*resty.Response, error) {
		return r.SetPathParam("id", strconv.Itoa(id)).SetResult(&out).Get("/observations/{id}")
	})
	if err != nil {
		return domain.Record{}, err
	}
	return out.toDomain(), nil
}

// Vote casts the viewer's vote on a record. A nil direction removes it.
func (c *Client) Vote(ctx context.Context, id int, dir *domain.VoteDirection) error {
	return c.do(ctx, "vote", func(r *resty.Request) (*resty.Response, error) {
		return r.SetPathParam("id", strconv.Itoa(id)).
			SetBody(voteDTO{Vote: dir}).
			Put("/observations/{id}/vote")
	})
}

// NearbyObservations lists the current observations around point.
func (c *Client) NearbyObservations(ctx context.Context, point domain.Coordinate) ([]domain.Record, error) {
	var out []recordDTO
	err := c.do(ctx, "nearby_observations", func(r *resty.Request) (*resty.Response, error) {
		return r.SetQueryParams(map[string]string{
			"lat": strconv.FormatFloat(point.Lat, 'f', -1, 64),
			"lng": strconv.FormatFloat(point.Lng, 'f', -1, 64),
		}).SetResult(&out).Get("/observations/nearby")
	})
	if err != nil {
		return nil, err
	}
	return toRecords(out), nil
}

// UserObservations lists the records authored by username.
func (c *Client) UserObservations(ctx context.Context, username string) ([]domain.Record, error) {
	var out []recordDTO
	err := c.do(ctx, "user_observations", func(r *resty.Request) (*resty.Response, error) {
		return r.SetPathParam("username", username).SetResult(&out).Get("/users/{username}/observations")
	})
	if err != nil {
		return nil, err
	}
	return toRecords(out), nil
}

// User fetches a public profile.
func (c *Client) User(ctx context.Context, username string) (domain.UserProfile, error) {
	var out userDTO
	err := c.do(ctx, "user", func(r *resty.Request) (*resty.Response, error) {
		return r.SetPathParam("username", username).SetResult(&out).Get("/users/{username}")
	})
	if err != nil {
		return domain.UserProfile{}, err
	}
	return out.toDomain(), nil
}

// Achievements fetches the achievements listed on a user's profile.
func (c *Client) Achievements(ctx context.Context, username string) ([]domain.Achievement, error) {
	profile, err := c.User(ctx, username)
	if err != nil {
		return nil, err
	}
	return profile.Achievements, nil
}

// Register creates an account. The form must already be valid.
func (c *Client) Register(ctx context.Context, reg domain.Registration) (domain.UserProfile, error) {
	var out userDTO
	err := c.do(ctx, "register", func(r *resty.Request) (*resty.Response, error) {
		return r.SetBody(reg).SetResult(&out).Post("/users/register")
	})
	if err != nil {
		return domain.UserProfile{}, err
	}
	return out.toDomain(), nil
}

// Login exchanges credentials for an access token and keeps it for later calls.
func (c *Client) Login(ctx context.Context, creds domain.Credentials) (string, error) {
	var out tokenDTO
	err := c.do(ctx, "login", func(r *resty.Request) (*resty.Response, error) {
		return r.SetBody(creds).SetResult(&out).Post("/authentication/login")
	})
	if err != nil {
		return "", err
	}
	if out.AccessToken == "" {
		return "", &domain.AuthenticationError{Reason: "no access token in response"}
	}
	c.SetToken(out.AccessToken)
	return out.AccessToken, nil
}

// do runs one request, records metrics, and maps failures to domain errors.
func (c *Client) do(ctx context.Context, endpoint string, send func(*resty.Request) (*resty.Response, error)) error {
	start := time.Now()
	resp, err := send(c.request(ctx))
	c.metrics.APIDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())

	mapped := classify(endpoint, resp, err)
	c.metrics.APIRequests.WithLabelValues(endpoint, outcome(mapped)).Inc()
	if mapped != nil {
		c.logger.Debug("api request failed", "endpoint", endpoint, "error", mapped)
	}
	return mapped
}

func classify(endpoint string, resp *resty.Response, err error) error {
	op := strings.ReplaceAll(endpoint, "_", " ")
	if err != nil {
		return &domain.NetworkError{Op: op, Err: err}
	}

	status := resp.StatusCode()
	switch {
	case status < http.StatusBadRequest:
		return nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &domain.AuthenticationError{Reason: errorMessage(resp)}
	case status == http.StatusNotFound:
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	case status == http.StatusBadRequest || status == http.StatusConflict || status == http.StatusUnprocessableEntity:
		return serverValidation(resp)
	case status >= http.StatusInternalServerError:
		return &domain.NetworkError{Op: op, Err: fmt.Errorf("server error: %s", resp.Status())}
	default:
		return fmt.Errorf("%s: unexpected status %s: %s", op, resp.Status(), errorMessage(resp))
	}
}

func outcome(err error) string {
	var (
		verr *domain.ValidationError
		aerr *domain.AuthenticationError
		nerr *domain.NetworkError
	)
	switch {
	case err == nil:
		return "success"
	case errors.As(err, &verr):
		return "validation"
	case errors.As(err, &aerr):
		return "auth"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.As(err, &nerr):
		return "network"
	default:
		return "error"
	}
}

// serverValidation turns a rejection body into a ValidationError. Field
// errors are kept by name; a bare message is reported under "request".
func serverValidation(resp *resty.Response) error {
	var body errorDTO
	_ = json.Unmarshal(resp.Body(), &body)

	verr := &domain.ValidationError{Invalid: map[domain.Field]string{}}
	for f, reason := range body.Errors {
		verr.Invalid[domain.Field(f)] = reason
	}
	if len(verr.Invalid) == 0 {
		msg := body.Message
		if msg == "" {
			msg = resp.Status()
		}
		verr.Invalid["request"] = msg
	}
	return verr
}

func errorMessage(resp *resty.Response) string {
	var body errorDTO
	if err := json.Unmarshal(resp.Body(), &body); err == nil && body.Message != "" {
		return body.Message
	}
	return strings.TrimSpace(resp.String())
}
