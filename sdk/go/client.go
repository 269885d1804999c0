package spycatsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client is a minimal Spy Cat Agency HTTP API client.
type Client struct {
	BaseURL    string
	BasePath   string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL:  baseURL,
		BasePath: "v1",
		Timeout:  10 * time.Second,
	}
}

type Cat struct {
	ID         int64   `json:"id"`
	Name       string  `json:"name"`
	Experience int     `json:"experience"`
	Breed      string  `json:"breed"`
	Salary     float64 `json:"salary"`
	MissionID  *int64  `json:"mission_id"`
}

type Target struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Country  string `json:"country"`
	Notes    string `json:"notes"`
	Complete bool   `json:"complete"`
}

type Mission struct {
	ID       int64    `json:"id"`
	Complete bool     `json:"complete"`
	CatID    *int64   `json:"cat_id"`
	Targets  []Target `json:"targets"`
}

// NewCat is the payload for CreateCat.
type NewCat struct {
	Name       string  `json:"name"`
	Experience int     `json:"experience"`
	Breed      string  `json:"breed"`
	Salary     float64 `json:"salary"`
}

// NewTarget is one target of a CreateMission payload.
type NewTarget struct {
	Name    string `json:"name"`
	Country string `json:"country"`
}

// APIError wraps non-2xx responses. Code and Message are filled from the
// error envelope when the body carries one.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error: status=%d code=%s message=%s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

func (c *Client) CreateCat(ctx context.Context, in NewCat) (Cat, error) {
	var resp Cat
	err := c.do(ctx, http.MethodPost, "cats", in, &resp)
	return resp, err
}

func (c *Client) ListCats(ctx context.Context) ([]Cat, error) {
	var resp []Cat
	err := c.do(ctx, http.MethodGet, "cats", nil, &resp)
	return resp, err
}

func (c *Client) GetCat(ctx context.Context, id int64) (Cat, error) {
	var resp Cat
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("cats/%d", id), nil, &resp)
	return resp, err
}

// UpdateCatSalary changes a cat's salary and returns the updated cat.
func (c *Client) UpdateCatSalary(ctx context.Context, id int64, salary float64) (Cat, error) {
	var resp Cat
	body := map[string]any{"salary": salary}
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("cats/%d", id), body, &resp)
	return resp, err
}

func (c *Client) DeleteCat(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("cats/%d", id), nil, nil)
}

// CreateMission creates an unassigned mission with the given targets.
func (c *Client) CreateMission(ctx context.Context, targets []NewTarget) (Mission, error) {
	var resp Mission
	body := map[string]any{"targets": targets}
	err := c.do(ctx, http.MethodPost, "missions", body, &resp)
	return resp, err
}

func (c *Client) ListMissions(ctx context.Context) ([]Mission, error) {
	var resp []Mission
	err := c.do(ctx, http.MethodGet, "missions", nil, &resp)
	return resp, err
}

func (c *Client) GetMission(ctx context.Context, id int64) (Mission, error) {
	var resp Mission
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("missions/%d", id), nil, &resp)
	return resp, err
}

func (c *Client) DeleteMission(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("missions/%d", id), nil, nil)
}

// AssignCat links a cat to a mission.
func (c *Client) AssignCat(ctx context.Context, missionID, catID int64) error {
	body := map[string]any{"cat_id": catID}
	return c.do(ctx, http.MethodPatch, fmt.Sprintf("missions/%d/assign", missionID), body, nil)
}

func (c *Client) UpdateTargetNotes(ctx context.Context, missionID, targetID int64, notes string) error {
	body := map[string]any{"notes": notes}
	return c.do(ctx, http.MethodPatch, fmt.Sprintf("missions/%d/targets/%d/notes", missionID, targetID), body, nil)
}

// CompleteTarget marks a target complete. The mission completes with its
// last target.
func (c *Client) CompleteTarget(ctx context.Context, missionID, targetID int64) error {
	return c.do(ctx, http.MethodPatch, fmt.Sprintf("missions/%d/targets/%d/complete", missionID, targetID), nil, nil)
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(b)}
		var env struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(b, &env) == nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
		}
		return apiErr
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	base := strings.TrimRight(c.BaseURL, "/")
	if p := strings.Trim(c.BasePath, "/"); p != "" {
		base += "/" + p
	}
	return base
}
