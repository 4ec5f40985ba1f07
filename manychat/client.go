package manychat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultBaseURL = "https://api.manychat.com"

// Client is a minimal ManyChat REST API client covering custom-field
// updates and outbound message sends.
type Client struct {
	apiToken string
	baseURL  string
	httpCli  *http.Client
}

// NewClient creates a new ManyChat client.
func NewClient(apiToken string) *Client {
	return &Client{
		apiToken: apiToken,
		baseURL:  defaultBaseURL,
		httpCli:  &http.Client{Timeout: 20 * time.Second},
	}
}

// NewClientWithBaseURL creates a client pointed at a custom base URL.
// Used by tests against an httptest server.
func NewClientWithBaseURL(apiToken, baseURL string) *Client {
	c := NewClient(apiToken)
	c.baseURL = baseURL
	return c
}

type fieldPair struct {
	FieldName  string `json:"field_name"`
	FieldValue string `json:"field_value"`
}

type setFieldsRequest struct {
	SubscriberID string      `json:"subscriber_id"`
	Fields       []fieldPair `json:"fields"`
}

// SetFields updates custom fields on the subscriber record. Any non-2xx
// response is an error; callers must treat a failure as "not sent".
func (c *Client) SetFields(ctx context.Context, subscriberID string, fields map[string]string) error {
	body := setFieldsRequest{SubscriberID: subscriberID}
	for name, value := range fields {
		body.Fields = append(body.Fields, fieldPair{FieldName: name, FieldValue: value})
	}
	return c.post(ctx, "/fb/subscriber/setCustomFields", body)
}

type sendContentRequest struct {
	SubscriberID string   `json:"subscriber_id"`
	Data         sendData `json:"data"`
	MessageTag   string   `json:"message_tag"`
}

type sendData struct {
	Version string      `json:"version"`
	Content sendContent `json:"content"`
}

type sendContent struct {
	Messages []sendMessage `json:"messages"`
}

type sendMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// SendText delivers a text message to the subscriber.
func (c *Client) SendText(ctx context.Context, subscriberID, text string) error {
	body := sendContentRequest{
		SubscriberID: subscriberID,
		Data: sendData{
			Version: "v2",
			Content: sendContent{
				Messages: []sendMessage{{Type: "text", Text: text}},
			},
		},
		MessageTag: "ACCOUNT_UPDATE",
	}
	return c.post(ctx, "/fb/sending/sendContent", body)
}

// SubscriberInfo is the subset of the getInfo response we care about.
type SubscriberInfo struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	IGName    string `json:"ig_username"`
}

type getInfoResponse struct {
	Status string         `json:"status"`
	Data   SubscriberInfo `json:"data"`
}

// GetSubscriberInfo fetches subscriber profile data, used to backfill the
// Instagram handle when the webhook only carried a placeholder.
func (c *Client) GetSubscriberInfo(ctx context.Context, subscriberID string) (*SubscriberInfo, error) {
	url := fmt.Sprintf("%s/fb/subscriber/getInfo?subscriber_id=%s", c.baseURL, subscriberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiToken)

	resp, err := c.httpCli.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get subscriber info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("manychat getInfo status %d: %s", resp.StatusCode, string(raw))
	}

	var parsed getInfoResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode getInfo response: %w", err)
	}
	return &parsed.Data, nil
}

func (c *Client) post(ctx context.Context, path string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpCli.Do(req)
	if err != nil {
		return fmt.Errorf("manychat %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("manychat %s status %d: %s", path, resp.StatusCode, string(raw))
	}
	return nil
}
