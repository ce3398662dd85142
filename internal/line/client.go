package line

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"assistant-gateway/internal/config"
)

const defaultBaseURL = "https://api.line.me"

// Client talks to the LINE Messaging API.
type Client struct {
	Config  *config.Config
	BaseURL string
	http    *http.Client
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		Config:  cfg,
		BaseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

type replyRequest struct {
	ReplyToken string    `json:"replyToken"`
	Messages   []Message `json:"messages"`
}

type pushRequest struct {
	To       string    `json:"to"`
	Messages []Message `json:"messages"`
}

// ReplyMessage answers an inbound event using its one-shot reply token.
func (c *Client) ReplyMessage(replyToken string, messages ...Message) error {
	body := replyRequest{ReplyToken: replyToken, Messages: messages}
	_, err := c.sendRequest("POST", c.BaseURL+"/v2/bot/message/reply", body, nil)
	return err
}

// PushMessage sends to a user outside a reply window. The retry key makes
// the request safe to retry without duplicate delivery.
func (c *Client) PushMessage(to string, messages ...Message) error {
	body := pushRequest{To: to, Messages: messages}
	headers := map[string]string{"X-Line-Retry-Key": uuid.NewString()}
	_, err := c.sendRequest("POST", c.BaseURL+"/v2/bot/message/push", body, headers)
	return err
}

func (c *Client) GetProfile(userID string) (*Profile, error) {
	respBody, err := c.sendRequest("GET", c.BaseURL+"/v2/bot/profile/"+userID, nil, nil)
	if err != nil {
		return nil, err
	}
	var profile Profile
	if err := json.Unmarshal(respBody, &profile); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	return &profile, nil
}

func (c *Client) sendRequest(method, url string, body interface{}, headers map[string]string) ([]byte, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequest(method, url, bodyReader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Authorization", "Bearer "+c.Config.ChannelAccessToken)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if req.Header.Get("Content-Type") == "" && body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		return respBody, fmt.Errorf("LINE API error: %s - %s", resp.Status, string(respBody))
	}

	return respBody, nil
}
