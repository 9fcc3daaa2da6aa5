// Package client sends bump requests to peer bots over SBLP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"

	"github.com/bumpkit/sblp/internal/bot"
	"github.com/bumpkit/sblp/internal/model"
)

// DefaultSlugs are the well-known public bump bots. The list is maintained
// by hand.
var DefaultSlugs = []string{
	"openbump.bot.discord.one",
	"pysbump.bot.discord.one",
	"dpgbump.bot.discord.one",
}

// Client posts bump requests to peers identified by slug.
type Client struct {
	HTTPClient *http.Client
	// Scheme defaults to https.
	Scheme string
	// Token is the credential sent in the Authorization header.
	Token string
	// UserAgent identifies this bot; see NewUserAgent.
	UserAgent string
	// MaxWait is advertised to the peer via the maxwait header.
	MaxWait time.Duration

	log *log.Logger
}

func New(token, userAgent string, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.Default()
	}
	return &Client{
		HTTPClient: &http.Client{Timeout: 90 * time.Second},
		Scheme:     "https",
		Token:      token,
		UserAgent:  userAgent,
		MaxWait:    60 * time.Second,
		log:        logger.With("component", "client"),
	}
}

// NewUserAgent builds the conventional SBLP User-Agent for a bot identity.
func NewUserAgent(botUser string, version string) string {
	return fmt.Sprintf("DiscordBot %s SBLP HTTP via sblp-go v%s", botUser, version)
}

// Response is a parsed peer reply. OK is false when the body did not
// decode as JSON; per protocol that is a sentinel, not an error.
type Response struct {
	Slug     string
	Status   int
	OK       bool
	Finished *model.BumpFinishedResponse
	Error    *model.BumpErrorResponse
}

// Request posts one bump request to a peer. Transport failures return an
// error; an undecodable response body returns Response{OK: false} with a
// nil error.
func (c *Client) Request(ctx context.Context, slug string, req model.BumpRequest) (Response, error) {
	if req.Type == "" {
		req.Type = model.TypeRequest
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return Response{}, err
	}

	url := fmt.Sprintf("%s://%s/request", c.Scheme, slug)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return Response{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", c.Token)
	httpReq.Header.Set("User-Agent", c.UserAgent)
	httpReq.Header.Set("maxwait", strconv.Itoa(int(c.MaxWait.Seconds())))

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return Response{}, fmt.Errorf("request to %s: %w", slug, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, fmt.Errorf("read response from %s: %w", slug, err)
	}

	out := Response{Slug: slug, Status: resp.StatusCode}

	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		c.log.Debug("peer response is not JSON", "slug", slug, "status", resp.StatusCode)
		return out, nil
	}

	if envelope.Type == model.TypeFinished {
		var fin model.BumpFinishedResponse
		if err := json.Unmarshal(body, &fin); err != nil {
			return out, nil
		}
		out.OK = true
		out.Finished = &fin
		return out, nil
	}

	var bumpErr model.BumpErrorResponse
	if err := json.Unmarshal(body, &bumpErr); err != nil {
		return out, nil
	}
	out.OK = true
	out.Error = &bumpErr
	return out, nil
}

// Broadcast posts the request to every slug in order, dispatching
// request_start/request_done events per peer. A peer failure is logged and
// does not stop the fan-out.
func (c *Client) Broadcast(ctx context.Context, slugs []string, req model.BumpRequest, events bot.EventSink) []Response {
	if len(slugs) == 0 {
		slugs = DefaultSlugs
	}
	responses := make([]Response, 0, len(slugs))
	for _, slug := range slugs {
		if events != nil {
			events.Dispatch(bot.EventRequestStart, slug)
		}
		resp, err := c.Request(ctx, slug, req)
		if err != nil {
			c.log.Warn("peer request failed", "slug", slug, "err", err)
			continue
		}
		c.log.Info("peer responded", "slug", slug, "status", resp.Status, "decoded", resp.OK)
		if events != nil {
			events.Dispatch(bot.EventRequestDone, resp)
		}
		responses = append(responses, resp)
	}
	return responses
}
