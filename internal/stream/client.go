// Package stream owns the persistent push connection to the vehicle feed.
// It normalizes every server message through the wire package and fans the
// resulting domain events out to registered handlers, recovering from
// connection drops with capped exponential backoff.
package stream

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/psford/t-tracker/internal/logging"
	"github.com/psford/t-tracker/internal/metrics"
	"github.com/psford/t-tracker/internal/wire"
)

// Config holds the connection settings for the vehicle feed.
type Config struct {
	// FeedURL is the streaming endpoint, e.g. https://api-v3.mbta.com/vehicles.
	FeedURL string

	// APIKey is the access credential sent as a query parameter.
	APIKey string

	// RouteTypes is the route-type filter value, e.g. "0,1" for light and
	// heavy rail.
	RouteTypes string

	// InitialBackoff and MaxBackoff bound the reconnect delay. Zero values
	// fall back to the package defaults.
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

type connState int

const (
	stateIdle connState = iota
	stateConnecting
	stateStreaming
)

// Client maintains one logical connection to the feed. Construct with
// NewClient, register handlers with OnEvent, then call Connect.
type Client struct {
	cfg        Config
	logger     *slog.Logger
	httpClient *http.Client
	tracker    *metrics.Tracker

	mu        sync.Mutex
	state     connState
	cancel    context.CancelFunc
	reconnect *time.Timer
	delay     backoff
	handlers  []Handler

	wg sync.WaitGroup
}

// NewClient creates a Client. The metrics tracker may be nil.
func NewClient(cfg Config, logger *slog.Logger, tracker *metrics.Tracker) *Client {
	return &Client{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "stream_client")),
		// No overall timeout: the response body is a long-lived event stream.
		httpClient: &http.Client{},
		tracker:    tracker,
		delay:      newBackoff(cfg.InitialBackoff, cfg.MaxBackoff),
	}
}

// OnEvent registers a handler. All handlers must be registered before
// Connect; they are invoked in registration order on the reader goroutine.
func (c *Client) OnEvent(h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers = append(c.handlers, h)
}

// Connect starts the connection loop. It is a no-op if the client is
// already connected or waiting to reconnect.
func (c *Client) Connect(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != stateIdle || c.reconnect != nil {
		return
	}

	ctx, c.cancel = context.WithCancel(ctx)
	c.state = stateConnecting
	c.wg.Add(1)
	go c.run(ctx)
}

// Disconnect tears down the live connection and synchronously cancels any
// pending reconnect timer, so no reconnect attempt fires afterwards. It
// blocks until the reader goroutine has exited.
func (c *Client) Disconnect() {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	if c.reconnect != nil {
		c.reconnect.Stop()
		c.reconnect = nil
	}
	c.state = stateIdle
	c.delay.Reset()
	c.mu.Unlock()

	c.wg.Wait()
}

func (c *Client) run(ctx context.Context) {
	defer c.wg.Done()

	body, err := c.open(ctx)
	if err != nil {
		if ctx.Err() != nil {
			c.setState(stateIdle)
			return
		}
		logging.LogError(c.logger, "feed connection failed", err)
		c.scheduleReconnect(ctx)
		return
	}

	c.setState(stateStreaming)
	c.logger.Info("feed connected", slog.String("url", c.cfg.FeedURL))

	readErr := c.readLoop(ctx, body)
	_ = body.Close()

	if ctx.Err() != nil {
		c.setState(stateIdle)
		return
	}
	logging.LogError(c.logger, "feed connection lost", readErr)
	c.scheduleReconnect(ctx)
}

func (c *Client) open(ctx context.Context) (io.ReadCloser, error) {
	u, err := url.Parse(c.cfg.FeedURL)
	if err != nil {
		return nil, fmt.Errorf("invalid feed URL: %w", err)
	}
	q := u.Query()
	if c.cfg.RouteTypes != "" {
		q.Set("filter[route_type]", c.cfg.RouteTypes)
	}
	if c.cfg.APIKey != "" {
		q.Set("api_key", c.cfg.APIKey)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}
	return resp.Body, nil
}

// readLoop parses the server-sent event stream: "event:" and "data:" lines
// accumulate until a blank line terminates the message.
func (c *Client) readLoop(ctx context.Context, body io.Reader) error {
	scanner := bufio.NewScanner(body)
	// Reset snapshots carry the full vehicle list in one data line.
	scanner.Buffer(make([]byte, 64*1024), 8*1024*1024)

	var eventName string
	var data bytes.Buffer

	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := scanner.Bytes()

		switch {
		case len(line) == 0:
			if eventName != "" && data.Len() > 0 {
				c.handleMessage(eventName, data.Bytes())
			}
			eventName = ""
			data.Reset()
		case bytes.HasPrefix(line, []byte("event:")):
			eventName = string(bytes.TrimSpace(line[len("event:"):]))
		case bytes.HasPrefix(line, []byte("data:")):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.Write(bytes.TrimSpace(line[len("data:"):]))
		default:
			// Comment or keep-alive line.
		}
	}

	if err := scanner.Err(); err != nil {
		return err
	}
	return io.EOF
}

// handleMessage normalizes one complete server message and dispatches the
// resulting domain event. Malformed JSON on an individual message is logged
// and the message dropped; it never tears down the connection.
func (c *Client) handleMessage(eventName string, data []byte) {
	switch eventName {
	case "reset":
		vehicles, dropped, err := wire.NormalizeList(data)
		if err != nil {
			c.dropMessage(eventName, err)
			return
		}
		if dropped > 0 {
			c.logger.Warn("dropped malformed records in reset snapshot",
				slog.Int("dropped", dropped))
			c.countDropped(dropped)
		}
		// A reset precedes every fresh stream, so it is the one signal
		// that the connection is healthy again.
		c.resetDelay()
		c.dispatch(Event{Kind: KindReset, Vehicles: vehicles})

	case "add", "update":
		vehicle, err := wire.Normalize(data)
		if err != nil {
			c.dropMessage(eventName, err)
			return
		}
		if vehicle.Removal {
			c.dispatch(Event{Kind: KindRemove, ID: vehicle.ID})
			return
		}
		kind := KindAdd
		if eventName == "update" {
			kind = KindUpdate
		}
		c.dispatch(Event{Kind: kind, Vehicle: &vehicle})

	case "remove":
		vehicle, err := wire.Normalize(data)
		if err != nil {
			c.dropMessage(eventName, err)
			return
		}
		c.dispatch(Event{Kind: KindRemove, ID: vehicle.ID})

	default:
		// Unknown event types are ignored.
	}
}

func (c *Client) dispatch(ev Event) {
	c.mu.Lock()
	handlers := c.handlers
	c.mu.Unlock()

	if c.tracker != nil {
		c.tracker.EventsTotal.WithLabelValues(string(ev.Kind)).Inc()
	}
	for _, h := range handlers {
		h(ev)
	}
}

func (c *Client) dropMessage(eventName string, err error) {
	logging.LogError(c.logger, "dropping malformed feed message", err,
		slog.String("event", eventName))
	c.countDropped(1)
}

func (c *Client) countDropped(n int) {
	if c.tracker != nil {
		c.tracker.DroppedRecords.Add(float64(n))
	}
}

func (c *Client) scheduleReconnect(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ctx.Err() != nil {
		c.state = stateIdle
		return
	}

	delay := c.delay.Next()
	c.state = stateIdle
	if c.tracker != nil {
		c.tracker.Reconnects.Inc()
	}
	c.logger.Info("scheduling reconnect", slog.Duration("delay", delay))

	c.reconnect = time.AfterFunc(delay, func() {
		c.mu.Lock()
		if ctx.Err() != nil {
			c.mu.Unlock()
			return
		}
		c.reconnect = nil
		c.state = stateConnecting
		c.wg.Add(1)
		c.mu.Unlock()
		go c.run(ctx)
	})
}

func (c *Client) resetDelay() {
	c.mu.Lock()
	c.delay.Reset()
	c.mu.Unlock()
}

func (c *Client) setState(s connState) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}
