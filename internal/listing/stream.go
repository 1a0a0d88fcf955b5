package listing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"alpha-radar/internal/model"
)

// Waker is the poll operation a stream notification triggers.
type Waker interface {
	Tick(ctx context.Context) ([]model.NewToken, error)
}

// StreamOptions configure the log subscription.
type StreamOptions struct {
	URL               string
	ProgramID         string
	ReconnectDelay    time.Duration
	MaxReconnectDelay time.Duration
}

// Stream subscribes to program logs over WebSocket and wakes the poller on
// every successful notification, so new listings are picked up without
// waiting for the next scheduled tick. Bursts collapse into one pending wake.
type Stream struct {
	opts   StreamOptions
	waker  Waker
	logger zerolog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	wake chan struct{}
}

// NewStream builds a stream bound to a poller.
func NewStream(opts StreamOptions, waker Waker, logger zerolog.Logger) *Stream {
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = time.Second
	}
	if opts.MaxReconnectDelay <= 0 {
		opts.MaxReconnectDelay = 30 * time.Second
	}
	return &Stream{
		opts:   opts,
		waker:  waker,
		logger: logger.With().Str("component", "listing_stream").Logger(),
		wake:   make(chan struct{}, 1),
	}
}

// Start connects in the background. Connection failures are retried with
// backoff until Stop.
func (s *Stream) Start(ctx context.Context) error {
	if s.opts.URL == "" || s.opts.ProgramID == "" {
		return errors.New("stream url and program id required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return errors.New("stream already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.connectLoop(runCtx)
	}()
	go func() {
		defer wg.Done()
		s.wakeLoop(runCtx)
	}()
	go func() {
		wg.Wait()
		close(done)
	}()

	s.logger.Info().Str("program", s.opts.ProgramID).Msg("listing stream started")
	return nil
}

// Stop closes the connection and waits for the background goroutines.
func (s *Stream) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	s.logger.Info().Msg("listing stream stopped")
}

// connectLoop backs off exponentially between failed attempts. A session
// that got as far as subscribing resets the delay.
func (s *Stream) connectLoop(ctx context.Context) {
	delay := s.opts.ReconnectDelay
	for {
		subscribed, err := s.session(ctx)
		if ctx.Err() != nil {
			return
		}
		if subscribed {
			delay = s.opts.ReconnectDelay
		}
		s.logger.Warn().Err(err).Dur("retry_in", delay).Msg("listing stream disconnected")

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		delay = min(delay*2, s.opts.MaxReconnectDelay)
	}
}

// session runs one connection until it fails or ctx is cancelled. It
// reports whether the subscription request went out.
func (s *Stream) session(ctx context.Context) (bool, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, s.opts.URL, nil)
	if err != nil {
		return false, fmt.Errorf("websocket dial: %w", err)
	}
	sessionDone := make(chan struct{})
	defer close(sessionDone)
	go func() {
		// Unblocks ReadMessage on shutdown.
		select {
		case <-ctx.Done():
		case <-sessionDone:
		}
		_ = conn.Close()
	}()

	req := wsRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "logsSubscribe",
		Params: []any{
			map[string]any{"mentions": []string{s.opts.ProgramID}},
			map[string]string{"commitment": "confirmed"},
		},
	}
	if err := conn.WriteJSON(req); err != nil {
		return false, fmt.Errorf("send logsSubscribe: %w", err)
	}
	s.logger.Info().Msg("listing stream connected")

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return true, fmt.Errorf("read message: %w", err)
		}
		if s.isWakeNotification(payload) {
			select {
			case s.wake <- struct{}{}:
			default:
			}
		}
	}
}

func (s *Stream) isWakeNotification(payload []byte) bool {
	var msg wsNotification
	if err := json.Unmarshal(payload, &msg); err != nil {
		s.logger.Debug().Err(err).Msg("ignore undecodable stream message")
		return false
	}
	if msg.Method != "logsNotification" || msg.Params == nil {
		return false
	}
	if errRaw := msg.Params.Result.Value.Err; len(errRaw) > 0 && string(errRaw) != "null" {
		return false
	}
	s.logger.Debug().Str("signature", msg.Params.Result.Value.Signature).Msg("program log received")
	return true
}

func (s *Stream) wakeLoop(ctx context.Context) {
	tickCtx := context.WithoutCancel(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.wake:
			if _, err := s.waker.Tick(tickCtx); err != nil {
				s.logger.Error().Err(err).Msg("stream-triggered poll failed")
			}
		}
	}
}

type wsRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type wsNotification struct {
	Method string `json:"method"`
	Params *struct {
		Result struct {
			Value struct {
				Signature string          `json:"signature"`
				Err       json.RawMessage `json:"err"`
				Logs      []string        `json:"logs"`
			} `json:"value"`
		} `json:"result"`
		Subscription int64 `json:"subscription"`
	} `json:"params"`
}
