// Package widget implements the chat widget controller: it reads the input
// field on a send click, records the user's message, posts it to the chat
// endpoint and records whatever comes back.
package widget

import (
	"context"
	"errors"
	"html/template"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"chat-widget/internal/chatclient"
)

const (
	NoticeUnexpectedResponse = "Unexpected response from server."
	NoticeTransportFailure   = "Sorry, something went wrong. Please try again."

	defaultScrollDelay = 50 * time.Millisecond
)

// ErrAlreadyAttached is returned by Attach when a click source is already bound.
var ErrAlreadyAttached = errors.New("widget: controller is already attached")

// Sender delivers one message to the chat endpoint and returns the reply.
// Failures are reported as *chatclient.ApplicationError,
// chatclient.ErrUnexpectedResponse or any other error for transport problems.
type Sender interface {
	Send(ctx context.Context, message string) (string, error)
}

// View is the surface the controller drives. AppendEntry and ScrollToBottom
// may be called from request goroutines.
type View interface {
	InputValue() string
	ClearInput()
	AppendEntry(e Entry, fragment template.HTML)
	ScrollToBottom()
}

// Controller is the chat widget's click handler and the owner of its
// transcript.
type Controller struct {
	sender       Sender
	view         View
	renderer     *Renderer
	transcript   *Transcript
	logger       *slog.Logger
	scrollDelay  time.Duration
	discardStale bool

	seq atomic.Uint64

	// renderMu orders transcript and view appends identically.
	renderMu     sync.Mutex
	lastRendered uint64

	pendingMu sync.Mutex
	idle      *sync.Cond
	pending   int

	mu       sync.Mutex
	cancel   context.CancelFunc
	loopDone chan struct{}
}

// Option configures a Controller.
type Option func(*Controller)

// WithScrollDelay sets how long after an append the view is scrolled to the
// bottom. Negative values are ignored.
func WithScrollDelay(d time.Duration) Option {
	return func(c *Controller) {
		if d >= 0 {
			c.scrollDelay = d
		}
	}
}

// WithDiscardStale drops a reply when a reply to a later submission has
// already been rendered. Off by default: replies render in completion order.
func WithDiscardStale(discard bool) Option {
	return func(c *Controller) {
		c.discardStale = discard
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a Controller that sends through sender and draws into view.
func New(sender Sender, view View, opts ...Option) (*Controller, error) {
	if sender == nil {
		return nil, errors.New("widget: sender must not be nil")
	}
	if view == nil {
		return nil, errors.New("widget: view must not be nil")
	}
	c := &Controller{
		sender:      sender,
		view:        view,
		renderer:    NewRenderer(),
		transcript:  &Transcript{},
		logger:      slog.Default(),
		scrollDelay: defaultScrollDelay,
	}
	c.idle = sync.NewCond(&c.pendingMu)
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Transcript returns the controller's transcript.
func (c *Controller) Transcript() *Transcript {
	return c.transcript
}

// Attach binds a click source. Each value received on clicks is one press of
// the send control. The binding lasts until Detach, ctx is cancelled or clicks
// is closed.
func (c *Controller) Attach(ctx context.Context, clicks <-chan struct{}) error {
	c.mu.Lock()
	if c.cancel != nil {
		c.mu.Unlock()
		return ErrAlreadyAttached
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	c.cancel = cancel
	c.loopDone = done
	c.mu.Unlock()

	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-clicks:
				if !ok {
					return
				}
				c.Submit(ctx)
			}
		}
	}()
	return nil
}

// Detach unbinds the click source, cancels outstanding requests and waits
// for their goroutines to finish. Safe to call when not attached.
func (c *Controller) Detach() {
	c.mu.Lock()
	cancel, done := c.cancel, c.loopDone
	c.cancel, c.loopDone = nil, nil
	c.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	c.Wait()
}

// Wait blocks until every outstanding request has been rendered and its
// scroll has run. It may be called at any time, including while attached;
// work started after Wait returns is not waited for.
func (c *Controller) Wait() {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	for c.pending > 0 {
		c.idle.Wait()
	}
}

func (c *Controller) begin() {
	c.pendingMu.Lock()
	c.pending++
	c.pendingMu.Unlock()
}

func (c *Controller) end() {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	c.pending--
	if c.pending == 0 {
		c.idle.Broadcast()
	}
}

// Submit handles one press of the send control. It reports whether a request
// was issued; blank input is ignored.
func (c *Controller) Submit(ctx context.Context) bool {
	text := c.view.InputValue()
	if strings.TrimSpace(text) == "" {
		return false
	}

	seq := c.seq.Add(1)
	c.appendEntry(Entry{Seq: seq, Speaker: SpeakerUser, Text: text})
	c.view.ClearInput()

	c.begin()
	go func() {
		defer c.end()
		c.exchange(ctx, seq, text)
	}()
	return true
}

func (c *Controller) exchange(ctx context.Context, seq uint64, text string) {
	reply, err := c.sender.Send(ctx, text)
	if ctx.Err() != nil {
		c.logger.Debug("widget detached before reply", "seq", seq, "err", err)
		return
	}

	c.renderMu.Lock()
	defer c.renderMu.Unlock()
	if c.discardStale && !c.claimRender(seq) {
		c.logger.Debug("discarding stale reply", "seq", seq)
		return
	}
	c.appendLocked(Entry{Seq: seq, Speaker: SpeakerBot, Text: botText(reply, err, c.logger)})
}

// claimRender records seq as rendered unless a newer reply already was.
// renderMu must be held.
func (c *Controller) claimRender(seq uint64) bool {
	if seq < c.lastRendered {
		return false
	}
	c.lastRendered = seq
	return true
}

func botText(reply string, err error, logger *slog.Logger) string {
	if err == nil {
		return reply
	}
	var appErr *chatclient.ApplicationError
	switch {
	case errors.As(err, &appErr):
		return appErr.Message
	case errors.Is(err, chatclient.ErrUnexpectedResponse):
		return NoticeUnexpectedResponse
	default:
		logger.Warn("chat request failed", "err", err)
		return NoticeTransportFailure
	}
}

func (c *Controller) appendEntry(e Entry) {
	c.renderMu.Lock()
	defer c.renderMu.Unlock()
	c.appendLocked(e)
}

// appendLocked renders e into the transcript and the view. renderMu must be
// held.
func (c *Controller) appendLocked(e Entry) {
	fragment, err := c.renderer.Render(e)
	if err != nil {
		c.logger.Error("failed to render transcript entry", "err", err)
		return
	}
	c.transcript.append(e, fragment)
	c.view.AppendEntry(e, fragment)
	c.scheduleScroll()
}

func (c *Controller) scheduleScroll() {
	c.begin()
	time.AfterFunc(c.scrollDelay, func() {
		defer c.end()
		c.view.ScrollToBottom()
	})
}
