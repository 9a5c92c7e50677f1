// Package notify delivers short operator messages. Delivery is
// fire-and-forget: failures are logged and never reach the caller.
package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bassista/go_weightsync/internal/logger"
	"github.com/gregdel/pushover"
)

type Notifier interface {
	Notify(ctx context.Context, title, message string)
}

// Waiter is implemented by notifiers that deliver in the background.
// Wait reports whether all pending deliveries finished within timeout.
type Waiter interface {
	Wait(timeout time.Duration) bool
}

// messageSender is the subset of *pushover.Pushover we use.
type messageSender interface {
	SendMessage(message *pushover.Message, recipient *pushover.Recipient) (*pushover.Response, error)
}

// defaultSendTimeout applies when NewPushoverNotifier is given no timeout.
const defaultSendTimeout = 30 * time.Second

type PushoverNotifier struct {
	app       messageSender
	recipient *pushover.Recipient
	timeout   time.Duration
	wg        sync.WaitGroup
}

// NewPushoverNotifier sends to userKey using the application token appToken.
// Each delivery is abandoned once timeout has passed.
func NewPushoverNotifier(appToken, userKey string, timeout time.Duration) *PushoverNotifier {
	if timeout <= 0 {
		timeout = defaultSendTimeout
	}
	return &PushoverNotifier{
		app:       pushover.New(appToken),
		recipient: pushover.NewRecipient(userKey),
		timeout:   timeout,
	}
}

// Notify queues the message and returns. Cancelling ctx does not drop the
// message, so a failure reported during shutdown still goes out.
func (n *PushoverNotifier) Notify(ctx context.Context, title, message string) {
	msg := pushover.NewMessageWithTitle(message, title)
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.timeout)

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		defer cancel()
		log := logger.WithComponent("notify")
		resp, err := n.send(sendCtx, msg)
		if err != nil {
			log.Errorf("pushover delivery failed: %v", err)
			return
		}
		if resp != nil {
			log.Debugf("pushover accepted message (request %s)", resp.ID)
		}
	}()
}

// send bounds SendMessage by ctx. The pushover client has no request
// timeout of its own; a stalled call is abandoned, not interrupted.
func (n *PushoverNotifier) send(ctx context.Context, msg *pushover.Message) (*pushover.Response, error) {
	type result struct {
		resp *pushover.Response
		err  error
	}
	done := make(chan result, 1)
	go func() {
		resp, err := n.app.SendMessage(msg, n.recipient)
		done <- result{resp: resp, err: err}
	}()

	select {
	case r := <-done:
		return r.resp, r.err
	case <-ctx.Done():
		return nil, fmt.Errorf("no response within %s: %w", n.timeout, ctx.Err())
	}
}

func (n *PushoverNotifier) Wait(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		n.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-time.After(timeout):
		logger.WithComponent("notify").Warnf("pending notifications not delivered within %s", timeout)
		return false
	}
}

// LogNotifier writes notifications to the log; used when no push channel is
// configured.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, title, message string) {
	logger.WithComponent("notify").WithField("title", title).Info(message)
}

func (LogNotifier) Wait(time.Duration) bool {
	return true
}
