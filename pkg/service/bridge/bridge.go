package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/kizuna/pkg/domain/interfaces"
	"github.com/secmon-lab/kizuna/pkg/domain/model"
	"github.com/secmon-lab/kizuna/pkg/utils/async"
	"github.com/secmon-lab/kizuna/pkg/utils/logging"
	"github.com/secmon-lab/kizuna/pkg/utils/safe"
)

// EntryPoint is the navigation target of an unauthenticated user
const EntryPoint = "/"

// Bridge delivers events to the native host by POSTing them to its callback URL.
// Without a callback URL every event is only logged.
type Bridge struct {
	callbackURL string
	http        *retryablehttp.Client
	now         func() time.Time
}

var (
	_ interfaces.HostNotifier = &Bridge{}
	_ interfaces.Navigator    = &Bridge{}
)

type Option func(*Bridge)

// WithHTTPClient replaces the underlying transport client
func WithHTTPClient(hc *http.Client) Option {
	return func(b *Bridge) {
		b.http.HTTPClient = hc
	}
}

// WithRetryMax sets the maximum number of delivery retries
func WithRetryMax(n int) Option {
	return func(b *Bridge) {
		b.http.RetryMax = n
	}
}

func New(callbackURL string, opts ...Option) *Bridge {
	hc := retryablehttp.NewClient()
	hc.RetryMax = 1
	hc.RetryWaitMin = 100 * time.Millisecond
	hc.RetryWaitMax = time.Second
	hc.HTTPClient.Timeout = 5 * time.Second
	hc.Logger = logging.Default()

	b := &Bridge{
		callbackURL: callbackURL,
		http:        hc,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

type envelope struct {
	model.HostEvent
	SentAt time.Time `json:"sent_at"`
}

// NotifyHost sends the event in the background. Delivery failures are logged and
// never reach the caller.
func (b *Bridge) NotifyHost(ctx context.Context, name model.HostEventName, payload map[string]any) {
	event := model.HostEvent{
		ID:      uuid.NewString(),
		Name:    name,
		Payload: payload,
	}

	async.Dispatch(ctx, "notify host "+string(name), func(ctx context.Context) error {
		return b.send(ctx, event)
	})
}

// RedirectToEntryPoint asks the host to show the unauthenticated entry screen
func (b *Bridge) RedirectToEntryPoint(ctx context.Context) error {
	event := model.HostEvent{
		ID:      uuid.NewString(),
		Name:    model.HostEventNavigate,
		Payload: map[string]any{"to": EntryPoint},
	}
	return b.send(ctx, event)
}

func (b *Bridge) send(ctx context.Context, event model.HostEvent) error {
	logger := logging.From(ctx)

	if b.callbackURL == "" {
		logger.Debug("host callback is not configured, event not delivered",
			"event", event.Name,
			"id", event.ID,
		)
		return nil
	}

	body, err := json.Marshal(&envelope{HostEvent: event, SentAt: b.now().UTC()})
	if err != nil {
		return goerr.Wrap(err, "failed to encode host event", goerr.V("event", event.Name))
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, b.callbackURL, bytes.NewReader(body))
	if err != nil {
		return goerr.Wrap(err, "failed to build host event request", goerr.V("event", event.Name))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.http.Do(req)
	if err != nil {
		return goerr.Wrap(err, "failed to deliver host event",
			goerr.V("event", event.Name),
			goerr.V("id", event.ID),
		)
	}
	defer safe.Close(ctx, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return goerr.New("host rejected event",
			goerr.V("event", event.Name),
			goerr.V("id", event.ID),
			goerr.V("status", resp.StatusCode),
		)
	}

	logger.Debug("host event delivered", "event", event.Name, "id", event.ID)
	return nil
}
