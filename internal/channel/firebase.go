package channel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/r3labs/sse/v2"

	"birdsbuddy/internal/logger"
)

type FirebaseOptions struct {
	DatabaseURL  string
	AuthToken    string
	SensorsPath  string
	CommandsPath string
	// HTTPClient is used for both the stream and command writes.
	// Defaults to a client without timeout; writes are bounded by ctx.
	HTTPClient *http.Client
}

// Firebase streams the sensors document from the Realtime Database REST API
// (server-sent events, read with r3labs/sse) and writes commands with plain
// PUTs.
type Firebase struct {
	state

	opts   FirebaseOptions
	base   *url.URL
	client *http.Client
	log    *logger.Logger

	cancel context.CancelFunc
	done   chan struct{}

	// doc is only touched by the stream goroutine.
	doc map[string]json.RawMessage

	closeOnce sync.Once
}

// errStreamEnded is returned when the server closes or cancels the stream.
var errStreamEnded = errors.New("event stream ended")

// NewFirebase validates the database URL and starts the stream goroutine.
func NewFirebase(o FirebaseOptions, log *logger.Logger) (*Firebase, error) {
	base, err := url.Parse(o.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("database url %q must be http or https", o.DatabaseURL)
	}
	if log == nil {
		log = logger.Nop()
	}
	client := o.HTTPClient
	if client == nil {
		client = &http.Client{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	f := &Firebase{
		opts:   o,
		base:   base,
		client: client,
		log:    log,
		cancel: cancel,
		done:   make(chan struct{}),
		doc:    map[string]json.RawMessage{},
	}
	go f.run(ctx)
	return f, nil
}

func (f *Firebase) endpoint(path string) string {
	u := *f.base
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.Trim(path, "/") + ".json"
	if f.opts.AuthToken != "" {
		q := u.Query()
		q.Set("auth", f.opts.AuthToken)
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// run keeps the stream open until ctx is cancelled. The SSE client retries
// failed connects itself; a stream that ends cleanly or is cancelled by the
// server is reopened after an exponential backoff wait.
func (f *Firebase) run(ctx context.Context) {
	defer close(f.done)

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 0
	b := backoff.WithContext(bo, ctx)

	client := sse.NewClient(f.endpoint(f.opts.SensorsPath), sse.ClientMaxBufferSize(1<<20))
	client.Connection = f.client
	client.ResponseValidator = func(_ *sse.Client, resp *http.Response) error {
		if resp.StatusCode != http.StatusOK {
			_ = resp.Body.Close()
			return fmt.Errorf("open stream: unexpected status %s", resp.Status)
		}
		bo.Reset()
		f.setConnected(true)
		f.log.Infow("firebase_stream_open", "path", f.opts.SensorsPath)
		return nil
	}
	client.OnDisconnect(func(*sse.Client) { f.setConnected(false) })
	client.ReconnectNotify = func(err error, wait time.Duration) {
		f.setConnected(false)
		f.log.Warnw("firebase_stream_retry", "err", err, "retry_in", wait)
	}

	for {
		err := f.subscribe(ctx, client)
		f.setConnected(false)
		if ctx.Err() != nil {
			return
		}
		wait := b.NextBackOff()
		if wait == backoff.Stop {
			return
		}
		f.log.Warnw("firebase_stream_closed", "err", err, "retry_in", wait)
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

// subscribe runs one stream session. A cancel or auth_revoked event ends it.
func (f *Firebase) subscribe(ctx context.Context, client *sse.Client) error {
	subCtx, stop := context.WithCancel(ctx)
	defer stop()

	var ended error
	err := client.SubscribeRawWithContext(subCtx, func(msg *sse.Event) {
		if ended != nil {
			return
		}
		if err := f.handleEvent(string(msg.Event), msg.Data); err != nil {
			ended = err
			stop()
		}
	})
	if ended != nil {
		return ended
	}
	if err != nil {
		return err
	}
	return errStreamEnded
}

type streamPayload struct {
	Path string          `json:"path"`
	Data json.RawMessage `json:"data"`
}

func (f *Firebase) handleEvent(event string, data []byte) error {
	switch event {
	case "keep-alive":
		return nil
	case "cancel", "auth_revoked":
		return fmt.Errorf("%w: %s", errStreamEnded, event)
	case "put", "patch":
	default:
		f.log.Debugw("firebase_event_ignored", "event", event)
		return nil
	}

	var p streamPayload
	if err := json.Unmarshal(data, &p); err != nil {
		f.log.Warnw("firebase_event_dropped", "event", event, "err", err)
		return nil
	}
	if err := f.apply(event, p); err != nil {
		f.log.Warnw("firebase_event_dropped", "event", event, "path", p.Path, "err", err)
		return nil
	}

	raw, err := json.Marshal(f.doc)
	if err != nil {
		return err
	}
	patch, err := decodeDocument(raw)
	if err != nil {
		f.log.Warnw("firebase_document_dropped", "err", err)
		return nil
	}
	f.setDocument(patch)
	return nil
}

// apply folds one put/patch into the local copy of the document. Only the
// root and first-level keys are tracked; the device document is flat.
func (f *Firebase) apply(event string, p streamPayload) error {
	key := strings.Trim(p.Path, "/")
	if strings.Contains(key, "/") {
		return fmt.Errorf("nested path %q not supported", p.Path)
	}
	isNull := len(p.Data) == 0 || string(p.Data) == "null"

	if key != "" {
		if isNull {
			delete(f.doc, key)
		} else {
			f.doc[key] = p.Data
		}
		return nil
	}

	var fields map[string]json.RawMessage
	if !isNull {
		if err := json.Unmarshal(p.Data, &fields); err != nil {
			return err
		}
	}
	if event == "put" {
		f.doc = map[string]json.RawMessage{}
	}
	for k, v := range fields {
		if string(v) == "null" {
			delete(f.doc, k)
			continue
		}
		f.doc[k] = v
	}
	return nil
}

// SetCommand writes true to <commands>/<name>. One attempt, no retry.
func (f *Firebase) SetCommand(ctx context.Context, name string) error {
	select {
	case <-f.done:
		return ErrClosed
	default:
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut,
		f.endpoint(f.opts.CommandsPath+"/"+name), strings.NewReader("true"))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("write %s: %s: %s", name, resp.Status, strings.TrimSpace(string(body)))
	}
	return nil
}

func (f *Firebase) Close() error {
	f.closeOnce.Do(func() {
		f.cancel()
		<-f.done
	})
	return nil
}
