package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/oauth2"
)

const (
	instrumentationName = "github.com/tgienger/stmc/internal/api"
	maxResponseSize     = 4 << 20
	requestIDHeader     = "X-Request-ID"
)

type options struct {
	http   *http.Client
	log    *log.Logger
	tracer trace.TracerProvider
}

// Option configures a Client or AuthClient
type Option func(*options)

// WithHTTPClient replaces the default http.Client
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.http = c }
}

// WithLogger sets the logger requests are reported to
func WithLogger(l *log.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithTracerProvider sets where request spans go. Defaults to the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) { o.tracer = tp }
}

func newTransport(opts []Option) *transport {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.http == nil {
		o.http = &http.Client{}
	}
	if o.log == nil {
		o.log = log.New()
		o.log.SetOutput(io.Discard)
	}
	if o.tracer == nil {
		o.tracer = otel.GetTracerProvider()
	}
	return &transport{
		http:   o.http,
		log:    o.log,
		tracer: o.tracer.Tracer(instrumentationName),
	}
}

type request struct {
	op       string // span and log name
	fallback string // message used when the service gives none
	method   string
	url      string
	body     any
	token    *oauth2.Token
}

type transport struct {
	http   *http.Client
	log    *log.Logger
	tracer trace.Tracer
}

// send performs one HTTP exchange and returns the raw response body of a
// successful (2xx) reply. It never retries.
func (t *transport) send(ctx context.Context, r request) (payload []byte, err error) {
	ctx, span := t.tracer.Start(ctx, r.op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("http.request.method", r.method)),
	)
	requestID := uuid.NewString()
	start := time.Now()
	status := 0

	defer func() {
		span.SetAttributes(
			attribute.Int("http.response.status_code", status),
			attribute.String("stmc.request_id", requestID),
		)
		entry := t.log.WithFields(log.Fields{
			"op":          r.op,
			"status":      status,
			"request_id":  requestID,
			"duration_ms": time.Since(start).Milliseconds(),
		})
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			entry.WithError(err).Warn("request failed")
		} else {
			span.SetStatus(codes.Ok, "")
			entry.Debug("request completed")
		}
		span.End()
	}()

	var body io.Reader
	if r.body != nil {
		buf, encErr := sonic.ConfigStd.Marshal(r.body)
		if encErr != nil {
			return nil, fmt.Errorf("%s: encode body: %w", r.op, encErr)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, r.url, body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", r.op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(requestIDHeader, requestID)
	if r.token != nil {
		r.token.SetAuthHeader(req)
	}

	resp, err := t.http.Do(req)
	if err != nil {
		return nil, &NetworkError{Op: r.op, Err: err}
	}
	defer resp.Body.Close()
	status = resp.StatusCode

	payload, err = io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, &NetworkError{Op: r.op, Err: err}
	}
	if status < 200 || status > 299 {
		return nil, &RemoteError{Op: r.op, Status: status, Message: remoteMessage(payload, r.fallback)}
	}
	return payload, nil
}

// remoteMessage extracts the service's own explanation from an error body
func remoteMessage(payload []byte, fallback string) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := sonic.ConfigStd.Unmarshal(payload, &body); err == nil {
		if body.Message != "" {
			return body.Message
		}
		if body.Error != "" {
			return body.Error
		}
	}
	return fallback
}
