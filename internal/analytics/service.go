// Package analytics records product telemetry events. Everything here is
// best-effort: an analytics failure must never block or corrupt the response
// it rides along with.
package analytics

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mssola/useragent"

	"promptschola/pkg/clock"
)

// Service records events into the store, swallowing failures.
type Service struct {
	store  Store
	logger *slog.Logger
	clock  clock.Clock
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithServiceClock sets the time source for event timestamps.
func WithServiceClock(c clock.Clock) ServiceOption {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// NewService constructs the analytics service.
func NewService(store Store, logger *slog.Logger, opts ...ServiceOption) *Service {
	s := &Service{store: store, logger: logger, clock: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Record persists an event. Insert failures are logged and swallowed.
func (s *Service) Record(ctx context.Context, event Event) {
	event.ID = uuid.NewString()
	event.OccurredAt = s.clock()
	if event.UserAgent != "" && event.Browser == "" {
		event.Browser, event.OS = parseUserAgent(event.UserAgent)
	}

	if err := s.store.Insert(ctx, &event); err != nil {
		s.logger.WarnContext(ctx, "analytics insert failed, dropping event",
			"error", err,
			"event_type", event.EventType,
			"nano_slug", event.NanoSlug,
		)
	}
}

// RecordRequest fills request-derived fields (IP, geo headers, user agent)
// and records the event.
func (s *Service) RecordRequest(r *http.Request, event Event) {
	event.IPAddress = clientIP(r)
	event.Country = r.Header.Get("X-Geo-Country")
	event.Region = r.Header.Get("X-Geo-Region")
	event.UserAgent = r.Header.Get("User-Agent")
	s.Record(r.Context(), event)
}

// clientIP prefers the first X-Forwarded-For hop, falling back to the direct
// peer address.
func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		for _, part := range strings.Split(forwarded, ",") {
			if ip := strings.TrimSpace(part); ip != "" {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func parseUserAgent(raw string) (browser, os string) {
	ua := useragent.New(raw)
	name, version := ua.Browser()
	browser = strings.TrimSpace(name + " " + version)
	os = ua.OS()
	return browser, os
}
