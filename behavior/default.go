// Package behavior provides total default implementations of the eight
// pluggable behavior interfaces: a consumer embeds one of these and
// overrides a single method. Plus BehaviorBridge, which translates the six
// incoming transport events into calls on whichever behaviors a ClientConn
// actually installs. Grounded on control.MetricsRegistry/DebugProbes
// (small structs wrapping a handful of counters behind a narrow interface)
// for the metrics default; the logging default writes through logrus.
// Author: momentics <momentics@gmail.com>
package behavior

import (
	"encoding/json"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/momentics/wsconnect/api"
)

// DefaultConnectionHandler answers every connect with "continue" and every
// disconnect with "reconnect", the sensible default for a library whose
// whole purpose is resilience; a consumer that wants to give up on specific
// reasons overrides HandleDisconnect.
type DefaultConnectionHandler struct{}

func (DefaultConnectionHandler) HandleConnect(conn *api.ClientConn, protocol string, streamRef string, headers map[string][]string) api.ConnectDirective {
	return api.ConnectDirective{Kind: api.DirOK}
}

func (DefaultConnectionHandler) HandleDisconnect(conn *api.ClientConn, reason api.DisconnectReason) api.DisconnectDirective {
	return api.DisconnectDirective{Kind: api.DirReconnect, Reason: reason.String()}
}

// DefaultMessageHandler accepts every frame/message unconditionally and
// encodes outbound replies as JSON text frames, a reasonable default given
// the JSON-RPC-shaped payloads this runtime is built for, without assuming
// any particular method or channel naming (those are out of scope here).
type DefaultMessageHandler struct{}

func (DefaultMessageHandler) HandleFrame(conn *api.ClientConn, frame api.Frame) api.FrameDirective {
	return api.FrameDirective{Kind: api.DirOK}
}

func (DefaultMessageHandler) ValidateMessage(conn *api.ClientConn, raw map[string]any) error {
	return nil
}

func (DefaultMessageHandler) HandleMessage(conn *api.ClientConn, msg map[string]any) api.MessageDirective {
	return api.MessageDirective{Kind: api.DirOK}
}

func (DefaultMessageHandler) EncodeMessage(conn *api.ClientConn, msg any) (api.Frame, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return api.Frame{}, err
	}
	return api.Frame{Type: api.FrameText, Data: data}, nil
}

// DefaultErrorHandler logs through logrus and never asks the runtime to do
// anything beyond continue; a consumer wanting reconnect-on-error overrides
// HandleError.
type DefaultErrorHandler struct{}

func (DefaultErrorHandler) LogError(conn *api.ClientConn, kind api.ErrorKind, err error) {
	logrus.WithFields(logrus.Fields{"conn_id": conn.ID, "kind": kind.String()}).Warn(err)
}

func (DefaultErrorHandler) HandleError(conn *api.ClientConn, kind api.ErrorKind, err error) api.ErrorDirective {
	return api.ErrorDirective{Kind: api.DirOK}
}

// DefaultAuthHandler has no signature scheme to apply: authentication
// wire formats are explicitly out of scope, so it refuses to build a
// request until a consumer supplies a real AuthHandler.
type DefaultAuthHandler struct{}

func (DefaultAuthHandler) BuildAuthRequest(conn *api.ClientConn, creds api.Credentials) (api.Frame, error) {
	return api.Frame{}, api.ErrMissingCredentials
}

func (DefaultAuthHandler) HandleAuthResult(conn *api.ClientConn, msg map[string]any) error {
	return nil
}

// DefaultSubscriptionHandler builds a minimal, protocol-agnostic
// {channel, params} envelope and never recognizes an ack on its own. Real
// channel-naming/ack shapes belong to the exchange adapter, out of scope.
type DefaultSubscriptionHandler struct{}

func (DefaultSubscriptionHandler) BuildSubscribeRequest(conn *api.ClientConn, sub *api.Subscription) (api.Frame, error) {
	data, err := json.Marshal(map[string]any{"channel": sub.Channel, "params": sub.Params})
	if err != nil {
		return api.Frame{}, err
	}
	return api.Frame{Type: api.FrameText, Data: data}, nil
}

func (DefaultSubscriptionHandler) BuildUnsubscribeRequest(conn *api.ClientConn, sub *api.Subscription) (api.Frame, error) {
	data, err := json.Marshal(map[string]any{"channel": sub.Channel, "unsubscribe": true})
	if err != nil {
		return api.Frame{}, err
	}
	return api.Frame{Type: api.FrameText, Data: data}, nil
}

func (DefaultSubscriptionHandler) MatchAck(conn *api.ClientConn, msg map[string]any) (subscriptionID string, confirmed bool, ok bool) {
	return "", false, false
}

// DefaultRateLimitHandler costs every request at 1 and leaves priority flat.
type DefaultRateLimitHandler struct{}

func (DefaultRateLimitHandler) CostOf(kind api.RequestKind) int  { return 1 }
func (DefaultRateLimitHandler) PriorityOf(kind api.RequestKind) int { return 0 }

// DefaultLoggingHandler logs transitions and events through logrus, using
// the same structured-field logging style as the rest of this codebase.
type DefaultLoggingHandler struct{}

func (DefaultLoggingHandler) LogTransition(connID string, from, to api.ConnState) {
	logrus.WithFields(logrus.Fields{"conn_id": connID, "from": from.String(), "to": to.String()}).Info("state transition")
}

func (DefaultLoggingHandler) LogEvent(connID string, message string, fields map[string]any) {
	entry := logrus.WithField("conn_id", connID)
	for k, v := range fields {
		entry = entry.WithField(k, v)
	}
	entry.Info(message)
}

// DefaultMetricsCollector is a thin prometheus.CounterVec/HistogramVec
// wrapper, lazily registering series by name the first time they're seen.
// Adapted from control.MetricsRegistry, which does the same
// lazy-registration trick for its own counters.
type DefaultMetricsCollector struct {
	registry   *prometheus.Registry
	counters   map[string]*prometheus.CounterVec
	histograms map[string]*prometheus.HistogramVec
}

// NewDefaultMetricsCollector returns a collector registered against reg, or
// the default global registry when reg is nil.
func NewDefaultMetricsCollector(reg *prometheus.Registry) *DefaultMetricsCollector {
	return &DefaultMetricsCollector{
		registry:   reg,
		counters:   make(map[string]*prometheus.CounterVec),
		histograms: make(map[string]*prometheus.HistogramVec),
	}
}

func (m *DefaultMetricsCollector) IncCounter(name string, labels map[string]string) {
	c, ok := m.counters[name]
	if !ok {
		c = prometheus.NewCounterVec(prometheus.CounterOpts{Name: name}, labelNames(labels))
		if m.registry != nil {
			m.registry.MustRegister(c)
		} else {
			prometheus.MustRegister(c)
		}
		m.counters[name] = c
	}
	c.With(labels).Inc()
}

func (m *DefaultMetricsCollector) ObserveHistogram(name string, labels map[string]string, value float64) {
	h, ok := m.histograms[name]
	if !ok {
		h = prometheus.NewHistogramVec(prometheus.HistogramOpts{Name: name}, labelNames(labels))
		if m.registry != nil {
			m.registry.MustRegister(h)
		} else {
			prometheus.MustRegister(h)
		}
		m.histograms[name] = h
	}
	h.With(labels).Observe(value)
}

func labelNames(labels map[string]string) []string {
	names := make([]string, 0, len(labels))
	for k := range labels {
		names = append(names, k)
	}
	return names
}
