package triage

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/oklog/ulid/v2"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/argus/internal/alert"
	"github.com/linnemanlabs/argus/internal/assess"
	"github.com/linnemanlabs/argus/internal/enrich"
	"github.com/linnemanlabs/argus/internal/history"
	"github.com/linnemanlabs/argus/internal/llm"
)

const (
	// ResponseTokens bounds the model's output. Assessments are six short
	// labelled lines, anything longer is noise.
	ResponseTokens = 300

	// ModelTemperature keeps assessments close to deterministic for the
	// same inputs.
	ModelTemperature = 0.1

	// notifyRiskThreshold is the minimum risk score that triggers a
	// notification.
	notifyRiskThreshold = 7

	llmMaxAttempts = 3

	breakerThreshold = 3
	breakerCooldown  = 30 * time.Second
)

// Enricher aggregates technique and reputation context for one alert.
type Enricher interface {
	Enrich(ctx context.Context, al alert.Alert) (enrich.Bundle, error)
}

// Notifier delivers a persisted record to an external channel.
type Notifier interface {
	Send(ctx context.Context, rec *history.Record) error
}

// EngineHooks are optional observation points, wired to metrics by main.
type EngineHooks struct {
	OnLLMCall  func(duration float64, err error)
	OnFallback func()
	OnComplete func(outcome string, duration float64)
}

func (h EngineHooks) llmCall(duration float64, err error) {
	if h.OnLLMCall != nil {
		h.OnLLMCall(duration, err)
	}
}

func (h EngineHooks) fallback() {
	if h.OnFallback != nil {
		h.OnFallback()
	}
}

func (h EngineHooks) complete(outcome string, duration float64) {
	if h.OnComplete != nil {
		h.OnComplete(outcome, duration)
	}
}

// breaker trips after consecutive model failures. While open it lets one
// probe through per cooldown window; a success closes it again.
type breaker struct {
	mu       sync.Mutex
	failures int
	openedAt time.Time
}

func (b *breaker) allow(now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failures < breakerThreshold {
		return true
	}
	if now.Sub(b.openedAt) >= breakerCooldown {
		// Half-open: permit a probe, push the window forward so
		// concurrent callers don't all probe at once.
		b.openedAt = now
		return true
	}
	return false
}

func (b *breaker) record(err error, now time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err == nil {
		b.failures = 0
		return
	}
	b.failures++
	if b.failures == breakerThreshold {
		b.openedAt = now
	}
}

// Engine runs the alert pipeline: enrich, compile prompt, invoke model,
// normalize, persist. Each stage takes the prior stage's output as a value
// and returns a new value; nothing is mutated across stages.
type Engine struct {
	enricher Enricher
	provider llm.Provider
	store    history.Store
	notifier Notifier
	logger   log.Logger
	hooks    EngineHooks
	breaker  breaker

	// retryInterval seeds the exponential backoff between model retries.
	retryInterval time.Duration
}

// NewEngine creates an engine. notifier may be nil.
func NewEngine(enricher Enricher, provider llm.Provider, store history.Store, notifier Notifier, logger log.Logger) *Engine {
	return &Engine{
		enricher:      enricher,
		provider:      provider,
		store:         store,
		notifier:      notifier,
		logger:        logger,
		retryInterval: 500 * time.Millisecond,
	}
}

// SetHooks installs observation hooks. Call before the first Run.
func (e *Engine) SetHooks(h EngineHooks) {
	e.hooks = h
}

// Run processes one alert end to end. A failure before normalization aborts
// the run without persisting anything and is returned as an error. Model
// failures do not abort: the assessment degrades to per-field fallbacks and
// the record is still persisted.
func (e *Engine) Run(ctx context.Context, al alert.Alert) (*RunResult, error) {
	start := time.Now()
	id := ulid.Make().String()

	L := e.logger.With(
		"record_id", id,
		"source_ip", al.SourceIP,
	)

	bundle, err := e.enricher.Enrich(ctx, al)
	if err != nil {
		e.hooks.complete("failed", time.Since(start).Seconds())
		return nil, err
	}

	L.Info(ctx, "alert enriched",
		"technique", bundle.Technique.ID,
		"confidence", bundle.Technique.Confidence,
		"malicious_vendors", bundle.Reputation.MaliciousVendorsCount,
	)

	prompt := assess.CompilePrompt(al, bundle.Technique, bundle.Reputation)

	raw, usedFallback := e.invokeModel(ctx, L, prompt)

	var as assess.Assessment
	if usedFallback {
		as = assess.Fallback()
	} else {
		as = assess.Normalize(raw)
	}

	// Records with unresolved sentinels are unusable downstream. Skip
	// them here rather than storing them.
	if as.HasSentinel() {
		L.Warn(ctx, "assessment contains unresolved sentinel, skipping")
		e.hooks.complete("skipped", time.Since(start).Seconds())
		return &RunResult{Skipped: true, Reason: "unresolved sentinel in assessment"}, nil
	}

	rec := history.NewRecord(id, al, bundle, as, time.Now().UTC())
	if err := e.store.Append(ctx, rec); err != nil {
		e.hooks.complete("failed", time.Since(start).Seconds())
		return nil, err
	}

	e.notify(ctx, L, rec)

	e.hooks.complete("processed", time.Since(start).Seconds())
	L.Info(ctx, "alert processed",
		"risk_score", as.RiskScore,
		"mitre", as.Mitre,
		"fallback", usedFallback,
		"duration", time.Since(start).Seconds(),
	)

	return &RunResult{Record: rec, Fallback: usedFallback}, nil
}

// invokeModel calls the provider with bounded retries behind the circuit
// breaker. Any terminal failure yields the fallback path instead of an
// error.
func (e *Engine) invokeModel(ctx context.Context, L log.Logger, prompt string) (raw string, usedFallback bool) {
	if !e.breaker.allow(time.Now()) {
		L.Warn(ctx, "model circuit open, using fallback assessment")
		e.hooks.fallback()
		return "", true
	}

	op := func() (string, error) {
		callStart := time.Now()
		out, err := e.provider.Generate(ctx, &llm.Request{
			Prompt:      prompt,
			MaxTokens:   ResponseTokens,
			Temperature: ModelTemperature,
		})
		e.hooks.llmCall(time.Since(callStart).Seconds(), err)
		if ctx.Err() != nil {
			return "", backoff.Permanent(ctx.Err())
		}
		return out, err
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = e.retryInterval

	out, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(llmMaxAttempts),
	)
	e.breaker.record(err, time.Now())
	if err != nil {
		L.Error(ctx, err, "model call failed, using fallback assessment")
		e.hooks.fallback()
		return "", true
	}
	return out, false
}

// notify sends high-risk records to the notifier. Delivery failures are
// logged, never propagated; the record is already persisted.
func (e *Engine) notify(ctx context.Context, L log.Logger, rec *history.Record) {
	if e.notifier == nil {
		return
	}
	risk, err := strconv.Atoi(rec.Assessment.RiskScore)
	if err != nil || risk < notifyRiskThreshold {
		return
	}
	if err := e.notifier.Send(ctx, rec); err != nil {
		L.Error(ctx, err, "notification failed", "record_id", rec.ID)
	}
}
