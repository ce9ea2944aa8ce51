package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/use-agent/linkstash/classifier"
)

// Strategy names one of the three fetch strategies.
type Strategy int

const (
	Direct Strategy = iota
	Rendering
	Metadata
)

func (s Strategy) String() string {
	switch s {
	case Direct:
		return "direct"
	case Rendering:
		return "rendering"
	case Metadata:
		return "metadata"
	}
	return fmt.Sprintf("strategy(%d)", int(s))
}

// Step is the escalation state of one ingestion.
type Step int

const (
	NotStarted Step = iota
	TriedDirect
	TriedRendering
	TriedMetadata
	Done
)

func (s Step) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case TriedDirect:
		return "tried_direct"
	case TriedRendering:
		return "tried_rendering"
	case TriedMetadata:
		return "tried_metadata"
	case Done:
		return "done"
	}
	return fmt.Sprintf("step(%d)", int(s))
}

// Plan is the order in which strategies are attempted.
type Plan []Strategy

// PlanFor returns the escalation order. Hosts known to need JavaScript go
// to rendering first and fall back to a direct fetch before the metadata
// service.
func PlanFor(jsRequired bool) Plan {
	if jsRequired {
		return Plan{Rendering, Direct, Metadata}
	}
	return Plan{Direct, Rendering, Metadata}
}

func triedStep(s Strategy) Step {
	switch s {
	case Direct:
		return TriedDirect
	case Rendering:
		return TriedRendering
	default:
		return TriedMetadata
	}
}

func stepStrategy(s Step) (Strategy, bool) {
	switch s {
	case TriedDirect:
		return Direct, true
	case TriedRendering:
		return Rendering, true
	case TriedMetadata:
		return Metadata, true
	}
	return 0, false
}

// NextStrategy is the pure escalation decision. Given the plan, the current
// step and whether the last attempt succeeded, it returns the strategy to
// run next and the step that running it leads to. When step is Done on
// return, nothing is left to run. A strategy is never attempted twice.
func NextStrategy(plan Plan, step Step, lastOK bool) (Strategy, Step) {
	if step == Done || (lastOK && step != NotStarted) {
		return 0, Done
	}
	next := 0
	if last, ok := stepStrategy(step); ok {
		next = -1
		for i, s := range plan {
			if s == last {
				next = i + 1
				break
			}
		}
		if next < 0 {
			return 0, Done
		}
	}
	if next >= len(plan) {
		return 0, Done
	}
	return plan[next], triedStep(plan[next])
}

// AcceptFunc inspects a successful fetch. A non-nil error rejects the result
// and escalation continues as if the strategy had failed.
type AcceptFunc func(*FetchResult) error

// Attempt records one strategy run for logging and the caller.
type Attempt struct {
	Strategy Strategy
	Reason   Reason
	Duration time.Duration
}

// Outcome is what Dispatch returns: the accepted result, if any, plus every
// attempt made.
type Outcome struct {
	Result   *FetchResult
	Attempts []Attempt
}

// Dispatcher runs the escalation state machine over the configured engines.
// Engines run strictly one at a time.
type Dispatcher struct {
	engines map[Strategy]Engine
	hosts   classifier.Hosts
	memory  *DomainMemory
}

// Engines holds the strategy implementations. A nil engine is skipped; do
// not store a typed nil pointer.
type Engines struct {
	Direct    Engine
	Rendering Engine
	Metadata  Engine
}

// NewDispatcher creates a Dispatcher. memory may be nil.
func NewDispatcher(engines Engines, hosts classifier.Hosts, memory *DomainMemory) *Dispatcher {
	m := make(map[Strategy]Engine, 3)
	if engines.Direct != nil {
		m[Direct] = engines.Direct
	}
	if engines.Rendering != nil {
		m[Rendering] = engines.Rendering
	}
	if engines.Metadata != nil {
		m[Metadata] = engines.Metadata
	}
	return &Dispatcher{engines: m, hosts: hosts, memory: memory}
}

// Memory returns the learned-host memory, which may be nil.
func (d *Dispatcher) Memory() *DomainMemory { return d.memory }

// LearnedHosts returns the number of hosts learned at runtime.
func (d *Dispatcher) LearnedHosts() int { return d.memory.Len() }

// RenderReady reports whether a rendering engine is configured and not
// cooling down.
func (d *Dispatcher) RenderReady() bool {
	eng, ok := d.engines[Rendering]
	if !ok {
		return false
	}
	if a, ok := eng.(interface{ Available() bool }); ok {
		return a.Available()
	}
	return true
}

// JSRequired reports whether host skips Direct Fetch, either statically or
// because it was learned at runtime.
func (d *Dispatcher) JSRequired(host string) bool {
	return d.hosts.RequiresRendering(host) || d.memory.Has(host)
}

// ErrExhausted is wrapped by Dispatch when every strategy failed.
var ErrExhausted = errors.New("dispatcher: all strategies failed")

// Dispatch drives NextStrategy until a result is accepted or the plan is
// exhausted. Caller cancellation stops escalation immediately and is
// returned as an error wrapping ctx.Err().
func (d *Dispatcher) Dispatch(ctx context.Context, req *FetchRequest, accept AcceptFunc) (*Outcome, error) {
	host := hostOf(req.URL)
	plan := PlanFor(d.JSRequired(host))

	var (
		out           Outcome
		errs          []error
		directBlocked bool
		ok            bool
		strategy      Strategy
		step          = NotStarted
	)
	for {
		strategy, step = NextStrategy(plan, step, ok)
		if step == Done {
			break
		}
		if err := ctx.Err(); err != nil {
			return &out, fmt.Errorf("dispatcher: %w", err)
		}

		eng, configured := d.engines[strategy]
		if !configured {
			out.Attempts = append(out.Attempts, Attempt{Strategy: strategy, Reason: ReasonNotConfigured})
			slog.Debug("strategy skipped", "url", req.URL, "strategy", strategy, "reason", ReasonNotConfigured)
			continue
		}

		start := time.Now()
		result, err := eng.Fetch(ctx, req)
		if err == nil && accept != nil {
			if aerr := accept(result); aerr != nil {
				err = &FetchError{Method: result.Method, Reason: ReasonErrorPage, Err: aerr}
			}
		}
		elapsed := time.Since(start)

		if ctxErr := ctx.Err(); ctxErr != nil {
			out.Attempts = append(out.Attempts, Attempt{Strategy: strategy, Reason: ReasonCanceled, Duration: elapsed})
			return &out, fmt.Errorf("dispatcher: %s aborted: %w", strategy, ctxErr)
		}

		if err != nil {
			reason := ReasonOf(err)
			out.Attempts = append(out.Attempts, Attempt{Strategy: strategy, Reason: reason, Duration: elapsed})
			errs = append(errs, err)
			if strategy == Direct && (reason == ReasonBlocked || reason == ReasonAccessDenied) {
				directBlocked = true
			}
			level := slog.LevelInfo
			if reason.Fatal() {
				level = slog.LevelWarn
			}
			slog.Log(ctx, level, "strategy failed",
				"url", req.URL, "strategy", strategy, "engine", eng.Name(),
				"reason", reason, "duration", elapsed, "error", err,
			)
			continue
		}

		ok = true
		out.Result = result
		out.Attempts = append(out.Attempts, Attempt{Strategy: strategy, Duration: elapsed})
		slog.Info("strategy succeeded",
			"url", req.URL, "strategy", strategy, "engine", eng.Name(), "duration", elapsed,
		)
		if strategy == Rendering && directBlocked && !d.hosts.RequiresRendering(host) {
			d.memory.Learn(host)
			slog.Info("learned rendering host", "host", host)
		}
	}

	if out.Result != nil {
		return &out, nil
	}
	if len(errs) == 0 {
		return &out, fmt.Errorf("%w for %s: no engine configured", ErrExhausted, req.URL)
	}
	return &out, fmt.Errorf("%w for %s: %w", ErrExhausted, req.URL, errors.Join(errs...))
}

// hostOf parses the hostname from a URL string.
func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
