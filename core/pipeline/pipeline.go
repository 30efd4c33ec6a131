// Package pipeline runs the dispatch decision sequence for one reported
// incident: rule evaluation, capability aggregation, resource matching,
// scene arbitration, plan optimization, constraint filtering, multi-criteria
// ranking and output assembly. Stages run strictly sequentially; recoverable
// stage failures are recorded on the run and execution continues with
// fallback data.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ebrunet/dispatchcore/core/arbitrate"
	"github.com/ebrunet/dispatchcore/core/assemble"
	"github.com/ebrunet/dispatchcore/core/breaker"
	"github.com/ebrunet/dispatchcore/core/capability"
	"github.com/ebrunet/dispatchcore/core/feasibility"
	"github.com/ebrunet/dispatchcore/core/logger"
	"github.com/ebrunet/dispatchcore/core/match"
	"github.com/ebrunet/dispatchcore/core/metrics"
	"github.com/ebrunet/dispatchcore/core/model"
	"github.com/ebrunet/dispatchcore/core/optimize"
	"github.com/ebrunet/dispatchcore/core/rules"
	"github.com/ebrunet/dispatchcore/internal/eventbus"
)

// StageEvent is published on the event bus as stages execute.
type StageEvent struct {
	CorrelationID string
	Stage         string
	Action        string // started, completed, degraded, aborted
	Err           error
}

// Pipeline orchestrates one decision run at a time. Instances are safe for
// concurrent use: the only shared mutable state is the breaker registry.
type Pipeline struct {
	engine     *rules.Engine
	matcher    *match.Matcher
	arbitrator *arbitrate.Arbitrator
	optimizer  *optimize.Optimizer
	registry   *breaker.Registry
	sink       metrics.DecisionSink
	bus        eventbus.EventBus
	log        logger.Logger
	opts       Options
}

// New wires a pipeline. engine and registry are required; scorer, solver
// and ranker may be nil to use the built-in algorithms, and sink, bus and
// log may be nil for no-op behaviour.
func New(engine *rules.Engine, registry *breaker.Registry, scorer match.Scorer, solver optimize.Solver, ranker arbitrate.SceneRanker, sink metrics.DecisionSink, bus eventbus.EventBus, log logger.Logger, opts Options) *Pipeline {
	if log == nil {
		log = logger.NopLogger{}
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	opts.SetDefaults()
	return &Pipeline{
		engine:     engine,
		matcher:    match.NewMatcher(scorer, registry.Get(match.BreakerName), log),
		arbitrator: arbitrate.NewArbitrator(ranker, log),
		optimizer:  optimize.NewOptimizer(solver, registry.Get(optimize.BreakerName), log),
		registry:   registry,
		sink:       sink,
		bus:        bus,
		log:        log,
		opts:       opts,
	}
}

// runState accumulates the per-run pipeline fields. Each stage appends only
// the fields it produces.
type runState struct {
	result   *model.RunResult
	matched  int
	degraded bool
	started  time.Time
}

func (p *Pipeline) publish(ev StageEvent) {
	if p.bus != nil {
		p.bus.Publish(ev)
	}
}

// stage times fn, records the trace entry and surfaces degradation notes on
// the run's error list.
func (p *Pipeline) stage(st *runState, name string, fn func() (degraded bool, note string)) {
	p.publish(StageEvent{CorrelationID: st.result.CorrelationID, Stage: name, Action: "started"})
	start := time.Now()
	degraded, note := fn()
	trace := model.StageTrace{Name: name, Duration: time.Since(start), Degraded: degraded, Note: note}
	st.result.Trace.Stages = append(st.result.Trace.Stages, trace)
	if rec, ok := p.sink.(metrics.StageRecorder); ok {
		if err := rec.RecordStage(metrics.StageEvent{
			CorrelationID: st.result.CorrelationID,
			Stage:         name,
			Duration:      trace.Duration,
			Degraded:      degraded,
			Time:          time.Now(),
		}); err != nil {
			p.log.Errorf("stage metrics error: %v", err)
		}
	}
	if degraded {
		st.degraded = true
		st.result.Errors = append(st.result.Errors, name+": "+note)
		p.publish(StageEvent{CorrelationID: st.result.CorrelationID, Stage: name, Action: "degraded"})
		return
	}
	p.publish(StageEvent{CorrelationID: st.result.CorrelationID, Stage: name, Action: "completed"})
}

// cancelled records a run abandoned at a stage boundary.
func (p *Pipeline) cancelled(ctx context.Context, st *runState, at string) *model.RunResult {
	st.result.Errors = append(st.result.Errors, "run cancelled before "+at+": "+ctx.Err().Error())
	p.publish(StageEvent{CorrelationID: st.result.CorrelationID, Stage: at, Action: "aborted", Err: ctx.Err()})
	p.finish(st, "")
	return st.result
}

func (p *Pipeline) finish(st *runState, disasterType string) {
	st.result.Trace.BreakerStates = p.registry.States()
	ev := metrics.RunEvent{
		CorrelationID: st.result.CorrelationID,
		DisasterType:  disasterType,
		MatchedRules:  st.matched,
		Requirements:  len(st.result.Requirements),
		FeasiblePlans: st.result.Trace.FeasibleCount,
		RejectedPlans: st.result.Trace.RejectedCount,
		Degraded:      st.degraded,
		Errors:        len(st.result.Errors),
		Duration:      time.Since(st.started),
		Time:          time.Now(),
	}
	if err := p.sink.RecordRun(ev); err != nil {
		p.log.Errorf("metrics sink error: %v", err)
	}
}

// Run executes the full decision sequence. The returned result is always
// populated with the trace and accumulated errors; the error return is
// non-nil only for the fatal no-resources condition, and even then the
// result carries what was decided up to that point.
func (p *Pipeline) Run(ctx context.Context, incident *model.IncidentContext, scenes []model.Scene, pool []model.Resource) (*model.RunResult, error) {
	st := &runState{
		result: &model.RunResult{
			CorrelationID: uuid.NewString(),
			Trace:         model.RunTrace{Algorithms: make(map[string]string)},
		},
		started: time.Now(),
	}
	st.result.Trace.CorrelationID = st.result.CorrelationID
	p.log.Infof("decision run %s started for %s", st.result.CorrelationID, incident.DisasterType)

	var matched []rules.MatchedRule
	p.stage(st, "rule_evaluation", func() (bool, string) {
		matched = p.engine.Evaluate(incident)
		st.matched = len(matched)
		return false, ""
	})

	if ctx.Err() != nil {
		return p.cancelled(ctx, st, "capability_aggregation"), nil
	}
	p.stage(st, "capability_aggregation", func() (bool, string) {
		st.result.Requirements = capability.Aggregate(matched)
		return false, ""
	})

	if ctx.Err() != nil {
		return p.cancelled(ctx, st, "resource_matching"), nil
	}
	var matchOut match.Outcome
	var fatal error
	p.stage(st, "resource_matching", func() (bool, string) {
		out, err := p.matcher.Match(ctx, match.Request{
			Context:      incident,
			Requirements: st.result.Requirements,
			Resources:    pool,
			Weights:      p.opts.Weights,
		})
		if err != nil {
			fatal = err
			return true, err.Error()
		}
		matchOut = out
		return out.Degraded, out.Note
	})
	if fatal != nil {
		p.finish(st, incident.DisasterType)
		return st.result, fatal
	}
	p.algorithm(st, "matcher", matchOut.Degraded, "weighted_scorer", "capability_fallback")

	if ctx.Err() != nil {
		return p.cancelled(ctx, st, "scene_arbitration"), nil
	}
	p.stage(st, "scene_arbitration", func() (bool, string) {
		priorities, degraded := p.arbitrator.Arbitrate(ctx, scenes)
		st.result.ScenePriority = priorities
		if degraded {
			return true, "scene ranker unavailable, primary-first fallback applied"
		}
		return false, ""
	})

	if ctx.Err() != nil {
		return p.cancelled(ctx, st, "plan_optimization"), nil
	}
	var optOut optimize.Outcome
	p.stage(st, "plan_optimization", func() (bool, string) {
		optOut = p.optimizer.Optimize(ctx, optimize.Problem{
			Candidates:   matchOut.Candidates,
			Requirements: st.result.Requirements,
			PlanCount:    p.opts.PlanCount,
		})
		return optOut.Degraded, optOut.Note
	})
	p.algorithm(st, "optimizer", optOut.Degraded, "greedy_frontier", "tradeoff_profiles")
	if p.opts.IncludePareto {
		st.result.Pareto = optOut.Plans
	}

	if ctx.Err() != nil {
		return p.cancelled(ctx, st, "constraint_filtering"), nil
	}
	var feasible []feasibility.Verdict
	p.stage(st, "constraint_filtering", func() (bool, string) {
		verdicts := feasibility.Filter(p.engine, optOut.Plans, st.result.Requirements, incident, p.log)
		feasible = feasibility.Feasible(verdicts)
		st.result.Trace.FeasibleCount = len(feasible)
		st.result.Trace.RejectedCount = len(verdicts) - len(feasible)
		return false, ""
	})

	var scores []model.SchemeScore
	if len(feasible) == 0 {
		// Valid terminal outcome: no feasible plan, ranking skipped.
		st.result.Errors = append(st.result.Errors, "no feasible plan: all candidates rejected by hard rules")
		p.log.Warnf("run %s produced no feasible plan", st.result.CorrelationID)
	} else {
		if ctx.Err() != nil {
			return p.cancelled(ctx, st, "plan_ranking"), nil
		}
		p.stage(st, "plan_ranking", func() (bool, string) {
			plans := make([]model.ParetoSolution, len(feasible))
			for i, v := range feasible {
				plans[i] = v.Plan
			}
			scores = feasibility.Rank(plans)
			return false, ""
		})
	}

	if ctx.Err() != nil {
		return p.cancelled(ctx, st, "output_assembly"), nil
	}
	p.stage(st, "output_assembly", func() (bool, string) {
		st.result.Schemes = assemble.Assemble(assemble.Input{
			Matched:          matched,
			Verdicts:         feasible,
			Scores:           scores,
			ErrorCount:       len(st.result.Errors),
			IncludeRationale: p.opts.IncludeRationale,
			TacticalNote:     p.opts.TacticalNote,
		})
		return false, ""
	})

	p.finish(st, incident.DisasterType)
	p.log.Infof("decision run %s completed: %d schemes, %d errors",
		st.result.CorrelationID, len(st.result.Schemes), len(st.result.Errors))
	return st.result, nil
}

// algorithm records which implementation served a stage.
func (p *Pipeline) algorithm(st *runState, key string, degraded bool, normal, fallback string) {
	if degraded {
		st.result.Trace.Algorithms[key] = fallback
		return
	}
	st.result.Trace.Algorithms[key] = normal
}
