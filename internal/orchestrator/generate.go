package orchestrator

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"fraud-trade-lab/internal/domain"
	"fraud-trade-lab/internal/generation"
	"fraud-trade-lab/internal/idhash"
	"fraud-trade-lab/internal/observability"
	"fraud-trade-lab/internal/scenario"
)

// generated is the combined output of every generator of a run.
type generated struct {
	trades     []domain.Trade // legitimate first, then scenarios in configuration order
	legitimate int
	summaries  []domain.ScenarioSummary
	warnings   []string
}

// scenarioJob is one configured scenario instance.
type scenarioJob struct {
	kind string
	run  func(scenario.Env) (*scenario.Result, error)
}

// scenarioJobs builds one job per configured scenario. Scenarios without a
// configured id get one derived from the run seed and their configuration slot,
// so identical entries still produce separate runs.
func (o *Orchestrator) scenarioJobs() []scenarioJob {
	s := o.opts.Scenarios
	jobs := make([]scenarioJob, 0, s.Count())
	for i, p := range s.Insider {
		p.ScenarioID = o.scenarioID(p.ScenarioID, domain.ScenarioInsiderTrading, i)
		jobs = append(jobs, scenarioJob{domain.ScenarioInsiderTrading, func(env scenario.Env) (*scenario.Result, error) {
			return scenario.GenerateInsider(env, p)
		}})
	}
	for i, p := range s.Wash {
		p.ScenarioID = o.scenarioID(p.ScenarioID, domain.ScenarioWashTrading, i)
		jobs = append(jobs, scenarioJob{domain.ScenarioWashTrading, func(env scenario.Env) (*scenario.Result, error) {
			return scenario.GenerateWash(env, p)
		}})
	}
	for i, p := range s.PumpDump {
		p.ScenarioID = o.scenarioID(p.ScenarioID, domain.ScenarioPumpAndDump, i)
		jobs = append(jobs, scenarioJob{domain.ScenarioPumpAndDump, func(env scenario.Env) (*scenario.Result, error) {
			return scenario.GeneratePumpDump(env, p)
		}})
	}
	return jobs
}

func (o *Orchestrator) scenarioID(configured, kind string, slot int) string {
	if configured != "" {
		return configured
	}
	return idhash.NewScenarioID(idhash.NewStream(o.opts.Seed, fmt.Sprintf("scenario|%s|%d", kind, slot)))
}

// generate runs the legitimate generator and every scenario concurrently.
// Results are stored by slot so the combined output does not depend on scheduling.
func (o *Orchestrator) generate(ctx context.Context, legit *generation.Generator, env scenario.Env) (generated, error) {
	jobs := o.scenarioJobs()
	results := make([]*scenario.Result, len(jobs))
	var legitTrades []domain.Trade

	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		trades, err := legit.GenerateAll(egCtx, env.Accounts, generation.ParallelOptions{
			Workers:   o.opts.Workers,
			BatchSize: o.opts.BatchSize,
		})
		if err != nil {
			return err
		}
		legitTrades = trades
		return nil
	})

	for i, job := range jobs {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			res, err := job.run(env)
			if err != nil {
				return fmt.Errorf("%s scenario %d: %w", job.kind, i, err)
			}
			results[i] = res
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return generated{}, err
	}

	out := generated{legitimate: len(legitTrades)}
	total := len(legitTrades)
	for _, r := range results {
		total += len(r.Trades)
	}
	out.trades = make([]domain.Trade, 0, total)
	out.trades = append(out.trades, legitTrades...)

	cancelled := countCancelled(legitTrades)
	o.logger.WithFields(logrus.Fields{
		"phase":     phaseGenerate,
		"generator": observability.GeneratorLegitimate,
		"accounts":  len(env.Accounts),
		"trades":    len(legitTrades),
		"cancelled": cancelled,
	}).Info("legitimate trades generated")
	if m := o.opts.Metrics; m != nil {
		m.AccountsProcessed.Add(float64(len(env.Accounts)))
		m.RecordTrades(observability.GeneratorLegitimate, len(legitTrades), cancelled)
	}

	for i, r := range results {
		out.trades = append(out.trades, r.Trades...)
		out.summaries = append(out.summaries, r.Summary)
		for _, w := range r.Warnings {
			out.warnings = append(out.warnings, fmt.Sprintf("%s %s: %s", jobs[i].kind, r.Summary.ScenarioID, w))
		}

		entry := o.logger.WithFields(logrus.Fields{
			"phase":       phaseGenerate,
			"scenario_id": r.Summary.ScenarioID,
			"scenario":    jobs[i].kind,
			"symbol":      r.Summary.Symbol,
			"accounts":    len(r.Summary.Participants),
			"trades":      len(r.Trades),
		})
		entry.Info("scenario generated")
		for _, w := range r.Warnings {
			entry.Warn(w)
		}
		if m := o.opts.Metrics; m != nil {
			m.RecordTrades(jobs[i].kind, len(r.Trades), r.Summary.CancelledCount)
			m.RecordScenario(jobs[i].kind, len(r.Warnings))
		}
	}

	return out, nil
}

func countCancelled(trades []domain.Trade) int {
	n := 0
	for i := range trades {
		if !trades[i].Executed() {
			n++
		}
	}
	return n
}
