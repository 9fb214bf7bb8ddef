// Package runner drives full discovery runs: mine, score, and link every
// project in the store, then refresh its health cache. Projects are
// independent units of work processed in parallel under a bounded limit;
// one project failing never stops the rest of the batch.
package runner

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/act-placemat/loom/pkg/common"
	"github.com/act-placemat/loom/pkg/discover"
	"github.com/act-placemat/loom/pkg/health"
	"github.com/act-placemat/loom/pkg/link"
	"github.com/act-placemat/loom/pkg/logger"
	"github.com/act-placemat/loom/pkg/store"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"golang.org/x/sync/errgroup"
)

const (
	defaultParallelMax   = 4
	defaultProjectBudget = 30 * time.Second
)

// ReportSink receives the final run report for archival outside the
// store, typically object storage.
type ReportSink interface {
	SaveReport(ctx context.Context, runID string, report []byte) error
}

// ProjectFailure names one project the run could not complete and why.
type ProjectFailure struct {
	ProjectID string `json:"project_id"`
	Reason    string `json:"reason"`
}

// Summary is the operator-facing result of one run.
type Summary struct {
	RunID      string           `json:"run_id"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	Succeeded  []string         `json:"succeeded"`
	Failed     []ProjectFailure `json:"failed"`
	Linked     int              `json:"linked"`
	Queued     int              `json:"queued"`
	Rejected   int              `json:"rejected"`
	Reinforced int              `json:"reinforced"`

	// Decisions is the per-candidate audit trail, present when the run
	// executed with an audit recorder.
	Decisions []link.AuditEntry `json:"decisions,omitempty"`
}

// Runner wires the pipeline stages together for batch execution.
type Runner struct {
	store   store.Store
	miner   *discover.Miner
	scorer  *discover.Scorer
	linker  *link.Linker
	health  *health.Scorer
	reports ReportSink
	audit   *link.Recorder

	parallelMax   int
	projectBudget time.Duration
}

// NewRunnerParams configures a Runner. Reports and Audit are optional;
// ParallelMax and ProjectBudget fall back to defaults when zero. When
// Audit is the same recorder the Linker commits through, its entries end
// up in the run report.
type NewRunnerParams struct {
	Store         store.Store
	Miner         *discover.Miner
	Scorer        *discover.Scorer
	Linker        *link.Linker
	Health        *health.Scorer
	Reports       ReportSink
	Audit         *link.Recorder
	ParallelMax   int
	ProjectBudget time.Duration
}

func NewRunner(params NewRunnerParams) *Runner {
	parallelMax := params.ParallelMax
	if parallelMax <= 0 {
		parallelMax = defaultParallelMax
	}
	budget := params.ProjectBudget
	if budget <= 0 {
		budget = defaultProjectBudget
	}
	return &Runner{
		store:         params.Store,
		miner:         params.Miner,
		scorer:        params.Scorer,
		linker:        params.Linker,
		health:        params.Health,
		reports:       params.Reports,
		audit:         params.Audit,
		parallelMax:   parallelMax,
		projectBudget: budget,
	}
}

// Run processes every project in the store. Passing the run ID of an
// interrupted run resumes it: projects already checkpointed under that ID
// are skipped. Cancellation is cooperative between projects; work already
// committed stays committed and the summary reflects it.
func (r *Runner) Run(ctx context.Context, runID string) (Summary, error) {
	if runID == "" {
		runID = gonanoid.Must()
	}
	summary := Summary{RunID: runID, StartedAt: time.Now()}

	completed, err := r.store.CompletedProjects(ctx, runID)
	if err != nil {
		return summary, err
	}
	projects, err := r.store.ListProjects(ctx)
	if err != nil {
		return summary, err
	}

	logger.Info("[Runner] Starting run", "run", runID, "projects", len(projects), "resumed", len(completed))

	var mu sync.Mutex
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(r.parallelMax)

	for _, project := range projects {
		if completed[project.ID] {
			mu.Lock()
			summary.Succeeded = append(summary.Succeeded, project.ID)
			mu.Unlock()
			continue
		}
		p := project
		g.Go(func() error {
			select {
			case <-gCtx.Done():
				return nil
			default:
			}

			out, err := r.processProject(gCtx, runID, p)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				summary.Failed = append(summary.Failed, ProjectFailure{ProjectID: p.ID, Reason: err.Error()})
				logger.Error("[Runner] Project failed", "run", runID, "project", p.Name, "error", err)
				return nil
			}
			summary.Succeeded = append(summary.Succeeded, p.ID)
			summary.Linked += out.Linked
			summary.Queued += out.Queued
			summary.Rejected += out.Rejected
			summary.Reinforced += out.Reinforced
			return nil
		})
	}

	runErr := g.Wait()
	if runErr == nil {
		runErr = ctx.Err()
	}
	summary.FinishedAt = time.Now()
	if r.audit != nil {
		summary.Decisions = r.audit.Drain(runID)
	}

	r.saveReport(runID, summary)

	logger.Info("[Runner] Run finished", "run", runID,
		"succeeded", len(summary.Succeeded), "failed", len(summary.Failed),
		"linked", summary.Linked, "queued", summary.Queued)
	return summary, runErr
}

// processProject runs the full pipeline for one project under the
// per-project wall-clock budget. A budget expiry during mining scores the
// partial signals as-is instead of failing the project.
func (r *Runner) processProject(ctx context.Context, runID string, project common.Project) (link.Outcome, error) {
	mineCtx, cancel := context.WithTimeout(ctx, r.projectBudget)
	defer cancel()

	signals, err := r.miner.Mine(mineCtx, project)
	if err != nil {
		if ctx.Err() != nil {
			return link.Outcome{}, ctx.Err()
		}
		if !errors.Is(err, context.DeadlineExceeded) {
			return link.Outcome{}, err
		}
		logger.Warn("[Runner] Budget expired mid-mine, scoring partial signals",
			"project", project.Name, "signals", len(signals))
	}

	candidates, err := r.scorer.Score(ctx, project, signals)
	if err != nil {
		return link.Outcome{}, err
	}

	out, err := r.linker.Commit(ctx, runID, candidates)
	if err != nil {
		return out, err
	}

	if _, _, err := r.health.ScoreProject(ctx, project.ID); err != nil {
		return out, err
	}

	if err := r.store.SaveCheckpoint(ctx, runID, project.ID); err != nil {
		return out, err
	}
	return out, nil
}

// saveReport archives the summary in the store and, when configured, the
// external report sink. Report failures are logged, never fatal: the run
// itself already succeeded.
func (r *Runner) saveReport(runID string, summary Summary) {
	report, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		logger.Error("[Runner] Could not encode run report", "run", runID, "error", err)
		return
	}

	// reports are written even when the triggering context was cancelled
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := r.store.SaveRunReport(ctx, runID, report); err != nil {
		logger.Error("[Runner] Could not store run report", "run", runID, "error", err)
	}
	if r.reports != nil {
		if err := r.reports.SaveReport(ctx, runID, report); err != nil {
			logger.Error("[Runner] Could not archive run report", "run", runID, "error", err)
		}
	}
}
