package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samvad-hq/samvad-graph/internal/domain"
	"github.com/samvad-hq/samvad-graph/internal/logger"
	"github.com/samvad-hq/samvad-graph/pkg/jobs"
)

// Operator performs a single job against the Graph API.
type Operator interface {
	Execute(ctx context.Context, job jobs.Job) (domain.Operation, error)
}

// Service executes job lists one after another.
type Service struct {
	operator Operator
	log      logger.Logger
}

// NewService wires a runner around operator.
func NewService(operator Operator, log logger.Logger) *Service {
	return &Service{operator: operator, log: logger.Ensure(log)}
}

// Run executes every job in order. A failing job does not stop the ones after it;
// all failures are joined into the returned error.
func (s *Service) Run(ctx context.Context, list []jobs.Job) ([]domain.Operation, error) {
	if s == nil || s.operator == nil {
		return nil, fmt.Errorf("runner service is not initialized")
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("no jobs to run")
	}

	start := time.Now()
	results := make([]domain.Operation, 0, len(list))
	var errs []error

	for _, job := range list {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		op, err := s.operator.Execute(ctx, job)
		if err != nil {
			errs = append(errs, fmt.Errorf("job %s: %w", job.ID, err))
			s.log.ErrorObj("job failed", "job_error", map[string]any{
				"job_id": job.ID,
				"action": job.Action,
				"error":  err.Error(),
			})
			continue
		}

		results = append(results, op)
		s.log.InfoObj("job completed", "job_result", map[string]any{
			"job_id":    job.ID,
			"action":    op.Action,
			"object_id": op.ObjectID,
			"result_id": op.ResultID,
		})
	}

	s.log.InfoObj("run completed", "run_meta", map[string]any{
		"jobs_count": len(list),
		"succeeded":  len(results),
		"failed":     len(errs),
		"elapsed_ms": time.Since(start).Milliseconds(),
	})
	return results, errors.Join(errs...)
}
