package memory

import (
	"context"
	"sort"
	"time"

	"github.com/DTBbuilds/smartduka-inventory/internal/domain/entity"
	"github.com/DTBbuilds/smartduka-inventory/internal/domain/repository"
)

var _ repository.DeductionQueue = (*DeductionQueue)(nil)

// DeductionQueue cola de descuentos en memoria.
type DeductionQueue struct {
	base
}

// NewDeductionQueue construye el adaptador.
func NewDeductionQueue(s *Store) *DeductionQueue {
	return &DeductionQueue{base: base{s: s}}
}

func (q *DeductionQueue) Enqueue(_ context.Context, jobs []*entity.DeductionJob) error {
	defer q.lock()()
	n := len(q.s.jobSeq)
	for _, j := range jobs {
		c := *j
		q.s.jobs[j.ID] = &c
		q.s.jobSeq = append(q.s.jobSeq, j.ID)
	}
	q.tx.onRollback(func() {
		for _, j := range jobs {
			delete(q.s.jobs, j.ID)
		}
		q.s.jobSeq = q.s.jobSeq[:n]
	})
	return nil
}

func (q *DeductionQueue) Get(_ context.Context, shopID, id string) (*entity.DeductionJob, error) {
	defer q.lock()()
	j, ok := q.s.jobs[id]
	if !ok || j.ShopID != shopID {
		return nil, nil
	}
	return cloneJob(j), nil
}

func (q *DeductionQueue) ListDue(_ context.Context, now time.Time, limit int) ([]*entity.DeductionJob, error) {
	defer q.lock()()
	var out []*entity.DeductionJob
	for _, id := range q.s.jobSeq {
		j := q.s.jobs[id]
		if (j.Status == entity.DeductionPending || j.Status == entity.DeductionFailed) && !j.NextAttemptAt.After(now) {
			out = append(out, cloneJob(j))
		}
	}
	sort.SliceStable(out, func(i, k int) bool { return out[i].NextAttemptAt.Before(out[k].NextAttemptAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (q *DeductionQueue) ListByOrder(_ context.Context, shopID, orderID string) ([]*entity.DeductionJob, error) {
	defer q.lock()()
	var out []*entity.DeductionJob
	for _, id := range q.s.jobSeq {
		j := q.s.jobs[id]
		if j.ShopID == shopID && j.OrderID == orderID {
			out = append(out, cloneJob(j))
		}
	}
	return out, nil
}

func (q *DeductionQueue) ListByStatus(_ context.Context, shopID string, statuses []entity.DeductionStatus, limit, offset int) ([]*entity.DeductionJob, error) {
	defer q.lock()()
	var all []*entity.DeductionJob
	for _, id := range q.s.jobSeq {
		j := q.s.jobs[id]
		if j.ShopID != shopID {
			continue
		}
		for _, s := range statuses {
			if j.Status == s {
				all = append(all, cloneJob(j))
				break
			}
		}
	}
	from, to := page(len(all), limit, offset)
	return all[from:to], nil
}

func (q *DeductionQueue) MarkApplied(_ context.Context, id string, at time.Time) (bool, error) {
	defer q.lock()()
	j, ok := q.s.jobs[id]
	if !ok || (j.Status != entity.DeductionPending && j.Status != entity.DeductionFailed) {
		return false, nil
	}
	prev := *j
	t := at
	j.Status = entity.DeductionApplied
	j.Attempts++
	j.AppliedAt = &t
	j.LastError = ""
	j.UpdatedAt = at
	q.tx.onRollback(func() { *j = prev })
	return true, nil
}

func (q *DeductionQueue) MarkFailed(_ context.Context, id, lastError string, nextAttempt time.Time, dead bool) error {
	defer q.lock()()
	j, ok := q.s.jobs[id]
	if !ok || (j.Status != entity.DeductionPending && j.Status != entity.DeductionFailed) {
		return nil
	}
	prev := *j
	j.Attempts++
	j.LastError = lastError
	j.NextAttemptAt = nextAttempt
	j.Status = entity.DeductionFailed
	if dead {
		j.Status = entity.DeductionDead
	}
	j.UpdatedAt = time.Now()
	q.tx.onRollback(func() { *j = prev })
	return nil
}

func (q *DeductionQueue) Cancel(_ context.Context, id string) (bool, error) {
	defer q.lock()()
	j, ok := q.s.jobs[id]
	if !ok {
		return false, nil
	}
	switch j.Status {
	case entity.DeductionPending, entity.DeductionFailed, entity.DeductionDead:
	default:
		return false, nil
	}
	prev := *j
	j.Status = entity.DeductionCancelled
	j.UpdatedAt = time.Now()
	q.tx.onRollback(func() { *j = prev })
	return true, nil
}

func (q *DeductionQueue) Requeue(_ context.Context, shopID, id string, now time.Time) (bool, error) {
	defer q.lock()()
	j, ok := q.s.jobs[id]
	if !ok || j.ShopID != shopID || j.Status != entity.DeductionDead {
		return false, nil
	}
	prev := *j
	j.Status = entity.DeductionPending
	j.Attempts = 0
	j.NextAttemptAt = now
	j.UpdatedAt = now
	q.tx.onRollback(func() { *j = prev })
	return true, nil
}

func cloneJob(j *entity.DeductionJob) *entity.DeductionJob {
	c := *j
	if j.AppliedAt != nil {
		t := *j.AppliedAt
		c.AppliedAt = &t
	}
	return &c
}
