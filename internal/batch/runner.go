// Package batch runs a per-account operation across the whole ledger.
// Accounts own disjoint data, so they are processed concurrently; a failure
// on one account is recorded and never aborts the others.
package batch

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/billoven/CashCue/internal/models"
	"github.com/billoven/CashCue/internal/repository"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Failure records one account whose operation failed.
type Failure struct {
	AccountID int64  `json:"accountId"`
	Error     string `json:"error"`
}

// Result summarizes a batch run.
type Result struct {
	RunID     string    `json:"runId"`
	Started   time.Time `json:"started"`
	Finished  time.Time `json:"finished"`
	Processed []int64   `json:"processed"`
	Failures  []Failure `json:"failures,omitempty"`
}

// OK reports whether every account was processed successfully.
func (r *Result) OK() bool {
	return len(r.Failures) == 0
}

// Runner iterates accounts with bounded concurrency.
type Runner struct {
	repo    repository.Ledger
	log     *logrus.Entry
	workers int
}

func NewRunner(repo repository.Ledger, logger *logrus.Logger, workers int) *Runner {
	if workers <= 0 {
		workers = 4
	}
	return &Runner{
		repo:    repo,
		log:     logger.WithField("component", "batch-runner"),
		workers: workers,
	}
}

// Run applies fn to every account matching filter (nil matches all).
// Cancellation is coarse: in-flight accounts finish, no new ones start. Only
// a failure to list the accounts is returned as an error; per-account
// failures land in the result.
func (r *Runner) Run(ctx context.Context, filter func(models.Account) bool, fn func(context.Context, models.Account) error) (*Result, error) {
	accounts, err := r.repo.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}

	res := &Result{
		RunID:   uuid.NewString(),
		Started: time.Now().UTC(),
	}
	var mu sync.Mutex

	g := &errgroup.Group{}
	g.SetLimit(r.workers)
	for _, acc := range accounts {
		if filter != nil && !filter(acc) {
			continue
		}
		if ctx.Err() != nil {
			break
		}
		acc := acc
		g.Go(func() error {
			if err := r.process(ctx, acc, fn); err != nil {
				r.log.WithError(err).WithField("account", acc.ID).Error("account processing failed, batch continues")
				mu.Lock()
				res.Failures = append(res.Failures, Failure{AccountID: acc.ID, Error: err.Error()})
				mu.Unlock()
				return nil
			}
			mu.Lock()
			res.Processed = append(res.Processed, acc.ID)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(res.Processed, func(i, j int) bool { return res.Processed[i] < res.Processed[j] })
	sort.Slice(res.Failures, func(i, j int) bool { return res.Failures[i].AccountID < res.Failures[j].AccountID })
	res.Finished = time.Now().UTC()

	r.log.WithFields(logrus.Fields{
		"run":       res.RunID,
		"processed": len(res.Processed),
		"failed":    len(res.Failures),
	}).Info("batch run completed")
	return res, nil
}

// process isolates fn so a panic in one account cannot take down the batch.
func (r *Runner) process(ctx context.Context, acc models.Account, fn func(context.Context, models.Account) error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return fn(ctx, acc)
}
