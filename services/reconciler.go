package services

import (
	"context"
	"time"

	"github.com/cppla/noddit/utils"
)

// StartScoreReconciler periodically rewrites drifted points from vote rows until ctx is cancelled.
// It is best-effort and logs failures.
func StartScoreReconciler(ctx context.Context, votes *VoteService, interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				runCtx, cancel := context.WithTimeout(ctx, interval)
				fixed, err := votes.ReconcilePoints(runCtx)
				cancel()
				if err != nil {
					utils.Sugar.Warnf("score reconcile failed: %v", err)
					continue
				}
				if fixed > 0 {
					utils.Sugar.Infof("score reconcile corrected %d rows", fixed)
				}
			}
		}
	}()
}
