package sweep

import (
	"context"
	"fmt"
	"time"

	"studybot/internal/constant"
	"studybot/internal/pkg/logger"
	"studybot/internal/quota"
	"studybot/internal/reply"
	"studybot/internal/repository/contract"
	"studybot/internal/repository/specification"
	"studybot/internal/transport"
)

// Sweeper runs the daily maintenance pass: expired premium plans revert to
// free, lapsed free download windows refill, and everyone's daily ceilings
// reset. Each stage is independent; one failing stage does not stop the
// next.
type Sweeper struct {
	users  contract.UserRepository
	ledger *quota.Ledger
	sender transport.Sender
	log    logger.ILogger
}

func NewSweeper(users contract.UserRepository, ledger *quota.Ledger, sender transport.Sender, log logger.ILogger) *Sweeper {
	return &Sweeper{users: users, ledger: ledger, sender: sender, log: log}
}

// Run executes one full sweep. Returns the first stage error encountered,
// after all stages have been attempted.
func (s *Sweeper) Run(ctx context.Context) error {
	s.log.Info("sweep", "starting daily sweep", nil)

	var firstErr error
	record := func(stage string, err error) {
		s.log.Error("sweep", "stage failed", map[string]interface{}{
			"stage": stage,
			"error": err.Error(),
		})
		if firstErr == nil {
			firstErr = fmt.Errorf("%s: %w", stage, err)
		}
	}

	if err := s.revertExpiredPremium(ctx); err != nil {
		record("revert expired premium", err)
	}
	if err := s.resetLapsedDownloadWindows(ctx); err != nil {
		record("reset download windows", err)
	}
	if err := s.users.ResetDailyCeilings(ctx,
		constant.FreeAICeiling, constant.PremiumAICeiling, constant.PremiumDownloadCeiling); err != nil {
		record("reset daily ceilings", err)
	}

	s.log.Info("sweep", "daily sweep finished", nil)
	return firstErr
}

func (s *Sweeper) revertExpiredPremium(ctx context.Context) error {
	now := time.Now().UTC()
	ids, err := s.users.FindIDs(ctx, specification.PremiumExpiredBefore{At: now})
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		s.log.Info("sweep", "no expired premium users", nil)
		return nil
	}

	s.log.Info("sweep", "downgrading expired premium users", map[string]interface{}{
		"count": len(ids),
	})
	for _, id := range ids {
		if err := s.ledger.RevertToFree(ctx, id); err != nil {
			s.log.Error("sweep", "failed to downgrade user", map[string]interface{}{
				"user_id": id,
				"error":   err.Error(),
			})
			continue
		}
		// The user may have blocked the bot; that must not stop the sweep.
		if err := s.sender.SendMessage(ctx, id, reply.PremiumEnded, nil); err != nil {
			s.log.Warn("sweep", "could not notify downgraded user", map[string]interface{}{
				"user_id": id,
				"error":   err.Error(),
			})
		}
	}
	return nil
}

func (s *Sweeper) resetLapsedDownloadWindows(ctx context.Context) error {
	now := time.Now().UTC()
	ids, err := s.users.FindIDs(ctx, specification.DownloadWindowExpiredBefore{At: now})
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		s.log.Info("sweep", "no download windows to reset", nil)
		return nil
	}

	nextReset := now.Add(constant.FreeDownloadResetWindow)
	for _, id := range ids {
		if err := s.users.ResetDownloadWindow(ctx, id, constant.FreeDownloadCeiling, nextReset); err != nil {
			s.log.Error("sweep", "failed to reset download window", map[string]interface{}{
				"user_id": id,
				"error":   err.Error(),
			})
		}
	}
	return nil
}
