package services

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"smartledger/internal/cache"
	"smartledger/internal/core"
	"smartledger/internal/storage"
)

const (
	unreadCacheSize = 1024
	unreadCacheTTL  = 30 * time.Second
)

// AlertService is the read side of alerts. Unread counts are polled by every
// page, so they are cached per user and dropped whenever they may change.
type AlertService struct {
	storage *storage.SQLiteRepository
	unread  *cache.LRU[int64, int64]
	// gen is bumped by every invalidation. A count loaded across a bump is
	// not kept.
	gen atomic.Uint64
}

func NewAlertService(storage *storage.SQLiteRepository) *AlertService {
	return &AlertService{
		storage: storage,
		unread:  cache.NewLRU[int64, int64](unreadCacheSize, unreadCacheTTL),
	}
}

// Cache exposes the unread-count cache so it can be swept periodically.
func (s *AlertService) Cache() cache.Sweeper { return s.unread }

func (s *AlertService) ListUnread(ctx context.Context, userID int64, limit int) ([]core.Alert, error) {
	list, err := s.storage.ListUnread(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	return list, nil
}

func (s *AlertService) UnreadCount(ctx context.Context, userID int64) (int64, error) {
	if n, ok := s.unread.Get(userID); ok {
		return n, nil
	}
	gen := s.gen.Load()
	n, err := s.storage.UnreadCount(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("count unread alerts: %w", err)
	}
	s.store(userID, n, gen)
	return n, nil
}

// store caches n unless an invalidation ran since gen was read. The check
// follows the Set so that an Invalidate racing with it still wins.
func (s *AlertService) store(userID, n int64, gen uint64) {
	s.unread.Set(userID, n)
	if s.gen.Load() != gen {
		s.unread.Delete(userID)
	}
}

func (s *AlertService) MarkRead(ctx context.Context, userID, alertID int64) error {
	if err := s.storage.MarkRead(ctx, userID, alertID); err != nil {
		return fmt.Errorf("mark alert %d read: %w", alertID, err)
	}
	s.Invalidate(userID)
	return nil
}

func (s *AlertService) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	n, err := s.storage.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("mark all alerts read: %w", err)
	}
	s.Invalidate(userID)
	return n, nil
}

// Invalidate forgets the cached unread count of userID.
func (s *AlertService) Invalidate(userID int64) {
	s.gen.Add(1)
	s.unread.Delete(userID)
}
