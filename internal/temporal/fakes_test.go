package temporal

import (
	"context"
	"sync"
	"time"
)

type fakeHousekeeper struct {
	mu sync.Mutex

	expiredAt []time.Time
	cutoffs   []time.Time

	expireCount int
	purgeCount  int
	expireErr   error
	purgeErr    error
}

func (f *fakeHousekeeper) ExpireApprovals(_ context.Context, today time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.expiredAt = append(f.expiredAt, today)
	if f.expireErr != nil {
		return 0, f.expireErr
	}
	return f.expireCount, nil
}

func (f *fakeHousekeeper) PurgeOrphanedCollections(_ context.Context, cutoff time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cutoffs = append(f.cutoffs, cutoff)
	if f.purgeErr != nil {
		return 0, f.purgeErr
	}
	return f.purgeCount, nil
}
