package account

import (
	"sync"

	"hbar-desk/go-client/pkg/models"
)

// Holder publishes complete snapshots to any number of readers. The
// sync flow is its only writer; readers always observe a fully merged
// snapshot.
type Holder struct {
	mu   sync.RWMutex
	snap *models.AccountSnapshot
}

func NewHolder() *Holder {
	return &Holder{}
}

func (h *Holder) Set(snap models.AccountSnapshot) {
	copied := snap
	copied.Tokens = append([]models.TokenBalance(nil), snap.Tokens...)
	h.mu.Lock()
	h.snap = &copied
	h.mu.Unlock()
}

func (h *Holder) Get() (models.AccountSnapshot, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.snap == nil {
		return models.AccountSnapshot{}, false
	}
	out := *h.snap
	out.Tokens = append([]models.TokenBalance(nil), h.snap.Tokens...)
	return out, true
}

func (h *Holder) Clear() {
	h.mu.Lock()
	h.snap = nil
	h.mu.Unlock()
}
