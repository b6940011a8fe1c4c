package store

import (
	"context"
	"sort"
	"sync"
)

// Memory é o backend em memória usado em dev local e nos testes do pacote.
// Mesmas garantias semânticas dos backends reais: unicidade por uniqueKey
// sob o mutex, ordenação trackedAt DESC com desempate por id.
type Memory struct {
	mu    sync.Mutex
	byKey map[string]*TrackedBet
	byID  map[string]*TrackedBet
}

func NewMemory() *Memory {
	return &Memory{
		byKey: make(map[string]*TrackedBet),
		byID:  make(map[string]*TrackedBet),
	}
}

func (m *Memory) InsertIfAbsent(_ context.Context, bet *TrackedBet) (*TrackedBet, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.byKey[bet.UniqueKey]; ok {
		cp := *existing
		return &cp, true, nil
	}

	cp := *bet
	m.byKey[cp.UniqueKey] = &cp
	m.byID[cp.ID] = &cp
	out := cp
	return &out, false, nil
}

func (m *Memory) GetByID(_ context.Context, id string) (*TrackedBet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	bet, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *bet
	return &cp, nil
}

func (m *Memory) DeleteByIDForOwner(_ context.Context, id, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	bet, ok := m.byID[id]
	if !ok || bet.UserID != userID {
		return false, nil
	}
	delete(m.byID, id)
	delete(m.byKey, bet.UniqueKey)
	return true, nil
}

func (m *Memory) ListByOwner(_ context.Context, userID string, opts ListOptions) (*ListResult, error) {
	clampPage(&opts)

	m.mu.Lock()
	matched := make([]TrackedBet, 0)
	for _, bet := range m.byID {
		if bet.UserID != userID {
			continue
		}
		if opts.Status != StatusAll && bet.Status != opts.Status {
			continue
		}
		matched = append(matched, *bet)
	}
	m.mu.Unlock()

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].TrackedAt.Equal(matched[j].TrackedAt) {
			return matched[i].TrackedAt.After(matched[j].TrackedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	total := len(matched)
	if opts.Offset >= len(matched) {
		matched = nil
	} else {
		matched = matched[opts.Offset:]
	}
	hasMore := len(matched) > opts.Limit
	if hasMore {
		matched = matched[:opts.Limit]
	}
	return &ListResult{Bets: matched, Total: total, HasMore: hasMore}, nil
}

func (m *Memory) UpdateStatus(_ context.Context, id, userID, status string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	bet, ok := m.byID[id]
	if !ok || bet.UserID != userID {
		return false, nil
	}
	bet.Status = status
	now := nowUTC()
	bet.ResultUpdatedAt = &now
	return true, nil
}
