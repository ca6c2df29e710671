// Package store provides an in-memory Store implementation for tests and dev.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/JuanMCarini/Credit-Manager/credit"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu sync.RWMutex

	credits      map[credit.CreditID]credit.Credit
	installments map[credit.InstallmentID]credit.Installment
	collections  []credit.Collection

	nextCredit      credit.CreditID
	nextInstallment credit.InstallmentID
	nextCollection  credit.CollectionID
}

func NewMemory() *Memory {
	return &Memory{
		credits:         make(map[credit.CreditID]credit.Credit),
		installments:    make(map[credit.InstallmentID]credit.Installment),
		nextCredit:      1,
		nextInstallment: 1,
		nextCollection:  1,
	}
}

func (m *Memory) AddCredit(_ context.Context, c credit.Credit) (credit.Credit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c.ID = m.nextCredit
	m.nextCredit++
	m.credits[c.ID] = c
	return c, nil
}

func (m *Memory) Credit(_ context.Context, id credit.CreditID) (credit.Credit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.credits[id]
	if !ok {
		return credit.Credit{}, credit.ErrCreditNotFound
	}
	return c, nil
}

func (m *Memory) Credits(_ context.Context) ([]credit.Credit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]credit.Credit, 0, len(m.credits))
	for _, c := range m.credits {
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *Memory) CreditsByClient(_ context.Context, clientID credit.ClientID) ([]credit.Credit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []credit.Credit
	for _, c := range m.credits {
		if c.ClientID == clientID {
			result = append(result, c)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *Memory) AppendInstallment(_ context.Context, inst credit.Installment) (credit.Installment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	inst.ID = m.nextInstallment
	m.nextInstallment++
	m.installments[inst.ID] = inst
	return inst, nil
}

func (m *Memory) Installments(_ context.Context) ([]credit.Installment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]credit.Installment, 0, len(m.installments))
	for _, inst := range m.installments {
		result = append(result, inst)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *Memory) InstallmentsByCredit(_ context.Context, id credit.CreditID) ([]credit.Installment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []credit.Installment
	for _, inst := range m.installments {
		if inst.CreditID == id {
			result = append(result, inst)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *Memory) Installment(_ context.Context, id credit.InstallmentID) (credit.Installment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	inst, ok := m.installments[id]
	if !ok {
		return credit.Installment{}, credit.ErrInstallmentNotFound
	}
	return inst, nil
}

func (m *Memory) AppendCollections(_ context.Context, rows []credit.Collection) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, row := range rows {
		row.ID = m.nextCollection
		m.nextCollection++
		m.collections = append(m.collections, row)
	}
	return nil
}

func (m *Memory) Collections(_ context.Context) ([]credit.Collection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]credit.Collection, len(m.collections))
	copy(result, m.collections)
	return result, nil
}
