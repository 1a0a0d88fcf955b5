// Package registry holds the wallets currently classified as smart money.
package registry

import (
	"sort"
	"sync"

	"alpha-radar/internal/model"
)

// Registry maps wallet address to its latest smart-money profile.
// Entries are inserted or overwritten; removal only happens through Remove.
type Registry struct {
	mu       sync.RWMutex
	profiles map[string]model.WalletProfile
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{profiles: make(map[string]model.WalletProfile)}
}

// Upsert stores profile under its address, replacing any previous entry.
func (r *Registry) Upsert(profile model.WalletProfile) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles[profile.Address] = profile
}

// Remove deletes a wallet and reports whether it was present.
func (r *Registry) Remove(address string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.profiles[address]; !ok {
		return false
	}
	delete(r.profiles, address)
	return true
}

// Get returns the stored profile for address.
func (r *Registry) Get(address string) (model.WalletProfile, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.profiles[address]
	return p, ok
}

// Wallets returns the addresses currently registered, in no particular order.
func (r *Registry) Wallets() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.profiles))
	for addr := range r.profiles {
		out = append(out, addr)
	}
	return out
}

// Profiles returns a copy of every registered profile, in no particular order.
func (r *Registry) Profiles() []model.WalletProfile {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.WalletProfile, 0, len(r.profiles))
	for _, p := range r.profiles {
		out = append(out, p)
	}
	return out
}

// Ranked returns the profiles ordered by win rate, then total profit, descending.
func (r *Registry) Ranked() []model.WalletProfile {
	out := r.Profiles()
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].WinRate != out[j].WinRate {
			return out[i].WinRate > out[j].WinRate
		}
		if c := out[i].TotalProfitUSD.Cmp(out[j].TotalProfitUSD); c != 0 {
			return c > 0
		}
		return out[i].Address < out[j].Address
	})
	return out
}

// Len returns the number of registered wallets.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.profiles)
}
