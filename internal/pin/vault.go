package pin

import (
	"context"
	"log/slog"

	"go.klb.dev/copas/internal/history"
	"go.klb.dev/copas/internal/model"
)

// Vault combines the persisted PIN hash with the session unlock flag.
// Moving an entry into the vault needs no PIN; listing vault entries or
// taking one out needs an unlocked session.
type Vault struct {
	store   *history.Store
	session Session
}

// NewVault returns a locked Vault over store.
func NewVault(store *history.Store) *Vault {
	return &Vault{store: store}
}

func (v *Vault) hash() string {
	var h string
	v.store.View(func(st *model.State) { h = st.Vault.PinHash })
	return h
}

// HasPIN reports whether a PIN has been set.
func (v *Vault) HasPIN() bool { return v.hash() != "" }

// Unlocked reports whether the session is unlocked.
func (v *Vault) Unlocked() bool { return v.session.Unlocked() }

// SetPIN stores a new PIN and unlocks the session. Replacing an existing
// PIN needs an unlocked session.
func (v *Vault) SetPIN(ctx context.Context, pin string) error {
	if v.HasPIN() && !v.session.Unlocked() {
		return ErrLocked
	}
	h, err := Hash(pin)
	if err != nil {
		return err
	}
	err = v.store.Transact(ctx, func(st *model.State) bool {
		st.Vault.PinHash = h
		return true
	})
	v.session.Unlock()
	slog.Info("vault pin set")
	return err
}

// Verify checks pin and unlocks the session when it matches.
func (v *Vault) Verify(pin string) bool {
	if !Verify(v.hash(), pin) {
		slog.Warn("vault pin rejected")
		return false
	}
	v.session.Unlock()
	return true
}

// Lock ends the unlocked session.
func (v *Vault) Lock() { v.session.Lock() }

// Add moves an entry into the vault.
func (v *Vault) Add(ctx context.Context, id string) (bool, error) {
	return v.store.SetVault(ctx, id, true)
}

// gate returns nil when the session is unlocked, ErrNoPIN when no PIN has
// been set yet, and ErrLocked otherwise.
func (v *Vault) gate() error {
	switch {
	case v.session.Unlocked():
		return nil
	case !v.HasPIN():
		return ErrNoPIN
	default:
		return ErrLocked
	}
}

// Remove takes an entry out of the vault.
func (v *Vault) Remove(ctx context.Context, id string) (bool, error) {
	if err := v.gate(); err != nil {
		return false, err
	}
	return v.store.SetVault(ctx, id, false)
}

// Items lists vault entries matching q.
func (v *Vault) Items(q history.Query) (history.Page, error) {
	if err := v.gate(); err != nil {
		return history.Page{}, err
	}
	q.Vault = true
	return v.store.Query(q), nil
}
