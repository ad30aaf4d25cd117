package tenant

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/s950329/qmd-bridge/internal/config"
	"github.com/s950329/qmd-bridge/internal/errors"
)

// storeKey is the store subtree holding tenant records.
const storeKey = "tenants"

// Registry is the durable label → tenant mapping. Lookups by token go
// through a secondary index kept consistent on every mutation, so GetByToken
// is O(1) instead of a scan over all tenants.
//
// Every mutating call writes through to the store synchronously before
// returning; the store hardens its file to owner-only permissions on each
// write.
type Registry struct {
	store  *config.Store
	logger *slog.Logger

	mu       sync.RWMutex
	tenants  map[string]Tenant // by label
	byToken  map[string]string // token -> label
	onMutate []func()
}

// NewRegistry loads the registry from the store.
func NewRegistry(store *config.Store, logger *slog.Logger) (*Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		store:   store,
		logger:  logger,
		tenants: make(map[string]Tenant),
		byToken: make(map[string]string),
	}

	for label, raw := range store.Sub(storeKey) {
		t, err := decodeTenant(raw)
		if err != nil {
			return nil, fmt.Errorf("decode tenant %q: %w", label, err)
		}
		t.Label = label
		r.tenants[label] = t
		if t.Token != "" {
			r.byToken[t.Token] = label
		}
	}
	return r, nil
}

// decodeTenant converts a stored document node into a Tenant. The store hands
// back generic maps, so round-trip through YAML.
func decodeTenant(raw any) (Tenant, error) {
	buf, err := yaml.Marshal(raw)
	if err != nil {
		return Tenant{}, err
	}
	var t Tenant
	if err := yaml.Unmarshal(buf, &t); err != nil {
		return Tenant{}, err
	}
	return t, nil
}

// encodeTenant converts a Tenant into a store document node.
func encodeTenant(t Tenant) map[string]any {
	return map[string]any{
		"display_name": t.DisplayName,
		"path":         t.Path,
		"collection":   t.Collection,
		"token":        t.Token,
		"created_at":   t.CreatedAt.Format(time.RFC3339Nano),
	}
}

// OnMutate registers a hook invoked after every successful mutation. Used by
// the auth boundary to invalidate its resolution cache. Hooks run with the
// registry lock held and must not call back into the Registry.
func (r *Registry) OnMutate(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onMutate = append(r.onMutate, fn)
}

func (r *Registry) notify() {
	for _, fn := range r.onMutate {
		fn()
	}
}

// List returns all tenants sorted by label. No side effects.
func (r *Registry) List() []Tenant {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Tenant, 0, len(r.tenants))
	for _, t := range r.tenants {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out
}

// Get returns the tenant with the given label.
func (r *Registry) Get(label string) (Tenant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tenants[label]
	if !ok {
		return Tenant{}, errors.New(errors.CodeNotFound)
	}
	return t, nil
}

// GetByToken resolves a credential to its tenant. A token resolves to at most
// one tenant.
func (r *Registry) GetByToken(token string) (Tenant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	label, ok := r.byToken[token]
	if !ok {
		return Tenant{}, errors.New(errors.CodeNotFound)
	}
	return r.tenants[label], nil
}

// AddParams are the caller-supplied fields for Add.
type AddParams struct {
	Label       string
	DisplayName string
	Path        string
	// Collection defaults to Label when empty.
	Collection string
}

// Add validates the path and label, generates a fresh token, and persists the
// new tenant. Fails with AlreadyExists or InvalidPath.
func (r *Registry) Add(p AddParams) (Tenant, error) {
	if err := ValidateLabel(p.Label); err != nil {
		return Tenant{}, err
	}
	if err := ValidatePath(p.Path); err != nil {
		return Tenant{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tenants[p.Label]; exists {
		return Tenant{}, errors.New(errors.CodeAlreadyExists)
	}

	token, err := r.newUniqueToken()
	if err != nil {
		return Tenant{}, err
	}

	t := Tenant{
		Label:       p.Label,
		DisplayName: p.DisplayName,
		Path:        p.Path,
		Collection:  p.Collection,
		Token:       token,
		CreatedAt:   time.Now().UTC(),
	}
	if t.Collection == "" {
		t.Collection = t.Label
	}

	if err := r.persist(t); err != nil {
		return Tenant{}, err
	}
	r.tenants[t.Label] = t
	r.byToken[t.Token] = t.Label

	r.logger.Info("tenant added", slog.String("label", t.Label), slog.String("collection", t.Collection))
	r.notify()
	return t, nil
}

// Updates carries the partial-update fields for Edit. Nil means unchanged.
type Updates struct {
	Label       *string
	DisplayName *string
	Path        *string
	Collection  *string
}

// Edit applies a partial update. A label change re-keys storage (delete old
// key, insert new key) as a single logical step; a path change is
// re-validated.
func (r *Registry) Edit(label string, u Updates) (Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tenants[label]
	if !ok {
		return Tenant{}, errors.New(errors.CodeNotFound)
	}

	newLabel := label
	if u.Label != nil && *u.Label != label {
		newLabel = *u.Label
		if err := ValidateLabel(newLabel); err != nil {
			return Tenant{}, err
		}
		if _, exists := r.tenants[newLabel]; exists {
			return Tenant{}, errors.New(errors.CodeAlreadyExists)
		}
	}
	if u.Path != nil && *u.Path != t.Path {
		if err := ValidatePath(*u.Path); err != nil {
			return Tenant{}, err
		}
		t.Path = *u.Path
	}
	if u.DisplayName != nil {
		t.DisplayName = *u.DisplayName
	}
	if u.Collection != nil && *u.Collection != "" {
		t.Collection = *u.Collection
	}
	t.Label = newLabel

	if err := r.persist(t); err != nil {
		return Tenant{}, err
	}
	if newLabel != label {
		if err := r.store.Delete(storeKey + "." + label); err != nil {
			return Tenant{}, fmt.Errorf("remove renamed tenant key: %w", err)
		}
		delete(r.tenants, label)
	}
	r.tenants[newLabel] = t
	r.byToken[t.Token] = newLabel

	r.logger.Info("tenant edited", slog.String("label", label), slog.String("new_label", newLabel))
	r.notify()
	return t, nil
}

// Remove deletes the tenant. Fails with NotFound if absent.
func (r *Registry) Remove(label string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tenants[label]
	if !ok {
		return errors.New(errors.CodeNotFound)
	}

	if err := r.store.Delete(storeKey + "." + label); err != nil {
		return fmt.Errorf("delete tenant: %w", err)
	}
	delete(r.tenants, label)
	delete(r.byToken, t.Token)

	r.logger.Info("tenant removed", slog.String("label", label))
	r.notify()
	return nil
}

// RotateToken replaces the tenant's credential and returns the new value.
// The old token stops resolving before this call returns; there is no grace
// period.
func (r *Registry) RotateToken(label string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tenants[label]
	if !ok {
		return "", errors.New(errors.CodeNotFound)
	}

	token, err := r.newUniqueToken()
	if err != nil {
		return "", err
	}

	old := t.Token
	t.Token = token
	if err := r.persist(t); err != nil {
		return "", err
	}
	r.tenants[label] = t
	delete(r.byToken, old)
	r.byToken[token] = label

	r.logger.Info("tenant token rotated", slog.String("label", label))
	r.notify()
	return token, nil
}

// newUniqueToken generates a token and enforces uniqueness against the
// secondary index. A generation collision fails the write rather than
// silently aliasing two tenants. Caller holds the write lock.
func (r *Registry) newUniqueToken() (string, error) {
	token, err := NewToken()
	if err != nil {
		return "", errors.Wrap(errors.CodeInternal, err)
	}
	if _, taken := r.byToken[token]; taken {
		return "", errors.Wrap(errors.CodeInternal, fmt.Errorf("token generation collision"))
	}
	return token, nil
}

// persist writes one tenant record through to the store.
func (r *Registry) persist(t Tenant) error {
	if err := r.store.Set(storeKey+"."+t.Label, encodeTenant(t)); err != nil {
		return fmt.Errorf("persist tenant %q: %w", t.Label, err)
	}
	return nil
}
