package role

import (
	"context"
	"fmt"
	"strings"

	"github.com/agubarev/rolegate/pkg/kv"
	"go.uber.org/zap"
)

// Registry binds every catalog role to at most one account; it keeps
// a primary index (role key -> account) and a secondary index
// (account -> role keys), the latter is always the exact inverse
// of the former
type Registry struct {
	store          kv.Store
	codec          Codec
	namespace      string
	indexNamespace string
	logger         *zap.Logger
}

// NewRegistry initializing a role registry; both namespaces must be
// stable across the whole lifetime of the stored data, changing them
// orphans existing grants
func NewRegistry(store kv.Store, namespace, indexNamespace string) (*Registry, error) {
	if store == nil {
		return nil, ErrNilStore
	}

	namespace = strings.TrimSpace(namespace)
	indexNamespace = strings.TrimSpace(indexNamespace)

	if namespace == "" || indexNamespace == "" {
		return nil, ErrEmptyNamespace
	}

	if namespace == indexNamespace {
		return nil, ErrNamespaceCollision
	}

	r := &Registry{
		store:          store,
		codec:          NewJSONCodec(),
		namespace:      namespace,
		indexNamespace: indexNamespace,
	}

	return r, nil
}

// SetLogger assigns a logger for this registry
func (r *Registry) SetLogger(logger *zap.Logger) error {
	if logger != nil {
		logger = logger.Named("[role]")
	}

	r.logger = logger

	return nil
}

// Logger returns primary logger if is set, otherwise initializing and returning
func (r *Registry) Logger() *zap.Logger {
	if r.logger == nil {
		l, err := zap.NewDevelopment()
		if err != nil {
			panic(fmt.Errorf("failed to initialize role registry logger: %s", err))
		}

		r.logger = l.Named("[role]")
	}

	return r.logger
}

// SetCodec replaces the default codec
func (r *Registry) SetCodec(c Codec) error {
	if c == nil {
		return ErrNilCodec
	}

	r.codec = c

	return nil
}

// Namespaces returns primary and index namespaces
func (r *Registry) Namespaces() (namespace, indexNamespace string) {
	return r.namespace, r.indexNamespace
}

//---------------------------------------------------------------------------
// mutations
//---------------------------------------------------------------------------

// Set assigns a grantee to the role, overwriting any previous grantee;
// both indexes are updated within the same store transaction
func (r *Registry) Set(ctx context.Context, role Role, grantee Account) error {
	if err := role.Validate(); err != nil {
		return err
	}

	if err := grantee.Validate(); err != nil {
		return err
	}

	var previous Account
	var hadPrevious bool

	err := r.store.Update(ctx, func(tx kv.Tx) (err error) {
		previous, hadPrevious, err = r.grantee(tx, role)
		if err != nil {
			return err
		}

		p := newPlan()

		// detaching the role from its previous holder
		if hadPrevious && previous != grantee {
			if err = r.planIndexRemoval(tx, p, previous, role); err != nil {
				return err
			}
		}

		if err = r.planIndexAddition(tx, p, grantee, role); err != nil {
			return err
		}

		data, err := r.codec.MarshalAccount(grantee)
		if err != nil {
			return storageError("set", err)
		}

		p.put(r.namespace, []byte(role.Key()), data)

		return r.apply(tx, p)
	})

	if err != nil {
		return storageError("set", err)
	}

	fields := []zap.Field{
		zap.String("role", role.Key()),
		zap.String("grantee", string(grantee)),
	}

	if hadPrevious && previous != grantee {
		fields = append(fields, zap.String("previous_grantee", string(previous)))
	}

	r.Logger().Debug("role granted", fields...)

	return nil
}

// Delete removes the role grant if there is any; deleting an ungranted
// role is a no-op
func (r *Registry) Delete(ctx context.Context, role Role) error {
	if err := role.Validate(); err != nil {
		return err
	}

	var previous Account
	var hadPrevious bool

	err := r.store.Update(ctx, func(tx kv.Tx) (err error) {
		previous, hadPrevious, err = r.grantee(tx, role)
		if err != nil || !hadPrevious {
			return err
		}

		p := newPlan()

		if err = r.planIndexRemoval(tx, p, previous, role); err != nil {
			return err
		}

		p.delete(r.namespace, []byte(role.Key()))

		return r.apply(tx, p)
	})

	if err != nil {
		return storageError("delete", err)
	}

	if hadPrevious {
		r.Logger().Debug(
			"role revoked",
			zap.String("role", role.Key()),
			zap.String("previous_grantee", string(previous)),
		)
	}

	return nil
}

//---------------------------------------------------------------------------
// queries
//---------------------------------------------------------------------------

// Get returns the current grantee; ok is false if the role isn't granted
func (r *Registry) Get(ctx context.Context, role Role) (grantee Account, ok bool, err error) {
	if err = role.Validate(); err != nil {
		return "", false, err
	}

	err = r.store.View(ctx, func(tx kv.Tx) (err error) {
		grantee, ok, err = r.grantee(tx, role)
		return err
	})

	if err != nil {
		return "", false, storageError("get", err)
	}

	return grantee, ok, nil
}

// HasRole returns true if the caller is the current grantee of the role
func (r *Registry) HasRole(ctx context.Context, role Role, caller Account) (has bool, err error) {
	if err = role.Validate(); err != nil {
		return false, err
	}

	err = r.store.View(ctx, func(tx kv.Tx) (err error) {
		has, err = r.hasRole(tx, role, caller)
		return err
	})

	if err != nil {
		return false, storageError("has_role", err)
	}

	return has, nil
}

// HasAnyRole returns true if the caller holds at least one of given roles;
// roles are checked in the given order and checking stops at the first match
func (r *Registry) HasAnyRole(ctx context.Context, roles []Role, caller Account) (has bool, err error) {
	for _, role := range roles {
		if err = role.Validate(); err != nil {
			return false, err
		}
	}

	if len(roles) == 0 {
		return false, nil
	}

	err = r.store.View(ctx, func(tx kv.Tx) (err error) {
		has, err = r.hasAnyRole(tx, roles, caller)
		return err
	})

	if err != nil {
		return false, storageError("has_any_role", err)
	}

	return has, nil
}

// AssertRole returns *UnauthorizedForRoleError unless the caller holds the role
func (r *Registry) AssertRole(ctx context.Context, role Role, caller Account) error {
	has, err := r.HasRole(ctx, role, caller)
	if err != nil {
		return err
	}

	if !has {
		return &UnauthorizedForRoleError{Label: role.String()}
	}

	return nil
}

// AssertAnyRole returns *UnauthorizedForRoleError unless the caller holds
// at least one of given roles; the error label lists every given role
// in the given order, regardless of how many were actually checked
func (r *Registry) AssertAnyRole(ctx context.Context, roles []Role, caller Account) error {
	has, err := r.HasAnyRole(ctx, roles, caller)
	if err != nil {
		return err
	}

	if !has {
		return &UnauthorizedForRoleError{Label: strings.Join(Labels(roles), LabelSeparator)}
	}

	return nil
}

// RolesOf returns every role held by the account, in catalog order
func (r *Registry) RolesOf(ctx context.Context, account Account) (roles []Role, err error) {
	err = r.store.View(ctx, func(tx kv.Tx) (err error) {
		roles, err = r.indexedRoles(tx, account)
		return err
	})

	if err != nil {
		return nil, storageError("roles_of", err)
	}

	return sortByCatalog(roles), nil
}

// Grants returns every current grant, in catalog order
func (r *Registry) Grants(ctx context.Context) (grants []Grant, err error) {
	grants = make([]Grant, 0)

	err = r.store.View(ctx, func(tx kv.Tx) error {
		for _, role := range AllRoles() {
			grantee, ok, err := r.grantee(tx, role)
			if err != nil {
				return err
			}

			if ok {
				grants = append(grants, Grant{Role: role, Grantee: grantee})
			}
		}

		return nil
	})

	if err != nil {
		return nil, storageError("grants", err)
	}

	return grants, nil
}

// Verify cross-checks primary and secondary indexes, returning
// *InconsistencyError if they diverge
func (r *Registry) Verify(ctx context.Context) error {
	items := make([]Inconsistency, 0)

	err := r.store.View(ctx, func(tx kv.Tx) error {
		holders := make(map[Account]bool)

		// every grant must be reflected in its grantee's index entry
		for _, role := range AllRoles() {
			grantee, ok, err := r.grantee(tx, role)
			if err != nil {
				return err
			}

			if !ok {
				continue
			}

			holders[grantee] = true

			indexed, err := r.indexedRoles(tx, grantee)
			if err != nil {
				return err
			}

			if !containsRole(indexed, role) {
				items = append(items, Inconsistency{
					Role:    role.Key(),
					Account: grantee,
					Reason:  "granted but missing from the account index",
				})
			}
		}

		// every index entry of a known holder must point back to a grant
		for holder := range holders {
			indexed, err := r.indexedRoles(tx, holder)
			if err != nil {
				return err
			}

			for _, role := range indexed {
				grantee, ok, err := r.grantee(tx, role)
				if err != nil {
					return err
				}

				if !ok || grantee != holder {
					items = append(items, Inconsistency{
						Role:    role.Key(),
						Account: holder,
						Reason:  "indexed but not granted to the account",
					})
				}
			}
		}

		return nil
	})

	if err != nil {
		return storageError("verify", err)
	}

	if len(items) > 0 {
		return &InconsistencyError{Items: items}
	}

	return nil
}

//---------------------------------------------------------------------------
// internals
//---------------------------------------------------------------------------

func (r *Registry) grantee(tx kv.Tx, role Role) (Account, bool, error) {
	data, err := tx.Get(r.namespace, []byte(role.Key()))
	if err != nil {
		return "", false, err
	}

	if data == nil {
		return "", false, nil
	}

	a, err := r.codec.UnmarshalAccount(data)
	if err != nil {
		return "", false, err
	}

	return a, true, nil
}

func (r *Registry) hasRole(tx kv.Tx, role Role, caller Account) (bool, error) {
	grantee, ok, err := r.grantee(tx, role)
	if err != nil || !ok {
		return false, err
	}

	return grantee == caller, nil
}

func (r *Registry) hasAnyRole(tx kv.Tx, roles []Role, caller Account) (bool, error) {
	for _, role := range roles {
		has, err := r.hasRole(tx, role, caller)
		if err != nil {
			return false, err
		}

		if has {
			return true, nil
		}
	}

	return false, nil
}

func (r *Registry) indexedRoles(tx kv.Tx, account Account) ([]Role, error) {
	if account == "" {
		return []Role{}, nil
	}

	data, err := tx.Get(r.indexNamespace, []byte(account))
	if err != nil {
		return nil, err
	}

	if data == nil {
		return []Role{}, nil
	}

	return r.codec.UnmarshalRoles(data)
}

func (r *Registry) planIndexRemoval(tx kv.Tx, p *plan, account Account, role Role) error {
	current, err := r.indexedRoles(tx, account)
	if err != nil {
		return err
	}

	remaining := make([]Role, 0, len(current))
	for _, held := range current {
		if held != role {
			remaining = append(remaining, held)
		}
	}

	if len(remaining) == 0 {
		p.delete(r.indexNamespace, []byte(account))
		return nil
	}

	data, err := r.codec.MarshalRoles(remaining)
	if err != nil {
		return err
	}

	p.put(r.indexNamespace, []byte(account), data)

	return nil
}

func (r *Registry) planIndexAddition(tx kv.Tx, p *plan, account Account, role Role) error {
	current, err := r.indexedRoles(tx, account)
	if err != nil {
		return err
	}

	if !containsRole(current, role) {
		current = append(current, role)
	}

	data, err := r.codec.MarshalRoles(current)
	if err != nil {
		return err
	}

	p.put(r.indexNamespace, []byte(account), data)

	return nil
}

// apply writes a computed plan; the caller's transaction
// guarantees that it lands as a whole or not at all
func (r *Registry) apply(tx kv.Tx, p *plan) error {
	for _, w := range p.writes {
		var err error

		if w.value == nil {
			err = tx.Delete(w.ns, w.key)
		} else {
			err = tx.Put(w.ns, w.key, w.value)
		}

		if err != nil {
			return err
		}
	}

	return nil
}

// plan is a list of writes computed before anything is written
type plan struct {
	writes []write
}

type write struct {
	ns    string
	key   []byte
	value []byte
}

func newPlan() *plan {
	return &plan{writes: make([]write, 0, 3)}
}

func (p *plan) put(ns string, key, value []byte) {
	p.writes = append(p.writes, write{ns: ns, key: key, value: value})
}

func (p *plan) delete(ns string, key []byte) {
	p.writes = append(p.writes, write{ns: ns, key: key})
}

func containsRole(roles []Role, role Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}

	return false
}

func sortByCatalog(roles []Role) []Role {
	sorted := make([]Role, 0, len(roles))
	for _, r := range AllRoles() {
		if containsRole(roles, r) {
			sorted = append(sorted, r)
		}
	}

	return sorted
}
