package core

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
)

type (
	// CryptoWalletConnection is a wallet address tracked under a crypto
	// entity. EntityID is a lookup key into the entity collection, not an
	// ownership edge.
	CryptoWalletConnection struct {
		ID       string `json:"id"`
		EntityID string `json:"entity_id"`
		Address  string `json:"address"`
		Name     string `json:"name"`
	}

	PINConfig struct {
		Positions int `json:"positions"`
	}

	// Entity is a tracked financial source. Nil pointer, slice and map fields
	// mean "absent" and are kept distinct from empty values on the wire:
	// optional scalars are omitted, a nil Connected list encodes as null.
	Entity struct {
		ID                  string                    `json:"id"`
		Name                string                    `json:"name"`
		Type                EntityType                `json:"type"`
		IsReal              bool                      `json:"is_real"`
		Status              *EntityStatus             `json:"status,omitempty"`
		Features            []Feature                 `json:"features"`
		CredentialsTemplate map[string]CredentialType `json:"credentials_template,omitempty"`
		SetupLoginType      *EntitySetupLoginType     `json:"setup_login_type,omitempty"`
		PIN                 *PINConfig                `json:"pin,omitempty"`
		Connected           []CryptoWalletConnection  `json:"connected"`
		LastFetch           map[Feature]time.Time     `json:"last_fetch"`
	}

	EntitiesResponse struct {
		Entities []Entity `json:"entities"`
	}
)

// Features is a list of requested or supported features.
type Features []Feature

// Validate checks that every member belongs to the fixed feature set and that
// none is repeated.
func (fs Features) Validate() error {
	seen := make(map[Feature]struct{}, len(fs))
	for _, f := range fs {
		if !f.Valid() {
			return errors.Wrapf(ErrInvalidFeature, "%q", string(f))
		}
		if _, ok := seen[f]; ok {
			return errors.Wrapf(ErrInvalidFeature, "duplicate %q", string(f))
		}
		seen[f] = struct{}{}
	}
	return nil
}

// Supports reports whether the entity declares the feature.
func (e Entity) Supports(f Feature) bool {
	return lo.Contains(e.Features, f)
}

// Unsupported returns the requested features the entity does not declare.
func (e Entity) Unsupported(requested []Feature) []Feature {
	return lo.Filter(requested, func(f Feature, _ int) bool {
		return !e.Supports(f)
	})
}

// Validate checks the structural invariants of a single entity: closed tags,
// last_fetch keys drawn from the feature set, and wallet back-references
// pointing at this entity.
func (e Entity) Validate() error {
	if e.ID == "" {
		return errors.Wrap(ErrInvalidRequest, "entity id is empty")
	}
	if !e.Type.Valid() {
		return errors.Wrapf(ErrUnknownTag, "entity type %q", string(e.Type))
	}
	if e.Status != nil && !e.Status.Valid() {
		return errors.Wrapf(ErrUnknownTag, "entity status %q", string(*e.Status))
	}
	if e.SetupLoginType != nil && !e.SetupLoginType.Valid() {
		return errors.Wrapf(ErrUnknownTag, "setup login type %q", string(*e.SetupLoginType))
	}
	if err := Features(e.Features).Validate(); err != nil {
		return errors.Wrapf(err, "entity %s features", e.ID)
	}
	for f := range e.LastFetch {
		if !f.Valid() {
			return errors.Wrapf(ErrInvalidFeature, "entity %s last_fetch key %q", e.ID, string(f))
		}
	}
	for name, ct := range e.CredentialsTemplate {
		if !ct.Valid() {
			return errors.Wrapf(ErrUnknownTag, "entity %s credential %q type %q", e.ID, name, string(ct))
		}
	}
	for _, c := range e.Connected {
		if c.EntityID != e.ID {
			return errors.Wrapf(ErrDanglingWallet, "wallet %s points at %q inside entity %s", c.ID, c.EntityID, e.ID)
		}
	}
	return nil
}

// Validate checks every entity and that each wallet connection's entity_id
// resolves to an entity of the same response.
func (r EntitiesResponse) Validate() error {
	ids := lo.SliceToMap(r.Entities, func(e Entity) (string, struct{}) {
		return e.ID, struct{}{}
	})
	for _, e := range r.Entities {
		for _, c := range e.Connected {
			if _, ok := ids[c.EntityID]; !ok {
				return errors.Wrapf(ErrDanglingWallet, "wallet %s -> %q", c.ID, c.EntityID)
			}
		}
		if err := e.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// CredentialsComplete reports whether creds provide every user-facing field of
// the entity's credentials template.
func (e Entity) CredentialsComplete(creds map[string]string) bool {
	for name, ct := range e.CredentialsTemplate {
		if ct.Internal() {
			continue
		}
		if creds[name] == "" {
			return false
		}
	}
	return true
}

// Ptr returns a pointer to v. Used for optional contract fields.
func Ptr[T any](v T) *T {
	return &v
}
