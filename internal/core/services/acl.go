package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/northgate-labs/docsync/internal/core/domain"
	"github.com/northgate-labs/docsync/internal/core/ports/driven"
	"github.com/northgate-labs/docsync/internal/logger"
)

// DefaultGroupCacheTTL bounds how long user group memberships are reused
// before being re-fetched. Five minutes keeps bulk delta runs from
// hammering the identity service while staying reasonably fresh.
const DefaultGroupCacheTTL = 5 * time.Minute

// groupCacheEntry holds one user's resolved groups and its expiry.
type groupCacheEntry struct {
	groups  []string
	expires time.Time
}

// ACLResolver maps an item's permission grants to a flat, sorted set of
// group identifiers for index-side security trimming.
//
// Resolution fails closed: any failure fetching permissions or
// memberships contributes no groups, so an unresolvable document is
// visible to nobody rather than everybody.
type ACLResolver struct {
	perms driven.PermissionService
	log   *logger.Logger
	ttl   time.Duration
	now   func() time.Time

	mu    sync.Mutex
	cache map[string]groupCacheEntry
}

// ACLOption configures the resolver.
type ACLOption func(*ACLResolver)

// WithGroupCacheTTL overrides the membership cache lifetime.
func WithGroupCacheTTL(ttl time.Duration) ACLOption {
	return func(a *ACLResolver) {
		if ttl > 0 {
			a.ttl = ttl
		}
	}
}

// WithClock overrides the time source. Used by tests to drive expiry.
func WithClock(now func() time.Time) ACLOption {
	return func(a *ACLResolver) {
		if now != nil {
			a.now = now
		}
	}
}

// NewACLResolver creates a resolver over the given permission service.
func NewACLResolver(perms driven.PermissionService, log *logger.Logger, opts ...ACLOption) *ACLResolver {
	a := &ACLResolver{
		perms: perms,
		log:   log.With("service", "acl"),
		ttl:   DefaultGroupCacheTTL,
		now:   time.Now,
		cache: make(map[string]groupCacheEntry),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// AllowedGroups returns the deduplicated, sorted group identifiers with
// access to the item: group grantees directly, user grantees expanded to
// their memberships, and the "everyone" principal mapped to the
// well-known sentinel group.
func (a *ACLResolver) AllowedGroups(ctx context.Context, ref domain.ItemRef) []string {
	grants, err := a.perms.Permissions(ctx, ref)
	if err != nil {
		a.log.Warn("failed to fetch permissions",
			"item_id", ref.ItemID,
			"drive_id", ref.DriveID,
			"error", err,
		)
		return nil
	}

	set := make(map[string]struct{})
	for _, grant := range grants {
		switch grant.Type {
		case domain.GranteeGroup:
			if grant.GranteeID != "" {
				set[grant.GranteeID] = struct{}{}
			}
		case domain.GranteeUser:
			if grant.GranteeID != "" {
				for _, id := range a.userGroups(ctx, grant.GranteeID) {
					set[id] = struct{}{}
				}
			}
		case domain.GranteeEveryone:
			set[domain.EveryoneGroupID] = struct{}{}
		}
	}

	groups := make([]string, 0, len(set))
	for id := range set {
		groups = append(groups, id)
	}
	sort.Strings(groups)
	return groups
}

// userGroups resolves one user's group memberships through the cache.
// Eviction is lazy: expiry is checked on lookup, never swept.
func (a *ACLResolver) userGroups(ctx context.Context, userID string) []string {
	a.mu.Lock()
	entry, ok := a.cache[userID]
	a.mu.Unlock()
	if ok && a.now().Before(entry.expires) {
		return entry.groups
	}

	groups, err := a.perms.UserGroups(ctx, userID)
	if err != nil {
		a.log.Warn("failed to resolve group membership", "user_id", userID, "error", err)
		groups = nil
	}

	a.mu.Lock()
	a.cache[userID] = groupCacheEntry{groups: groups, expires: a.now().Add(a.ttl)}
	a.mu.Unlock()
	return groups
}
