package graph

import (
	"context"
	"fmt"
	"strings"

	"github.com/northgate-labs/docsync/internal/core/domain"
	"github.com/northgate-labs/docsync/internal/core/ports/driven"
)

// PermissionService reads item permissions and user group memberships
// from Microsoft Graph.
type PermissionService struct {
	client *Client
}

var _ driven.PermissionService = (*PermissionService)(nil)

// NewPermissionService creates a permission service over the Graph client.
func NewPermissionService(client *Client) *PermissionService {
	return &PermissionService{client: client}
}

// permission is one Graph permission entry. Modern sharing entries carry
// grantedToIdentitiesV2; direct grants use grantedToV2.
type permission struct {
	GrantedToV2           *identitySet  `json:"grantedToV2,omitempty"`
	GrantedToIdentitiesV2 []identitySet `json:"grantedToIdentitiesV2,omitempty"`
	Link                  *struct {
		Scope string `json:"scope"`
	} `json:"link,omitempty"`
}

type permissionsResponse struct {
	Value []permission `json:"value"`
}

// directoryObject is one entry of a memberOf response.
type directoryObject struct {
	ODataType string `json:"@odata.type"`
	ID        string `json:"id"`
}

type memberOfResponse struct {
	Value    []directoryObject `json:"value"`
	NextLink string            `json:"@odata.nextLink"`
}

// Permissions returns all grants on an item. Organization-wide sharing
// links and the "everyone" site claims map to the everyone grantee.
func (p *PermissionService) Permissions(ctx context.Context, ref domain.ItemRef) ([]domain.Grant, error) {
	path := fmt.Sprintf("/sites/%s/drives/%s/items/%s/permissions", ref.SiteID, ref.DriveID, ref.ItemID)

	var resp permissionsResponse
	if err := p.client.getJSON(ctx, path, &resp); err != nil {
		return nil, fmt.Errorf("get permissions for %s: %w", ref.ItemID, err)
	}

	var grants []domain.Grant
	for _, perm := range resp.Value {
		if perm.Link != nil && (perm.Link.Scope == "organization" || perm.Link.Scope == "anonymous") {
			grants = append(grants, domain.Grant{Type: domain.GranteeEveryone})
			continue
		}
		if perm.GrantedToV2 != nil {
			grants = append(grants, identityGrants(*perm.GrantedToV2)...)
		}
		for _, identity := range perm.GrantedToIdentitiesV2 {
			grants = append(grants, identityGrants(identity)...)
		}
	}
	return grants, nil
}

// UserGroups returns the group identifiers the user is a member of,
// following continuation pages. Directory roles and other non-group
// objects in the response are skipped.
func (p *PermissionService) UserGroups(ctx context.Context, userID string) ([]string, error) {
	url := fmt.Sprintf("/users/%s/memberOf", userID)

	var groups []string
	for url != "" {
		var resp memberOfResponse
		if err := p.client.getJSON(ctx, url, &resp); err != nil {
			return nil, fmt.Errorf("get memberships for %s: %w", userID, err)
		}
		for _, obj := range resp.Value {
			if obj.ODataType == "#microsoft.graph.group" {
				groups = append(groups, obj.ID)
			}
		}
		url = resp.NextLink
	}
	return groups, nil
}

// identityGrants maps one identity set to grants.
func identityGrants(identity identitySet) []domain.Grant {
	var grants []domain.Grant
	if identity.Group != nil {
		grants = append(grants, domain.Grant{Type: domain.GranteeGroup, GranteeID: identity.Group.ID})
	}
	if identity.User != nil {
		// The everyone claim surfaces as a pseudo-user on some tenants
		if strings.Contains(strings.ToLower(identity.User.DisplayName), "everyone") {
			grants = append(grants, domain.Grant{Type: domain.GranteeEveryone})
		} else {
			grants = append(grants, domain.Grant{Type: domain.GranteeUser, GranteeID: identity.User.ID})
		}
	}
	return grants
}
