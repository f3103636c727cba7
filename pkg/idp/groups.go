package idp

import (
	"context"
	"fmt"
	"net/url"
)

// Group is a realm group as the management API reports it. SubGroups is
// populated only on hierarchy queries.
type Group struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Path      string  `json:"path"`
	SubGroups []Group `json:"subGroups,omitempty"`
}

// Member is a realm user belonging to a group.
type Member struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email,omitempty"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Enabled   bool   `json:"enabled"`
}

// ListGroups returns the realm's top-level groups.
func (c *Client) ListGroups(ctx context.Context) ([]Group, error) {
	var groups []Group
	if err := c.getJSON(ctx, "/groups", &groups); err != nil {
		return nil, err
	}
	return groups, nil
}

// GroupMembers returns the users directly in the group. Members of
// subgroups are not included; walk the hierarchy for those.
func (c *Client) GroupMembers(ctx context.Context, groupID string) ([]Member, error) {
	var members []Member
	path := fmt.Sprintf("/groups/%s/members", url.PathEscape(groupID))
	if err := c.getJSON(ctx, path, &members); err != nil {
		return nil, err
	}
	return members, nil
}

// GroupHierarchy returns the full group tree. Top-level listings may omit
// children, so each group's subtree is fetched explicitly.
func (c *Client) GroupHierarchy(ctx context.Context) ([]Group, error) {
	top, err := c.ListGroups(ctx)
	if err != nil {
		return nil, err
	}

	tree := make([]Group, 0, len(top))
	for _, g := range top {
		full, err := c.groupSubtree(ctx, g)
		if err != nil {
			return nil, err
		}
		tree = append(tree, full)
	}
	return tree, nil
}

func (c *Client) groupSubtree(ctx context.Context, g Group) (Group, error) {
	if len(g.SubGroups) == 0 {
		var detailed Group
		path := fmt.Sprintf("/groups/%s", url.PathEscape(g.ID))
		if err := c.getJSON(ctx, path, &detailed); err != nil {
			return Group{}, err
		}
		g.SubGroups = detailed.SubGroups
	}

	for i, child := range g.SubGroups {
		full, err := c.groupSubtree(ctx, child)
		if err != nil {
			return Group{}, err
		}
		g.SubGroups[i] = full
	}
	return g, nil
}
