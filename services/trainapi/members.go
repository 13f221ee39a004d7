package trainapi

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/volatiletech/null/v8"
)

type (
	Member struct {
		ID       int       `json:"id"`
		Name     string    `json:"name"`
		Email    string    `json:"email"`
		Role     string    `json:"role"`
		JoinedAt null.Time `json:"joined_at"`
	}

	NewMember struct {
		Name  string `json:"name"`
		Email string `json:"email"`
		Role  string `json:"role"`
	}

	// MemberImportReport summarizes a bulk CSV import.
	MemberImportReport struct {
		Imported int      `json:"imported"`
		Skipped  int      `json:"skipped"`
		Errors   []string `json:"errors"`
	}

	Organization struct {
		ID          int         `json:"id"`
		Name        string      `json:"name"`
		LogoURL     null.String `json:"logo_url"`
		MemberCount int         `json:"member_count"`
		CreatedAt   time.Time   `json:"created_at"`
	}

	memberList struct {
		Data []Member `json:"data"`
	}

	memberDetail struct {
		Data Member `json:"data"`
	}

	memberImportResult struct {
		Data MemberImportReport `json:"data"`
	}

	organizationList struct {
		Data []Organization `json:"data"`
	}

	organizationDetail struct {
		Data Organization `json:"data"`
	}
)

func orgPath(orgID int, suffix string) string {
	return "/organizations/" + strconv.Itoa(orgID) + suffix
}

func (c *Client) GetOrganization(ctx context.Context, orgID int) (Organization, error) {
	var resp organizationDetail
	if err := c.do(ctx, http.MethodGet, orgPath(orgID, ""), nil, nil, &resp); err != nil {
		return Organization{}, err
	}
	return resp.Data, nil
}

// ListOrganizations is admin-only on the remote API.
func (c *Client) ListOrganizations(ctx context.Context) ([]Organization, error) {
	var resp organizationList
	if err := c.do(ctx, http.MethodGet, "/organizations", nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (c *Client) ListMembers(ctx context.Context, orgID int) ([]Member, error) {
	var resp memberList
	if err := c.do(ctx, http.MethodGet, orgPath(orgID, "/members"), nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (c *Client) InviteMember(ctx context.Context, orgID int, data NewMember) (Member, error) {
	var resp memberDetail
	if err := c.do(ctx, http.MethodPost, orgPath(orgID, "/members"), nil, data, &resp); err != nil {
		return Member{}, err
	}
	return resp.Data, nil
}

func (c *Client) RemoveMember(ctx context.Context, orgID, memberID int) error {
	return c.do(ctx, http.MethodDelete, orgPath(orgID, "/members/"+strconv.Itoa(memberID)), nil, nil, nil)
}

// ImportMembers uploads a members CSV; the only multipart call in the gateway.
func (c *Client) ImportMembers(ctx context.Context, orgID int, filename string, r io.Reader) (MemberImportReport, error) {
	var resp memberImportResult
	if err := c.upload(ctx, orgPath(orgID, "/members/import"), "file", filename, r, &resp); err != nil {
		return MemberImportReport{}, err
	}
	return resp.Data, nil
}
