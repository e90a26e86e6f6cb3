package backend

import (
	"net/url"
)

// Avatars builds avatar image URLs.
type Avatars struct {
	client *Client
}

// NewAvatars creates the avatars service.
func NewAvatars(c *Client) *Avatars {
	return &Avatars{client: c}
}

// GetInitials returns the URL of an initials avatar for name. No request is made.
func (a *Avatars) GetInitials(name string) string {
	params := url.Values{}
	if name != "" {
		params.Set("name", name)
	}
	params.Set("project", a.client.projectID)
	return a.client.buildURL("/avatars/initials", params)
}
