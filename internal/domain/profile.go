package domain

import "strings"

// Profile is the signed-in account as returned by /v1/users/me.
type Profile struct {
	ID          int64  `json:"id"`
	Phone       string `json:"phone,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
	Credits     int    `json:"credits"`
}

const defaultDisplayName = "WeChat user"

// Name returns the display name or a placeholder when it is blank.
func (p Profile) Name() string {
	if name := strings.TrimSpace(p.DisplayName); name != "" {
		return name
	}
	return defaultDisplayName
}

// AvatarURLFor resolves a server-relative avatar path against baseURL.
func (p Profile) AvatarURLFor(baseURL string) string {
	v := strings.TrimSpace(p.AvatarURL)
	if v == "" {
		return ""
	}
	if strings.HasPrefix(v, "http://") || strings.HasPrefix(v, "https://") {
		return v
	}
	if !strings.HasPrefix(v, "/") {
		v = "/" + v
	}
	return strings.TrimSuffix(baseURL, "/") + v
}
