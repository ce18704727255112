package model

import "time"

// UserInfo identifies the authenticated upstream user
type UserInfo struct {
	ID             string `json:"id"`
	OrganizationID string `json:"organizationId"`
	URL            string `json:"url"`
}

// Connection is the authenticated handle to the upstream platform.
// It is plain data so sessions can be kept outside the process.
type Connection struct {
	AccessToken string `json:"accessToken"`
	InstanceURL string `json:"instanceUrl"`
	APIVersion  string `json:"apiVersion"`
}

// Session binds a browser session to an upstream connection
type Session struct {
	ID         string     `json:"id"`
	User       UserInfo   `json:"userInfo"`
	Connection Connection `json:"connection"`
	CreatedAt  time.Time  `json:"createdAt"`
	LastSeen   time.Time  `json:"lastSeen"`
}

// ObjectSummary describes one queryable upstream object
type ObjectSummary struct {
	Name      string `json:"name"`
	Label     string `json:"label"`
	Queryable bool   `json:"queryable"`
}

// LoginPreferences are the login form defaults remembered on the client
type LoginPreferences struct {
	Username     string `json:"username"`
	Environment  string `json:"environment"`
	CustomDomain string `json:"customDomain,omitempty"`
	RememberMe   bool   `json:"rememberMe"`
}
