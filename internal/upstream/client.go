// Package upstream talks to the remote CRM platform: login, query,
// cursor pagination and object metadata.
package upstream

import (
	"context"

	"soql-workbench/internal/model"
)

// Credentials are the login form fields forwarded to the platform.
type Credentials struct {
	Username     string `json:"username"`
	Password     string `json:"password"`
	Environment  string `json:"environment"` // production, sandbox
	CustomDomain string `json:"customDomain,omitempty"`
}

// QueryPage is one page of a cursor-paginated query result.
type QueryPage struct {
	Records        []model.Record
	Columns        []string // key order of the first record, as sent upstream
	TotalSize      int
	Done           bool
	NextRecordsURL string
}

// Client is the upstream query API.
type Client interface {
	Login(ctx context.Context, creds Credentials) (*model.Connection, *model.UserInfo, error)
	Query(ctx context.Context, conn *model.Connection, soql string) (*QueryPage, error)
	QueryMore(ctx context.Context, conn *model.Connection, nextRecordsURL string) (*QueryPage, error)
	Describe(ctx context.Context, conn *model.Connection, object string) (map[string]interface{}, error)
	DescribeGlobal(ctx context.Context, conn *model.Connection) ([]model.ObjectSummary, error)
}
