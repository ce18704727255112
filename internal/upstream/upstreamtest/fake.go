// Package upstreamtest provides an in-memory upstream.Client for tests.
package upstreamtest

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"soql-workbench/internal/model"
	"soql-workbench/internal/upstream"
)

// Fake serves generated records in fixed-size pages.
type Fake struct {
	mu sync.Mutex

	// Login
	Password string // accepted password; empty accepts anything
	LoginErr error
	User     model.UserInfo

	// Query
	PageSize   int
	Total      int
	NeverDone  bool  // keep handing out continuation handles forever
	QueryErr   error // fails the initial query
	FailOnMore int   // fail the n-th QueryMore call (1-based); 0 never fails
	MoreErr    error
	MakeRecord func(i int) model.Record

	// Metadata
	Objects   []model.ObjectSummary
	Describes map[string]map[string]interface{}

	QueryCalls int
	MoreCalls  int
	LastQuery  string
}

var _ upstream.Client = (*Fake)(nil)

// NewFake returns a fake with total records served pageSize at a time.
func NewFake(pageSize, total int) *Fake {
	return &Fake{
		PageSize: pageSize,
		Total:    total,
		User: model.UserInfo{
			ID:             "005000000000001",
			OrganizationID: "00D000000000001",
			URL:            "https://login.example.com/id/00D000000000001/005000000000001",
		},
	}
}

func (f *Fake) Login(ctx context.Context, creds upstream.Credentials) (*model.Connection, *model.UserInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.LoginErr != nil {
		return nil, nil, f.LoginErr
	}
	if f.Password != "" && creds.Password != f.Password {
		return nil, nil, &upstream.Error{
			Code:    "INVALID_LOGIN",
			Message: "INVALID_LOGIN: Invalid username, password, security token; or user locked out.",
		}
	}
	user := f.User
	return &model.Connection{
		AccessToken: "token-" + creds.Username,
		InstanceURL: "https://instance.example.com",
		APIVersion:  "59.0",
	}, &user, nil
}

func (f *Fake) Query(ctx context.Context, conn *model.Connection, soql string) (*upstream.QueryPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.QueryCalls++
	f.LastQuery = soql
	if f.QueryErr != nil {
		return nil, f.QueryErr
	}
	return f.page(0), nil
}

func (f *Fake) QueryMore(ctx context.Context, conn *model.Connection, next string) (*upstream.QueryPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.MoreCalls++
	if f.FailOnMore > 0 && f.MoreCalls == f.FailOnMore {
		if f.MoreErr != nil {
			return nil, f.MoreErr
		}
		return nil, &upstream.Error{Code: "QUERY_TIMEOUT", Message: "Your query request was running for too long."}
	}

	offset, err := strconv.Atoi(strings.TrimPrefix(next, "/query/next-"))
	if err != nil {
		return nil, &upstream.Error{Code: "INVALID_QUERY_LOCATOR", Message: "invalid query locator"}
	}
	return f.page(offset), nil
}

func (f *Fake) page(offset int) *upstream.QueryPage {
	end := offset + f.PageSize
	if !f.NeverDone && end > f.Total {
		end = f.Total
	}

	records := make([]model.Record, 0, end-offset)
	for i := offset; i < end; i++ {
		records = append(records, f.record(i))
	}

	done := !f.NeverDone && end >= f.Total
	page := &upstream.QueryPage{
		Records:   records,
		TotalSize: f.Total,
		Done:      done,
	}
	if len(records) > 0 {
		page.Columns = []string{model.MetadataField, "Id", "Name"}
	}
	if !done {
		page.NextRecordsURL = fmt.Sprintf("/query/next-%d", end)
	}
	return page
}

func (f *Fake) record(i int) model.Record {
	if f.MakeRecord != nil {
		return f.MakeRecord(i)
	}
	return model.Record{
		model.MetadataField: map[string]interface{}{"type": "Account"},
		"Id":                fmt.Sprintf("001%012d", i),
		"Name":              fmt.Sprintf("Account %d", i),
	}
}

func (f *Fake) Describe(ctx context.Context, conn *model.Connection, object string) (map[string]interface{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if d, ok := f.Describes[object]; ok {
		return d, nil
	}
	return nil, &upstream.Error{
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("The requested resource does not exist: %s", object),
	}
}

func (f *Fake) DescribeGlobal(ctx context.Context, conn *model.Connection) ([]model.ObjectSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []model.ObjectSummary
	for _, o := range f.Objects {
		if o.Queryable {
			out = append(out, o)
		}
	}
	return out, nil
}

// Calls reports how many Query and QueryMore calls were made.
func (f *Fake) Calls() (queries, more int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.QueryCalls, f.MoreCalls
}
