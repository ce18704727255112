package upstream

import (
	"errors"
	"fmt"
	"strings"
)

// Error is a failure reported by the upstream platform.
type Error struct {
	Code       string // platform error code, e.g. INVALID_LOGIN, MALFORMED_QUERY
	Message    string
	StatusCode int
}

func (e *Error) Error() string {
	switch {
	case e.Code == "":
		return e.Message
	case strings.HasPrefix(e.Message, e.Code):
		return e.Message
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

// loginGuidance maps login failure codes to user-facing guidance.
var loginGuidance = []struct {
	code     string
	guidance string
}{
	{"LOGIN_MUST_USE_SECURITY_TOKEN", "Security token required. Please add your security token to your password or access from a trusted network."},
	{"INVALID_LOGIN", "Invalid username or password. Please check your credentials."},
	{"EXCEEDED_ID_LIMIT", "Too many login attempts. Please try again later."},
	{"ORGANIZATION_SUSPENDED", "Your Salesforce organization is suspended. Please contact your administrator."},
}

// FriendlyLoginError turns a login failure into a user-facing message.
// Unknown failures keep their original text.
func FriendlyLoginError(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	for _, g := range loginGuidance {
		if strings.Contains(msg, g.code) {
			return g.guidance
		}
	}
	return msg
}

// Code extracts the platform error code from err, if any.
func Code(err error) string {
	var ue *Error
	if errors.As(err, &ue) {
		return ue.Code
	}
	return ""
}
