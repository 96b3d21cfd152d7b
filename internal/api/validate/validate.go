package validate

import (
	"fmt"
	"regexp"
	"time"
)

var emailRx = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// UserID must be lowercase letters, digits, underscore, hyphen, 1-20 chars
var userIdRx = regexp.MustCompile(`^[a-z0-9_-]{1,20}$`)

// Role names are short lowercase identifiers ("mc", "household", "public").
var roleRx = regexp.MustCompile(`^[a-z][a-z0-9_-]{0,31}$`)

func Email(v string) error {
	if v == "" {
		return fmt.Errorf("email is required")
	}
	if len(v) > 320 || !emailRx.MatchString(v) {
		return fmt.Errorf("invalid email")
	}
	return nil
}

func NonEmpty(field, v string) error {
	if v == "" {
		return fmt.Errorf("%s is required", field)
	}
	return nil
}

func MaxLen(field string, v *string, limit int) error {
	if v == nil {
		return nil
	}
	if len(*v) > limit {
		return fmt.Errorf("%s exceeds %d characters", field, limit)
	}
	return nil
}

// Date validates the YYYY-MM-DD path segment used by every day route.
func Date(v string) error {
	if v == "" {
		return fmt.Errorf("date is required")
	}
	if _, err := time.Parse("2006-01-02", v); err != nil {
		return fmt.Errorf("date must be YYYY-MM-DD")
	}
	return nil
}

// Role validates a role path segment.
func Role(v string) error {
	if v == "" {
		return fmt.Errorf("role is required")
	}
	if !roleRx.MatchString(v) {
		return fmt.Errorf("role must match %s", roleRx.String())
	}
	return nil
}

// -------- Request specific helpers ----------

// CreateUser validates input for creating a new user. UserID and timeZone
// are mandatory; the timezone must be a real IANA name.
func CreateUser(userId, email, timeZone string, displayName *string) error {
	if userId == "" {
		return fmt.Errorf("userId is required")
	}
	if !userIdRx.MatchString(userId) {
		return fmt.Errorf("userId must match %s", userIdRx.String())
	}
	if err := Email(email); err != nil {
		return err
	}
	if timeZone == "" {
		return fmt.Errorf("timeZone is required")
	}
	if _, err := time.LoadLocation(timeZone); err != nil {
		return fmt.Errorf("unknown timezone %q", timeZone)
	}
	if err := MaxLen("displayName", displayName, 100); err != nil {
		return err
	}
	return nil
}
