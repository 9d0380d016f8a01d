package valueobjects

import (
	"errors"
	"strings"
)

// Principal is an opaque caller identity. It is compared by value and never
// authenticated here; the transport supplies it already trusted.
type Principal string

func NewPrincipal(v string) (Principal, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", errors.New("principal is required")
	}
	return Principal(v), nil
}

func (p Principal) IsZero() bool {
	return p == ""
}

func (p Principal) String() string {
	return string(p)
}
