package utils

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var idPattern = regexp.MustCompile(`^[0-9a-f]{32}$`)

// NewID returns a 32 char lowercase hex id (uuid v4 without dashes).
func NewID() string { return strings.ReplaceAll(uuid.NewString(), "-", "") }

// ValidID reports whether s has the shape produced by NewID.
func ValidID(s string) bool { return idPattern.MatchString(s) }
