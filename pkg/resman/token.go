package resman

import (
	"encoding/base64"
	"strconv"
	"strings"
	"time"
)

// NewAllocationToken builds the opaque capability string returned with an
// allocation. It binds the allocation ID and issue time. The token is a
// misuse deterrent, not a security boundary: release verifies only that the
// decoded payload starts with the allocation ID.
func NewAllocationToken(allocationID string, issuedAt time.Time) string {
	payload := allocationID + ":" + strconv.FormatInt(issuedAt.UnixMilli(), 10)
	return base64.StdEncoding.EncodeToString([]byte(payload))
}

// VerifyAllocationToken reports whether the token binds the allocation ID.
func VerifyAllocationToken(token, allocationID string) bool {
	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return false
	}
	return strings.HasPrefix(string(raw), allocationID+":")
}
