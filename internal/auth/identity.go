package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/sakif/reader-highlights/internal/model"
)

// AnonymousIDPrefix namespaces device-local owner ids so they can
// never collide with the xid-form ids of registered accounts.
const AnonymousIDPrefix = "anon-"

// AnonymousIdentity derives a stable guest identity from an email-like
// string. The same input always yields the same id, so a guest who
// comes back under the same demo address finds their highlights again.
func AnonymousIdentity(email string) model.Identity {
	normalized := strings.ToLower(strings.TrimSpace(email))
	sum := sha256.Sum256([]byte(normalized))
	return model.Identity{
		ID:            AnonymousIDPrefix + hex.EncodeToString(sum[:10]),
		Authenticated: false,
	}
}

// IsAnonymousID reports whether an owner id is a device-local guest id.
func IsAnonymousID(id string) bool {
	return strings.HasPrefix(id, AnonymousIDPrefix)
}
