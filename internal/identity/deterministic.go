package identity

import (
	"strings"

	"github.com/goliatone/go-slug"
	hashid "github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
)

// UUID derives a deterministic UUID from a stable key using go-hashid.
//
// Callers must ensure key construction prevents cross-entity collisions (prefix by domain/type).
func UUID(key string) uuid.UUID {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return uuid.Nil
	}
	uid, err := hashid.NewUUID(trimmed, hashid.WithHashAlgorithm(hashid.SHA256), hashid.WithNormalization(true))
	if err != nil || uid == uuid.Nil {
		return uuid.NewSHA1(uuid.NameSpaceOID, []byte(trimmed))
	}
	return uid
}

// EntityUUID maps a host key (for example a numeric node id) for an entity
// type onto a stable scheduler id. Type names are compared in slug form.
func EntityUUID(entityType, key string) uuid.UUID {
	key = strings.TrimSpace(key)
	typeName := TypeSlug(entityType)
	if key == "" || typeName == "" {
		return uuid.Nil
	}
	return UUID("scheduler:entity:" + typeName + ":" + key)
}

// TypeSlug returns the slug form of an entity type name.
func TypeSlug(entityType string) string {
	trimmed := strings.TrimSpace(entityType)
	normalized, err := slug.Normalize(trimmed)
	if err != nil || normalized == "" {
		return strings.ToLower(trimmed)
	}
	return normalized
}
