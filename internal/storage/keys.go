package storage

import (
	"path"
	"strings"

	"github.com/segmentio/ksuid"
)

// ProfileImageKey returns "{userID}/{ksuid}.{ext}". KSUIDs sort by creation
// time, so a user's prefix lists oldest first.
func ProfileImageKey(userID, ext string) string {
	return path.Join(userID, ksuid.New().String()+"."+strings.TrimPrefix(ext, "."))
}

// OwnerOfKey returns the user id prefix of a profile image key.
func OwnerOfKey(key string) string {
	owner, _, found := strings.Cut(key, "/")
	if !found {
		return ""
	}
	return owner
}
