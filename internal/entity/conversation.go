package entity

import "strings"

// GroupKeyPrefix marks server-assigned group conversation keys so they can
// never collide with a direct key built from two user ids.
const GroupKeyPrefix = "g-"

// DirectKey derives the conversation key for a two-party chat. The key is
// the sorted pair joined by a dash, so both participants derive the same
// key regardless of who initiates.
func DirectKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "-" + b
}

// IsGroupKey reports whether key names a group conversation.
func IsGroupKey(key string) bool {
	return strings.HasPrefix(key, GroupKeyPrefix)
}

// DirectParticipants splits a direct key into its two user ids. The second
// return is false for group keys or keys that do not have exactly two
// components.
func DirectParticipants(key string) (string, string, bool) {
	if IsGroupKey(key) {
		return "", "", false
	}
	parts := strings.SplitN(key, "-", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

// BelongsTo reports whether a conversation key concerns the given user.
// Direct keys must contain the user id as one of the two dash-delimited
// components; group keys require the user to be in the members set.
func BelongsTo(key, userId string, members []string) bool {
	if IsGroupKey(key) {
		for _, m := range members {
			if m == userId {
				return true
			}
		}
		return false
	}
	a, b, ok := DirectParticipants(key)
	return ok && (a == userId || b == userId)
}

// Group is a group conversation with an explicit membership set.
type Group struct {
	Key       string   `bson:"_id" json:"key"`
	Name      string   `bson:"name" json:"name"`
	CreatedBy string   `bson:"createdBy" json:"createdBy"`
	Members   []string `bson:"members" json:"members"`
	CreatedAt int64    `bson:"createdAt" json:"createdAt"`
}
