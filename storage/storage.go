package storage

import "time"

// SeenRecord marks that a user has talked to the bot before. Written
// once per user, never updated.
type SeenRecord struct {
	UserId      string    `bson:"user_id"`
	FirstSeenAt time.Time `bson:"first_seen_at"`
}

type SeenStore interface {
	// MarkSeen records the user if this is their first appearance and
	// reports whether it was.
	MarkSeen(userId string) (bool, error)
	Close() error
}
