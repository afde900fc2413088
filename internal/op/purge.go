package op

import "fmt"

// DefaultKeepLast is the LocalOnly retention default.
const DefaultKeepLast = 1000

// PurgeStrategy bounds the operation log. Exactly one of the two
// concrete strategies applies to a document at a time.
type PurgeStrategy interface {
	purgeStrategy() // sealed
	String() string
}

// LocalOnly keeps the KeepLast most recent records by timestamp and
// deletes everything older. After a purge exactly min(KeepLast, total)
// records remain.
type LocalOnly struct {
	KeepLast int
}

func (LocalOnly) purgeStrategy() {}

func (s LocalOnly) String() string {
	return fmt.Sprintf("local-only(keep %d)", s.KeepLast)
}

// WithSync keeps unsynced records indefinitely and deletes synced
// records older than RetentionDays. Present for forward compatibility:
// no component sets synced today, so this strategy currently deletes
// nothing.
type WithSync struct {
	RetentionDays int
}

func (WithSync) purgeStrategy() {}

func (s WithSync) String() string {
	return fmt.Sprintf("with-sync(%d days)", s.RetentionDays)
}

// DefaultStrategy is the retention policy used when none is configured.
func DefaultStrategy() PurgeStrategy {
	return LocalOnly{KeepLast: DefaultKeepLast}
}
