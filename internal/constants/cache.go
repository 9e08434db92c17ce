package constants

import "time"

const (
	UserCachePrefix          = "user"           // CacheBuilder adds the colon
	UserCacheExpiry          = 24 * time.Hour
	RelatedTracksCachePrefix = "related_tracks" // keyed by provider:trackID:limit
)
