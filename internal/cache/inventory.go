package cache

import "time"

const (
	// ViewKeyPrefix namespaces cached renderings of a view path.
	ViewKeyPrefix = "view:"
	// InvalidationChannel carries every path marked stale.
	InvalidationChannel = "views:invalidated"
)

// DefaultViewTTL bounds how stale a cached view can get between invalidations.
const DefaultViewTTL = time.Minute

// ViewKey maps a view path such as "/post/<id>" to its cache key.
func ViewKey(path string) string {
	return ViewKeyPrefix + path
}
