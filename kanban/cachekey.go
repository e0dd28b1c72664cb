package kanban

import (
	"strconv"
	"time"
)

const cacheKeyPrefix = "kanban_item"

// CacheKey identifies an item's serialized form. It embeds the Unix second of
// the last modification, so every write moves the item to a fresh key and
// older entries simply age out.
func CacheKey(id int64, updatedAt time.Time) string {
	return cacheKeyPrefix + ":" + strconv.FormatInt(id, 10) + ":" + strconv.FormatInt(updatedAt.Unix(), 10)
}
