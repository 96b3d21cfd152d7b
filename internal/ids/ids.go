// Package ids centralizes identifier allocation and format validation for
// every entity kind: admin-authored template items, user-generated todo
// items, and time blocks.
package ids

import (
	"fmt"
	"math/rand"
	"regexp"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// todoSeq disambiguates todo ids allocated within the same millisecond.
var todoSeq atomic.Uint64

// maxTodoAttempts bounds collision retries before falling back to a UUID.
const maxTodoAttempts = 5

var (
	// templateItemRx matches semantic template ids like "mc-morning-001",
	// "hb-lsd-002", "tb-06h-001".
	templateItemRx = regexp.MustCompile(`^[a-z]{2,4}-[a-z0-9]+(?:-[a-z0-9]+)*-[0-9]{3}$`)

	// todoRx matches "todo-<13-digit-epoch-ms>-<1-4-digit-random>-<sequence>"
	// plus the UUID fallback form.
	todoRx         = regexp.MustCompile(`^todo-[0-9]{13}-[0-9]{1,4}-[0-9]+$`)
	todoFallbackRx = regexp.MustCompile(`^todo-[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

	// blockRx matches UUID-suffixed block ids; legacyBlockRx covers the
	// integer-suffixed form still present in older day records.
	blockRx       = regexp.MustCompile(`^block-[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)
	legacyBlockRx = regexp.MustCompile(`^block-[0-9]+$`)
)

// NewTodoID allocates a collision-resistant id for a user-authored todo.
// existing holds the ids already present on the day; after bounded retries
// against it the allocator falls back to a UUID-based id.
func NewTodoID(now time.Time, existing map[string]struct{}) string {
	for attempt := 0; attempt < maxTodoAttempts; attempt++ {
		id := fmt.Sprintf("todo-%013d-%d-%d", now.UnixMilli(), rand.Intn(10000), todoSeq.Add(1))
		if _, taken := existing[id]; !taken {
			return id
		}
	}
	return "todo-" + uuid.New().String()
}

// NewBlockID allocates an id for a non-template (ad hoc) time block.
func NewBlockID() string {
	return "block-" + uuid.New().String()
}

// IsTemplateItemID reports whether v is a semantic template item id.
func IsTemplateItemID(v string) bool { return templateItemRx.MatchString(v) }

// IsTodoID reports whether v is a user-generated todo id in either the
// composite or UUID-fallback form.
func IsTodoID(v string) bool {
	return todoRx.MatchString(v) || todoFallbackRx.MatchString(v)
}

// IsBlockID reports whether v is a valid block reference: a semantic
// template block id, a UUID-suffixed ad hoc id, or the legacy integer form
// accepted during the migration window.
func IsBlockID(v string) bool {
	return templateItemRx.MatchString(v) || blockRx.MatchString(v) || legacyBlockRx.MatchString(v)
}
