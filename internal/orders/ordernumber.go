package orders

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewOrderNumber builds the human-readable order number shown to
// customers: ORD-<unix-ms>-<9-char token>. The token comes from a uuid so
// collisions within the same millisecond stay improbable; the column's
// unique constraint catches the rest.
func NewOrderNumber(now time.Time) string {
	token := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:9]
	return fmt.Sprintf("ORD-%d-%s", now.UnixMilli(), token)
}
