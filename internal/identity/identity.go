// Package identity produces the (human-readable label, canonical id) pairs
// used for task and group identifiers.
//
// The canonical id is a UUIDv4. The label is derived deterministically from
// the UUID bytes, so the same id always maps to the same label; labels exist
// for humans scanning logs and dashboards, ids are what the system keys on.
package identity

import (
	"fmt"

	"github.com/google/uuid"
)

// words is the label vocabulary. 64 entries, indexed by 6 bits of UUID
// entropy per word.
var words = [64]string{
	"amber", "ash", "aspen", "badger", "basil", "bear", "birch", "bison",
	"brook", "cedar", "cliff", "cloud", "clover", "coral", "crane", "creek",
	"dawn", "delta", "dune", "ember", "falcon", "fern", "finch", "fjord",
	"flint", "fox", "frost", "glade", "grove", "hare", "hawk", "hazel",
	"heron", "holly", "iris", "ivy", "jade", "juniper", "lark", "linden",
	"lotus", "lynx", "maple", "marsh", "meadow", "mesa", "moss", "oak",
	"onyx", "opal", "otter", "pine", "quail", "raven", "reed", "ridge",
	"river", "rowan", "sage", "slate", "sparrow", "stone", "vale", "wren",
}

// New allocates a fresh identity: a four-word label paired with a canonical
// UUID string. Uniqueness comes from the UUID; the label is a lossy digest
// of it.
func New() (name, id string) {
	u := uuid.New()
	return Label(u), u.String()
}

// Label derives the four-word human-readable label for u.
func Label(u uuid.UUID) string {
	return fmt.Sprintf("%s-%s-%s-%s",
		words[u[0]&0x3f],
		words[u[4]&0x3f],
		words[u[8]&0x3f],
		words[u[12]&0x3f])
}
