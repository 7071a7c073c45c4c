package dispatch

import "fmt"

// Kind distinguishes group chats from direct friend chats.
type Kind string

// Target kinds.
const (
	KindGroup  Kind = "group"
	KindFriend Kind = "friend"
)

// Target identifies one delivery destination. The ID is an opaque
// platform-specific session identifier; core logic never interprets it.
type Target struct {
	Platform string
	Kind     Kind
	ID       string
}

// String renders the target in platform:kind:id form for logs and the
// ledger.
func (t Target) String() string {
	return fmt.Sprintf("%s:%s:%s", t.Platform, t.Kind, t.ID)
}
