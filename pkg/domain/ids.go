package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// Typed UUID identifiers. Using distinct types keeps a GroupID from being
// passed where a MemberID is expected; validity is enforced at parse time.
type (
	GroupID   uuid.UUID
	MemberID  uuid.UUID
	CommentID uuid.UUID
)

// NewGroupID returns a fresh random group identifier.
func NewGroupID() GroupID { return GroupID(uuid.New()) }

// NewMemberID returns a fresh random member identifier.
func NewMemberID() MemberID { return MemberID(uuid.New()) }

// NewCommentID returns a fresh random comment identifier.
func NewCommentID() CommentID { return CommentID(uuid.New()) }

// ParseGroupID validates and returns a GroupID.
func ParseGroupID(s string) (GroupID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return GroupID{}, fmt.Errorf("invalid group id %q: %w", s, err)
	}
	return GroupID(u), nil
}

// ParseMemberID validates and returns a MemberID.
func ParseMemberID(s string) (MemberID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return MemberID{}, fmt.Errorf("invalid member id %q: %w", s, err)
	}
	return MemberID(u), nil
}

// ParseCommentID validates and returns a CommentID.
func ParseCommentID(s string) (CommentID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return CommentID{}, fmt.Errorf("invalid comment id %q: %w", s, err)
	}
	return CommentID(u), nil
}

func (id GroupID) String() string   { return uuid.UUID(id).String() }
func (id MemberID) String() string  { return uuid.UUID(id).String() }
func (id CommentID) String() string { return uuid.UUID(id).String() }

func (id GroupID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id MemberID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id CommentID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// Text marshaling so the ids serialize as canonical UUID strings.

func (id GroupID) MarshalText() ([]byte, error)   { return []byte(id.String()), nil }
func (id MemberID) MarshalText() ([]byte, error)  { return []byte(id.String()), nil }
func (id CommentID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *GroupID) UnmarshalText(b []byte) error {
	parsed, err := ParseGroupID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *MemberID) UnmarshalText(b []byte) error {
	parsed, err := ParseMemberID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *CommentID) UnmarshalText(b []byte) error {
	parsed, err := ParseCommentID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
