package thread

import (
	"encoding/json"
	"slices"
)

// LikeSet is the set of user ids that liked a discussion or reply.
type LikeSet map[uint]struct{}

func NewLikeSet(ids ...uint) LikeSet {
	s := make(LikeSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s LikeSet) Has(id uint) bool {
	_, ok := s[id]
	return ok
}

func (s LikeSet) Len() int { return len(s) }

// Toggle flips id's membership and reports whether it is now present.
func (s LikeSet) Toggle(id uint) bool {
	if s.Has(id) {
		delete(s, id)
		return false
	}
	s[id] = struct{}{}
	return true
}

func (s LikeSet) Clone() LikeSet {
	out := make(LikeSet, len(s))
	for id := range s {
		out[id] = struct{}{}
	}
	return out
}

// IDs returns the members in ascending order.
func (s LikeSet) IDs() []uint {
	ids := make([]uint, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (s LikeSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.IDs())
}

func (s *LikeSet) UnmarshalJSON(data []byte) error {
	var ids []uint
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	*s = NewLikeSet(ids...)
	return nil
}
