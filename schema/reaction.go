package schema

// ReactionSet aggregates emoji reactions for a post together with the set the
// current client identity has applied.
type ReactionSet struct {
	Counts        map[string]int `json:"counts"`
	UserReactions []string       `json:"userReactions"`
}

// LikeStatus captures the like state of a post for the current client identity.
type LikeStatus struct {
	Liked     bool  `json:"liked"`
	LikeCount int64 `json:"likeCount"`
}

// ReactionRequest toggles a single emoji for a client identity.
type ReactionRequest struct {
	Emoji    string `json:"emoji"`
	ClientID string `json:"clientId"`
}

// Has reports whether the client identity has applied the emoji.
func (r ReactionSet) Has(emoji string) bool {
	for _, e := range r.UserReactions {
		if e == emoji {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the reaction set.
func (r ReactionSet) Clone() ReactionSet {
	clone := ReactionSet{
		Counts:        make(map[string]int, len(r.Counts)),
		UserReactions: make([]string, len(r.UserReactions)),
	}
	for k, v := range r.Counts {
		clone.Counts[k] = v
	}
	copy(clone.UserReactions, r.UserReactions)
	return clone
}

// CloneValue returns a deep copy suitable for cache storage.
func (r ReactionSet) CloneValue() any { return r.Clone() }

// CloneValue returns a copy suitable for cache storage.
func (s LikeStatus) CloneValue() any { return s }

// ToggleReaction flips membership of emoji in the user set and adjusts the
// count symmetrically. Decrements are floor-clamped at zero so a stale local
// aggregate can never drive a count negative. Toggle is its own inverse.
func ToggleReaction(r ReactionSet, emoji string) ReactionSet {
	next := r.Clone()
	if next.Counts == nil {
		next.Counts = make(map[string]int)
	}
	if next.Has(emoji) {
		filtered := next.UserReactions[:0]
		for _, e := range next.UserReactions {
			if e != emoji {
				filtered = append(filtered, e)
			}
		}
		next.UserReactions = filtered
		if next.Counts[emoji] > 0 {
			next.Counts[emoji]--
		} else {
			next.Counts[emoji] = 0
		}
		return next
	}
	next.UserReactions = append(next.UserReactions, emoji)
	next.Counts[emoji]++
	return next
}

// ToggleLike flips the liked flag and adjusts the count by one in the matching
// direction, clamped at zero.
func ToggleLike(s LikeStatus) LikeStatus {
	if s.Liked {
		s.Liked = false
		if s.LikeCount > 0 {
			s.LikeCount--
		}
		return s
	}
	s.Liked = true
	s.LikeCount++
	return s
}
