package blogkit

import (
	"context"

	"github.com/jackblog/blogkit/cache"
	"github.com/jackblog/blogkit/mutate"
	"github.com/jackblog/blogkit/schema"
)

// Reactions is the per-post reaction and like surface. Toggles apply
// immediately against the cached aggregate and reconcile with server state on
// settlement; a failed toggle restores the pre-toggle aggregate as a unit.
type Reactions struct {
	client   *Client
	slug     string
	reactKey cache.Key
	likeKey  cache.Key
}

// Reactions returns the reaction surface for a post.
func (c *Client) Reactions(slug string) *Reactions {
	v := &Reactions{
		client:   c,
		slug:     slug,
		reactKey: cache.Key{Kind: cache.KindReactions, Param: slug},
		likeKey:  cache.Key{Kind: cache.KindLike, Param: slug},
	}
	c.cache.Register(v.reactKey, func(ctx context.Context) (any, error) {
		set, err := c.gw.Reactions(ctx, slug, c.ids.ClientID())
		if err != nil {
			return nil, err
		}
		return set, nil
	})
	c.cache.Register(v.likeKey, func(ctx context.Context) (any, error) {
		status, err := c.gw.LikeStatus(ctx, slug, c.ids.ClientID())
		if err != nil {
			return nil, err
		}
		return status, nil
	})
	return v
}

// Load fetches the reaction aggregate and like status in the foreground.
func (v *Reactions) Load(ctx context.Context) error {
	if _, err := v.client.cache.Load(ctx, v.reactKey); err != nil {
		return err
	}
	if _, err := v.client.cache.Load(ctx, v.likeKey); err != nil {
		return err
	}
	return nil
}

// Current returns the cached reaction aggregate.
func (v *Reactions) Current() schema.ReactionSet {
	entry, ok := v.client.cache.Read(v.reactKey)
	if !ok {
		return schema.ReactionSet{}
	}
	set, _ := entry.Value.(schema.ReactionSet)
	return set
}

// Liked reports whether the current identity has liked the post.
func (v *Reactions) Liked() bool {
	return v.likeStatus().Liked
}

// LikeCount returns the cached like total.
func (v *Reactions) LikeCount() int64 {
	return v.likeStatus().LikeCount
}

func (v *Reactions) likeStatus() schema.LikeStatus {
	entry, ok := v.client.cache.Read(v.likeKey)
	if !ok {
		return schema.LikeStatus{}
	}
	status, _ := entry.Value.(schema.LikeStatus)
	return status
}

// SubscribeReactions registers fn for every change to the aggregate.
func (v *Reactions) SubscribeReactions(fn func(schema.ReactionSet)) cache.SubscriptionID {
	return v.client.cache.Subscribe(v.reactKey, func(entry cache.Entry) {
		set, _ := entry.Value.(schema.ReactionSet)
		fn(set)
	})
}

// SubscribeLike registers fn for every change to the like status.
func (v *Reactions) SubscribeLike(fn func(schema.LikeStatus)) cache.SubscriptionID {
	return v.client.cache.Subscribe(v.likeKey, func(entry cache.Entry) {
		status, _ := entry.Value.(schema.LikeStatus)
		fn(status)
	})
}

// ToggleReaction flips one emoji for the current identity.
func (v *Reactions) ToggleReaction(ctx context.Context, emoji string) error {
	return v.client.engine.Mutate(ctx, v.reactKey,
		func(current any) any {
			set, _ := current.(schema.ReactionSet)
			return schema.ToggleReaction(set, emoji)
		},
		func(ctx context.Context) error {
			_, err := v.client.gw.ToggleReaction(ctx, v.slug, schema.ReactionRequest{
				Emoji:    emoji,
				ClientID: v.client.ids.ClientID(),
			})
			return err
		},
		mutate.Outcome{Failure: "failed to toggle reaction"})
}

// ToggleLike flips the like state for the current identity.
func (v *Reactions) ToggleLike(ctx context.Context) error {
	return v.client.engine.Mutate(ctx, v.likeKey,
		func(current any) any {
			status, _ := current.(schema.LikeStatus)
			return schema.ToggleLike(status)
		},
		func(ctx context.Context) error {
			_, err := v.client.gw.ToggleLike(ctx, v.slug, v.client.ids.ClientID())
			return err
		},
		mutate.Outcome{Failure: "failed to toggle like"})
}
