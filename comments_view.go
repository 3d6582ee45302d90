package blogkit

import (
	"context"
	"time"

	"github.com/jackblog/blogkit/cache"
	"github.com/jackblog/blogkit/comments"
	"github.com/jackblog/blogkit/errs"
	"github.com/jackblog/blogkit/mutate"
	"github.com/jackblog/blogkit/schema"
)

// Comments is the per-post comment surface: load, list, add, reply, remove,
// count, subscribe. All mutations are optimistic with rollback on failure.
type Comments struct {
	client *Client
	slug   string
	key    cache.Key
}

// Comments returns the comment surface for a post. The comment tree fetcher
// is registered on first use; repeated calls for the same slug share cache
// state.
func (c *Client) Comments(slug string) *Comments {
	v := &Comments{
		client: c,
		slug:   slug,
		key:    cache.Key{Kind: cache.KindComments, Param: slug},
	}
	c.cache.Register(v.key, func(ctx context.Context) (any, error) {
		tree, err := c.gw.Comments(ctx, slug)
		if err != nil {
			return nil, err
		}
		// Depth is recomputed on every rebuild from server data.
		return comments.WithDepths(tree), nil
	})
	return v
}

// Load fetches the comment tree in the foreground.
func (v *Comments) Load(ctx context.Context) error {
	if _, err := v.client.cache.Load(ctx, v.key); err != nil {
		return err
	}
	return nil
}

// List returns the current cached tree. Empty before the first Load.
func (v *Comments) List() schema.CommentList {
	entry, ok := v.client.cache.Read(v.key)
	if !ok {
		return nil
	}
	tree, _ := entry.Value.(schema.CommentList)
	return tree
}

// Count returns the total number of comments including replies.
func (v *Comments) Count() int {
	return comments.CountAll(v.List())
}

// LastError returns the most recent load or refetch error for this post's
// comments, if any.
func (v *Comments) LastError() error {
	entry, ok := v.client.cache.Read(v.key)
	if !ok {
		return nil
	}
	return entry.LastError
}

// Subscribe registers fn for every change to the comment tree.
func (v *Comments) Subscribe(fn func(schema.CommentList)) cache.SubscriptionID {
	return v.client.cache.Subscribe(v.key, func(entry cache.Entry) {
		tree, _ := entry.Value.(schema.CommentList)
		fn(tree)
	})
}

// Unsubscribe removes a subscription.
func (v *Comments) Unsubscribe(id cache.SubscriptionID) {
	v.client.cache.Unsubscribe(v.key, id)
}

// Add posts a top-level comment. The tree immediately shows a synthetic
// comment with a temporary id; reconciliation replaces it with the
// authoritative list.
func (v *Comments) Add(ctx context.Context, req schema.CommentCreateRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	temp := syntheticComment(req, 0)
	return v.client.engine.Mutate(ctx, v.key,
		func(current any) any {
			tree, _ := current.(schema.CommentList)
			next := tree.Clone()
			return append(next, temp)
		},
		func(ctx context.Context) error {
			_, err := v.client.gw.CreateComment(ctx, v.slug, req)
			return err
		},
		mutate.Outcome{
			Success: "comment posted",
			Failure: "failed to post comment",
		})
}

// Reply posts a reply under parentID. Replies beyond MaxReplyDepth are
// rejected before any network call.
func (v *Comments) Reply(ctx context.Context, parentID int64, req schema.CommentCreateRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	if parent, ok := comments.Find(v.List(), parentID); ok && parent.Depth >= schema.MaxReplyDepth {
		return errs.New("comments/reply", errs.CodeInvalid,
			errs.WithMessage("reply depth limit reached"))
	}
	temp := syntheticComment(req, 0)
	return v.client.engine.Mutate(ctx, v.key,
		func(current any) any {
			tree, _ := current.(schema.CommentList)
			return comments.InsertReply(tree, parentID, temp)
		},
		func(ctx context.Context) error {
			_, err := v.client.gw.CreateReply(ctx, parentID, req)
			return err
		},
		mutate.Outcome{
			Success: "reply posted",
			Failure: "failed to post reply",
		})
}

// Remove deletes a comment with the password supplied at creation time, or,
// for the social-login flow, with the requester's email. The node is
// tombstoned optimistically, never dropped, so reply threads stay intact; a
// server-side authorization failure rolls the tombstone back.
func (v *Comments) Remove(ctx context.Context, id int64, password, requesterEmail string) error {
	return v.client.engine.Mutate(ctx, v.key,
		func(current any) any {
			tree, _ := current.(schema.CommentList)
			return comments.MarkDeleted(tree, id)
		},
		func(ctx context.Context) error {
			return v.client.gw.DeleteComment(ctx, id, schema.CommentDeleteRequest{
				Password:       password,
				RequesterEmail: requesterEmail,
			})
		},
		mutate.Outcome{
			Success: "comment deleted",
			Failure: "failed to delete comment, check the password",
		})
}

// RemoveAsAdmin deletes any comment using the admin session.
func (v *Comments) RemoveAsAdmin(ctx context.Context, id int64) error {
	token, ok := v.client.session.Token()
	if !ok {
		return errs.New("comments/remove", errs.CodeAuth,
			errs.WithMessage("admin login required"))
	}
	return v.client.engine.Mutate(ctx, v.key,
		func(current any) any {
			tree, _ := current.(schema.CommentList)
			return comments.MarkDeleted(tree, id)
		},
		func(ctx context.Context) error {
			return v.client.gw.DeleteCommentAdmin(ctx, id, token)
		},
		mutate.Outcome{
			Success: "comment deleted",
			Failure: "failed to delete comment",
		})
}

func syntheticComment(req schema.CommentCreateRequest, depth int) schema.Comment {
	return schema.Comment{
		ID:          time.Now().UnixMilli(),
		AuthorName:  req.AuthorName,
		AuthorEmail: req.AuthorEmail,
		Content:     req.Content,
		Depth:       depth,
		IsDeleted:   false,
		CreatedAt:   time.Now().Format(time.RFC3339),
		Replies:     schema.CommentList{},
	}
}
