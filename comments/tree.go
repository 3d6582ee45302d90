// Package comments provides pure transforms over a post's comment tree. Every
// function returns a new tree; inputs are never mutated, so a pending
// optimistic write can safely coexist with concurrent readers of the previous
// snapshot.
package comments

import (
	"github.com/jackblog/blogkit/schema"
)

// CountAll counts every node in the tree, replies included. Deleted nodes
// still count: they remain in the tree as thread placeholders.
func CountAll(tree schema.CommentList) int {
	total := 0
	for _, c := range tree {
		total += 1 + CountAll(c.Replies)
	}
	return total
}

// Find returns the node with the given id and true, or a zero comment and
// false when the id is not present.
func Find(tree schema.CommentList, id int64) (schema.Comment, bool) {
	for _, c := range tree {
		if c.ID == id {
			return c, true
		}
		if found, ok := Find(c.Replies, id); ok {
			return found, true
		}
	}
	return schema.Comment{}, false
}

// InsertReply returns a new tree with reply appended to the replies of the
// node matching parentID. When the parent is missing the original tree is
// returned unchanged: the server is the authority, and a stale local tree
// must not crash the caller.
func InsertReply(tree schema.CommentList, parentID int64, reply schema.Comment) schema.CommentList {
	next, _ := insertReply(tree, parentID, reply)
	return next
}

func insertReply(tree schema.CommentList, parentID int64, reply schema.Comment) (schema.CommentList, bool) {
	for i, c := range tree {
		if c.ID == parentID {
			out := tree.Clone()
			node := &out[i]
			reply.Depth = node.Depth + 1
			node.Replies = append(node.Replies, reply)
			return out, true
		}
		if nested, ok := insertReply(c.Replies, parentID, reply); ok {
			out := tree.Clone()
			out[i].Replies = nested
			return out, true
		}
	}
	return tree, false
}

// MarkDeleted returns a new tree with the matching node tombstoned: IsDeleted
// set and the content blanked, replies kept so the thread structure survives.
// A missing id returns the tree unchanged.
func MarkDeleted(tree schema.CommentList, id int64) schema.CommentList {
	next, _ := markDeleted(tree, id)
	return next
}

func markDeleted(tree schema.CommentList, id int64) (schema.CommentList, bool) {
	for i, c := range tree {
		if c.ID == id {
			out := tree.Clone()
			out[i].IsDeleted = true
			out[i].Content = ""
			return out, true
		}
		if nested, ok := markDeleted(c.Replies, id); ok {
			out := tree.Clone()
			out[i].Replies = nested
			return out, true
		}
	}
	return tree, false
}

// WithDepths returns a new tree with depth recomputed positionally from the
// roots. Server responses are normalised through this on every rebuild; a
// depth cached on the node is never trusted across reconciliation.
func WithDepths(tree schema.CommentList) schema.CommentList {
	return withDepths(tree, 0)
}

func withDepths(tree schema.CommentList, depth int) schema.CommentList {
	if tree == nil {
		return nil
	}
	out := make(schema.CommentList, len(tree))
	for i, c := range tree {
		out[i] = c
		out[i].Depth = depth
		out[i].Replies = withDepths(c.Replies, depth+1)
	}
	return out
}
