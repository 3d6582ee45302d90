package comments

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jackblog/blogkit/schema"
)

func sampleTree() schema.CommentList {
	return schema.CommentList{
		{
			ID: 1, AuthorName: "A", Content: "first",
			Replies: schema.CommentList{
				{ID: 2, AuthorName: "B", Content: "reply", Replies: schema.CommentList{
					{ID: 3, AuthorName: "C", Content: "nested"},
				}},
			},
		},
		{ID: 4, AuthorName: "D", Content: "second", IsDeleted: true},
	}
}

func TestCountAllIncludesRepliesAndDeleted(t *testing.T) {
	require.Equal(t, 4, CountAll(sampleTree()))
	require.Equal(t, 0, CountAll(nil))
}

func TestInsertReplyAppendsUnderParent(t *testing.T) {
	tree := sampleTree()
	before := CountAll(tree)

	next := InsertReply(tree, 2, schema.Comment{ID: 99, AuthorName: "E", Content: "hi"})

	require.Equal(t, before+1, CountAll(next))
	parent, ok := Find(next, 2)
	require.True(t, ok)
	require.Len(t, parent.Replies, 2)
	require.EqualValues(t, 99, parent.Replies[1].ID)
	require.Equal(t, parent.Depth+1, parent.Replies[1].Depth)

	// Original tree untouched.
	require.Equal(t, before, CountAll(tree))
	orig, _ := Find(tree, 2)
	require.Len(t, orig.Replies, 1)
}

func TestInsertReplyMissingParentIsNoOp(t *testing.T) {
	tree := sampleTree()

	next := InsertReply(tree, 12345, schema.Comment{ID: 99})

	require.Equal(t, CountAll(tree), CountAll(next))
	_, ok := Find(next, 99)
	require.False(t, ok)
}

func TestMarkDeletedTombstonesNodeKeepsReplies(t *testing.T) {
	tree := sampleTree()

	next := MarkDeleted(tree, 2)

	node, ok := Find(next, 2)
	require.True(t, ok)
	require.True(t, node.IsDeleted)
	require.Empty(t, node.Content)
	require.Len(t, node.Replies, 1, "thread structure must survive deletion")

	// Count is invariant under tombstoning.
	require.Equal(t, CountAll(tree), CountAll(next))

	// Original untouched.
	orig, _ := Find(tree, 2)
	require.False(t, orig.IsDeleted)
}

func TestMarkDeletedMissingIDIsNoOp(t *testing.T) {
	tree := sampleTree()
	next := MarkDeleted(tree, 777)
	require.Equal(t, tree, next)
}

func TestWithDepthsRecomputesPositionally(t *testing.T) {
	tree := schema.CommentList{
		{ID: 1, Depth: 9, Replies: schema.CommentList{
			{ID: 2, Depth: 0, Replies: schema.CommentList{{ID: 3, Depth: 5}}},
		}},
	}

	next := WithDepths(tree)

	require.Equal(t, 0, next[0].Depth)
	require.Equal(t, 1, next[0].Replies[0].Depth)
	require.Equal(t, 2, next[0].Replies[0].Replies[0].Depth)
	require.Equal(t, 9, tree[0].Depth, "input must not be mutated")
}

func TestFind(t *testing.T) {
	tree := sampleTree()

	got, ok := Find(tree, 3)
	require.True(t, ok)
	require.Equal(t, "nested", got.Content)

	_, ok = Find(tree, 42)
	require.False(t, ok)
}
