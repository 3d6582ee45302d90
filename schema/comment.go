package schema

import (
	"strings"

	"github.com/jackblog/blogkit/errs"
)

// MaxReplyDepth bounds how deep a reply chain may grow. Roots sit at depth 0;
// replies to a node at MaxReplyDepth must be rejected client-side.
const MaxReplyDepth = 2

// Comment is a single node of a post's comment tree.
type Comment struct {
	ID          int64       `json:"id"`
	AuthorName  string      `json:"authorName"`
	AuthorEmail string      `json:"authorEmail,omitempty"`
	Content     string      `json:"content"`
	Depth       int         `json:"depth"`
	IsDeleted   bool        `json:"isDeleted"`
	CreatedAt   string      `json:"createdAt"`
	Replies     CommentList `json:"replies"`
}

// CommentList is an ordered comment tree, cached per post slug.
type CommentList []Comment

// CommentCreateRequest carries the fields of a new comment or reply.
type CommentCreateRequest struct {
	AuthorName  string `json:"authorName"`
	AuthorEmail string `json:"authorEmail,omitempty"`
	Password    string `json:"password"`
	Content     string `json:"content"`
}

// CommentDeleteRequest authorizes a comment deletion. RequesterEmail is set on
// the social-login flow, where the server matches it against the stored author
// email instead of the password.
type CommentDeleteRequest struct {
	Password       string `json:"password"`
	RequesterEmail string `json:"requesterEmail,omitempty"`
}

// Validate checks the request before it is allowed near the network.
func (r CommentCreateRequest) Validate() error {
	if strings.TrimSpace(r.AuthorName) == "" {
		return errs.New("schema/comment", errs.CodeInvalid, errs.WithMessage("author name required"))
	}
	if strings.TrimSpace(r.Password) == "" {
		return errs.New("schema/comment", errs.CodeInvalid, errs.WithMessage("password required"))
	}
	if strings.TrimSpace(r.Content) == "" {
		return errs.New("schema/comment", errs.CodeInvalid, errs.WithMessage("content required"))
	}
	return nil
}

// Clone returns a deep copy of the comment including its reply subtree.
func (c Comment) Clone() Comment {
	clone := c
	clone.Replies = c.Replies.Clone()
	return clone
}

// Clone returns a deep copy of the whole tree.
func (l CommentList) Clone() CommentList {
	if l == nil {
		return nil
	}
	clone := make(CommentList, len(l))
	for i, c := range l {
		clone[i] = c.Clone()
	}
	return clone
}

// CloneValue returns a deep copy suitable for cache storage.
func (l CommentList) CloneValue() any { return l.Clone() }
