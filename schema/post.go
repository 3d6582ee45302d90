package schema

import (
	"strings"

	"github.com/jackblog/blogkit/errs"
)

// Post is the summary representation used in listings and search results.
type Post struct {
	ID          int64  `json:"id"`
	Slug        string `json:"slug"`
	Title       string `json:"title"`
	Excerpt     string `json:"excerpt"`
	Category    string `json:"category"`
	ReadingTime int    `json:"readingTime"`
	ViewCount   int64  `json:"viewCount"`
	IsPublished bool   `json:"isPublished"`
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt"`
	PublishedAt string `json:"publishedAt"`
}

// PostDetail extends Post with the full rendered content and interaction counts.
type PostDetail struct {
	Post
	Content      string `json:"content"`
	ContentHTML  string `json:"contentHtml"`
	CommentCount int    `json:"commentCount"`
	LikeCount    int64  `json:"likeCount"`
}

// PostPage is a cached page of post summaries.
type PostPage Page[Post]

// PostList is a cached flat listing of post summaries (search, popular).
type PostList []Post

// CategoryList is the cached set of post categories.
type CategoryList []string

// PostCreateRequest carries the fields required to author a new post.
type PostCreateRequest struct {
	Slug     string `json:"slug,omitempty"`
	Title    string `json:"title"`
	Content  string `json:"content"`
	Excerpt  string `json:"excerpt,omitempty"`
	Category string `json:"category"`
	Publish  bool   `json:"publish,omitempty"`
}

// PostUpdateRequest carries the fields of a partial post update.
type PostUpdateRequest struct {
	Title    string `json:"title,omitempty"`
	Content  string `json:"content,omitempty"`
	Excerpt  string `json:"excerpt,omitempty"`
	Category string `json:"category,omitempty"`
	Publish  *bool  `json:"publish,omitempty"`
}

// Validate checks the request before it is allowed near the network.
func (r PostCreateRequest) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return errs.New("schema/post", errs.CodeInvalid, errs.WithMessage("title required"))
	}
	if strings.TrimSpace(r.Content) == "" {
		return errs.New("schema/post", errs.CodeInvalid, errs.WithMessage("content required"))
	}
	if strings.TrimSpace(r.Category) == "" {
		return errs.New("schema/post", errs.CodeInvalid, errs.WithMessage("category required"))
	}
	return nil
}

// CloneValue returns a deep copy suitable for cache storage.
func (p PostPage) CloneValue() any {
	clone := p
	if p.Content != nil {
		clone.Content = make([]Post, len(p.Content))
		copy(clone.Content, p.Content)
	}
	return clone
}

// CloneValue returns a deep copy suitable for cache storage.
func (l PostList) CloneValue() any {
	clone := make(PostList, len(l))
	copy(clone, l)
	return clone
}

// CloneValue returns a deep copy suitable for cache storage.
func (c CategoryList) CloneValue() any {
	clone := make(CategoryList, len(c))
	copy(clone, c)
	return clone
}

// CloneValue returns a copy suitable for cache storage.
func (p PostDetail) CloneValue() any { return p }
