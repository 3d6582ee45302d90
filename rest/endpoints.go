package rest

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/jackblog/blogkit/schema"
)

// ListPosts returns one page of published posts, optionally filtered by category.
func (g *Gateway) ListPosts(ctx context.Context, page, size int, category string) (schema.PostPage, error) {
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("size", strconv.Itoa(size))
	if category != "" {
		query.Set("category", category)
	}
	var out schema.PostPage
	if err := g.do(ctx, http.MethodGet, "/posts", query, nil, "", &out); err != nil {
		return schema.PostPage{}, err
	}
	return out, nil
}

// ListAllPosts returns one page of posts regardless of publication state.
func (g *Gateway) ListAllPosts(ctx context.Context, page, size int, token string) (schema.PostPage, error) {
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("size", strconv.Itoa(size))
	var out schema.PostPage
	if err := g.do(ctx, http.MethodGet, "/posts/all", query, nil, token, &out); err != nil {
		return schema.PostPage{}, err
	}
	return out, nil
}

// GetPost fetches a published post by slug.
func (g *Gateway) GetPost(ctx context.Context, slug string) (schema.PostDetail, error) {
	var out schema.PostDetail
	if err := g.do(ctx, http.MethodGet, "/posts/"+escape(slug), nil, nil, "", &out); err != nil {
		return schema.PostDetail{}, err
	}
	return out, nil
}

// GetPostAdmin fetches a post in its admin view, drafts included.
func (g *Gateway) GetPostAdmin(ctx context.Context, slug, token string) (schema.PostDetail, error) {
	var out schema.PostDetail
	if err := g.do(ctx, http.MethodGet, "/posts/"+escape(slug)+"/admin", nil, nil, token, &out); err != nil {
		return schema.PostDetail{}, err
	}
	return out, nil
}

// IncrementView records one view of the post.
func (g *Gateway) IncrementView(ctx context.Context, slug string) error {
	return g.do(ctx, http.MethodPost, "/posts/"+escape(slug)+"/view", nil, nil, "", nil)
}

// CreatePost authors a new post.
func (g *Gateway) CreatePost(ctx context.Context, req schema.PostCreateRequest, token string) (schema.Post, error) {
	var out schema.Post
	if err := g.do(ctx, http.MethodPost, "/posts", nil, req, token, &out); err != nil {
		return schema.Post{}, err
	}
	return out, nil
}

// UpdatePost applies a partial update to the post.
func (g *Gateway) UpdatePost(ctx context.Context, slug string, req schema.PostUpdateRequest, token string) (schema.Post, error) {
	var out schema.Post
	if err := g.do(ctx, http.MethodPut, "/posts/"+escape(slug), nil, req, token, &out); err != nil {
		return schema.Post{}, err
	}
	return out, nil
}

// DeletePost removes the post.
func (g *Gateway) DeletePost(ctx context.Context, slug, token string) error {
	return g.do(ctx, http.MethodDelete, "/posts/"+escape(slug), nil, nil, token, nil)
}

// SearchPosts runs a full-text search over published posts.
func (g *Gateway) SearchPosts(ctx context.Context, q string) (schema.PostList, error) {
	query := url.Values{}
	query.Set("q", q)
	var out schema.PostList
	if err := g.do(ctx, http.MethodGet, "/posts/search", query, nil, "", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Categories lists the distinct post categories.
func (g *Gateway) Categories(ctx context.Context) (schema.CategoryList, error) {
	var out schema.CategoryList
	if err := g.do(ctx, http.MethodGet, "/posts/categories", nil, nil, "", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// PopularPosts lists the most viewed posts.
func (g *Gateway) PopularPosts(ctx context.Context, limit int) (schema.PostList, error) {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	var out schema.PostList
	if err := g.do(ctx, http.MethodGet, "/posts/popular", query, nil, "", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Comments fetches the nested comment tree for a post.
func (g *Gateway) Comments(ctx context.Context, slug string) (schema.CommentList, error) {
	var out schema.CommentList
	if err := g.do(ctx, http.MethodGet, "/posts/"+escape(slug)+"/comments", nil, nil, "", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateComment posts a new top-level comment.
func (g *Gateway) CreateComment(ctx context.Context, slug string, req schema.CommentCreateRequest) (schema.Comment, error) {
	var out schema.Comment
	if err := g.do(ctx, http.MethodPost, "/posts/"+escape(slug)+"/comments", nil, req, "", &out); err != nil {
		return schema.Comment{}, err
	}
	return out, nil
}

// CreateReply posts a reply under an existing comment.
func (g *Gateway) CreateReply(ctx context.Context, parentID int64, req schema.CommentCreateRequest) (schema.Comment, error) {
	var out schema.Comment
	if err := g.do(ctx, http.MethodPost, "/comments/"+strconv.FormatInt(parentID, 10)+"/reply", nil, req, "", &out); err != nil {
		return schema.Comment{}, err
	}
	return out, nil
}

// DeleteComment removes a comment, authorised by password or, on the
// social-login flow, by requester email. Authorisation is a server-owned
// contract; the gateway forwards the fields verbatim.
func (g *Gateway) DeleteComment(ctx context.Context, id int64, req schema.CommentDeleteRequest) error {
	return g.do(ctx, http.MethodDelete, "/comments/"+strconv.FormatInt(id, 10), nil, req, "", nil)
}

// DeleteCommentAdmin removes any comment with admin authority.
func (g *Gateway) DeleteCommentAdmin(ctx context.Context, id int64, token string) error {
	return g.do(ctx, http.MethodDelete, "/comments/"+strconv.FormatInt(id, 10)+"/admin", nil, nil, token, nil)
}

// Reactions fetches the reaction aggregate for a post as seen by clientID.
func (g *Gateway) Reactions(ctx context.Context, slug, clientID string) (schema.ReactionSet, error) {
	query := url.Values{}
	if clientID != "" {
		query.Set("clientId", clientID)
	}
	var out schema.ReactionSet
	if err := g.do(ctx, http.MethodGet, "/posts/"+escape(slug)+"/reactions", query, nil, "", &out); err != nil {
		return schema.ReactionSet{}, err
	}
	return out, nil
}

// ToggleReaction flips one emoji for the client identity and returns the
// authoritative aggregate.
func (g *Gateway) ToggleReaction(ctx context.Context, slug string, req schema.ReactionRequest) (schema.ReactionSet, error) {
	var out schema.ReactionSet
	if err := g.do(ctx, http.MethodPost, "/posts/"+escape(slug)+"/reactions", nil, req, "", &out); err != nil {
		return schema.ReactionSet{}, err
	}
	return out, nil
}

// LikeStatus fetches the like state for a post as seen by clientID.
func (g *Gateway) LikeStatus(ctx context.Context, slug, clientID string) (schema.LikeStatus, error) {
	query := url.Values{}
	query.Set("clientId", clientID)
	var out schema.LikeStatus
	if err := g.do(ctx, http.MethodGet, "/posts/"+escape(slug)+"/reactions/like", query, nil, "", &out); err != nil {
		return schema.LikeStatus{}, err
	}
	return out, nil
}

// ToggleLike flips the like state and returns the authoritative state.
func (g *Gateway) ToggleLike(ctx context.Context, slug, clientID string) (schema.LikeStatus, error) {
	query := url.Values{}
	query.Set("clientId", clientID)
	var out schema.LikeStatus
	if err := g.do(ctx, http.MethodPost, "/posts/"+escape(slug)+"/reactions/like", query, nil, "", &out); err != nil {
		return schema.LikeStatus{}, err
	}
	return out, nil
}

// Login exchanges the admin password for a bearer token.
func (g *Gateway) Login(ctx context.Context, password string) (schema.LoginResult, error) {
	var out schema.LoginResult
	if err := g.do(ctx, http.MethodPost, "/admin/login", nil, schema.LoginRequest{Password: password}, "", &out); err != nil {
		return schema.LoginResult{}, err
	}
	return out, nil
}

// VerifyToken checks whether the bearer token is still accepted.
func (g *Gateway) VerifyToken(ctx context.Context, token string) (schema.VerifyResult, error) {
	var out schema.VerifyResult
	if err := g.do(ctx, http.MethodGet, "/admin/verify", nil, nil, token, &out); err != nil {
		return schema.VerifyResult{}, err
	}
	return out, nil
}
