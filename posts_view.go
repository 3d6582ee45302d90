package blogkit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackblog/blogkit/cache"
	"github.com/jackblog/blogkit/errs"
	"github.com/jackblog/blogkit/schema"
)

// Posts is the read-through query surface over posts, categories and search,
// plus the token-gated admin authoring operations.
type Posts struct {
	client *Client
}

// Posts returns the post query surface.
func (c *Client) Posts() *Posts {
	return &Posts{client: c}
}

// List returns one page of published posts, served from cache while fresh.
func (p *Posts) List(ctx context.Context, page, size int, category string) (schema.PostPage, error) {
	key := cache.Key{
		Kind:  cache.KindPostPage,
		Param: fmt.Sprintf("%d-%d", page, size),
		Extra: category,
	}
	p.client.cache.Register(key, func(ctx context.Context) (any, error) {
		result, err := p.client.gw.ListPosts(ctx, page, size, category)
		if err != nil {
			return nil, err
		}
		return result, nil
	})
	value, err := p.readThrough(ctx, key, p.client.cfg.Cache.FreshFor)
	if err != nil {
		return schema.PostPage{}, err
	}
	result, _ := value.(schema.PostPage)
	return result, nil
}

// Get returns a post by slug, served from cache while fresh.
func (p *Posts) Get(ctx context.Context, slug string) (schema.PostDetail, error) {
	key := detailKey(slug)
	p.client.cache.Register(key, func(ctx context.Context) (any, error) {
		detail, err := p.client.gw.GetPost(ctx, slug)
		if err != nil {
			return nil, err
		}
		return detail, nil
	})
	value, err := p.readThrough(ctx, key, p.client.cfg.Cache.FreshFor)
	if err != nil {
		return schema.PostDetail{}, err
	}
	detail, _ := value.(schema.PostDetail)
	return detail, nil
}

// Categories lists the post categories. The category set changes rarely, so
// it gets the long freshness window.
func (p *Posts) Categories(ctx context.Context) (schema.CategoryList, error) {
	key := cache.Key{Kind: cache.KindCategories}
	p.client.cache.Register(key, func(ctx context.Context) (any, error) {
		list, err := p.client.gw.Categories(ctx)
		if err != nil {
			return nil, err
		}
		return list, nil
	})
	value, err := p.readThrough(ctx, key, p.client.cfg.Cache.CategoriesFreshFor)
	if err != nil {
		return nil, err
	}
	list, _ := value.(schema.CategoryList)
	return list, nil
}

// Search runs a full-text search. Queries shorter than two characters return
// an empty result without a network call.
func (p *Posts) Search(ctx context.Context, q string) (schema.PostList, error) {
	q = strings.TrimSpace(q)
	if len([]rune(q)) < 2 {
		return schema.PostList{}, nil
	}
	key := cache.Key{Kind: cache.KindSearch, Param: q}
	p.client.cache.Register(key, func(ctx context.Context) (any, error) {
		list, err := p.client.gw.SearchPosts(ctx, q)
		if err != nil {
			return nil, err
		}
		return list, nil
	})
	value, err := p.readThrough(ctx, key, p.client.cfg.Cache.FreshFor)
	if err != nil {
		return nil, err
	}
	list, _ := value.(schema.PostList)
	return list, nil
}

// Popular lists the most viewed posts.
func (p *Posts) Popular(ctx context.Context, limit int) (schema.PostList, error) {
	key := cache.Key{Kind: cache.KindPopular, Param: fmt.Sprintf("%d", limit)}
	p.client.cache.Register(key, func(ctx context.Context) (any, error) {
		list, err := p.client.gw.PopularPosts(ctx, limit)
		if err != nil {
			return nil, err
		}
		return list, nil
	})
	value, err := p.readThrough(ctx, key, p.client.cfg.Cache.FreshFor)
	if err != nil {
		return nil, err
	}
	list, _ := value.(schema.PostList)
	return list, nil
}

// View records a post view and invalidates the cached detail so the next read
// reflects the new count.
func (p *Posts) View(ctx context.Context, slug string) error {
	if err := p.client.gw.IncrementView(ctx, slug); err != nil {
		return err
	}
	p.client.cache.Invalidate(detailKey(slug))
	return nil
}

// GetAdmin fetches a post in its admin view, drafts included.
func (p *Posts) GetAdmin(ctx context.Context, slug string) (schema.PostDetail, error) {
	token, err := p.adminToken()
	if err != nil {
		return schema.PostDetail{}, err
	}
	return p.client.gw.GetPostAdmin(ctx, slug, token)
}

// ListAll returns one page of posts regardless of publication state.
func (p *Posts) ListAll(ctx context.Context, page, size int) (schema.PostPage, error) {
	token, err := p.adminToken()
	if err != nil {
		return schema.PostPage{}, err
	}
	return p.client.gw.ListAllPosts(ctx, page, size, token)
}

// Create authors a new post with the admin session.
func (p *Posts) Create(ctx context.Context, req schema.PostCreateRequest) (schema.Post, error) {
	if err := req.Validate(); err != nil {
		return schema.Post{}, err
	}
	token, err := p.adminToken()
	if err != nil {
		return schema.Post{}, err
	}
	return p.client.gw.CreatePost(ctx, req, token)
}

// Update applies a partial update and invalidates the cached detail.
func (p *Posts) Update(ctx context.Context, slug string, req schema.PostUpdateRequest) (schema.Post, error) {
	token, err := p.adminToken()
	if err != nil {
		return schema.Post{}, err
	}
	post, err := p.client.gw.UpdatePost(ctx, slug, req, token)
	if err != nil {
		return schema.Post{}, err
	}
	p.client.cache.Invalidate(detailKey(slug))
	return post, nil
}

// Delete removes a post and invalidates its cached detail.
func (p *Posts) Delete(ctx context.Context, slug string) error {
	token, err := p.adminToken()
	if err != nil {
		return err
	}
	if err := p.client.gw.DeletePost(ctx, slug, token); err != nil {
		return err
	}
	p.client.cache.Invalidate(detailKey(slug))
	return nil
}

func (p *Posts) adminToken() (string, error) {
	token, ok := p.client.session.Token()
	if !ok {
		return "", errs.New("posts/admin", errs.CodeAuth,
			errs.WithMessage("admin login required"))
	}
	return token, nil
}

// readThrough serves the cached value while it is inside the freshness
// window, otherwise fetches in the foreground. A fetch failure with a cached
// value present falls back to the stale value.
func (p *Posts) readThrough(ctx context.Context, key cache.Key, window time.Duration) (any, error) {
	if p.client.cache.Fresh(key, window) {
		entry, _ := p.client.cache.Read(key)
		return entry.Value, nil
	}
	entry, err := p.client.cache.Load(ctx, key)
	if err != nil {
		if stale, ok := p.client.cache.Read(key); ok && stale.Value != nil {
			return stale.Value, nil
		}
		return nil, err
	}
	return entry.Value, nil
}

func detailKey(slug string) cache.Key {
	return cache.Key{Kind: cache.KindPostDetail, Param: slug}
}
