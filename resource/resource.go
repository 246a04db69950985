// Package resource gives front ends typed access to ContentKosh
// content endpoints through the shared session client. Every call
// rides the same pipeline as the auth operations, so credential
// attachment and silent refresh come for free.
package resource

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	auth "github.com/Brij5/contentkoshn-sub001"
)

// Blog is a published article.
type Blog struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Slug      string `json:"slug"`
	Content   string `json:"content"`
	AuthorID  string `json:"authorId"`
	Published bool   `json:"isPublished"`
	CreatedAt string `json:"createdAt"`
}

// Service is an offered service entry.
type Service struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Active      bool   `json:"isActive"`
}

// Comment is a visitor comment on a blog.
type Comment struct {
	ID        string `json:"id"`
	BlogID    string `json:"blogId"`
	AuthorID  string `json:"authorId"`
	Content   string `json:"content"`
	CreatedAt string `json:"createdAt"`
}

// ListParams pages and filters list endpoints.
type ListParams struct {
	Page    int
	PerPage int
	Search  string
}

func (p ListParams) query() string {
	q := url.Values{}
	if p.Page > 0 {
		q.Set("page", strconv.Itoa(p.Page))
	}
	if p.PerPage > 0 {
		q.Set("limit", strconv.Itoa(p.PerPage))
	}
	if p.Search != "" {
		q.Set("search", p.Search)
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}

// Client exposes the content endpoints. One Client per process is
// enough; it is stateless beyond the injected caller.
type Client struct {
	caller auth.Caller
}

// New creates a resource client over the shared session client.
func New(caller auth.Caller) *Client {
	return &Client{caller: caller}
}

type listResponse[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}

// Blogs lists published blogs.
func (c *Client) Blogs(ctx context.Context, p ListParams) ([]Blog, int, error) {
	var out listResponse[Blog]
	if err := c.caller.Do(ctx, http.MethodGet, "/blogs"+p.query(), nil, &out); err != nil {
		return nil, 0, err
	}
	return out.Items, out.Total, nil
}

// Blog fetches one blog by ID.
func (c *Client) Blog(ctx context.Context, id string) (*Blog, error) {
	var out struct {
		Blog *Blog `json:"blog"`
	}
	if err := c.caller.Do(ctx, http.MethodGet, "/blogs/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return out.Blog, nil
}

// CreateBlog creates a blog. Requires an authenticated session with
// sufficient role; the guard enforces that before the request is made,
// and the backend enforces it again.
func (c *Client) CreateBlog(ctx context.Context, b Blog) (*Blog, error) {
	var out struct {
		Blog *Blog `json:"blog"`
	}
	if err := c.caller.Do(ctx, http.MethodPost, "/blogs", b, &out); err != nil {
		return nil, err
	}
	return out.Blog, nil
}

// DeleteBlog removes a blog.
func (c *Client) DeleteBlog(ctx context.Context, id string) error {
	return c.caller.Do(ctx, http.MethodDelete, "/blogs/"+url.PathEscape(id), nil, nil)
}

// Services lists offered services.
func (c *Client) Services(ctx context.Context, p ListParams) ([]Service, int, error) {
	var out listResponse[Service]
	if err := c.caller.Do(ctx, http.MethodGet, "/services"+p.query(), nil, &out); err != nil {
		return nil, 0, err
	}
	return out.Items, out.Total, nil
}

// Comments lists the comments of a blog.
func (c *Client) Comments(ctx context.Context, blogID string, p ListParams) ([]Comment, int, error) {
	var out listResponse[Comment]
	path := "/blogs/" + url.PathEscape(blogID) + "/comments" + p.query()
	if err := c.caller.Do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, 0, err
	}
	return out.Items, out.Total, nil
}

// AddComment posts a comment on a blog.
func (c *Client) AddComment(ctx context.Context, blogID, content string) (*Comment, error) {
	var out struct {
		Comment *Comment `json:"comment"`
	}
	path := "/blogs/" + url.PathEscape(blogID) + "/comments"
	if err := c.caller.Do(ctx, http.MethodPost, path, map[string]string{"content": content}, &out); err != nil {
		return nil, err
	}
	return out.Comment, nil
}
