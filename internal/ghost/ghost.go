package ghost

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"weekly-meal-planner/internal/config"
	"weekly-meal-planner/internal/recipe"

	"github.com/PuerkitoBio/goquery"
)

// Tag is a Ghost post tag. Recipe posts carry their meal slot as a tag.
type Tag struct {
	Slug string `json:"slug"`
	Name string `json:"name"`
}

// Post represents a single recipe post from the Ghost API.
type Post struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	HTML      string `json:"html"`
	UpdatedAt string `json:"updated_at"`
	Tags      []Tag  `json:"tags"`
}

type pagination struct {
	Page int  `json:"page"`
	Next *int `json:"next"`
}

// PostsResponse is the top-level structure of the Ghost API response for posts.
type PostsResponse struct {
	Posts []Post `json:"posts"`
	Meta  struct {
		Pagination pagination `json:"pagination"`
	} `json:"meta"`
}

// Client reads recipe posts from the Ghost Content API. It never writes.
type Client interface {
	FetchRecipes(ctx context.Context) ([]Post, error)
}

// ghostClient is the concrete implementation of the Ghost API client.
type ghostClient struct {
	httpClient *http.Client
	baseURL    string
	key        string
}

// NewClient creates a new Ghost API client.
func NewClient(cfg *config.Config) Client {
	return &ghostClient{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    strings.TrimRight(cfg.GhostURL, "/"),
		key:        cfg.GhostContentKey,
	}
}

// FetchRecipes fetches all posts, following pagination until the last page.
func (c *ghostClient) FetchRecipes(ctx context.Context) ([]Post, error) {
	var all []Post
	page := 1
	for {
		resp, err := c.fetchPage(ctx, page)
		if err != nil {
			return nil, err
		}
		all = append(all, resp.Posts...)

		next := resp.Meta.Pagination.Next
		if next == nil || *next <= page {
			return all, nil
		}
		page = *next
	}
}

func (c *ghostClient) fetchPage(ctx context.Context, page int) (*PostsResponse, error) {
	q := url.Values{}
	q.Set("key", c.key)
	q.Set("include", "tags")
	q.Set("limit", "50")
	q.Set("page", fmt.Sprint(page))
	endpoint := fmt.Sprintf("%s/ghost/api/v3/content/posts/?%s", c.baseURL, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("content api error: status %d", resp.StatusCode)
	}

	var postsResponse PostsResponse
	if err := json.NewDecoder(resp.Body).Decode(&postsResponse); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &postsResponse, nil
}

// ErrNoSlotTag is returned for posts that are not tagged with a meal slot.
var ErrNoSlotTag = errors.New("post has no breakfast, lunch or dinner tag")

// RecipeFromPost extracts the recipe carried by a post. The post HTML must
// contain a <pre><code> block holding the recipe as JSON; the post title is
// used when the block omits a name.
func RecipeFromPost(p Post) (recipe.MealSlot, recipe.Recipe, error) {
	slot, ok := slotFromTags(p.Tags)
	if !ok {
		return "", recipe.Recipe{}, ErrNoSlotTag
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(p.HTML))
	if err != nil {
		return "", recipe.Recipe{}, fmt.Errorf("failed to parse post html: %w", err)
	}

	var (
		rec   recipe.Recipe
		found bool
	)
	doc.Find("pre code").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := strings.TrimSpace(s.Text())
		if !strings.HasPrefix(text, "{") {
			return true
		}
		if err := json.Unmarshal([]byte(text), &rec); err != nil {
			return true
		}
		found = true
		return false
	})
	if !found {
		return "", recipe.Recipe{}, fmt.Errorf("post %q has no JSON recipe block", p.Title)
	}
	if rec.Name == "" {
		rec.Name = strings.TrimSpace(p.Title)
	}
	return slot, rec, nil
}

// CatalogFromPosts builds a catalog from the posts that carry a recipe. Posts
// that cannot be read are reported but do not stop the import.
func CatalogFromPosts(posts []Post) (recipe.Catalog, []error) {
	c := make(recipe.Catalog)
	var errs []error
	for _, p := range posts {
		slot, rec, err := RecipeFromPost(p)
		if err != nil {
			errs = append(errs, fmt.Errorf("post %s: %w", p.ID, err))
			continue
		}
		c[slot] = append(c[slot], rec)
	}
	return c, errs
}

func slotFromTags(tags []Tag) (recipe.MealSlot, bool) {
	for _, t := range tags {
		if slot, ok := recipe.ParseSlot(t.Slug); ok {
			return slot, true
		}
		if slot, ok := recipe.ParseSlot(t.Name); ok {
			return slot, true
		}
	}
	return "", false
}
