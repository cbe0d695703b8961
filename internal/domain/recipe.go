package domain

import (
	"context"
	"strings"
	"time"
)

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

type Nutrition struct {
	Calories float64 `json:"calories" validate:"gte=0"`
	Protein  float64 `json:"protein"  validate:"gte=0"`
	Carbs    float64 `json:"carbs"    validate:"gte=0"`
	Fat      float64 `json:"fat"      validate:"gte=0"`
	Fiber    float64 `json:"fiber"    validate:"gte=0"`
	Sugar    float64 `json:"sugar"    validate:"gte=0"`
}

// RecipeFields is the author-editable part of a recipe.
type RecipeFields struct {
	Title       string     `json:"title"       validate:"required,min=3,max=100"`
	Description string     `json:"description" validate:"max=2000"`
	Ingredients []string   `json:"ingredients" validate:"required,min=1,max=100,dive,required,max=200"`
	Steps       []string   `json:"steps"       validate:"required,min=1,max=100,dive,required,max=2000"`
	Category    string     `json:"category"    validate:"required,min=2,max=50"`
	CookTime    int        `json:"cookTime"    validate:"min=1,max=10080"`
	PrepTime    int        `json:"prepTime"    validate:"min=0,max=10080"`
	Images      []string   `json:"images"      validate:"max=10,dive,url,max=512"`
	Diet        string     `json:"diet,omitempty"       validate:"max=50"`
	Cuisine     string     `json:"cuisine,omitempty"    validate:"max=50"`
	Difficulty  string     `json:"difficulty,omitempty" validate:"omitempty,oneof=easy medium hard"`
	Nutrition   *Nutrition `json:"nutrition,omitempty"`
	Tags        []string   `json:"tags"        validate:"max=20,dive,required,max=30"`
}

func (f *RecipeFields) Normalize() {
	f.Title = strings.TrimSpace(f.Title)
	f.Description = strings.TrimSpace(f.Description)
	f.Category = strings.TrimSpace(f.Category)
	f.Diet = strings.ToLower(strings.TrimSpace(f.Diet))
	f.Cuisine = strings.TrimSpace(f.Cuisine)
	f.Difficulty = strings.ToLower(strings.TrimSpace(f.Difficulty))
	f.Ingredients = compact(f.Ingredients)
	f.Steps = compact(f.Steps)
	f.Images = compact(f.Images)
	f.Tags = compact(f.Tags)
	for i, t := range f.Tags {
		f.Tags[i] = strings.ToLower(t)
	}
}

func (f *RecipeFields) Validate() error { return validateStruct(f) }

// compact trims entries and drops blank ones; the result is never nil.
func compact(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

type Comment struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"authorId"`
	Text      string    `json:"text"`
	Rating    int       `json:"rating"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type CommentInput struct {
	Text   string `json:"text"   validate:"required,min=1,max=500"`
	Rating int    `json:"rating" validate:"min=1,max=5"`
}

func (c *CommentInput) Normalize()      { c.Text = strings.TrimSpace(c.Text) }
func (c *CommentInput) Validate() error { return validateStruct(c) }

type Recipe struct {
	ID       string `json:"id"`
	AuthorID string `json:"authorId"`
	RecipeFields
	Comments      []Comment `json:"comments,omitempty"`
	AverageRating float64   `json:"averageRating"`
	CommentCount  int       `json:"commentCount"`
	Likes         int       `json:"likes"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Aggregate is a recipe's comment set together with its derived rating.
type Aggregate struct {
	Comments      []Comment `json:"comments"`
	AverageRating float64   `json:"averageRating"`
}

func NewAggregate(comments []Comment) Aggregate {
	if comments == nil {
		comments = []Comment{}
	}
	return Aggregate{Comments: comments, AverageRating: AverageRating(comments)}
}

// AverageRating is the unrounded mean of the ratings, 0 for no comments.
func AverageRating(comments []Comment) float64 {
	if len(comments) == 0 {
		return 0
	}
	sum := 0
	for _, c := range comments {
		sum += c.Rating
	}
	return float64(sum) / float64(len(comments))
}

type RecipeFilter struct {
	Query       string `form:"q"`
	Category    string `form:"category"`
	Ingredient  string `form:"ingredient"`
	Diet        string `form:"diet"`
	Cuisine     string `form:"cuisine"`
	Difficulty  string `form:"difficulty"`
	Tag         string `form:"tag"`
	AuthorID    string `form:"author"`
	MaxPrepTime int    `form:"maxPrepTime"`
}

func (f *RecipeFilter) Normalize() {
	f.Query = strings.TrimSpace(f.Query)
	f.Category = strings.TrimSpace(f.Category)
	f.Ingredient = strings.TrimSpace(f.Ingredient)
	f.Diet = strings.ToLower(strings.TrimSpace(f.Diet))
	f.Cuisine = strings.TrimSpace(f.Cuisine)
	f.Difficulty = strings.ToLower(strings.TrimSpace(f.Difficulty))
	f.Tag = strings.ToLower(strings.TrimSpace(f.Tag))
	f.AuthorID = strings.TrimSpace(f.AuthorID)
	if f.MaxPrepTime < 0 {
		f.MaxPrepTime = 0
	}
}

type Page struct {
	Skip  int `form:"skip"  json:"skip"`
	Limit int `form:"limit" json:"limit"`
}

// Normalize clamps skip to >= 0 and limit to [1,100]; a missing limit means 20.
func (p Page) Normalize() Page {
	if p.Skip < 0 {
		p.Skip = 0
	}
	switch {
	case p.Limit == 0:
		p.Limit = DefaultPageLimit
	case p.Limit < 1:
		p.Limit = 1
	case p.Limit > MaxPageLimit:
		p.Limit = MaxPageLimit
	}
	return p
}

type RecipeRepository interface {
	Create(ctx context.Context, r *Recipe) error
	// FindByID loads the recipe with its comments in insertion order.
	FindByID(ctx context.Context, id string) (*Recipe, error)
	AuthorOf(ctx context.Context, id string) (string, error)
	UpdateFields(ctx context.Context, id string, f RecipeFields) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, f RecipeFilter, p Page) ([]Recipe, int64, error)

	// AddComment appends c and rewrites the derived rating in the same transaction.
	AddComment(ctx context.Context, recipeID string, c Comment) (*Aggregate, error)
	// MutateComment locks the recipe, hands the stored comment to fn, and then
	// applies its decision (edit in place or delete) and rewrites the rating.
	MutateComment(ctx context.Context, recipeID, commentID string, fn func(c *Comment) (remove bool, err error)) (*Aggregate, error)

	SetLike(ctx context.Context, recipeID, accountID string, liked bool) (int, error)
}
