package recipe

import (
	"strings"
	"time"

	"recipebox/internal/domain"
)

type RecipeModel struct {
	ID          string            `gorm:"primaryKey;type:varchar(32)"`
	AuthorID    string            `gorm:"index;type:varchar(32);not null"`
	Title       string            `gorm:"size:100;not null"`
	Description string            `gorm:"type:text"`
	Ingredients []string          `gorm:"serializer:json;type:text"`
	Steps       []string          `gorm:"serializer:json;type:text"`
	Category    string            `gorm:"index;size:50;not null"`
	CookTime    int               `gorm:"not null"`
	PrepTime    int               `gorm:"not null;default:0"`
	Images      []string          `gorm:"serializer:json;type:text"`
	Diet        string            `gorm:"index;size:50"`
	Cuisine     string            `gorm:"size:50"`
	Difficulty  string            `gorm:"size:16"`
	Nutrition   *domain.Nutrition `gorm:"serializer:json;type:text"`
	Tags        []string          `gorm:"serializer:json;type:text"`

	// IngredientsText and TagsText are lower-cased, newline-joined copies of
	// the JSON columns so filters never match JSON syntax.
	IngredientsText string `gorm:"type:text"`
	TagsText        string `gorm:"type:text"`

	AverageRating float64 `gorm:"not null;default:0"`
	CommentCount  int     `gorm:"not null;default:0"`
	Likes         int     `gorm:"not null;default:0"`
	// Version is bumped by every comment mutation; the UPDATE doubles as the
	// per-recipe lock for the rest of the transaction.
	Version int64 `gorm:"not null;default:0"`

	CreatedAt time.Time `gorm:"index;autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (RecipeModel) TableName() string { return "recipes" }

func (m *RecipeModel) Fields() domain.RecipeFields {
	return domain.RecipeFields{
		Title:       m.Title,
		Description: m.Description,
		Ingredients: nonNil(m.Ingredients),
		Steps:       nonNil(m.Steps),
		Category:    m.Category,
		CookTime:    m.CookTime,
		PrepTime:    m.PrepTime,
		Images:      nonNil(m.Images),
		Diet:        m.Diet,
		Cuisine:     m.Cuisine,
		Difficulty:  m.Difficulty,
		Nutrition:   m.Nutrition,
		Tags:        nonNil(m.Tags),
	}
}

func (m *RecipeModel) SetFields(f domain.RecipeFields) {
	m.Title = f.Title
	m.Description = f.Description
	m.Ingredients = f.Ingredients
	m.Steps = f.Steps
	m.Category = f.Category
	m.CookTime = f.CookTime
	m.PrepTime = f.PrepTime
	m.Images = f.Images
	m.Diet = f.Diet
	m.Cuisine = f.Cuisine
	m.Difficulty = f.Difficulty
	m.Nutrition = f.Nutrition
	m.Tags = f.Tags
	m.IngredientsText = strings.ToLower(strings.Join(f.Ingredients, "\n"))
	m.TagsText = ""
	if len(f.Tags) > 0 {
		m.TagsText = "\n" + strings.ToLower(strings.Join(f.Tags, "\n")) + "\n"
	}
}

func (m *RecipeModel) ToDomain() *domain.Recipe {
	return &domain.Recipe{
		ID:            m.ID,
		AuthorID:      m.AuthorID,
		RecipeFields:  m.Fields(),
		AverageRating: m.AverageRating,
		CommentCount:  m.CommentCount,
		Likes:         m.Likes,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

// CommentModel keeps an auto-increment Seq so comments read back in insertion order.
type CommentModel struct {
	Seq       uint64    `gorm:"primaryKey;autoIncrement"`
	ID        string    `gorm:"uniqueIndex;type:varchar(32);not null"`
	RecipeID  string    `gorm:"index;type:varchar(32);not null"`
	AuthorID  string    `gorm:"index;type:varchar(32);not null"`
	Text      string    `gorm:"size:500;not null"`
	Rating    int       `gorm:"not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (CommentModel) TableName() string { return "comments" }

func (m *CommentModel) ToDomain() domain.Comment {
	return domain.Comment{
		ID:        m.ID,
		AuthorID:  m.AuthorID,
		Text:      m.Text,
		Rating:    m.Rating,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

type LikeModel struct {
	RecipeID  string    `gorm:"primaryKey;type:varchar(32)"`
	AccountID string    `gorm:"primaryKey;type:varchar(32)"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (LikeModel) TableName() string { return "recipe_likes" }

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
