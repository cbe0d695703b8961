package repo

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"gorm.io/gorm"

	"recipebox/internal/feature/account"
	"recipebox/internal/feature/recipe"
)

// Migrate creates or updates every table the API uses.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&account.AccountModel{},
		&account.RefreshTokenModel{},
		&account.SavedRecipeModel{},
		&recipe.RecipeModel{},
		&recipe.CommentModel{},
		&recipe.LikeModel{},
	)
	if err != nil {
		return err
	}
	return backfillSearchText(db)
}

// backfillSearchText fills the filter columns of rows written before they
// existed.
func backfillSearchText(db *gorm.DB) error {
	var rows []recipe.RecipeModel
	return db.Where("ingredients_text = '' OR ingredients_text IS NULL").
		FindInBatches(&rows, 200, func(*gorm.DB, int) error {
			for i := range rows {
				m := &rows[i]
				m.SetFields(m.Fields())
				err := db.Model(&recipe.RecipeModel{ID: m.ID}).UpdateColumns(map[string]any{
					"ingredients_text": m.IngredientsText,
					"tags_text":        m.TagsText,
				}).Error
				if err != nil {
					return err
				}
			}
			return nil
		}).Error
}

func isDupKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// drivers without an error translator
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "unique violation")
}

func notFound(err error) bool { return errors.Is(err, gorm.ErrRecordNotFound) }

func hashToken(tok string) string {
	sum := sha256.Sum256([]byte(tok))
	return hex.EncodeToString(sum[:])
}

// likeEscaper makes user input literal inside a LIKE pattern. Every LIKE
// clause pairs it with ESCAPE '!'.
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// searchTerm lower-cases s and folds line breaks, which separate entries in
// the text columns, into spaces.
func searchTerm(s string) string {
	return strings.ToLower(strings.NewReplacer("\r", " ", "\n", " ").Replace(s))
}

func likePattern(s string) string { return "%" + likeEscaper.Replace(searchTerm(s)) + "%" }

// likeEntry matches s as one whole newline-delimited entry.
func likeEntry(s string) string { return "%\n" + likeEscaper.Replace(searchTerm(s)) + "\n%" }
