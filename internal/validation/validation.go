package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/iudanet/gennotes/internal/models"
)

// UsernamePattern определяет допустимый формат username
// Только латинские буквы (a-z, A-Z), цифры (0-9), нижнее подчеркивание (_)
// Длина: 3-32 символа
var UsernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]{3,32}$`)

const (
	// MinUsernameLen минимальная длина username
	MinUsernameLen = 3
	// MaxUsernameLen максимальная длина username
	MaxUsernameLen = 32
)

// ValidateUsername проверяет, что username соответствует требованиям
// Формат: только латинские буквы (a-z, A-Z), цифры (0-9), нижнее подчеркивание (_)
// Длина: 3-32 символа
func ValidateUsername(username string) error {
	if username == "" {
		return fmt.Errorf("username cannot be empty")
	}

	if len(username) < MinUsernameLen {
		return fmt.Errorf("username must be at least %d characters long", MinUsernameLen)
	}

	if len(username) > MaxUsernameLen {
		return fmt.Errorf("username must not exceed %d characters", MaxUsernameLen)
	}

	if !UsernamePattern.MatchString(username) {
		return fmt.Errorf("username can only contain letters (a-z, A-Z), numbers (0-9), and underscores (_)")
	}

	return nil
}

const (
	// MinPasswordLen минимальная длина пароля
	MinPasswordLen = 8
	// MaxPasswordLen ограничение bcrypt: байты сверх 72 не учитываются
	MaxPasswordLen = 72
	// MaxTitleLen максимальная длина заголовка заметки в символах
	MaxTitleLen = 200
	// MaxTags максимальное число тегов у заметки
	MaxTags = 32
	// MaxTagLen максимальная длина тега в символах
	MaxTagLen = 50
)

// ValidatePassword проверяет требования к паролю учетной записи
func ValidatePassword(password string) error {
	if password == "" {
		return fmt.Errorf("password cannot be empty")
	}

	if len(password) < MinPasswordLen {
		return fmt.Errorf("password must be at least %d characters long", MinPasswordLen)
	}

	if len(password) > MaxPasswordLen {
		return fmt.Errorf("password must not exceed %d bytes", MaxPasswordLen)
	}

	return nil
}

// ValidateTitle проверяет заголовок заметки; пустой заголовок допустим
func ValidateTitle(title string) error {
	if utf8.RuneCountInString(title) > MaxTitleLen {
		return fmt.Errorf("title must not exceed %d characters", MaxTitleLen)
	}
	return nil
}

// ValidateTags проверяет список тегов заметки
func ValidateTags(tags []string) error {
	if len(tags) > MaxTags {
		return fmt.Errorf("note can have at most %d tags", MaxTags)
	}

	seen := make(map[string]bool, len(tags))
	for _, tag := range tags {
		if strings.TrimSpace(tag) == "" {
			return fmt.Errorf("tag cannot be empty")
		}
		if utf8.RuneCountInString(tag) > MaxTagLen {
			return fmt.Errorf("tag %q must not exceed %d characters", tag, MaxTagLen)
		}
		if seen[tag] {
			return fmt.Errorf("duplicate tag %q", tag)
		}
		seen[tag] = true
	}

	return nil
}

// ValidatePatch проверяет заданные поля изменения заметки
func ValidatePatch(patch *models.NotePatch) error {
	if patch == nil {
		return nil
	}
	if patch.Title != nil {
		if err := ValidateTitle(*patch.Title); err != nil {
			return err
		}
	}
	if patch.Tags != nil {
		if err := ValidateTags(*patch.Tags); err != nil {
			return err
		}
	}
	return nil
}
