package entity

import (
	"time"
)

// Границы сложности головоломки
const (
	MinDifficulty     = 1
	MaxDifficulty     = 5
	DefaultDifficulty = 1
)

// Puzzle представляет одну ежедневную криптическую подсказку с каноническим ответом
type Puzzle struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Clue        string     `gorm:"type:text;not null" json:"clue"`
	Answer      string     `gorm:"size:255;not null" json:"-"`
	Explanation string     `gorm:"type:text;not null;default:''" json:"explanation,omitempty"`
	Difficulty  int        `gorm:"not null;default:1" json:"difficulty"`
	PublishDate time.Time  `gorm:"not null;uniqueIndex:idx_puzzles_publish_date" json:"publish_date"`
	IsActive    bool       `gorm:"not null;default:true;index" json:"is_active"`
	Solutions   []Solution `gorm:"foreignKey:PuzzleID;constraint:OnDelete:RESTRICT" json:"-"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (Puzzle) TableName() string {
	return "puzzles"
}

// IsValidDifficulty проверяет, что сложность лежит в диапазоне 1–5
func IsValidDifficulty(difficulty int) bool {
	return difficulty >= MinDifficulty && difficulty <= MaxDifficulty
}

// PublishDay возвращает дату публикации как календарный день в UTC (полночь).
func (p *Puzzle) PublishDay() time.Time {
	return TruncateToUTCDay(p.PublishDate)
}

// TruncateToUTCDay отбрасывает время суток, оставляя полночь того же дня по UTC
func TruncateToUTCDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
