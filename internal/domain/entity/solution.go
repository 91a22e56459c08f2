package entity

import (
	"time"
)

// Solution представляет отправленный пользователем ответ на головоломку.
// На пару (user_id, puzzle_id) допускается не более одной записи,
// это гарантирует уникальный индекс idx_solutions_user_puzzle.
type Solution struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"not null;index;uniqueIndex:idx_solutions_user_puzzle" json:"user_id"`
	PuzzleID   uint      `gorm:"not null;index;uniqueIndex:idx_solutions_user_puzzle" json:"puzzle_id"`
	UserAnswer string    `gorm:"size:255;not null" json:"user_answer"`
	IsCorrect  bool      `gorm:"not null" json:"is_correct"`
	TimeSpent  int       `gorm:"not null;default:0" json:"time_spent"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName определяет имя таблицы для GORM
func (Solution) TableName() string {
	return "solutions"
}
