package dailypuzzle

import (
	"sort"
	"time"

	"github.com/yourusername/cryptic-api/internal/domain/entity"
)

// DatePolicy определяет, как "сегодня" сопоставляется с датой публикации.
type DatePolicy int

const (
	// UTCDayRange сравнивает дату публикации с полуоткрытым диапазоном
	// [полночь UTC(now), полночь UTC(now)+24ч). Не зависит от часового пояса
	// сервера и от того, какое время суток сохранено в publish_date.
	UTCDayRange DatePolicy = iota
)

// String возвращает имя политики для логов
func (p DatePolicy) String() string {
	switch p {
	case UTCDayRange:
		return "utc_day_range"
	default:
		return "unknown"
	}
}

// DayRange возвращает границы календарного дня [start, end), содержащего now.
// Неизвестные политики обрабатываются как UTCDayRange.
func (p DatePolicy) DayRange(now time.Time) (start, end time.Time) {
	start = entity.TruncateToUTCDay(now)
	return start, start.Add(24 * time.Hour)
}

// Contains проверяет, попадает ли момент t в день, содержащий now.
func (p DatePolicy) Contains(now, t time.Time) bool {
	start, end := p.DayRange(now)
	return !t.Before(start) && t.Before(end)
}

// Candidates возвращает все активные головоломки, опубликованные в день now,
// отсортированные от самой свежей по CreatedAt (при равенстве: по ID).
// Больше одного кандидата означает нарушение инварианта "одна головоломка на дату".
func Candidates(puzzles []entity.Puzzle, now time.Time, policy DatePolicy) []entity.Puzzle {
	matched := make([]entity.Puzzle, 0, 1)
	for _, p := range puzzles {
		if !p.IsActive {
			continue
		}
		if policy.Contains(now, p.PublishDate) {
			matched = append(matched, p)
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})
	return matched
}

// SelectToday выбирает головоломку дня. nil означает "головоломки на сегодня нет",
// это допустимое пустое состояние, а не ошибка.
func SelectToday(puzzles []entity.Puzzle, now time.Time, policy DatePolicy) *entity.Puzzle {
	matched := Candidates(puzzles, now, policy)
	if len(matched) == 0 {
		return nil
	}
	selected := matched[0]
	return &selected
}
