package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsValidDifficulty(t *testing.T) {
	for d := MinDifficulty; d <= MaxDifficulty; d++ {
		assert.True(t, IsValidDifficulty(d), "Сложность %d должна быть валидной", d)
	}
	assert.False(t, IsValidDifficulty(0))
	assert.False(t, IsValidDifficulty(6))
	assert.False(t, IsValidDifficulty(-1))
}

func TestTruncateToUTCDay(t *testing.T) {
	almaty := time.FixedZone("UTC+5", 5*60*60)

	tests := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{
			name: "UTC noon",
			in:   time.Date(2025, 12, 26, 12, 0, 0, 0, time.UTC),
			want: time.Date(2025, 12, 26, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "local midnight east of UTC falls on the previous UTC day",
			in:   time.Date(2025, 12, 26, 0, 0, 0, 0, almaty),
			want: time.Date(2025, 12, 25, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "already midnight",
			in:   time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			want: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.want.Equal(TruncateToUTCDay(tt.in)))
		})
	}
}

func TestPuzzle_PublishDay(t *testing.T) {
	p := &Puzzle{PublishDate: time.Date(2025, 12, 25, 23, 59, 59, 0, time.UTC)}
	assert.Equal(t, time.Date(2025, 12, 25, 0, 0, 0, 0, time.UTC), p.PublishDay())
}

func TestTableNames(t *testing.T) {
	assert.Equal(t, "puzzles", Puzzle{}.TableName())
	assert.Equal(t, "solutions", Solution{}.TableName())
	assert.Equal(t, "users", User{}.TableName())
}
