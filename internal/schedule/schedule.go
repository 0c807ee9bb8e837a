// Package schedule generates the fixed spaced-review schedule created when
// a learner first passes a lesson.
package schedule

import (
	"time"

	"github.com/google/uuid"

	"github.com/praxislabs/mastery-api/internal/domain"
)

// DefaultOffsetDays is the platform default review schedule, in days after
// the first pass.
var DefaultOffsetDays = []int{1, 3, 7, 16, 35}

// Generate returns one ReviewItem per offset, due offsetDays after passTime.
// Lessons may configure their own offsets; an empty or invalid list falls
// back to DefaultOffsetDays rather than producing zero reviews.
func Generate(
	userID, lessonID uuid.UUID,
	passTime time.Time,
	offsetDays []int,
) ([]*domain.ReviewItem, error) {
	offsets := sanitize(offsetDays)

	items := make([]*domain.ReviewItem, 0, len(offsets))
	for _, days := range offsets {
		item, err := domain.NewReviewItem(userID, lessonID, passTime.AddDate(0, 0, days))
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	return items, nil
}

// sanitize returns the configured offsets if every entry is positive,
// otherwise the platform default.
func sanitize(offsetDays []int) []int {
	if len(offsetDays) == 0 {
		return DefaultOffsetDays
	}
	for _, d := range offsetDays {
		if d <= 0 {
			return DefaultOffsetDays
		}
	}
	return offsetDays
}
