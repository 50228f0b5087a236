package goal

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DefaultCalories is returned when a user has no goal stored for a date.
// It is a fallback, never persisted.
const DefaultCalories = 2000

// DailyGoal is one calorie target per (user, calendar day). Date is the
// plain "2006-01-02" string the client filters by.
type DailyGoal struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	UserID    string             `bson:"userId" json:"userId"`
	Date      string             `bson:"date" json:"date"`
	Calories  int                `bson:"calories" json:"calories"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Default is the fallback goal for a date with nothing stored.
func Default(userID, date string) DailyGoal {
	return DailyGoal{
		UserID:   userID,
		Date:     date,
		Calories: DefaultCalories,
	}
}
