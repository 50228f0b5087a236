package meal

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var ErrNotFound = errors.New("meal not found")

type Type string

const (
	TypeBreakfast      Type = "Breakfast"
	TypeLunch          Type = "Lunch"
	TypeAfternoonSnack Type = "Afternoon Snack"
	TypeDinner         Type = "Dinner"
)

// ValidType reports whether t is one of the four meal types.
func ValidType(t Type) bool {
	switch t {
	case TypeBreakfast, TypeLunch, TypeAfternoonSnack, TypeDinner:
		return true
	}
	return false
}

type Meal struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID      string             `bson:"userId" json:"userId"`
	Name        string             `bson:"name" json:"name"`
	Description string             `bson:"description" json:"description"`
	Calories    int                `bson:"calories" json:"calories"`
	DateTime    time.Time          `bson:"dateTime" json:"dateTime"`
	Type        Type               `bson:"type" json:"type"`
	IsFavorite  bool               `bson:"isFavorite" json:"isFavorite"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// WriteRequest is the body for both create and update. Description is the
// only optional field.
type WriteRequest struct {
	Name        string    `json:"name" binding:"required"`
	Description string    `json:"description"`
	Calories    int       `json:"calories" binding:"required,gt=0"`
	DateTime    time.Time `json:"dateTime" binding:"required"`
	Type        Type      `json:"type" binding:"required,oneof='Breakfast' 'Lunch' 'Afternoon Snack' 'Dinner'"`
}

// ListFilter narrows a user's meals. Date is a calendar day ("2006-01-02")
// interpreted in Loc; Type is an exact match. Both optional, combined with
// AND.
type ListFilter struct {
	Date *string
	Type *Type
	Loc  *time.Location
}

func New(userID string, req WriteRequest, now time.Time) Meal {
	return Meal{
		UserID:      userID,
		Name:        req.Name,
		Description: req.Description,
		Calories:    req.Calories,
		DateTime:    req.DateTime.UTC(),
		Type:        req.Type,
		IsFavorite:  false,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
