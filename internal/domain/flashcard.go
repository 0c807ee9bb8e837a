package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// CardType classifies what kind of knowledge a flashcard exercises.
type CardType string

// Possible card type values.
const (
	CardTypeConcept     CardType = "concept"
	CardTypeCode        CardType = "code"
	CardTypeDebug       CardType = "debug"
	CardTypeDecision    CardType = "decision"
	CardTypeInterview   CardType = "interview"
	CardTypeComparison  CardType = "comparison"
	CardTypeGotcha      CardType = "gotcha"
	CardTypeMentalModel CardType = "mental_model"
)

// Flashcard-specific validation errors
var (
	ErrCardIDEmpty     = errors.New("card ID cannot be empty")
	ErrCardUserIDEmpty = errors.New("card user ID cannot be empty")
	ErrCardFrontEmpty  = errors.New("card front cannot be empty")
	ErrCardBackEmpty   = errors.New("card back cannot be empty")
	ErrCardTypeInvalid = errors.New("card type is not valid")
)

// Flashcard is an immutable piece of review content. Cards come from manual
// authoring, bulk seeding, or automatically from a failed defense; the
// per-user scheduling state lives in UserFlashcardState.
type Flashcard struct {
	ID        uuid.UUID         `json:"id"`
	UserID    uuid.UUID         `json:"user_id"`
	Front     string            `json:"front"`
	Back      string            `json:"back"`
	Type      CardType          `json:"type"`
	Hint      string            `json:"hint,omitempty"`
	Tags      map[string]string `json:"tags,omitempty"`
	SourceRef string            `json:"source_ref,omitempty"` // e.g. the submission a remediation card came from
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// NewFlashcard creates a new Flashcard with the given content.
// Returns an error if validation fails.
func NewFlashcard(userID uuid.UUID, front, back string, cardType CardType) (*Flashcard, error) {
	now := time.Now().UTC()
	card := &Flashcard{
		ID:        uuid.New(),
		UserID:    userID,
		Front:     front,
		Back:      back,
		Type:      cardType,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := card.Validate(); err != nil {
		return nil, err
	}

	return card, nil
}

// Validate checks if the Flashcard has valid data.
func (c *Flashcard) Validate() error {
	if c.ID == uuid.Nil {
		return ErrCardIDEmpty
	}
	if c.UserID == uuid.Nil {
		return ErrCardUserIDEmpty
	}
	if c.Front == "" {
		return ErrCardFrontEmpty
	}
	if c.Back == "" {
		return ErrCardBackEmpty
	}
	if !isValidCardType(c.Type) {
		return ErrCardTypeInvalid
	}
	return nil
}

func isValidCardType(t CardType) bool {
	switch t {
	case CardTypeConcept, CardTypeCode, CardTypeDebug, CardTypeDecision,
		CardTypeInterview, CardTypeComparison, CardTypeGotcha, CardTypeMentalModel:
		return true
	default:
		return false
	}
}
