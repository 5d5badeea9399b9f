package recommend

import (
	"fmt"
	"math"

	"github.com/go-playground/validator/v10"
)

// Weights combines the sub-scores into the aggregate. LikedBonus is added as is,
// it is not blended.
type Weights struct {
	Skills       float64 `json:"skills" mapstructure:"skills" validate:"finite,gte=0"`
	Experience   float64 `json:"experience" mapstructure:"experience" validate:"finite,gte=0"`
	Location     float64 `json:"location" mapstructure:"location" validate:"finite,gte=0"`
	Salary       float64 `json:"salary" mapstructure:"salary" validate:"finite,gte=0"`
	NoticePeriod float64 `json:"notice_period" mapstructure:"notice-period" validate:"finite,gte=0"`
	LikedBonus   float64 `json:"liked_bonus" mapstructure:"liked-bonus" validate:"finite,gte=0"`
	TopN         int     `json:"top_n" mapstructure:"top-n" validate:"gte=0"`
}

// DefaultWeights favors skills heavily; they are the weights the service ships with.
func DefaultWeights() Weights {
	return Weights{
		Skills:       0.75,
		Experience:   0.1,
		Location:     0.03,
		Salary:       0.05,
		NoticePeriod: 0.02,
		LikedBonus:   0.05,
		TopN:         5,
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("finite", isFinite); err != nil {
		panic(err)
	}
	return v
}

func isFinite(fl validator.FieldLevel) bool {
	f := fl.Field().Float()
	return !math.IsInf(f, 0) && !math.IsNaN(f)
}

// Validate rejects negative or non-finite weights and a negative TopN.
func (w Weights) Validate() error {
	if err := validate.Struct(w); err != nil {
		return fmt.Errorf("invalid weights: %w", err)
	}
	return nil
}
