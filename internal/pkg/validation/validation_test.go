package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type sampleInput struct {
	Username string  `validate:"required,min=3,max=50"`
	Email    string  `validate:"required,email"`
	Rate     float64 `validate:"required,gt=0"`
}

func TestStruct(t *testing.T) {
	t.Run("valid input", func(t *testing.T) {
		err := Struct(&sampleInput{Username: "alice", Email: "alice@example.com", Rate: 2.5})
		assert.NoError(t, err)
	})

	t.Run("missing field", func(t *testing.T) {
		err := Struct(&sampleInput{Email: "alice@example.com", Rate: 2.5})
		assert.EqualError(t, err, "username is required")
	})

	t.Run("too short", func(t *testing.T) {
		err := Struct(&sampleInput{Username: "al", Email: "alice@example.com", Rate: 2.5})
		assert.EqualError(t, err, "username must be at least 3")
	})

	t.Run("bad email", func(t *testing.T) {
		err := Struct(&sampleInput{Username: "alice", Email: "not-an-email", Rate: 2.5})
		assert.EqualError(t, err, "email must be a valid email address")
	})

	t.Run("non-positive rate", func(t *testing.T) {
		err := Struct(&sampleInput{Username: "alice", Email: "alice@example.com", Rate: -1})
		assert.EqualError(t, err, "rate must be greater than 0")
	})
}
