package calcerr

import (
	"errors"
	"net/http"
	"testing"

	"github.com/ansel1/merry"
	"github.com/stretchr/testify/assert"
)

func TestInvalidField(t *testing.T) {
	err := InvalidField("manual_z", "must be in (0, 2), got %v", 2.0)
	assert.True(t, Is(err, ErrInvalidInput))
	assert.False(t, Is(err, ErrCompositionInvalid))
	assert.Equal(t, "manual_z", Field(err))
	assert.Equal(t, "invalid_input", Kind(err))
	assert.Equal(t, "manual_z: must be in (0, 2), got 2", Message(err))
	assert.Equal(t, http.StatusBadRequest, merry.HTTPCode(err))
}

func TestKindSurvivesAppend(t *testing.T) {
	err := merry.Append(CompositionInvalid("no recognized species"), "standardize")
	assert.True(t, Is(err, ErrCompositionInvalid))
	assert.Equal(t, "composition", Field(err))
	assert.Equal(t, "composition_invalid", Kind(err))
}

func TestKindOfForeignError(t *testing.T) {
	err := errors.New("boom")
	assert.Equal(t, "internal", Kind(err))
	assert.Equal(t, "", Field(err))
	assert.Equal(t, "boom", Message(err))
	assert.Equal(t, "", Kind(nil))
}
