package pkg

import (
	"errors"
	"strings"
	"testing"

	"github.com/ansel1/merry"
	"github.com/stretchr/testify/assert"
)

func TestFormatFloat(t *testing.T) {
	for _, x := range []struct {
		v    float64
		prec int
		want string
	}{
		{0.891988, 4, "0.892"},
		{1, 6, "1"},
		{100, 0, "100"},
		{1234.5000, 3, "1234.5"},
		{-0.00001, 3, "-0"},
	} {
		assert.Equal(t, x.want, FormatFloat(x.v, x.prec), "%v %d", x.v, x.prec)
	}
}

func TestFormatMerryStacktrace(t *testing.T) {
	assert.Empty(t, FormatMerryStacktrace(errors.New("plain"), "\n"))
	s := FormatMerryStacktrace(merry.New("with stack"), "\n")
	assert.NotEmpty(t, s)
	assert.True(t, strings.Contains(s, "TestFormatMerryStacktrace"), s)
	assert.False(t, strings.Contains(s, "@v"), s)
}
