package gather

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDateRange(t *testing.T) {
	r, err := ParseDateRange("2020-01-01", "2024-12-31")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), r.Start)
	assert.Equal(t, time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC), r.End)
	assert.False(t, r.OpenEnded())
	assert.Equal(t, "2020-01-01..2024-12-31", r.String())

	open, err := ParseDateRange("2020-01-01", "")
	require.NoError(t, err)
	assert.True(t, open.OpenEnded())
	assert.Equal(t, "2020-01-01..latest", open.String())
}

func TestParseDateRange_Errors(t *testing.T) {
	_, err := ParseDateRange("01/01/2020", "")
	assert.Error(t, err)

	_, err = ParseDateRange("2020-01-01", "2020-13-01")
	assert.Error(t, err)

	_, err = ParseDateRange("2024-01-01", "2020-01-01")
	assert.Error(t, err)

	assert.Error(t, DateRange{}.Validate())
}
