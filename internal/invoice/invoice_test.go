package invoice

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNumber_Format(t *testing.T) {
	issued := time.Date(2026, 3, 3, 0, 30, 0, 0, time.FixedZone("CET", 3600))

	num, err := Number(issued)
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^RECHNUNG-\d{8}-[A-Z0-9]{6}$`), num)
	// The date part is the UTC date, not the local one.
	assert.True(t, strings.HasPrefix(num, "RECHNUNG-20260302-"), "got %s", num)
}

func TestNumber_SuffixVaries(t *testing.T) {
	issued := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		num, err := Number(issued)
		require.NoError(t, err)
		seen[num] = true
	}
	// 36^6 possible suffixes; 200 draws colliding down to a handful
	// would mean the generator is broken.
	assert.Greater(t, len(seen), 190)
}
