package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMintVersion(t *testing.T) {
	now := time.Date(2024, 6, 15, 10, 30, 45, 0, time.UTC)

	assert.Equal(t, "20240615103045", MintVersion(now, ""))
	assert.Equal(t, "20240615103045", MintVersion(now, "20240615103044"))
}

func TestMintVersion_BumpsPastPrevious(t *testing.T) {
	now := time.Date(2024, 6, 15, 10, 30, 45, 0, time.UTC)

	// Same-second save collides with the previous version and gets bumped.
	v := MintVersion(now, "20240615103045")
	assert.Equal(t, "20240615103046", v)
	assert.Greater(t, v, "20240615103045")

	// Previous version minted later than the clock still loses.
	v = MintVersion(now, "20240615103050")
	assert.Greater(t, v, "20240615103050")
}
