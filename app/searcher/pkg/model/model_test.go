package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruncateChars(t *testing.T) {
	assert.Equal(t, "hel", TruncateChars("hello", 3))
	assert.Equal(t, "hello", TruncateChars("hello", 5))
	assert.Equal(t, "hello", TruncateChars("hello", 0))
	assert.Equal(t, "你好", TruncateChars("你好世界", 2))
	assert.Equal(t, "", TruncateChars("", 4))
}

func TestFetched(t *testing.T) {
	var o *FetchOutcome
	assert.False(t, o.Fetched())
	assert.True(t, (&FetchOutcome{Status: FetchStatusFetched}).Fetched())
	assert.False(t, (&FetchOutcome{Status: FetchStatusSkipped}).Fetched())
}
