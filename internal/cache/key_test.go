package cache

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveKeyDeterministic(t *testing.T) {
	k1 := DeriveKey("searchd", "docs", 3, "how do I configure auth")
	k2 := DeriveKey("searchd", "docs", 3, "how do I configure auth")
	assert.Equal(t, k1, k2)
}

func TestDeriveKeyFormat(t *testing.T) {
	key := DeriveKey("searchd", "docs", 7, "query text")

	parts := strings.Split(key, ":")
	assert.Len(t, parts, 5)
	assert.Equal(t, "searchd", parts[0])
	assert.Equal(t, "docs", parts[1])
	assert.Equal(t, "v7", parts[2])
	assert.Equal(t, "search", parts[3])
	assert.Len(t, parts[4], 16, "query hash is a fixed-length hex digest")
}

func TestDeriveKeyDivergence(t *testing.T) {
	base := DeriveKey("searchd", "docs", 1, "query")

	assert.NotEqual(t, base, DeriveKey("searchd", "docs", 2, "query"), "version change must change the key")
	assert.NotEqual(t, base, DeriveKey("searchd", "docs", 1, "other query"), "query change must change the key")
	assert.NotEqual(t, base, DeriveKey("searchd", "other", 1, "query"), "project change must change the key")
}

func TestDeriveKeyDefaultNamespace(t *testing.T) {
	key := DeriveKey("", "docs", 1, "q")
	assert.True(t, strings.HasPrefix(key, DefaultNamespace+":"))
}

func TestProjectPatternMatchesDerivedKeys(t *testing.T) {
	key := DeriveKey("searchd", "docs", 4, "q")
	pattern := ProjectPattern("searchd", "docs")

	prefix := strings.TrimSuffix(pattern, "*")
	assert.True(t, strings.HasPrefix(key, prefix), "derived keys must share the invalidation prefix")
}
