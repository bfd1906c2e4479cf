package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// DefaultNamespace is the key prefix shared by every cache entry searchd owns.
const DefaultNamespace = "searchd"

// DeriveKey builds the cache key for a search query:
//
//	{namespace}:{projectID}:v{corpusVersion}:search:{queryHash}
//
// The key is deterministic for a given triple, and the corpus version is part
// of the key so a version bump makes every older entry unreachable. All
// entries for one tenant share the "{namespace}:{projectID}:" prefix, which
// ProjectPattern exploits for bulk invalidation. The exact shape is
// load-bearing; changing it orphans existing entries.
func DeriveKey(namespace, projectID string, corpusVersion int, query string) string {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	sum := sha256.Sum256([]byte(query))
	queryHash := hex.EncodeToString(sum[:])[:16]
	return fmt.Sprintf("%s:%s:v%d:search:%s", namespace, projectID, corpusVersion, queryHash)
}

// ProjectPattern returns the wildcard pattern matching every cache entry for
// the given project identifier, across all corpus versions.
func ProjectPattern(namespace, projectID string) string {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return fmt.Sprintf("%s:%s:*", namespace, projectID)
}
