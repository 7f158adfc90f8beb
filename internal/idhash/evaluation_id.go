// Package idhash derives deterministic record ids.
package idhash

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"strings"

	"github.com/mr-tron/base58"
)

// ComputeEvaluationID computes a deterministic evaluation_id using SHA256.
// Formula: SHA256(operation|k1=v1|k2=v2|...|as_of), args sorted by key.
// Returns the base58-encoded hash.
func ComputeEvaluationID(operation string, args map[string]string, asOf int64) string {
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(operation)
	for _, k := range keys {
		fmt.Fprintf(&b, "|%s=%s", k, args[k])
	}
	fmt.Fprintf(&b, "|%d", asOf)

	return encode(b.String())
}

func encode(data string) string {
	hash := sha256.Sum256([]byte(data))
	return base58.Encode(hash[:])
}
