// Package fingerprint derives the cache key for a model and its run
// arguments. The key is a pure function of the model's byte content and the
// result-affecting arguments: same content and arguments always produce the
// same digest, regardless of argument insertion order.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/louisleroy5/eplusrun/internal/idf"
)

// noImpact lists run arguments that never change simulation results and are
// therefore excluded from the digest: toggling them must not split the
// cache.
var noImpact = map[string]bool{
	"keep_data":     true,
	"keep_data_err": true,
	"return_idf":    true,
	"return_files":  true,
}

// Compute hashes src's content together with the result-affecting subset of
// args and returns the hex digest.
func Compute(src idf.Source, args map[string]any) (string, error) {
	content, err := src.Content()
	if err != nil {
		return "", fmt.Errorf("fingerprinting %s: %w", src.Name(), err)
	}

	h := sha256.New()
	h.Write(content)
	h.Write([]byte(canonicalize(args)))
	return hex.EncodeToString(h.Sum(nil)), nil
}

// canonicalize serializes args with sorted keys, dropping no-impact keys,
// so the serialization is stable under map iteration order.
func canonicalize(args map[string]any) string {
	keys := make([]string, 0, len(args))
	for k := range args {
		if noImpact[k] {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&sb, "%s=%v;", k, args[k])
	}
	return sb.String()
}
