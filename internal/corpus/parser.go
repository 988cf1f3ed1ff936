package corpus

import (
	"fmt"
	"strings"
)

type CredentialRef struct {
	Raw   string
	Label string
	Key   string
}

// ParseCredentialList reads "label:key|label2:key2". An entry without a label
// gets a positional one.
func ParseCredentialList(raw string) []CredentialRef {
	parts := strings.Split(raw, "|")
	out := make([]CredentialRef, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		ref := CredentialRef{Raw: p}
		if strings.Contains(p, ":") {
			x := strings.SplitN(p, ":", 2)
			ref.Label = strings.TrimSpace(x[0])
			ref.Key = strings.TrimSpace(x[1])
		} else {
			ref.Key = p
		}
		if ref.Key == "" {
			continue
		}
		if ref.Label == "" {
			ref.Label = fmt.Sprintf("key-%d", len(out)+1)
		}
		out = append(out, ref)
	}
	return out
}
