// Package normalize resolves a requested page title to the canonical
// form the wiki API actually answered under. The API may rewrite a
// title twice (percent-decoding/NFC first, then byte-form case
// normalization) and the result may additionally be a redirect source;
// records in the response body are keyed by the most-resolved form.
package normalize

import "strings"

// Normalization is one entry of the API's "normalized" metadata.
type Normalization struct {
	From        string `json:"from"`
	To          string `json:"to"`
	FromEncoded bool   `json:"fromencoded"`
}

// Redirect is one entry of the API's "redirects" metadata.
type Redirect struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Record captures the resolution chain for one requested title.
// Normalized and Target are empty when the API did not rewrite or
// redirect the title.
type Record struct {
	Original   string
	Normalized string
	Target     string
}

// Resolved returns the key under which the API reports this title's
// record: the redirect target if any, else the normalized form, else
// the original title.
func (r Record) Resolved() string {
	if r.Target != "" {
		return r.Target
	}
	if r.Normalized != "" {
		return r.Normalized
	}
	return r.Original
}

// Resolve computes the normalization chain for original from one
// response page's metadata. Encoding normalization applies first: an
// entry flagged fromencoded matches when its from equals the
// percent-encoded original. Plain normalization applies next to the
// possibly updated value, first match wins. Redirect lookup then uses
// the normalized form. Resolve is pure; it depends only on its inputs.
func Resolve(original string, norms []Normalization, redirs []Redirect) Record {
	current := original
	for _, n := range norms {
		if n.FromEncoded && n.From == percentEncode(current) {
			current = n.To
		}
		if n.From == current {
			current = n.To
			break
		}
	}

	rec := Record{Original: original}
	if current != original {
		rec.Normalized = current
	}

	for _, r := range redirs {
		if r.From == current {
			rec.Target = r.To
			break
		}
	}

	return rec
}

// percentEncode encodes s the way the API encodes titles when
// reporting fromencoded normalizations: every byte outside the
// unreserved set is percent-encoded, "/" excluded.
func percentEncode(s string) string {
	const hex = "0123456789ABCDEF"

	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z' || c >= '0' && c <= '9' ||
			c == '-' || c == '.' || c == '_' || c == '~' || c == '/' {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0xf])
	}
	return b.String()
}
