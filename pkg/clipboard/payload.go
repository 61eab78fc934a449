package clipboard

import (
	"strings"

	"github.com/tidwall/gjson"
)

// Marker prefixes every clipboard payload; it is kept byte-for-byte for
// interoperability with other editors using the same format.
const Marker = "MikuMikuWorld clipboard\n"

// EncodePayload returns the clipboard text for doc
func EncodePayload(doc string) string {
	return Marker + doc
}

// DecodePayload extracts the document from clipboard text.
// ok is false when the marker is missing, the document is not valid JSON,
// or it has neither notes nor holds.
func DecodePayload(text string) (doc string, ok bool) {
	if !strings.HasPrefix(text, Marker) {
		return "", false
	}
	doc = text[len(Marker):]
	if !gjson.Valid(doc) {
		return "", false
	}
	if !hasEntries(doc, "notes") && !hasEntries(doc, "holds") {
		return "", false
	}
	return doc, true
}

func hasEntries(doc, key string) bool {
	r := gjson.Get(doc, key)
	return r.IsArray() && len(r.Array()) > 0
}
