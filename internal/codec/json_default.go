//go:build !sonic

package codec

import (
	"github.com/goccy/go-json"
)

var (
	jsonMarshal       = json.Marshal
	jsonMarshalIndent = json.MarshalIndent
	jsonUnmarshal     = json.Unmarshal
)
