//go:build sonic

package codec

import (
	"github.com/bytedance/sonic"
)

var (
	jsonMarshal       = sonic.ConfigStd.Marshal
	jsonMarshalIndent = sonic.ConfigStd.MarshalIndent
	jsonUnmarshal     = sonic.ConfigStd.Unmarshal
)
