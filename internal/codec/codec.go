// Package codec is the JSON codec used for persisted documents and HTTP
// bodies. goccy/go-json is the default; build with -tags sonic to switch to
// bytedance/sonic on supported platforms.
package codec

func Marshal(v any) ([]byte, error) {
	return jsonMarshal(v)
}

// MarshalDocument renders v the way registry documents are stored on disk.
func MarshalDocument(v any) ([]byte, error) {
	data, err := jsonMarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

func Unmarshal(data []byte, v any) error {
	return jsonUnmarshal(data, v)
}
