package cmn

import jsoniter "github.com/json-iterator/go"

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// MustMarshal panics on failure; used only for values whose shape is known
// at compile time (mirrors dbdriver/bunt.go's call site, which assumed this
// helper existed in cmn).
func MustMarshal(v interface{}) []byte {
	b, err := jsonAPI.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

func Unmarshal(data []byte, v interface{}) error {
	return jsonAPI.Unmarshal(data, v)
}

func UnmarshalString(s string, v interface{}) error {
	return jsonAPI.UnmarshalFromString(s, v)
}
