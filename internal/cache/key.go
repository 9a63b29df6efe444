package cache

import (
	"bytes"
	"encoding/json"
)

// Param is one key/value of a cache key.
type Param struct {
	Key   string
	Value any
}

// P is shorthand for Param{k, v}.
func P(k string, v any) Param { return Param{Key: k, Value: v} }

// Key renders "<prefix>:<json object>" with the params in the order given,
// so logically identical requests built the same way collide.
func Key(prefix string, params ...Param) string {
	var b bytes.Buffer
	b.WriteString(prefix)
	b.WriteString(":{")
	for i, p := range params {
		if i > 0 {
			b.WriteByte(',')
		}
		k, _ := json.Marshal(p.Key)
		v, err := json.Marshal(p.Value)
		if err != nil {
			v = []byte("null")
		}
		b.Write(k)
		b.WriteByte(':')
		b.Write(v)
	}
	b.WriteByte('}')
	return b.String()
}
