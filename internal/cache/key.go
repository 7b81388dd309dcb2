package cache

import (
	"fmt"

	"github.com/goccy/go-json"
)

// GenerateKey builds the cache key "prefix:JSON(params)". Struct fields
// serialize in declaration order and map keys sorted, so equal params
// always produce equal keys.
func GenerateKey(prefix string, params any) string {
	data, err := json.Marshal(params)
	if err != nil {
		return fmt.Sprintf("%s:%v", prefix, params)
	}
	return prefix + ":" + string(data)
}
