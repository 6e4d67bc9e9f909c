package logging

import "maps"

// cloneFields copies the source fields map so child loggers never share
// mutable state with their parent. Always returns a usable map.
func cloneFields(src map[string]interface{}) map[string]interface{} {
	if len(src) == 0 {
		return make(map[string]interface{})
	}
	return maps.Clone(src)
}
