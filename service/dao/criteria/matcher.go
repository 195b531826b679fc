package criteria

import (
	"github.com/viant/simos/service/dao"
)

// FilterByState returns true when state satisfies the "State" parameter, if any
func FilterByState(state string, parameters []*dao.Parameter) bool {
	for _, parameter := range parameters {
		if parameter == nil || parameter.Name != "State" {
			continue
		}
		switch actual := parameter.Value.(type) {
		case string:
			return state == actual
		case []string:
			for _, s := range actual {
				if state == s {
					return true
				}
			}
			return false
		}
	}
	return true
}
