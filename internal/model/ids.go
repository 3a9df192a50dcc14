package model

import (
	"strconv"

	"github.com/google/uuid"
)

// idNamespace scopes the generated ids.
var idNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://flowc.dev/ids"))

// AssignIDs gives every flow and slice without an id a UUIDv5 derived from
// its name, so repeated runs assign the same ids. Slice ids are derived from
// the flow id, the slice type, its name and its position among slices with
// the same type and name. It returns the number of ids assigned.
func AssignIDs(m *Model) int {
	assigned := 0
	for fi := range m.Flows {
		flow := &m.Flows[fi]
		if flow.ID == "" {
			flow.ID = uuid.NewSHA1(idNamespace, []byte("flow:"+flow.Name)).String()
			assigned++
		}
		flowNS, err := uuid.Parse(flow.ID)
		if err != nil {
			flowNS = uuid.NewSHA1(idNamespace, []byte("flow:"+flow.ID))
		}
		seen := make(map[string]int)
		for si := range flow.Slices {
			slice := &flow.Slices[si]
			key := string(slice.Type) + ":" + slice.Name
			n := seen[key]
			seen[key]++
			if slice.ID != "" {
				continue
			}
			name := key
			if n > 0 {
				name = key + "#" + strconv.Itoa(n)
			}
			slice.ID = uuid.NewSHA1(flowNS, []byte(name)).String()
			assigned++
		}
	}
	return assigned
}
