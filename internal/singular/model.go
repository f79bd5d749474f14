// TimerBridge - DDR Duration to Graphics Timer Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/timerbridge

package singular

import (
	"sort"
	"strings"
)

// Composition is one top-level entry of a control app model.
type Composition struct {
	ID              string           `json:"id"`
	Name            string           `json:"name,omitempty"`
	Model           []ModelNode      `json:"model,omitempty"`
	Subcompositions []Subcomposition `json:"subcompositions,omitempty"`
}

// Subcomposition groups the fields addressed by one subCompositionId.
type Subcomposition struct {
	ID    string      `json:"id"`
	Name  string      `json:"name,omitempty"`
	Model []ModelNode `json:"model,omitempty"`
}

// ModelNode describes a single control field.
type ModelNode struct {
	ID    string `json:"id"`
	Title string `json:"title,omitempty"`
	Name  string `json:"name,omitempty"`
	Type  string `json:"type,omitempty"`
}

// Field is a control field as listed for operators.
type Field struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Subcomposition string `json:"subcomposition"`
	Type           string `json:"type"`
}

// FieldUpdate sets one field to a value.
type FieldUpdate struct {
	FieldID string
	Value   any
}

// controlItem is one entry of a control PATCH body.
type controlItem struct {
	SubCompositionID string         `json:"subCompositionId"`
	Payload          map[string]any `json:"payload"`
}

// fieldMap resolves the subcomposition that owns each requested field.
// Subcomposition nodes take precedence over top-level nodes.
func fieldMap(comps []Composition, fieldIDs []string) map[string]string {
	needed := make(map[string]struct{}, len(fieldIDs))
	for _, id := range fieldIDs {
		needed[id] = struct{}{}
	}

	mapping := make(map[string]string, len(fieldIDs))
	for _, comp := range comps {
		for _, n := range comp.Model {
			if _, ok := needed[n.ID]; ok {
				mapping[n.ID] = comp.ID
			}
		}
		for _, sub := range comp.Subcompositions {
			for _, n := range sub.Model {
				if _, ok := needed[n.ID]; ok {
					mapping[n.ID] = sub.ID
				}
			}
		}
	}
	return mapping
}

// groupUpdates builds the PATCH body, one item per subcomposition in the
// order each subcomposition is first referenced.
func groupUpdates(updates []FieldUpdate, mapping map[string]string) []controlItem {
	index := make(map[string]int)
	items := make([]controlItem, 0, len(updates))
	for _, u := range updates {
		sub := mapping[u.FieldID]
		i, ok := index[sub]
		if !ok {
			i = len(items)
			index[sub] = i
			items = append(items, controlItem{SubCompositionID: sub, Payload: map[string]any{}})
		}
		items[i].Payload[u.FieldID] = u.Value
	}
	return items
}

// listFields flattens a model, sorted by subcomposition then name.
func listFields(comps []Composition) []Field {
	fields := []Field{}
	add := func(owner string, n ModelNode) {
		if n.ID == "" {
			return
		}
		name := n.Title
		if name == "" {
			name = n.Name
		}
		if name == "" {
			name = n.ID
		}
		typ := n.Type
		if typ == "" {
			typ = "unknown"
		}
		fields = append(fields, Field{ID: n.ID, Name: name, Subcomposition: owner, Type: typ})
	}

	for _, comp := range comps {
		owner := firstNonEmpty(comp.Name, comp.ID)
		for _, n := range comp.Model {
			add(owner, n)
		}
		for _, sub := range comp.Subcompositions {
			subOwner := firstNonEmpty(sub.Name, sub.ID)
			for _, n := range sub.Model {
				add(subOwner, n)
			}
		}
	}

	sort.SliceStable(fields, func(i, j int) bool {
		if fields[i].Subcomposition != fields[j].Subcomposition {
			return fields[i].Subcomposition < fields[j].Subcomposition
		}
		return fields[i].Name < fields[j].Name
	})
	return fields
}

// fieldMapKey keys the cache by token and sorted field ids.
func fieldMapKey(token string, fieldIDs []string) string {
	ids := append([]string(nil), fieldIDs...)
	sort.Strings(ids)
	return token + ":" + strings.Join(ids, ",")
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
