// TimerBridge - DDR Duration to Graphics Timer Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/timerbridge

package tricaster

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// node is a schema-less XML element. Dictionary layouts differ between
// TriCaster models, so responses are decoded into a tree and searched.
type node struct {
	XMLName xml.Name
	Attrs   []xml.Attr `xml:",any,attr"`
	Nodes   []node     `xml:",any"`
}

func parseDocument(body []byte) (*node, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, fmt.Errorf("empty response body")
	}
	var root node
	if err := xml.Unmarshal(body, &root); err != nil {
		return nil, fmt.Errorf("malformed XML: %w", err)
	}
	return &root, nil
}

func (n *node) attr(names ...string) string {
	for _, name := range names {
		for _, a := range n.Attrs {
			if a.Name.Local == name && a.Value != "" {
				return a.Value
			}
		}
	}
	return ""
}

// walk visits n and its descendants depth-first until fn returns false.
func (n *node) walk(fn func(*node) bool) bool {
	if !fn(n) {
		return false
	}
	for i := range n.Nodes {
		if !n.Nodes[i].walk(fn) {
			return false
		}
	}
	return true
}

// findDDR locates a channel as <ddr index="N"> or, failing that, <ddrN>.
func (n *node) findDDR(channel int) *node {
	idx := strconv.Itoa(channel)
	var found *node
	n.walk(func(el *node) bool {
		if el.XMLName.Local == "ddr" && el.attr("index") == idx {
			found = el
			return false
		}
		return true
	})
	if found != nil {
		return found
	}

	tag := "ddr" + idx
	n.walk(func(el *node) bool {
		if el.XMLName.Local == tag {
			found = el
			return false
		}
		return true
	})
	return found
}

// DDRInfo is the raw clip metadata reported for one DDR.
type DDRInfo struct {
	Duration  string `json:"duration"`
	Elapsed   string `json:"elapsed"`
	Remaining string `json:"remaining"`
	FrameRate string `json:"framerate"`
	Playing   bool   `json:"playing"`
	Filename  string `json:"filename"`
}

func ddrInfoFrom(el *node) DDRInfo {
	return DDRInfo{
		Duration:  el.attr("file_duration", "duration"),
		Elapsed:   el.attr("clip_seconds_elapsed"),
		Remaining: el.attr("clip_seconds_remaining"),
		FrameRate: el.attr("clip_framerate"),
		Playing:   el.attr("playing") == "true",
		Filename:  el.attr("filename", "clip_name"),
	}
}

// Tally lists the sources currently on program and preview.
type Tally struct {
	Program []string `json:"program"`
	Preview []string `json:"preview"`
}

func tallyFrom(root *node) Tally {
	t := Tally{Program: []string{}, Preview: []string{}}
	root.walk(func(el *node) bool {
		name := el.attr("name")
		if name == "" {
			name = el.XMLName.Local
		}
		if el.attr("on_pgm") == "true" || el.attr("program") == "true" {
			t.Program = append(t.Program, name)
		}
		if el.attr("on_pvw") == "true" || el.attr("preview") == "true" {
			t.Preview = append(t.Preview, name)
		}
		return true
	})
	return t
}

// shortcutXML renders <shortcut name='x'><entry key='k' value='v'/></shortcut>
// with entries in key order.
func shortcutXML(name string, params map[string]string) string {
	var sb strings.Builder
	sb.WriteString("<shortcut name='")
	escapeAttr(&sb, name)
	sb.WriteString("'>")

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		sb.WriteString("<entry key='")
		escapeAttr(&sb, k)
		sb.WriteString("' value='")
		escapeAttr(&sb, params[k])
		sb.WriteString("'/>")
	}

	sb.WriteString("</shortcut>")
	return sb.String()
}

func escapeAttr(sb *strings.Builder, s string) {
	// EscapeText only fails when the writer does; strings.Builder never does.
	_ = xml.EscapeText(sb, []byte(s))
}
