// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import "encoding/json"

// wireEvent is the JSON shape of one stream line.
type wireEvent struct {
	Type    string `json:"type"`
	ChatID  string `json:"chatId,omitempty"`
	Data    string `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

// Encode renders an event as a single newline-terminated line.
// Raw events are written verbatim.
func Encode(ev Event) ([]byte, error) {
	if ev.Kind == KindRaw {
		return []byte(ev.Text + "\n"), nil
	}

	w := wireEvent{Type: ev.Kind.String()}
	switch ev.Kind {
	case KindMetadata, KindComplete:
		w.ChatID = ev.ConversationID
	case KindContent:
		w.Data = ev.Text
	case KindError:
		w.Message = ev.Message
	}

	data, err := json.Marshal(w)
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
