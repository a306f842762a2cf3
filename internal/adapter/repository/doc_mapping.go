package repository

import (
	"time"

	"chatsync/internal/adapter/docstore"
	"chatsync/internal/domain/entity"
)

// Mapping between domain entities and the document wire form. Collection
// documents always carry their set and map fields, even when empty, so a
// round trip through the store reproduces the entity exactly.

func conversationToDoc(c *entity.Conversation) docstore.Doc {
	doc := docstore.Doc{
		"id":             c.ID,
		"kind":           string(c.Kind),
		"memberIds":      stringsToDoc(c.MemberIDs),
		"memberProfiles": profilesToDoc(c.MemberProfiles),
		"adminIds":       stringsToDoc(c.AdminIDs),
		"createdBy":      c.CreatedBy,
		"unreadCounts":   countsToDoc(c.UnreadCounts),
		"archived":       boolsToDoc(c.Archived),
		"pinned":         boolsToDoc(c.Pinned),
		"muted":          boolsToDoc(c.Muted),
		"createdAt":      c.CreatedAt,
		"updatedAt":      c.UpdatedAt,
	}
	if c.Name != "" {
		doc["name"] = c.Name
	}
	if c.Description != "" {
		doc["description"] = c.Description
	}
	if c.PhotoURL != "" {
		doc["photoUrl"] = c.PhotoURL
	}
	if c.LastMessage != nil {
		doc["lastMessage"] = previewToDoc(c.LastMessage)
	}
	return doc
}

func conversationFromDoc(id string, doc docstore.Doc) *entity.Conversation {
	c := &entity.Conversation{
		ID:             id,
		Kind:           entity.ConversationKind(docString(doc, "kind")),
		Name:           docString(doc, "name"),
		Description:    docString(doc, "description"),
		PhotoURL:       docString(doc, "photoUrl"),
		MemberIDs:      docStrings(doc, "memberIds"),
		MemberProfiles: profilesFromDoc(docMap(doc, "memberProfiles")),
		AdminIDs:       docStrings(doc, "adminIds"),
		CreatedBy:      docString(doc, "createdBy"),
		UnreadCounts:   countsFromDoc(docMap(doc, "unreadCounts")),
		Archived:       boolsFromDoc(docMap(doc, "archived")),
		Pinned:         boolsFromDoc(docMap(doc, "pinned")),
		Muted:          boolsFromDoc(docMap(doc, "muted")),
		CreatedAt:      docTime(doc, "createdAt"),
		UpdatedAt:      docTime(doc, "updatedAt"),
	}
	if preview, ok := doc["lastMessage"].(map[string]interface{}); ok {
		c.LastMessage = previewFromDoc(preview)
	}
	return c
}

func messageToDoc(m *entity.Message) docstore.Doc {
	doc := docstore.Doc{
		"id":                   m.ID,
		"conversationId":       m.ConversationID,
		"senderId":             m.SenderID,
		"senderName":           m.SenderName,
		"content":              m.Content,
		"type":                 string(m.Type),
		"readBy":               stringsToDoc(m.ReadBy),
		"deliveredTo":          stringsToDoc(m.DeliveredTo),
		"reactions":            reactionsToDoc(m.Reactions),
		"deletedFor":           stringsToDoc(m.DeletedFor),
		"isDeletedForEveryone": m.IsDeletedForEveryone,
		"isEdited":             m.IsEdited,
		"createdAt":            m.CreatedAt,
		"updatedAt":            m.UpdatedAt,
	}
	if m.SenderPhotoURL != "" {
		doc["senderPhotoUrl"] = m.SenderPhotoURL
	}
	if m.Media != nil {
		doc["media"] = mediaToDoc(m.Media)
	}
	if m.ReplyTo != nil {
		doc["replyTo"] = docstore.Doc{
			"messageId":  m.ReplyTo.MessageID,
			"content":    m.ReplyTo.Content,
			"senderName": m.ReplyTo.SenderName,
		}
	}
	if m.EditedAt != nil {
		doc["editedAt"] = *m.EditedAt
	}
	return doc
}

func messageFromDoc(id string, doc docstore.Doc) *entity.Message {
	m := &entity.Message{
		ID:                   id,
		ConversationID:       docString(doc, "conversationId"),
		SenderID:             docString(doc, "senderId"),
		SenderName:           docString(doc, "senderName"),
		SenderPhotoURL:       docString(doc, "senderPhotoUrl"),
		Content:              docString(doc, "content"),
		Type:                 entity.MessageType(docString(doc, "type")),
		ReadBy:               docStrings(doc, "readBy"),
		DeliveredTo:          docStrings(doc, "deliveredTo"),
		Reactions:            reactionsFromDoc(docMap(doc, "reactions")),
		DeletedFor:           docStrings(doc, "deletedFor"),
		IsDeletedForEveryone: docBool(doc, "isDeletedForEveryone"),
		IsEdited:             docBool(doc, "isEdited"),
		CreatedAt:            docTime(doc, "createdAt"),
		UpdatedAt:            docTime(doc, "updatedAt"),
	}
	if media, ok := doc["media"].(map[string]interface{}); ok {
		m.Media = mediaFromDoc(media)
	}
	if reply, ok := doc["replyTo"].(map[string]interface{}); ok {
		m.ReplyTo = &entity.ReplySnapshot{
			MessageID:  docString(reply, "messageId"),
			Content:    docString(reply, "content"),
			SenderName: docString(reply, "senderName"),
		}
	}
	if edited, ok := doc["editedAt"].(time.Time); ok {
		m.EditedAt = &edited
	}
	return m
}

func previewToDoc(p *entity.MessagePreview) docstore.Doc {
	return docstore.Doc{
		"content":    p.Content,
		"senderId":   p.SenderID,
		"senderName": p.SenderName,
		"type":       string(p.Type),
		"sentAt":     p.SentAt,
	}
}

func previewFromDoc(doc docstore.Doc) *entity.MessagePreview {
	return &entity.MessagePreview{
		Content:    docString(doc, "content"),
		SenderID:   docString(doc, "senderId"),
		SenderName: docString(doc, "senderName"),
		Type:       entity.MessageType(docString(doc, "type")),
		SentAt:     docTime(doc, "sentAt"),
	}
}

func mediaToDoc(m *entity.MediaRef) docstore.Doc {
	doc := docstore.Doc{"url": m.URL}
	if m.FileName != "" {
		doc["fileName"] = m.FileName
	}
	if m.FileSize != 0 {
		doc["fileSize"] = m.FileSize
	}
	if m.MimeType != "" {
		doc["mimeType"] = m.MimeType
	}
	if m.DurationSeconds != 0 {
		doc["durationSeconds"] = m.DurationSeconds
	}
	if m.ThumbnailURL != "" {
		doc["thumbnailUrl"] = m.ThumbnailURL
	}
	return doc
}

func mediaFromDoc(doc docstore.Doc) *entity.MediaRef {
	return &entity.MediaRef{
		URL:             docString(doc, "url"),
		FileName:        docString(doc, "fileName"),
		FileSize:        docInt64(doc, "fileSize"),
		MimeType:        docString(doc, "mimeType"),
		DurationSeconds: docFloat64(doc, "durationSeconds"),
		ThumbnailURL:    docString(doc, "thumbnailUrl"),
	}
}

func profileToDoc(p entity.MemberProfile) docstore.Doc {
	doc := docstore.Doc{"displayName": p.DisplayName}
	if p.PhotoURL != "" {
		doc["photoUrl"] = p.PhotoURL
	}
	return doc
}

func profilesToDoc(profiles map[string]entity.MemberProfile) map[string]interface{} {
	out := make(map[string]interface{}, len(profiles))
	for id, p := range profiles {
		out[id] = map[string]interface{}(profileToDoc(p))
	}
	return out
}

func profilesFromDoc(m map[string]interface{}) map[string]entity.MemberProfile {
	out := make(map[string]entity.MemberProfile, len(m))
	for id, v := range m {
		p, ok := v.(map[string]interface{})
		if !ok {
			continue
		}
		out[id] = entity.MemberProfile{
			DisplayName: docString(p, "displayName"),
			PhotoURL:    docString(p, "photoUrl"),
		}
	}
	return out
}

func countsToDoc(counts map[string]int64) map[string]interface{} {
	out := make(map[string]interface{}, len(counts))
	for id, n := range counts {
		out[id] = n
	}
	return out
}

func countsFromDoc(m map[string]interface{}) map[string]int64 {
	out := make(map[string]int64, len(m))
	for id, v := range m {
		switch n := v.(type) {
		case int64:
			out[id] = n
		case int:
			out[id] = int64(n)
		case float64:
			out[id] = int64(n)
		}
	}
	return out
}

func boolsToDoc(flags map[string]bool) map[string]interface{} {
	out := make(map[string]interface{}, len(flags))
	for id, v := range flags {
		out[id] = v
	}
	return out
}

func boolsFromDoc(m map[string]interface{}) map[string]bool {
	out := make(map[string]bool, len(m))
	for id, v := range m {
		if b, ok := v.(bool); ok {
			out[id] = b
		}
	}
	return out
}

func reactionsToDoc(reactions map[string]string) map[string]interface{} {
	out := make(map[string]interface{}, len(reactions))
	for id, emoji := range reactions {
		out[id] = emoji
	}
	return out
}

func reactionsFromDoc(m map[string]interface{}) map[string]string {
	out := make(map[string]string, len(m))
	for id, v := range m {
		if s, ok := v.(string); ok {
			out[id] = s
		}
	}
	return out
}

func stringsToDoc(items []string) []interface{} {
	out := make([]interface{}, len(items))
	for i, s := range items {
		out[i] = s
	}
	return out
}

func docStrings(doc docstore.Doc, key string) []string {
	items, ok := doc[key].([]interface{})
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func docString(doc docstore.Doc, key string) string {
	s, _ := doc[key].(string)
	return s
}

func docBool(doc docstore.Doc, key string) bool {
	b, _ := doc[key].(bool)
	return b
}

func docInt64(doc docstore.Doc, key string) int64 {
	switch n := doc[key].(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	}
	return 0
}

func docFloat64(doc docstore.Doc, key string) float64 {
	switch n := doc[key].(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	}
	return 0
}

func docTime(doc docstore.Doc, key string) time.Time {
	t, _ := doc[key].(time.Time)
	return t
}

func docMap(doc docstore.Doc, key string) map[string]interface{} {
	m, _ := doc[key].(map[string]interface{})
	return m
}
