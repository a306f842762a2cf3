package entity

// Body is the closed set of message payload shapes. Exactly one variant
// is supplied per send; the variant determines the persisted message type
// and whether a media reference is present.
type Body interface {
	MessageType() MessageType
	Text() string
	MediaRef() *MediaRef
}

// TextBody is a plain text message.
type TextBody struct {
	Content string
}

func (b TextBody) MessageType() MessageType { return TypeText }
func (b TextBody) Text() string             { return b.Content }
func (b TextBody) MediaRef() *MediaRef      { return nil }

// ImageBody carries an uploaded image with an optional caption.
type ImageBody struct {
	Caption string
	Media   MediaRef
}

func (b ImageBody) MessageType() MessageType { return TypeImage }
func (b ImageBody) Text() string             { return b.Caption }
func (b ImageBody) MediaRef() *MediaRef      { m := b.Media; return &m }

// VideoBody carries an uploaded video with an optional caption.
type VideoBody struct {
	Caption string
	Media   MediaRef
}

func (b VideoBody) MessageType() MessageType { return TypeVideo }
func (b VideoBody) Text() string             { return b.Caption }
func (b VideoBody) MediaRef() *MediaRef      { m := b.Media; return &m }

// AudioBody carries a voice note or audio clip.
type AudioBody struct {
	Media MediaRef
}

func (b AudioBody) MessageType() MessageType { return TypeAudio }
func (b AudioBody) Text() string             { return "" }
func (b AudioBody) MediaRef() *MediaRef      { m := b.Media; return &m }

// FileBody carries an arbitrary document attachment.
type FileBody struct {
	Caption string
	Media   MediaRef
}

func (b FileBody) MessageType() MessageType { return TypeFile }
func (b FileBody) Text() string             { return b.Caption }
func (b FileBody) MediaRef() *MediaRef      { m := b.Media; return &m }
