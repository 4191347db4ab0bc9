package chat

type PartType string

const (
	PartText  PartType = "text"
	PartImage PartType = "image"
)

// DefaultImageDetail is the detail level requested for image inputs.
const DefaultImageDetail = "high"

// ContentPart is one piece of a multimodal user message.
type ContentPart struct {
	Type PartType
	Text string

	// Image parts only.
	ImageBase64 string
	MIMEType    string
	Detail      string
}

func TextContent(text string) ContentPart {
	return ContentPart{Type: PartText, Text: text}
}

func ImageContent(b64, mimeType string) ContentPart {
	return ContentPart{Type: PartImage, ImageBase64: b64, MIMEType: mimeType, Detail: DefaultImageDetail}
}

// CompletionRequest is a single-turn multimodal completion: one system
// message followed by one user message made of Parts.
type CompletionRequest struct {
	SystemPrompt string
	Parts        []ContentPart
	MaxTokens    int
}
