// Package report defines the collector payloads and the channels and
// dispatcher that deliver them.
package report

// Exported constants.
const (
	KindFileUpload     = "FILE_UPLOAD"
	KindPrintOperation = "PRINT_OPERATION"
)

// Message is the envelope sent to the collector. Exactly one field is set.
// Field names are the wire contract the collector parses.
type Message struct {
	FileUpload     *FileUpload     `json:"FILE_UPLOAD,omitempty"`
	PrintOperation *PrintOperation `json:"PRINT_OPERATION,omitempty"`
}

// FileUpload reports the files of one user selection.
// Each entry of Files is a "<name>|<modifiedEpochMillis>|" record.
type FileUpload struct {
	URL   string   `json:"URL"`
	Files []string `json:"FILE"`
}

// PrintOperation reports a page that is about to be printed.
type PrintOperation struct {
	URL          string `json:"URL"`
	TabTitle     string `json:"TAB_TITLE"`
	PrintContent string `json:"PRINT_CONTENT"`
}

// NewFileUpload builds a file-upload message.
func NewFileUpload(url string, files []string) Message {
	return Message{FileUpload: &FileUpload{URL: url, Files: files}}
}

// NewPrintOperation builds a print-operation message.
func NewPrintOperation(url, title, content string) Message {
	return Message{PrintOperation: &PrintOperation{URL: url, TabTitle: title, PrintContent: content}}
}

// Kind returns the payload key of the message, or "" for an empty envelope.
func (m Message) Kind() string {
	switch {
	case m.FileUpload != nil:
		return KindFileUpload
	case m.PrintOperation != nil:
		return KindPrintOperation
	default:
		return ""
	}
}

// Records returns the number of file records carried by the message.
func (m Message) Records() int {
	if m.FileUpload == nil {
		return 0
	}

	return len(m.FileUpload.Files)
}
