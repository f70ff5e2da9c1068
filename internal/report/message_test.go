package report_test

import (
	"testing"

	. "github.com/onsi/gomega" //nolint:revive // Dot import is idiomatic for Gomega matchers

	"github.com/joe/dropsentry/internal/report"
)

func TestEncode_FileUploadWireFormat(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	payload, err := report.Encode(report.NewFileUpload("https://mail.example.com/compose", []string{"report.pdf|1000|"}))

	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(string(payload)).To(Equal(
		`{"FILE_UPLOAD":{"URL":"https://mail.example.com/compose","FILE":["report.pdf|1000|"]}}`,
	))
}

func TestEncode_PrintOperationKeepsMarkup(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	payload, err := report.Encode(report.NewPrintOperation("https://x.test/", "Invoice", "<body><p>a & b</p></body>"))

	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(string(payload)).To(Equal(
		`{"PRINT_OPERATION":{"URL":"https://x.test/","TAB_TITLE":"Invoice","PRINT_CONTENT":"<body><p>a & b</p></body>"}}`,
	))
}

func TestDecode_AcceptsWireFormat(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	msg, err := report.Decode([]byte(`{"FILE_UPLOAD":{"URL":"u","FILE":["a|1|","b|2|"]}}`))

	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(msg.Kind()).To(Equal(report.KindFileUpload))
	g.Expect(msg.Records()).To(Equal(2))
	g.Expect(msg.FileUpload.URL).To(Equal("u"))
}

func TestMessage_KindAndRecords(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	g.Expect(report.Message{}.Kind()).To(BeEmpty())
	g.Expect(report.NewPrintOperation("u", "t", "c").Kind()).To(Equal(report.KindPrintOperation))
	g.Expect(report.NewPrintOperation("u", "t", "c").Records()).To(BeZero())
}
