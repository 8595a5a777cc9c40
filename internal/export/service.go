package export

import (
	"context"
	"fmt"
)

// Service renders exports. The PDF step is pluggable so tests can run
// without a browser.
type Service struct {
	pdf func(ctx context.Context, html string) ([]byte, error)
}

func NewService() *Service {
	return &Service{pdf: chromePDF}
}

// Packet renders a review packet in the requested format.
func (s *Service) Packet(ctx context.Context, packet Packet, format Format) (*Result, error) {
	html, err := RenderPacketHTML(packet)
	if err != nil {
		return nil, err
	}
	name := sanitizeFilename(packet.Title)

	switch format {
	case FormatHTML:
		return &Result{Data: []byte(html), Filename: name + ".html", MimeType: "text/html; charset=utf-8"}, nil
	case FormatPDF:
		data, err := s.pdf(ctx, html)
		if err != nil {
			return nil, err
		}
		return &Result{Data: data, Filename: name + ".pdf", MimeType: "application/pdf"}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

func (s *Service) SubmissionsReport(rows []ReportRow) (*Result, error) {
	return SubmissionsReport(rows)
}
