package service

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/hazmat-api/internal/compatibility"
	"github.com/noah-isme/hazmat-api/internal/dto"
	"github.com/noah-isme/hazmat-api/internal/models"
	"github.com/noah-isme/hazmat-api/internal/workflow"
	appErrors "github.com/noah-isme/hazmat-api/pkg/errors"
	"github.com/noah-isme/hazmat-api/pkg/export"
)

// Export formats.
const (
	FormatCSV  = "csv"
	FormatPDF  = "pdf"
	FormatXLSX = "xlsx"
)

type containerDetailSource interface {
	Get(ctx context.Context, actor workflow.Actor, id string) (*models.ContainerDetail, error)
}

type summarySource interface {
	ListSummaries(ctx context.Context, filter models.ContainerFilter) ([]models.ContainerSummary, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
	RenderDocument(doc export.Document) ([]byte, error)
}

type xlsxRenderer interface {
	Render(data export.Dataset, sheet string) ([]byte, error)
}

// ExportOption configures optional export formats.
type ExportOption func(*ExportService)

// WithSpreadsheet enables the xlsx register format.
func WithSpreadsheet(r xlsxRenderer) ExportOption {
	return func(s *ExportService) { s.xlsx = r }
}

// ExportFile is a rendered download.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService renders container assessments and the container register.
type ExportService struct {
	details   containerDetailSource
	summaries summarySource
	csv       csvRenderer
	pdf       pdfRenderer
	xlsx      xlsxRenderer
	logger    *zap.Logger
	now       func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(details containerDetailSource, summaries summarySource, csv csvRenderer, pdf pdfRenderer, logger *zap.Logger, opts ...ExportOption) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &ExportService{
		details:   details,
		summaries: summaries,
		csv:       csv,
		pdf:       pdf,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *ExportService) formats() []string {
	formats := []string{FormatCSV, FormatPDF}
	if s.xlsx != nil {
		formats = append(formats, FormatXLSX)
	}
	return formats
}

// ContainerPDF renders the assessment of one container.
func (s *ExportService) ContainerPDF(ctx context.Context, actor workflow.Actor, id string) (*ExportFile, error) {
	detail, err := s.details.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	fields := []export.Field{
		{Label: "Container code", Value: detail.ContainerCode},
		{Label: "Type", Value: detail.ContainerType},
		{Label: "Department", Value: detail.Department},
		{Label: "Location", Value: detail.Location},
		{Label: "Submitted by", Value: detail.SubmittedBy},
		{Label: "Submitted at", Value: detail.SubmittedAt.Format(time.RFC3339)},
		{Label: "Status", Value: string(detail.Status)},
	}
	fields = appendStage(fields, "Admin review", detail.AdminReviewedBy, detail.AdminReviewedAt, detail.AdminComment)
	fields = appendStage(fields, "Rework request", detail.ReworkRequestedBy, detail.ReworkRequestedAt, detail.ReworkComment)
	fields = appendStage(fields, "HOD decision", detail.HODDecidedBy, detail.HODDecidedAt, detail.HODComment)

	hazards := export.Dataset{Headers: []string{"Class", "Name"}}
	for _, h := range detail.Hazards {
		hazards.Rows = append(hazards.Rows, []string{string(h.Code), h.Name})
	}

	pairs := export.Dataset{Headers: []string{"Class A", "Class B", "Distance (m)", "Required (m)", "Status"}}
	for _, p := range detail.Pairs {
		pairs.Rows = append(pairs.Rows, []string{
			string(p.ClassACode),
			string(p.ClassBCode),
			strconv.FormatFloat(p.Distance, 'f', 2, 64),
			requiredLabel(p.MinRequiredDistance),
			string(p.Status),
		})
		pairs.Tones = append(pairs.Tones, statusTone(p.Status))
	}

	data, err := s.pdf.RenderDocument(export.Document{
		Title:       "Hazardous storage assessment: " + detail.ContainerCode,
		Fields:      fields,
		GeneratedAt: s.now(),
		Sections: []export.Section{
			{Heading: "Hazard classes", Table: hazards, Widths: []float64{40, 146}, Empty: "No hazard classes"},
			{Heading: "Pair assessments", Table: pairs, Widths: []float64{30, 30, 42, 42, 42}, Empty: "Single hazard, no pairs assessed"},
		},
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render container pdf")
	}
	return &ExportFile{
		Filename:    fmt.Sprintf("container-%s.pdf", safeFilePart(detail.ContainerCode)),
		ContentType: "application/pdf",
		Data:        data,
	}, nil
}

// Register renders the container list in csv, pdf or, when enabled, xlsx.
// Only admins and HODs may export it.
func (s *ExportService) Register(ctx context.Context, actor workflow.Actor, query dto.ExportQuery) (*ExportFile, error) {
	if actor.Role != models.RoleAdmin && actor.Role != models.RoleHOD {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "register export requires role admin or hod")
	}
	format := strings.ToLower(strings.TrimSpace(query.Format))
	if format == "" {
		format = FormatCSV
	}
	supported := s.formats()
	if !slices.Contains(supported, format) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be one of "+strings.Join(supported, ", "))
	}

	filter := ContainerFilterFor(actor, query.ContainerQuery)
	rows, err := s.summaries.ListSummaries(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load container register")
	}

	data := export.Dataset{Headers: []string{"Code", "Department", "Location", "Submitted by", "Status", "Pairs", "Danger pairs", "Submitted at"}}
	for _, r := range rows {
		data.Rows = append(data.Rows, []string{
			r.ContainerCode,
			r.Department,
			r.Location,
			r.SubmittedBy,
			string(r.Status),
			strconv.Itoa(r.PairCount),
			strconv.Itoa(r.DangerCount),
			r.SubmittedAt.Format("2006-01-02 15:04"),
		})
		tone := export.ToneNone
		if r.DangerCount > 0 {
			tone = export.ToneBad
		}
		data.Tones = append(data.Tones, tone)
	}

	stamp := s.now().Format("20060102-150405")
	switch format {
	case FormatPDF:
		out, err := s.pdf.Render(data, "Container register")
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render register pdf")
		}
		return &ExportFile{Filename: "containers-" + stamp + ".pdf", ContentType: "application/pdf", Data: out}, nil
	case FormatXLSX:
		out, err := s.xlsx.Render(data, "Containers")
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render register xlsx")
		}
		return &ExportFile{
			Filename:    "containers-" + stamp + ".xlsx",
			ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			Data:        out,
		}, nil
	}
	out, err := s.csv.Render(data)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render register csv")
	}
	return &ExportFile{Filename: "containers-" + stamp + ".csv", ContentType: "text/csv", Data: out}, nil
}

func appendStage(fields []export.Field, label string, by *string, at *time.Time, comment *string) []export.Field {
	if by == nil {
		return fields
	}
	value := *by
	if at != nil {
		value += " on " + at.Format("2006-01-02 15:04")
	}
	if comment != nil && *comment != "" {
		value += ": " + *comment
	}
	return append(fields, export.Field{Label: label, Value: value})
}

func requiredLabel(d compatibility.MinDistance) string {
	if d.IsUnbounded() {
		return "ISOLATE"
	}
	m, ok := d.Meters()
	if !ok {
		return "-"
	}
	return strconv.FormatFloat(m, 'f', 2, 64)
}

func statusTone(status compatibility.Status) export.Tone {
	switch status {
	case compatibility.StatusSafe:
		return export.ToneGood
	case compatibility.StatusCaution:
		return export.ToneWarn
	case compatibility.StatusDanger:
		return export.ToneBad
	}
	return export.ToneNone
}

func safeFilePart(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "container"
	}
	return b.String()
}
