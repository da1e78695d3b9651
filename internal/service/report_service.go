package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/licitabrasil/licita-api/internal/model"
)

const (
	ReportFormatXLSX = "xlsx"
	ReportFormatPDF  = "pdf"

	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	maxReportRange  = 366 * 24 * time.Hour
)

// ReportRenderer turns a bidding report into a file.
type ReportRenderer interface {
	Generate(report model.BiddingReport) ([]byte, error)
}

type ReportService struct {
	users         UserStore
	biddings      BiddingStore
	proposals     ProposalStore
	contracts     ContractStore
	notifications NotificationStore
	reports       ReportStore
	xlsx          ReportRenderer
	pdf           ReportRenderer
	log           zerolog.Logger
	now           func() time.Time
}

type ReportDeps struct {
	Users         UserStore
	Biddings      BiddingStore
	Proposals     ProposalStore
	Contracts     ContractStore
	Notifications NotificationStore
	Reports       ReportStore
	XLSX          ReportRenderer
	PDF           ReportRenderer
}

type BiddingReportInput struct {
	From   time.Time
	To     time.Time
	Status *model.BiddingStatus
	Format string
}

type ReportFile struct {
	FileName    string
	ContentType string
	Content     []byte
}

func NewReportService(deps ReportDeps, log zerolog.Logger) *ReportService {
	return &ReportService{
		users:         deps.Users,
		biddings:      deps.Biddings,
		proposals:     deps.Proposals,
		contracts:     deps.Contracts,
		notifications: deps.Notifications,
		reports:       deps.Reports,
		xlsx:          deps.XLSX,
		pdf:           deps.PDF,
		log:           log.With().Str("component", "reports").Logger(),
		now:           time.Now,
	}
}

func (s *ReportService) Dashboard(ctx context.Context, principal model.Principal) (*model.Dashboard, error) {
	if !principal.CanInspect() {
		return nil, ErrPermissionDenied
	}
	usersByRole, err := s.users.CountByRole(ctx)
	if err != nil {
		return nil, err
	}
	biddingsByStatus, err := s.biddings.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	proposals, err := s.proposals.Count(ctx)
	if err != nil {
		return nil, err
	}
	activeContracts, contractedValue, err := s.contracts.ActiveTotals(ctx)
	if err != nil {
		return nil, err
	}
	unread, err := s.notifications.CountUnread(ctx)
	if err != nil {
		return nil, err
	}

	return &model.Dashboard{
		UsersByRole:         usersByRole,
		BiddingsByStatus:    biddingsByStatus,
		ProposalsTotal:      proposals,
		ActiveContracts:     activeContracts,
		ContractedValue:     contractedValue,
		UnreadNotifications: unread,
		GeneratedAt:         s.now().UTC(),
	}, nil
}

// BiddingReport renders the biddings opened in [From, To]. To is inclusive
// by day.
func (s *ReportService) BiddingReport(ctx context.Context, principal model.Principal, input BiddingReportInput) (*ReportFile, error) {
	if !principal.IsAdmin() {
		return nil, ErrPermissionDenied
	}
	format := strings.ToLower(strings.TrimSpace(input.Format))
	if format == "" {
		format = ReportFormatXLSX
	}
	if format != ReportFormatXLSX && format != ReportFormatPDF {
		return nil, fmt.Errorf("%w: format must be xlsx or pdf", ErrInvalidInput)
	}
	if input.From.IsZero() || input.To.IsZero() {
		return nil, fmt.Errorf("%w: from and to are required", ErrInvalidInput)
	}
	from := truncateDay(input.From)
	to := truncateDay(input.To).Add(24 * time.Hour)
	if !from.Before(to) {
		return nil, fmt.Errorf("%w: from must not be after to", ErrInvalidInput)
	}
	if to.Sub(from) > maxReportRange {
		return nil, fmt.Errorf("%w: period must not exceed one year", ErrInvalidInput)
	}

	rows, err := s.reports.BiddingRows(ctx, from, to, input.Status)
	if err != nil {
		return nil, err
	}
	report := model.BiddingReport{
		PeriodStart: from,
		PeriodEnd:   to.Add(-time.Second),
		Status:      input.Status,
		Rows:        rows,
		GeneratedAt: s.now().UTC(),
	}

	renderer, contentType := s.xlsx, xlsxContentType
	if format == ReportFormatPDF {
		renderer, contentType = s.pdf, "application/pdf"
	}
	content, err := renderer.Generate(report)
	if err != nil {
		s.log.Error().Err(err).Str("format", format).Msg("render bidding report failed")
		return nil, err
	}

	return &ReportFile{
		FileName:    fmt.Sprintf("licitacoes_%s_%s.%s", from.Format("20060102"), report.PeriodEnd.Format("20060102"), format),
		ContentType: contentType,
		Content:     content,
	}, nil
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
