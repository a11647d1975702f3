package console

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/coagronet/console/internal/domain/notify"
	"github.com/coagronet/console/internal/domain/session"
	"github.com/coagronet/console/internal/infrastructure/storage"
	"github.com/coagronet/console/internal/infrastructure/telemetry"
	"github.com/coagronet/console/internal/infrastructure/upstream"
	"go.uber.org/zap"
)

// DefaultMaxArchiveSize bounds the reports buffered for archiving.
const DefaultMaxArchiveSize = 32 << 20

var (
	// ErrArchiveDisabled is returned when archiving is requested without an
	// archive configured.
	ErrArchiveDisabled = errors.New("report archive is not configured")
	// ErrReportTooLarge is returned when a report exceeds the archive limit.
	ErrReportTooLarge = errors.New("report exceeds the archive size limit")

	reportName = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*(/[A-Za-z0-9][A-Za-z0-9_-]*)*$`)
)

// ReportService renders reports through the API.
type ReportService struct {
	base
	gateway ReportGateway
	archive ReportArchive
	maxSize int64
}

// NewReportService creates a ReportService. archive may be nil.
func NewReportService(gateway ReportGateway, archive ReportArchive, store session.Store, loc *notify.Localizer, opts ...Option) *ReportService {
	return &ReportService{
		base:    newBase(store, loc, opts),
		gateway: gateway,
		archive: archive,
		maxSize: DefaultMaxArchiveSize,
	}
}

// ArchiveEnabled reports whether Archive can be used.
func (s *ReportService) ArchiveEnabled() bool {
	return s.archive != nil
}

func (s *ReportService) request(ctx context.Context, sid, name string, filter json.RawMessage) (*upstream.Report, error) {
	if !reportName.MatchString(name) {
		s.metrics.RecordReport("invalid", OutcomeRejected)
		return nil, s.fail.invalid(ctx, fmt.Errorf("invalid report name %q", name), notify.MsgReportFailed)
	}
	if trimmed := bytes.TrimSpace(filter); len(trimmed) > 0 && (trimmed[0] != '{' || !json.Valid(trimmed)) {
		s.metrics.RecordReport(name, OutcomeRejected)
		return nil, s.fail.invalid(ctx, errors.New("report filter must be a JSON object"), notify.MsgReportFailed)
	}
	token, _, err := s.token(ctx, sid)
	if err != nil {
		s.metrics.RecordReport(name, OutcomeRejected)
		return nil, err
	}

	rep, err := s.gateway.Report(ctx, token, name, filter)
	if err != nil {
		f := s.fail.upstream(ctx, err, notify.MsgReportFailed)
		s.log(ctx).Warn("Report failed", zap.String("report", name), zap.Error(err))
		s.metrics.RecordReport(name, outcome(f))
		return nil, f
	}
	return rep, nil
}

// Render returns the report stream. The caller closes Body.
func (s *ReportService) Render(ctx context.Context, sid, name string, filter json.RawMessage) (*upstream.Report, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "report", "render", telemetry.WithAttribute("report", name))
	defer span.End()

	rep, err := s.request(ctx, sid, name, filter)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	s.metrics.RecordReport(name, OutcomeOK)
	return rep, nil
}

// Archive renders the report, stores it and returns a download link.
func (s *ReportService) Archive(ctx context.Context, sid, name string, filter json.RawMessage) (*storage.Archived, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "report", "archive", telemetry.WithAttribute("report", name))
	defer span.End()

	if s.archive == nil {
		return nil, s.fail.invalid(ctx, ErrArchiveDisabled, notify.MsgReportFailed)
	}
	rep, err := s.request(ctx, sid, name, filter)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	defer rep.Body.Close()

	data, err := io.ReadAll(io.LimitReader(rep.Body, s.maxSize+1))
	if err == nil && int64(len(data)) > s.maxSize {
		err = ErrReportTooLarge
	}
	if err != nil {
		s.metrics.RecordReport(name, OutcomeError)
		telemetry.RecordError(span, err)
		s.log(ctx).Error("Failed to read report", zap.String("report", name), zap.Error(err))
		return nil, s.fail.internal(ctx, err, notify.MsgReportFailed)
	}

	key := storage.ReportKey(strings.ReplaceAll(name, "/", "-"), s.now())
	out, err := s.archive.Archive(ctx, key, data, rep.ContentType)
	if err != nil {
		s.metrics.RecordReport(name, OutcomeError)
		telemetry.RecordError(span, err)
		s.log(ctx).Error("Failed to archive report", zap.String("report", name), zap.Error(err))
		return nil, s.fail.internal(ctx, err, notify.MsgReportFailed)
	}
	s.metrics.RecordReport(name, OutcomeOK)
	s.log(ctx).Info("Report archived", zap.String("report", name), zap.String("key", out.Key), zap.Int("bytes", len(data)))
	return out, nil
}
