package console

import (
	"context"
	"errors"
	"strings"

	"github.com/coagronet/console/internal/domain/notify"
	"github.com/coagronet/console/internal/domain/resource"
	"github.com/coagronet/console/internal/domain/session"
	"github.com/coagronet/console/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// ResourceService runs the CRUD screens against the inventory API. Nothing
// is cached: every screen refetches after a mutation.
type ResourceService struct {
	base
	catalog *resource.Catalog
	gateway ResourceGateway
}

// NewResourceService creates a ResourceService.
func NewResourceService(catalog *resource.Catalog, gateway ResourceGateway, store session.Store, loc *notify.Localizer, opts ...Option) *ResourceService {
	return &ResourceService{
		base:    newBase(store, loc, opts),
		catalog: catalog,
		gateway: gateway,
	}
}

// Names returns the resource names the console knows.
func (s *ResourceService) Names() []string {
	return s.catalog.Names()
}

func (s *ResourceService) descriptor(ctx context.Context, name string) (resource.Descriptor, error) {
	d, ok := s.catalog.Get(name)
	if !ok {
		return resource.Descriptor{}, s.fail.unknown(ctx, ErrUnknownResource, name)
	}
	return d, nil
}

// List fetches a page of name. On failure the returned page is empty and
// the error carries the notification to show next to it.
func (s *ResourceService) List(ctx context.Context, sid, name string, q ListQuery) (resource.Page, error) {
	d, err := s.descriptor(ctx, name)
	if err != nil {
		return resource.EmptyPage(), err
	}
	token, _, err := s.token(ctx, sid)
	if err != nil {
		return resource.EmptyPage(), err
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "resource", "list", telemetry.WithAttribute("resource", d.Name))
	defer span.End()

	page, err := s.gateway.List(ctx, token, d, q.Page, q.Size, q.ParentID)
	if err != nil {
		telemetry.RecordError(span, err)
		return resource.EmptyPage(), s.failed(ctx, d, "list", err, notify.MsgLoadFailed)
	}
	return page, nil
}

// Create validates the required fields of rec and posts it.
func (s *ResourceService) Create(ctx context.Context, sid, name string, rec resource.Record) (*MutationResult, error) {
	d, token, err := s.prepare(ctx, sid, name)
	if err != nil {
		return nil, err
	}
	if err := s.validate(ctx, d, rec); err != nil {
		return nil, err
	}
	out, err := s.gateway.Create(ctx, token, d, rec)
	if err != nil {
		return nil, s.failed(ctx, d, "create", err, notify.MsgSaveFailed)
	}
	s.log(ctx).Info("Record created", zap.String("resource", d.Name))
	return &MutationResult{Record: out, Notification: notify.Success(s.loc.Message(ctx, notify.MsgCreated, d.Label))}, nil
}

// Update validates rec and replaces record id with it.
func (s *ResourceService) Update(ctx context.Context, sid, name string, id int64, rec resource.Record) (*MutationResult, error) {
	d, token, err := s.prepare(ctx, sid, name)
	if err != nil {
		return nil, err
	}
	if id <= 0 {
		return nil, s.fail.invalid(ctx, errors.New("record id must be positive"), notify.MsgSaveFailed, d.Label)
	}
	if err := s.validate(ctx, d, rec); err != nil {
		return nil, err
	}
	out, err := s.gateway.Update(ctx, token, d, id, rec)
	if err != nil {
		return nil, s.failed(ctx, d, "update", err, notify.MsgSaveFailed)
	}
	s.log(ctx).Info("Record updated", zap.String("resource", d.Name), zap.Int64("id", id))
	return &MutationResult{Record: out, Notification: notify.Success(s.loc.Message(ctx, notify.MsgUpdated, d.Label))}, nil
}

// Delete removes record id.
func (s *ResourceService) Delete(ctx context.Context, sid, name string, id int64) (*MutationResult, error) {
	d, token, err := s.prepare(ctx, sid, name)
	if err != nil {
		return nil, err
	}
	if id <= 0 {
		return nil, s.fail.invalid(ctx, errors.New("record id must be positive"), notify.MsgDeleteFailed, d.Label)
	}
	if err := s.gateway.Delete(ctx, token, d, id); err != nil {
		return nil, s.failed(ctx, d, "delete", err, notify.MsgDeleteFailed)
	}
	s.log(ctx).Info("Record deleted", zap.String("resource", d.Name), zap.Int64("id", id))
	return &MutationResult{Notification: notify.Success(s.loc.Message(ctx, notify.MsgDeleted, d.Label))}, nil
}

func (s *ResourceService) prepare(ctx context.Context, sid, name string) (resource.Descriptor, string, error) {
	d, err := s.descriptor(ctx, name)
	if err != nil {
		return resource.Descriptor{}, "", err
	}
	token, _, err := s.token(ctx, sid)
	if err != nil {
		return resource.Descriptor{}, "", err
	}
	return d, token, nil
}

func (s *ResourceService) validate(ctx context.Context, d resource.Descriptor, rec resource.Record) error {
	err := resource.ValidateRequired(d, rec)
	if err == nil {
		return nil
	}
	var missing *resource.MissingFieldsError
	if errors.As(err, &missing) {
		return s.fail.invalid(ctx, err, notify.MsgMissingFields, strings.Join(missing.Fields, ", "))
	}
	return s.fail.invalid(ctx, err, notify.MsgSaveFailed, d.Label)
}

func (s *ResourceService) failed(ctx context.Context, d resource.Descriptor, op string, err error, key notify.Key) *Failure {
	s.metrics.RecordResourceFailure(d.Name, op)
	s.log(ctx).Warn("Resource request failed",
		zap.String("resource", d.Name),
		zap.String("operation", op),
		zap.Error(err))
	return s.fail.upstream(ctx, err, key, d.Label)
}
