package grpc

import (
	"context"
	"encoding/json"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/dheemanth-hn/stix-filter-gateway/internal/application/dto"
	"github.com/dheemanth-hn/stix-filter-gateway/internal/application/port"
	"github.com/dheemanth-hn/stix-filter-gateway/internal/domain/entity"
	"github.com/dheemanth-hn/stix-filter-gateway/internal/domain/valueobject"
	"github.com/dheemanth-hn/stix-filter-gateway/internal/infrastructure/auth"
	"github.com/dheemanth-hn/stix-filter-gateway/internal/infrastructure/logging"
	"github.com/dheemanth-hn/stix-filter-gateway/internal/infrastructure/schema"
)

// PayloadDecoder turns wire documents into domain values.
type PayloadDecoder interface {
	DecodeFilterGroupValue(v interface{}) (valueobject.FilterGroup, error)
	DecodeStixObject(data []byte) (*entity.StixObject, error)
}

// FilterHandler implements FilterServiceServer on top of the use cases.
type FilterHandler struct {
	matchUseCase  port.MatchUseCase
	streamUseCase port.StreamManagementUseCase
	decoder       PayloadDecoder
	defaultUser   *entity.User
	logger        logging.Logger
}

// HandlerOption configures a FilterHandler.
type HandlerOption func(*FilterHandler)

// WithDefaultUser sets the identity used when a call carries none, which
// happens when authentication is disabled.
func WithDefaultUser(user *entity.User) HandlerOption {
	return func(h *FilterHandler) {
		h.defaultUser = user
	}
}

// NewFilterHandler creates a new FilterHandler with the specified dependencies.
func NewFilterHandler(
	matchUseCase port.MatchUseCase,
	streamUseCase port.StreamManagementUseCase,
	decoder PayloadDecoder,
	logger logging.Logger,
	opts ...HandlerOption,
) *FilterHandler {
	h := &FilterHandler{
		matchUseCase:  matchUseCase,
		streamUseCase: streamUseCase,
		decoder:       decoder,
		logger:        logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ValidateFilterGroup checks a filter group for a subject kind. Rejections
// are reported in the response; only a malformed request is an error.
func (h *FilterHandler) ValidateFilterGroup(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	subject := valueobject.SubjectKind(stringField(in, fieldSubject))
	if subject == "" {
		subject = valueobject.SubjectStix
	}
	if !subject.IsValid() {
		return nil, status.Errorf(codes.InvalidArgument, "unknown subject %q", subject)
	}

	raw, ok := rawField(in, fieldFilterGroup)
	if !ok {
		return nil, status.Error(codes.InvalidArgument, "filterGroup is required")
	}
	group, err := h.decoder.DecodeFilterGroupValue(raw)
	if err != nil {
		return validateResponseToStruct(&dto.ValidateResponse{Valid: false, Error: err.Error()}), nil
	}

	resp, err := h.matchUseCase.Validate(ctx, &dto.ValidateRequest{Subject: subject, Filters: group})
	if err != nil {
		return nil, h.fail(ctx, "validate filter group", err)
	}
	return validateResponseToStruct(resp), nil
}

// MatchStix evaluates a filter group against a STIX object for the caller.
func (h *FilterHandler) MatchStix(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	user, err := h.caller(ctx)
	if err != nil {
		return nil, err
	}

	raw, ok := rawField(in, fieldFilterGroup)
	if !ok {
		return nil, status.Error(codes.InvalidArgument, "filterGroup is required")
	}
	group, err := h.decoder.DecodeFilterGroupValue(raw)
	if err != nil {
		return nil, toStatus(err)
	}

	data, err := jsonField(in, fieldStix)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	stix, err := h.decoder.DecodeStixObject(data)
	if err != nil {
		return nil, toStatus(err)
	}

	matched, err := h.matchUseCase.IsStixMatchFilterGroup(ctx, user, stix, group)
	if err != nil {
		return nil, h.fail(ctx, "match stix", err)
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		fieldMatch: structpb.NewBoolValue(matched),
	}}, nil
}

// RegisterStream stores a stream definition. The caller owns the stream
// unless the definition names an owner.
func (h *FilterHandler) RegisterStream(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	user, err := h.caller(ctx)
	if err != nil {
		return nil, err
	}

	data, err := jsonField(in, fieldStream)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	var definition struct {
		ID      string      `json:"id"`
		Name    string      `json:"name"`
		Kind    string      `json:"kind"`
		Subject string      `json:"subject"`
		OwnerID string      `json:"owner_id"`
		Filters interface{} `json:"filters"`
	}
	if err := json.Unmarshal(data, &definition); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid stream: %v", err)
	}

	request := &dto.RegisterStreamRequest{
		ID:      definition.ID,
		Name:    definition.Name,
		Kind:    definition.Kind,
		Subject: definition.Subject,
		OwnerID: definition.OwnerID,
		Filters: valueobject.NewFilterGroup(valueobject.FilterModeAnd, []valueobject.Filter{}, []valueobject.FilterGroup{}),
	}
	if request.Subject == "" {
		request.Subject = string(valueobject.SubjectStix)
	}
	if request.OwnerID == "" {
		request.OwnerID = user.ID
	}
	if definition.Filters != nil {
		if request.Filters, err = h.decoder.DecodeFilterGroupValue(definition.Filters); err != nil {
			return nil, toStatus(err)
		}
	}

	id, err := h.streamUseCase.Register(ctx, request)
	if err != nil {
		return nil, h.fail(ctx, "register stream", err)
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		fieldID: structpb.NewStringValue(id),
	}}, nil
}

// ListStreams returns the stream definitions, optionally of one subject kind.
func (h *FilterHandler) ListStreams(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	subject := valueobject.SubjectKind(stringField(in, fieldSubject))
	if subject != "" && !subject.IsValid() {
		return nil, status.Errorf(codes.InvalidArgument, "unknown subject %q", subject)
	}

	streams, err := h.streamUseCase.List(ctx, subject)
	if err != nil {
		return nil, h.fail(ctx, "list streams", err)
	}
	out, err := streamsToStruct(streams)
	if err != nil {
		return nil, h.fail(ctx, "encode streams", err)
	}
	return out, nil
}

// DeleteStream removes a stream definition.
func (h *FilterHandler) DeleteStream(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id := stringField(in, fieldID)
	if id == "" {
		return nil, status.Error(codes.InvalidArgument, "id is required")
	}
	if err := h.streamUseCase.Delete(ctx, id); err != nil {
		return nil, h.fail(ctx, "delete stream", err)
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		fieldDeleted: structpb.NewBoolValue(true),
	}}, nil
}

func (h *FilterHandler) caller(ctx context.Context) (*entity.User, error) {
	user, err := auth.UserFromContext(ctx)
	if err == nil {
		return user, nil
	}
	if h.defaultUser != nil {
		return h.defaultUser, nil
	}
	return nil, toStatus(err)
}

// fail converts err to a status, logging failures that are not the caller's fault.
func (h *FilterHandler) fail(ctx context.Context, operation string, err error) error {
	st := toStatus(err)
	if status.Code(st) == codes.Internal {
		logging.FromContext(ctx, h.logger).Error(operation+" failed", logging.Err(err))
	}
	return st
}

var _ PayloadDecoder = (*schema.Decoder)(nil)
