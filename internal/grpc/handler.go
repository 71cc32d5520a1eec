package grpc

import (
	"context"
	"errors"
	"log/slog"

	"github.com/fjod/scalecommerce/internal/payment"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// PaymentGatewayService serves a payment.Gateway over gRPC.
type PaymentGatewayService struct {
	gw     payment.Gateway
	logger *slog.Logger
}

func NewPaymentGatewayService(gw payment.Gateway, logger *slog.Logger) *PaymentGatewayService {
	if logger == nil {
		logger = slog.Default()
	}
	return &PaymentGatewayService{gw: gw, logger: logger}
}

func (s *PaymentGatewayService) DetailsFor(ctx context.Context, r *DetailsRequest) (*payment.CardDetails, error) {
	if r.Token == "" {
		return nil, status.Error(codes.InvalidArgument, "token is required")
	}
	details, err := s.gw.DetailsFor(ctx, r.Token)
	if err != nil {
		return nil, s.toStatus(ctx, "DetailsFor", err)
	}
	return &details, nil
}

func (s *PaymentGatewayService) Authorize(ctx context.Context, r *AuthorizeRequest) (*payment.AuthorizationResult, error) {
	if r.Token == "" {
		return nil, status.Error(codes.InvalidArgument, "token is required")
	}
	if r.Amount.Cents < 0 {
		return nil, status.Error(codes.InvalidArgument, "amount must not be negative")
	}
	res, err := s.gw.Authorize(ctx, r.Token, r.Amount)
	if err != nil {
		return nil, s.toStatus(ctx, "Authorize", err)
	}
	s.logger.InfoContext(ctx, "authorization processed", "success", res.Success, "amount", r.Amount.String())
	return &res, nil
}

// Capture with an empty authorization id is a decline, not an invalid request.
func (s *PaymentGatewayService) Capture(ctx context.Context, r *CaptureRequest) (*payment.CaptureResult, error) {
	res, err := s.gw.Capture(ctx, r.AuthorizationID, r.Amount)
	if err != nil {
		return nil, s.toStatus(ctx, "Capture", err)
	}
	s.logger.InfoContext(ctx, "capture processed", "success", res.Success, "authorization_id", r.AuthorizationID)
	return &res, nil
}

func (s *PaymentGatewayService) Void(ctx context.Context, r *VoidRequest) (*VoidResponse, error) {
	if err := s.gw.Void(ctx, r.AuthorizationID); err != nil {
		return nil, s.toStatus(ctx, "Void", err)
	}
	return &VoidResponse{}, nil
}

func (s *PaymentGatewayService) toStatus(ctx context.Context, method string, err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, payment.ErrGatewayUnavailable):
		return status.Error(codes.Unavailable, err.Error())
	}
	s.logger.ErrorContext(ctx, "payment gateway call failed", "method", method, "error", err)
	return status.Error(codes.Internal, "payment gateway error")
}
