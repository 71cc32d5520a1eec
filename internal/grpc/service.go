package grpc

import (
	"context"

	d "github.com/fjod/scalecommerce/domain"
	"github.com/fjod/scalecommerce/internal/payment"
	"google.golang.org/grpc"
)

const serviceName = "payment.PaymentGateway"

type DetailsRequest struct {
	Token string `json:"token"`
}

type AuthorizeRequest struct {
	Token  string  `json:"token"`
	Amount d.Money `json:"amount"`
}

type CaptureRequest struct {
	AuthorizationID string  `json:"authorization_id"`
	Amount          d.Money `json:"amount"`
}

type VoidRequest struct {
	AuthorizationID string `json:"authorization_id"`
}

type VoidResponse struct{}

type PaymentGatewayServer interface {
	DetailsFor(context.Context, *DetailsRequest) (*payment.CardDetails, error)
	Authorize(context.Context, *AuthorizeRequest) (*payment.AuthorizationResult, error)
	Capture(context.Context, *CaptureRequest) (*payment.CaptureResult, error)
	Void(context.Context, *VoidRequest) (*VoidResponse, error)
}

func fullMethod(name string) string {
	return "/" + serviceName + "/" + name
}

func unaryHandler[Req, Resp any](name string, call func(PaymentGatewayServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(PaymentGatewayServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(name)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(PaymentGatewayServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var paymentGatewayDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*PaymentGatewayServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryHandler("DetailsFor", PaymentGatewayServer.DetailsFor),
		unaryHandler("Authorize", PaymentGatewayServer.Authorize),
		unaryHandler("Capture", PaymentGatewayServer.Capture),
		unaryHandler("Void", PaymentGatewayServer.Void),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "payment_gateway",
}

func RegisterPaymentGatewayServer(s grpc.ServiceRegistrar, srv PaymentGatewayServer) {
	s.RegisterService(&paymentGatewayDesc, srv)
}
