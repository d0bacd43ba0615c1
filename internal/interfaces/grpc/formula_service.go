package grpc

import (
	"context"
	stderrors "errors"
	"net/http"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/turtacn/SumFormula-Intelligence/internal/application/sumformula"
	"github.com/turtacn/SumFormula-Intelligence/pkg/errors"
)

// FormulaServiceName is the fully qualified gRPC service name.
const FormulaServiceName = "sumformula.v1.FormulaService"

// BatchRequest wraps the requests of one PredictBatch call.
type BatchRequest struct {
	Requests []*sumformula.PredictRequest `json:"requests"`
}

// CheckRequest names the formula to check.
type CheckRequest struct {
	Formula string `json:"formula"`
}

// RulesRequest is empty.
type RulesRequest struct{}

// FormulaServer is the server-side contract of FormulaService.
type FormulaServer interface {
	Predict(ctx context.Context, req *sumformula.PredictRequest) (*sumformula.Prediction, error)
	PredictBatch(ctx context.Context, req *BatchRequest) (*sumformula.BatchResult, error)
	Check(ctx context.Context, req *CheckRequest) (*sumformula.CheckResult, error)
	Rules(ctx context.Context, req *RulesRequest) (*sumformula.RuleSummary, error)
}

// FormulaServiceDesc describes FormulaService for grpc.Server.RegisterService.
var FormulaServiceDesc = grpc.ServiceDesc{
	ServiceName: FormulaServiceName,
	HandlerType: (*FormulaServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Predict", Handler: unaryHandler("Predict", FormulaServer.Predict)},
		{MethodName: "PredictBatch", Handler: unaryHandler("PredictBatch", FormulaServer.PredictBatch)},
		{MethodName: "Check", Handler: unaryHandler("Check", FormulaServer.Check)},
		{MethodName: "Rules", Handler: unaryHandler("Rules", FormulaServer.Rules)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "sumformula/v1/formula.proto",
}

// unaryHandler decodes Req, then runs call through the interceptor chain.
func unaryHandler[Req, Resp any](method string, call func(FormulaServer, context.Context, *Req) (*Resp, error)) func(interface{}, context.Context, func(interface{}) error, grpc.UnaryServerInterceptor) (interface{}, error) {
	fullMethod := "/" + FormulaServiceName + "/" + method
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "decode request: %v", err)
		}
		invoke := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(FormulaServer), ctx, req.(*Req))
		}
		if interceptor == nil {
			return invoke(ctx, in)
		}
		return interceptor(ctx, in, &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}, invoke)
	}
}

// formulaService adapts sumformula.Service to FormulaServer.
type formulaService struct {
	svc sumformula.Service
}

// NewFormulaServer returns a FormulaServer backed by svc.
func NewFormulaServer(svc sumformula.Service) FormulaServer {
	return &formulaService{svc: svc}
}

func (f *formulaService) Predict(ctx context.Context, req *sumformula.PredictRequest) (*sumformula.Prediction, error) {
	pred, err := f.svc.Predict(ctx, req)
	if err != nil {
		return nil, toStatus(err)
	}
	return pred, nil
}

func (f *formulaService) PredictBatch(ctx context.Context, req *BatchRequest) (*sumformula.BatchResult, error) {
	res, err := f.svc.PredictBatch(ctx, req.Requests)
	if err != nil {
		return nil, toStatus(err)
	}
	return res, nil
}

func (f *formulaService) Check(ctx context.Context, req *CheckRequest) (*sumformula.CheckResult, error) {
	res, err := f.svc.Check(ctx, req.Formula)
	if err != nil {
		return nil, toStatus(err)
	}
	return res, nil
}

func (f *formulaService) Rules(_ context.Context, _ *RulesRequest) (*sumformula.RuleSummary, error) {
	return f.svc.Rules(), nil
}

// toStatus maps an AppError onto the gRPC code matching its HTTP status.
// The message keeps the "[CODE] message" form.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	switch {
	case stderrors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case stderrors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}

	code := errors.GetCode(err)
	if code == errors.CodeUnknown {
		return status.Error(codes.Internal, err.Error())
	}
	var grpcCode codes.Code
	switch errors.HTTPStatusForCode(code) {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		grpcCode = codes.InvalidArgument
	case http.StatusNotFound:
		grpcCode = codes.NotFound
	case http.StatusConflict:
		grpcCode = codes.AlreadyExists
	case http.StatusTooManyRequests:
		grpcCode = codes.ResourceExhausted
	case http.StatusServiceUnavailable:
		grpcCode = codes.Unavailable
	case http.StatusGatewayTimeout:
		grpcCode = codes.DeadlineExceeded
	case http.StatusNotImplemented:
		grpcCode = codes.Unimplemented
	default:
		grpcCode = codes.Internal
	}
	return status.Error(grpcCode, err.Error())
}

// FormulaClient calls FormulaService over an established connection.
type FormulaClient struct {
	cc grpc.ClientConnInterface
}

// NewFormulaClient returns a client using cc.
func NewFormulaClient(cc grpc.ClientConnInterface) *FormulaClient {
	return &FormulaClient{cc: cc}
}

func (c *FormulaClient) invoke(ctx context.Context, method string, in, out interface{}, opts ...grpc.CallOption) error {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(codecName)}, opts...)
	return c.cc.Invoke(ctx, "/"+FormulaServiceName+"/"+method, in, out, opts...)
}

// Predict calls FormulaService.Predict.
func (c *FormulaClient) Predict(ctx context.Context, req *sumformula.PredictRequest, opts ...grpc.CallOption) (*sumformula.Prediction, error) {
	out := new(sumformula.Prediction)
	if err := c.invoke(ctx, "Predict", req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// PredictBatch calls FormulaService.PredictBatch.
func (c *FormulaClient) PredictBatch(ctx context.Context, req *BatchRequest, opts ...grpc.CallOption) (*sumformula.BatchResult, error) {
	out := new(sumformula.BatchResult)
	if err := c.invoke(ctx, "PredictBatch", req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// Check calls FormulaService.Check.
func (c *FormulaClient) Check(ctx context.Context, req *CheckRequest, opts ...grpc.CallOption) (*sumformula.CheckResult, error) {
	out := new(sumformula.CheckResult)
	if err := c.invoke(ctx, "Check", req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// Rules calls FormulaService.Rules.
func (c *FormulaClient) Rules(ctx context.Context, opts ...grpc.CallOption) (*sumformula.RuleSummary, error) {
	out := new(sumformula.RuleSummary)
	if err := c.invoke(ctx, "Rules", &RulesRequest{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

//Personal.AI order the ending
