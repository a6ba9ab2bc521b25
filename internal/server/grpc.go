package server

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"log/slog"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/keyword-estimator/constants"
	"github.com/joseph-ayodele/keyword-estimator/internal/common"
	"github.com/joseph-ayodele/keyword-estimator/internal/extract"
	"github.com/joseph-ayodele/keyword-estimator/internal/keywords"
	"github.com/joseph-ayodele/keyword-estimator/internal/valuation"
)

const (
	ServiceName     = "estimator.v1.ValuationService"
	countMethod     = "/" + ServiceName + "/Count"
	exportMethod    = "/" + ServiceName + "/Export"
	calculateMethod = "/" + ServiceName + "/Calculate"
)

// ValuationServer is the gRPC surface. Messages are google.protobuf.Struct:
//
//	Count     {text, keywords:{k:v}}          -> {records, grand_total, warnings}
//	Export    {text, keywords:{k:v}}          -> {xlsx (base64), filename}
//	Calculate {document_path, keywords:{k:v}} -> stream of {type:"progress"} then one {type:"result"}
type ValuationServer interface {
	Count(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Export(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Calculate(*structpb.Struct, grpc.ServerStream) error
}

var ValuationServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ValuationServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Count", Handler: unaryHandler(countMethod, ValuationServer.Count)},
		{MethodName: "Export", Handler: unaryHandler(exportMethod, ValuationServer.Export)},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "Calculate", Handler: calculateHandler, ServerStreams: true},
	},
	Metadata: "estimator/v1/valuation.proto",
}

func unaryHandler(fullMethod string, call func(ValuationServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ValuationServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(ValuationServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func calculateHandler(srv any, stream grpc.ServerStream) error {
	in := new(structpb.Struct)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(ValuationServer).Calculate(in, stream)
}

// Register installs the valuation and health services on gs.
func Register(gs *grpc.Server, svc *Service, logger *slog.Logger) *health.Server {
	gs.RegisterService(&ValuationServiceDesc, NewGRPCServer(svc, logger))
	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	return hs
}

type GRPCServer struct {
	svc    *Service
	logger *slog.Logger
}

func NewGRPCServer(svc *Service, logger *slog.Logger) *GRPCServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &GRPCServer{svc: svc, logger: logger}
}

func requestKeywords(in *structpb.Struct) (keywords.Spec, []string, error) {
	kw := in.GetFields()["keywords"].GetStructValue()
	if kw == nil || len(kw.GetFields()) == 0 {
		return nil, nil, common.InvalidArgumentError("keywords is required")
	}
	spec, warnings := ParseKeywords(kw.AsMap())
	return spec, warningStrings(warnings), nil
}

func (s *GRPCServer) Count(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	spec, warnings, err := requestKeywords(in)
	if err != nil {
		return nil, err
	}
	rs := s.svc.Count(ctx, in.GetFields()["text"].GetStringValue(), spec)
	return encode(map[string]any{
		"records":     records(rs),
		"grand_total": rs.GrandTotal,
		"warnings":    list(warnings),
	})
}

func (s *GRPCServer) Export(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	spec, _, err := requestKeywords(in)
	if err != nil {
		return nil, err
	}
	xlsx, err := s.svc.Export(ctx, in.GetFields()["text"].GetStringValue(), spec)
	if err != nil {
		s.logger.Error("export.xlsx.failed", "error", err)
		return nil, common.InternalError(err.Error())
	}
	return encode(map[string]any{
		"xlsx":     base64.StdEncoding.EncodeToString(xlsx),
		"filename": in.GetFields()["filename"].GetStringValue(),
	})
}

func (s *GRPCServer) Calculate(in *structpb.Struct, stream grpc.ServerStream) error {
	spec, warnings, err := requestKeywords(in)
	if err != nil {
		return err
	}
	path := in.GetFields()["document_path"].GetStringValue()

	var sendErr error
	onProgress := func(ev extract.ProgressEvent) {
		if sendErr != nil {
			return
		}
		msg, err := encode(map[string]any{
			"type":    "progress",
			"percent": ev.Percent,
			"message": ev.Message,
			"stage":   string(ev.Stage),
			"page":    ev.Page,
			"pages":   ev.Pages,
		})
		if err == nil {
			sendErr = stream.SendMsg(msg)
		}
	}

	v, err := s.svc.Valuate(stream.Context(), path, spec, onProgress)
	if err != nil {
		return common.StatusFromError(err)
	}
	if sendErr != nil {
		s.logger.Warn("server.calculate.stream_closed", "run_id", v.RunID, "error", sendErr)
		return sendErr
	}

	result := map[string]any{
		"type":     "result",
		"run_id":   v.RunID,
		"outcome":  string(v.Outcome),
		"warnings": list(append(warnings, v.Warnings...)),
	}
	if v.Err != nil {
		result["error"] = v.Err.Error()
		result["error_code"] = common.CodeOf(v.Err)
	}
	if v.Results.Len() > 0 || v.Outcome == constants.OutcomeText {
		result["records"] = records(v.Results)
		result["grand_total"] = v.Results.GrandTotal
	}
	msg, err := encode(result)
	if err != nil {
		return err
	}
	return stream.SendMsg(msg)
}

func encode(m map[string]any) (*structpb.Struct, error) {
	st, err := structpb.NewStruct(m)
	if err != nil {
		return nil, common.InternalErrorf("encode response: %v", err)
	}
	return st, nil
}

func records(rs valuation.ResultSet) []any {
	out := make([]any, 0, rs.Len())
	for _, r := range rs.Records {
		out = append(out, map[string]any{
			"keyword":  r.Keyword,
			"count":    r.Count,
			"value":    r.Value,
			"subtotal": r.Subtotal,
		})
	}
	return out
}

func list(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

// Client calls a remote ValuationService.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client { return &Client{cc: cc} }

func (c *Client) Count(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, countMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Export(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, exportMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// Calculate sends in and calls fn for every streamed message until the
// terminal result, which it returns.
func (c *Client) Calculate(ctx context.Context, in *structpb.Struct, fn func(*structpb.Struct), opts ...grpc.CallOption) (*structpb.Struct, error) {
	stream, err := c.cc.NewStream(ctx, &ValuationServiceDesc.Streams[0], calculateMethod, opts...)
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	for {
		msg := new(structpb.Struct)
		if err := stream.RecvMsg(msg); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, errNoResult
			}
			return nil, err
		}
		if fn != nil {
			fn(msg)
		}
		if msg.GetFields()["type"].GetStringValue() == "result" {
			return msg, nil
		}
	}
}

var errNoResult = errors.New("stream ended without a result")

// IsNoResult reports whether err means the stream closed before a result.
func IsNoResult(err error) bool { return errors.Is(err, errNoResult) }
