package gowait

import (
	"context"
	"database/sql"
	"io"
	"net"
	"net/http"
	"net/rpc"
	"time"

	"github.com/astaxie/beego"
	beegoctx "github.com/astaxie/beego/context"
	"github.com/gin-gonic/gin"
	"github.com/go-kit/kit/endpoint"
	iris "github.com/kataras/iris/v12"
	echo "github.com/labstack/echo/v4"
	"github.com/micro/go-micro/v2/client"
	"github.com/micro/go-micro/v2/server"
	"github.com/revel/revel"
	"github.com/valyala/fasthttp"
	"google.golang.org/grpc"
)

// Latency injection wrappers below delay the wrapped operation
// by the preset duration via the provided waiter.
// Preset duration can be overridden per operation with `WithDuration` context.

type StdOn func(http.ResponseWriter, error)

func StdOnAbort(w http.ResponseWriter, err error) {
	http.Error(w, err.Error(), http.StatusServiceUnavailable)
}

// NewMiddlewareStd creates std http middleware instance
// that injects the preset latency ahead of the provided handler.
func NewMiddlewareStd(h http.Handler, wtr Waiter, dur time.Duration, on StdOn) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		r := NewRunnerSync(withDurationFallback(req.Context(), dur), wtr)
		r.Run(func(ctx context.Context) error {
			h.ServeHTTP(w, req.WithContext(ctx))
			return nil
		})
		if err := r.Result(); err != nil {
			on(w, err)
		}
	})
}

type rtstd struct {
	rt  http.RoundTripper
	wtr Waiter
	dur time.Duration
}

// NewRoundTripperStd creates std http round tripper instance
// that injects the preset latency ahead of each outgoing request.
func NewRoundTripperStd(rt http.RoundTripper, wtr Waiter, dur time.Duration) rtstd {
	return rtstd{rt: rt, wtr: wtr, dur: dur}
}

func (rt rtstd) RoundTrip(req *http.Request) (resp *http.Response, err error) {
	r := NewRunnerSync(withDurationFallback(req.Context(), rt.dur), rt.wtr)
	r.Run(func(ctx context.Context) error {
		resp, err = rt.rt.RoundTrip(req.WithContext(ctx))
		return nil
	})
	if rerr := r.Result(); rerr != nil {
		return nil, rerr
	}
	return resp, err
}

type GinOn func(*gin.Context, error)

func GinOnAbort(gctx *gin.Context, err error) {
	_ = gctx.AbortWithError(http.StatusServiceUnavailable, err)
}

// NewMiddlewareGin creates gin middleware instance
// that injects the preset latency ahead of the handler chain.
func NewMiddlewareGin(wtr Waiter, dur time.Duration, on GinOn) gin.HandlerFunc {
	return func(gctx *gin.Context) {
		r := NewRunnerSync(withDurationFallback(gctx.Request.Context(), dur), wtr)
		r.Run(func(ctx context.Context) error {
			gctx.Next()
			return nil
		})
		if err := r.Result(); err != nil {
			on(gctx, err)
		}
	}
}

type EchoOn func(echo.Context, error) error

func EchoOnAbort(ectx echo.Context, err error) error {
	return ectx.String(http.StatusServiceUnavailable, err.Error())
}

// NewMiddlewareEcho creates echo middleware instance
// that injects the preset latency ahead of the handler chain.
func NewMiddlewareEcho(wtr Waiter, dur time.Duration, on EchoOn) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ectx echo.Context) (err error) {
			r := NewRunnerSync(withDurationFallback(ectx.Request().Context(), dur), wtr)
			r.Run(func(ctx context.Context) error {
				err = next(ectx)
				return nil
			})
			if rerr := r.Result(); rerr != nil {
				return on(ectx, rerr)
			}
			return err
		}
	}
}

type BeegoOn func(*beegoctx.Context, error)

func BeegoOnAbort(bctx *beegoctx.Context, err error) {
	bctx.Abort(http.StatusServiceUnavailable, err.Error())
}

// NewMiddlewareBeego creates beego filter instance
// that injects the preset latency ahead of the request handler.
func NewMiddlewareBeego(wtr Waiter, dur time.Duration, on BeegoOn) beego.FilterFunc {
	return func(bctx *beegoctx.Context) {
		r := NewRunnerSync(withDurationFallback(bctx.Request.Context(), dur), wtr)
		r.Run(nope)
		if err := r.Result(); err != nil {
			on(bctx, err)
		}
	}
}

type RevelOn func(*revel.Controller, error)

func RevelOnAbort(rc *revel.Controller, err error) {
	rc.Result = rc.RenderError(err)
	rc.Response.Status = http.StatusServiceUnavailable
}

// NewMiddlewareRevel creates revel filter instance
// that injects the preset latency ahead of the filter chain.
func NewMiddlewareRevel(wtr Waiter, dur time.Duration, on RevelOn) revel.Filter {
	return func(rc *revel.Controller, chain []revel.Filter) {
		r := NewRunnerSync(withDurationFallback(rc.Request.Context(), dur), wtr)
		r.Run(func(ctx context.Context) error {
			chain[0](rc, chain[1:])
			return nil
		})
		if err := r.Result(); err != nil {
			on(rc, err)
		}
	}
}

type IrisOn func(iris.Context, error)

func IrisOnAbort(ictx iris.Context, err error) {
	ictx.StatusCode(http.StatusServiceUnavailable)
	_, _ = ictx.WriteString(err.Error())
	ictx.StopExecution()
}

// NewMiddlewareIris creates iris middleware instance
// that injects the preset latency ahead of the handler chain.
func NewMiddlewareIris(wtr Waiter, dur time.Duration, on IrisOn) iris.Handler {
	return func(ictx iris.Context) {
		r := NewRunnerSync(withDurationFallback(ictx.Request().Context(), dur), wtr)
		r.Run(func(ctx context.Context) error {
			ictx.Next()
			return nil
		})
		if err := r.Result(); err != nil {
			on(ictx, err)
		}
	}
}

// NewMiddlewareKit creates go-kit endpoint middleware instance
// that injects the preset latency ahead of the wrapped endpoint.
func NewMiddlewareKit(wtr Waiter, dur time.Duration) endpoint.Middleware {
	return func(next endpoint.Endpoint) endpoint.Endpoint {
		return func(ctx context.Context, request interface{}) (response interface{}, err error) {
			r := NewRunnerSync(withDurationFallback(ctx, dur), wtr)
			r.Run(func(ctx context.Context) error {
				response, err = next(ctx, request)
				return nil
			})
			if rerr := r.Result(); rerr != nil {
				return nil, rerr
			}
			return response, err
		}
	}
}

type microcli struct {
	client.Client
	wtr Waiter
	dur time.Duration
}

// NewMicroClient creates go-micro client wrapper instance
// that injects the preset latency ahead of each outgoing call.
func NewMicroClient(wtr Waiter, dur time.Duration) client.Wrapper {
	return func(cli client.Client) client.Client {
		return microcli{Client: cli, wtr: wtr, dur: dur}
	}
}

func (cli microcli) Call(ctx context.Context, req client.Request, rsp interface{}, opts ...client.CallOption) error {
	r := NewRunnerSync(withDurationFallback(ctx, cli.dur), cli.wtr)
	r.Run(func(ctx context.Context) error {
		return cli.Client.Call(ctx, req, rsp, opts...)
	})
	return r.Result()
}

// NewMicroHandler creates go-micro server handler wrapper instance
// that injects the preset latency ahead of each incoming call.
func NewMicroHandler(wtr Waiter, dur time.Duration) server.HandlerWrapper {
	return func(h server.HandlerFunc) server.HandlerFunc {
		return func(ctx context.Context, req server.Request, rsp interface{}) error {
			r := NewRunnerSync(withDurationFallback(ctx, dur), wtr)
			r.Run(func(ctx context.Context) error {
				return h(ctx, req, rsp)
			})
			return r.Result()
		}
	}
}

type FastOn func(*fasthttp.RequestCtx, error)

func FastOnAbort(fctx *fasthttp.RequestCtx, err error) {
	fctx.Error(err.Error(), fasthttp.StatusServiceUnavailable)
}

// NewHandlerFast creates fasthttp handler instance
// that injects the preset latency ahead of the provided handler.
func NewHandlerFast(h fasthttp.RequestHandler, wtr Waiter, dur time.Duration, on FastOn) fasthttp.RequestHandler {
	return func(fctx *fasthttp.RequestCtx) {
		r := NewRunnerSync(withDurationFallback(fctx, dur), wtr)
		r.Run(func(ctx context.Context) error {
			h(fctx)
			return nil
		})
		if err := r.Result(); err != nil {
			on(fctx, err)
		}
	}
}

// NewGRPCUnaryClientInterceptor creates grpc unary client interceptor instance
// that injects the preset latency ahead of each outgoing unary call.
func NewGRPCUnaryClientInterceptor(wtr Waiter, dur time.Duration) grpc.UnaryClientInterceptor {
	return func(
		ctx context.Context,
		method string,
		req interface{},
		reply interface{},
		cc *grpc.ClientConn,
		invoker grpc.UnaryInvoker,
		opts ...grpc.CallOption,
	) error {
		r := NewRunnerSync(withDurationFallback(ctx, dur), wtr)
		r.Run(func(ctx context.Context) error {
			return invoker(ctx, method, req, reply, cc, opts...)
		})
		return r.Result()
	}
}

// NewGRPCUnaryServerInterceptor creates grpc unary server interceptor instance
// that injects the preset latency ahead of each incoming unary call.
func NewGRPCUnaryServerInterceptor(wtr Waiter, dur time.Duration) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (resp interface{}, err error) {
		r := NewRunnerSync(withDurationFallback(ctx, dur), wtr)
		r.Run(func(ctx context.Context) error {
			resp, err = handler(ctx, req)
			return nil
		})
		if rerr := r.Result(); rerr != nil {
			return nil, rerr
		}
		return resp, err
	}
}

// NetConnMode defines which net conn directions get latency injected.
type NetConnMode int

const (
	NetConnModeRead NetConnMode = 1 << iota
	NetConnModeWrite
	NetConnModeAll NetConnMode = NetConnModeRead | NetConnModeWrite
)

type netconn struct {
	net.Conn
	ctx  context.Context
	wtr  Waiter
	dur  time.Duration
	mode NetConnMode
}

// NewNetConn creates net conn wrapper instance
// that injects the preset latency ahead of reads, writes or both.
func NewNetConn(ctx context.Context, conn net.Conn, wtr Waiter, dur time.Duration, mode NetConnMode) net.Conn {
	return netconn{Conn: conn, ctx: ctx, wtr: wtr, dur: dur, mode: mode}
}

func (conn netconn) Read(b []byte) (int, error) {
	if conn.mode&NetConnModeRead != 0 {
		if err := conn.wtr.Wait(conn.ctx, ctxDuration(conn.ctx, conn.dur)); err != nil {
			return 0, err
		}
	}
	return conn.Conn.Read(b)
}

func (conn netconn) Write(b []byte) (int, error) {
	if conn.mode&NetConnModeWrite != 0 {
		if err := conn.wtr.Wait(conn.ctx, ctxDuration(conn.ctx, conn.dur)); err != nil {
			return 0, err
		}
	}
	return conn.Conn.Write(b)
}

type rpccc struct {
	rpc.ClientCodec
	ctx context.Context
	wtr Waiter
	dur time.Duration
}

// NewRPCClientCodec creates net rpc client codec wrapper instance
// that injects the preset latency ahead of request writes and response reads.
func NewRPCClientCodec(ctx context.Context, cc rpc.ClientCodec, wtr Waiter, dur time.Duration) rpc.ClientCodec {
	return rpccc{ClientCodec: cc, ctx: ctx, wtr: wtr, dur: dur}
}

func (cc rpccc) WriteRequest(req *rpc.Request, msg interface{}) error {
	if err := cc.wtr.Wait(cc.ctx, ctxDuration(cc.ctx, cc.dur)); err != nil {
		return err
	}
	return cc.ClientCodec.WriteRequest(req, msg)
}

func (cc rpccc) ReadResponseHeader(resp *rpc.Response) error {
	if err := cc.wtr.Wait(cc.ctx, ctxDuration(cc.ctx, cc.dur)); err != nil {
		return err
	}
	return cc.ClientCodec.ReadResponseHeader(resp)
}

type rpcsc struct {
	rpc.ServerCodec
	ctx context.Context
	wtr Waiter
	dur time.Duration
}

// NewRPCServerCodec creates net rpc server codec wrapper instance
// that injects the preset latency ahead of request reads and response writes.
func NewRPCServerCodec(ctx context.Context, sc rpc.ServerCodec, wtr Waiter, dur time.Duration) rpc.ServerCodec {
	return rpcsc{ServerCodec: sc, ctx: ctx, wtr: wtr, dur: dur}
}

func (sc rpcsc) ReadRequestHeader(req *rpc.Request) error {
	if err := sc.wtr.Wait(sc.ctx, ctxDuration(sc.ctx, sc.dur)); err != nil {
		return err
	}
	return sc.ServerCodec.ReadRequestHeader(req)
}

func (sc rpcsc) WriteResponse(resp *rpc.Response, msg interface{}) error {
	if err := sc.wtr.Wait(sc.ctx, ctxDuration(sc.ctx, sc.dur)); err != nil {
		return err
	}
	return sc.ServerCodec.WriteResponse(resp, msg)
}

type reader struct {
	r   io.Reader
	ctx context.Context
	wtr Waiter
	dur time.Duration
}

// NewReader creates io reader wrapper instance
// that injects the preset latency ahead of each read.
func NewReader(ctx context.Context, r io.Reader, wtr Waiter, dur time.Duration) reader {
	return reader{r: r, ctx: ctx, wtr: wtr, dur: dur}
}

func (r reader) Read(b []byte) (int, error) {
	if err := r.wtr.Wait(r.ctx, ctxDuration(r.ctx, r.dur)); err != nil {
		return 0, err
	}
	return r.r.Read(b)
}

type writer struct {
	w   io.Writer
	ctx context.Context
	wtr Waiter
	dur time.Duration
}

// NewWriter creates io writer wrapper instance
// that injects the preset latency ahead of each write.
func NewWriter(ctx context.Context, w io.Writer, wtr Waiter, dur time.Duration) writer {
	return writer{w: w, ctx: ctx, wtr: wtr, dur: dur}
}

func (w writer) Write(b []byte) (int, error) {
	if err := w.wtr.Wait(w.ctx, ctxDuration(w.ctx, w.dur)); err != nil {
		return 0, err
	}
	return w.w.Write(b)
}

// SQLClient defines commonly used subset of `sql.DB` client operations.
type SQLClient interface {
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
}

type sqlcli struct {
	cli SQLClient
	wtr Waiter
	dur time.Duration
}

// NewSQLClient creates sql client wrapper instance
// that injects the preset latency ahead of each query or exec.
func NewSQLClient(cli SQLClient, wtr Waiter, dur time.Duration) sqlcli {
	return sqlcli{cli: cli, wtr: wtr, dur: dur}
}

func (cli sqlcli) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	if err := cli.wtr.Wait(ctx, ctxDuration(ctx, cli.dur)); err != nil {
		return nil, err
	}
	return cli.cli.QueryContext(ctx, query, args...)
}

func (cli sqlcli) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	if err := cli.wtr.Wait(ctx, ctxDuration(ctx, cli.dur)); err != nil {
		return nil, err
	}
	return cli.cli.ExecContext(ctx, query, args...)
}
