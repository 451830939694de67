package gowait

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/rpc"
	"strings"
	"testing"
	"time"

	beegoctx "github.com/astaxie/beego/context"
	"github.com/gin-gonic/gin"
	echo "github.com/labstack/echo/v4"
	"github.com/micro/go-micro/v2/server"
	"github.com/revel/revel"
	"github.com/stretchr/testify/assert"
)

func TestMiddlewareStd(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mw := NewMiddlewareStd(h, NewWaiterSleep(), 20*time.Millisecond, StdOnAbort)
	t.Run("Middleware std should inject preset latency", func(t *testing.T) {
		rec := httptest.NewRecorder()
		ts := time.Now()
		mw.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.GreaterOrEqual(t, int64(time.Since(ts)), int64(20*time.Millisecond))
		assert.Equal(t, http.StatusOK, rec.Code)
	})
	t.Run("Middleware std should abort on canceled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(context.Background())
		cancel()
		rec := httptest.NewRecorder()
		mw.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil).WithContext(cctx))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
	t.Run("Middleware std should prefer context carried duration", func(t *testing.T) {
		ctx := WithDuration(context.Background(), 0)
		rec := httptest.NewRecorder()
		ts := time.Now()
		mw.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx))
		assert.Less(t, int64(time.Since(ts)), int64(20*time.Millisecond))
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestMiddlewareGin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(NewMiddlewareGin(NewWaiterSleep(), 20*time.Millisecond, GinOnAbort))
	router.GET("/", func(gctx *gin.Context) {
		gctx.Status(http.StatusOK)
	})
	t.Run("Middleware gin should inject preset latency", func(t *testing.T) {
		rec := httptest.NewRecorder()
		ts := time.Now()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.GreaterOrEqual(t, int64(time.Since(ts)), int64(20*time.Millisecond))
		assert.Equal(t, http.StatusOK, rec.Code)
	})
	t.Run("Middleware gin should abort on canceled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(context.Background())
		cancel()
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil).WithContext(cctx))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestMiddlewareEcho(t *testing.T) {
	router := echo.New()
	router.Use(NewMiddlewareEcho(NewWaiterSleep(), 20*time.Millisecond, EchoOnAbort))
	router.GET("/", func(ectx echo.Context) error {
		return ectx.String(http.StatusOK, "ok")
	})
	t.Run("Middleware echo should inject preset latency", func(t *testing.T) {
		rec := httptest.NewRecorder()
		ts := time.Now()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.GreaterOrEqual(t, int64(time.Since(ts)), int64(20*time.Millisecond))
		assert.Equal(t, http.StatusOK, rec.Code)
	})
	t.Run("Middleware echo should abort on canceled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(context.Background())
		cancel()
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil).WithContext(cctx))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestMiddlewareBeego(t *testing.T) {
	mw := NewMiddlewareBeego(NewWaiterSleep(), 20*time.Millisecond, BeegoOnAbort)
	t.Run("Middleware beego should inject preset latency", func(t *testing.T) {
		bctx := beegoctx.NewContext()
		bctx.Reset(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		ts := time.Now()
		mw(bctx)
		assert.GreaterOrEqual(t, int64(time.Since(ts)), int64(20*time.Millisecond))
	})
	t.Run("Middleware beego should abort on canceled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(context.Background())
		cancel()
		bctx := beegoctx.NewContext()
		bctx.Reset(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil).WithContext(cctx))
		assert.Panics(t, func() { mw(bctx) })
		assert.Equal(t, http.StatusServiceUnavailable, bctx.Output.Status)
	})
	t.Run("Middleware beego should prefer context carried duration", func(t *testing.T) {
		ctx := WithDuration(context.Background(), 0)
		bctx := beegoctx.NewContext()
		bctx.Reset(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx))
		ts := time.Now()
		mw(bctx)
		assert.Less(t, int64(time.Since(ts)), int64(20*time.Millisecond))
	})
}

func TestMiddlewareRevel(t *testing.T) {
	controller := func(req *http.Request) *revel.Controller {
		gctx := revel.NewGoContext(nil)
		gctx.Request.SetRequest(req)
		rc := revel.NewControllerEmpty()
		rc.SetController(gctx)
		return rc
	}
	var chained int
	chain := []revel.Filter{func(rc *revel.Controller, chain []revel.Filter) {
		chained++
	}}
	mw := NewMiddlewareRevel(NewWaiterSleep(), 20*time.Millisecond, RevelOnAbort)
	t.Run("Middleware revel should inject preset latency ahead of chain", func(t *testing.T) {
		rc := controller(httptest.NewRequest(http.MethodGet, "/", nil))
		ts := time.Now()
		mw(rc, chain)
		assert.GreaterOrEqual(t, int64(time.Since(ts)), int64(20*time.Millisecond))
		assert.Equal(t, 1, chained)
	})
	t.Run("Middleware revel should abort on canceled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(context.Background())
		cancel()
		rc := controller(httptest.NewRequest(http.MethodGet, "/", nil).WithContext(cctx))
		mw(rc, chain)
		assert.Equal(t, 1, chained)
		assert.Equal(t, http.StatusServiceUnavailable, rc.Response.Status)
	})
}

func TestMicroHandler(t *testing.T) {
	var calls int
	h := NewMicroHandler(NewWaiterSleep(), 20*time.Millisecond)(
		func(ctx context.Context, req server.Request, rsp interface{}) error {
			calls++
			return nil
		},
	)
	t.Run("Handler micro should inject preset latency", func(t *testing.T) {
		ts := time.Now()
		assert.NoError(t, h(context.Background(), nil, nil))
		assert.GreaterOrEqual(t, int64(time.Since(ts)), int64(20*time.Millisecond))
		assert.Equal(t, 1, calls)
	})
	t.Run("Handler micro should abort on canceled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.IsType(t, ErrorCanceled{}, h(cctx, nil, nil))
		assert.Equal(t, 1, calls)
	})
}

type rpcclientcodecmock struct {
	calls int
}

func (cc *rpcclientcodecmock) WriteRequest(*rpc.Request, interface{}) error {
	cc.calls++
	return nil
}

func (cc *rpcclientcodecmock) ReadResponseHeader(*rpc.Response) error {
	cc.calls++
	return nil
}

func (cc *rpcclientcodecmock) ReadResponseBody(interface{}) error {
	return nil
}

func (cc *rpcclientcodecmock) Close() error {
	return nil
}

type rpcservercodecmock struct {
	calls int
}

func (sc *rpcservercodecmock) ReadRequestHeader(*rpc.Request) error {
	sc.calls++
	return nil
}

func (sc *rpcservercodecmock) ReadRequestBody(interface{}) error {
	return nil
}

func (sc *rpcservercodecmock) WriteResponse(*rpc.Response, interface{}) error {
	sc.calls++
	return nil
}

func (sc *rpcservercodecmock) Close() error {
	return nil
}

func TestRPCCodecs(t *testing.T) {
	t.Run("RPC client codec should inject preset latency", func(t *testing.T) {
		mock := &rpcclientcodecmock{}
		cc := NewRPCClientCodec(context.Background(), mock, NewWaiterSleep(), 20*time.Millisecond)
		ts := time.Now()
		assert.NoError(t, cc.WriteRequest(&rpc.Request{}, nil))
		assert.NoError(t, cc.ReadResponseHeader(&rpc.Response{}))
		assert.GreaterOrEqual(t, int64(time.Since(ts)), int64(40*time.Millisecond))
		assert.Equal(t, 2, mock.calls)
	})
	t.Run("RPC server codec should inject preset latency", func(t *testing.T) {
		mock := &rpcservercodecmock{}
		sc := NewRPCServerCodec(context.Background(), mock, NewWaiterSleep(), 20*time.Millisecond)
		ts := time.Now()
		assert.NoError(t, sc.ReadRequestHeader(&rpc.Request{}))
		assert.NoError(t, sc.WriteResponse(&rpc.Response{}, nil))
		assert.GreaterOrEqual(t, int64(time.Since(ts)), int64(40*time.Millisecond))
		assert.Equal(t, 2, mock.calls)
	})
	t.Run("RPC codecs should abort on canceled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(context.Background())
		cancel()
		mock := &rpcclientcodecmock{}
		cc := NewRPCClientCodec(cctx, mock, NewWaiterSleep(), time.Hour)
		assert.IsType(t, ErrorCanceled{}, cc.WriteRequest(&rpc.Request{}, nil))
		assert.Equal(t, 0, mock.calls)
	})
}

func TestRoundTripperStd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()
	client := srv.Client()
	client.Transport = NewRoundTripperStd(client.Transport, NewWaiterSleep(), 20*time.Millisecond)
	ts := time.Now()
	resp, err := client.Get(srv.URL)
	assert.NoError(t, err)
	defer resp.Body.Close()
	assert.GreaterOrEqual(t, int64(time.Since(ts)), int64(20*time.Millisecond))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestReaderWriter(t *testing.T) {
	t.Run("Reader should inject preset latency ahead of reads", func(t *testing.T) {
		r := NewReader(context.Background(), strings.NewReader("waste"), NewWaiterSleep(), 20*time.Millisecond)
		buf := make([]byte, 5)
		ts := time.Now()
		n, err := r.Read(buf)
		assert.NoError(t, err)
		assert.Equal(t, 5, n)
		assert.GreaterOrEqual(t, int64(time.Since(ts)), int64(20*time.Millisecond))
	})
	t.Run("Writer should inject preset latency ahead of writes", func(t *testing.T) {
		var sb strings.Builder
		w := NewWriter(context.Background(), &sb, NewWaiterSleep(), 20*time.Millisecond)
		ts := time.Now()
		n, err := w.Write([]byte("waste"))
		assert.NoError(t, err)
		assert.Equal(t, 5, n)
		assert.GreaterOrEqual(t, int64(time.Since(ts)), int64(20*time.Millisecond))
		assert.Equal(t, "waste", sb.String())
	})
	t.Run("Reader should abort on canceled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(context.Background())
		cancel()
		r := NewReader(cctx, strings.NewReader("waste"), NewWaiterSleep(), time.Hour)
		_, err := r.Read(make([]byte, 5))
		assert.IsType(t, ErrorCanceled{}, err)
	})
}
