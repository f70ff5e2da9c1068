package logging_test

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/gomega" //nolint:revive // Dot import is idiomatic for Gomega matchers
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/joe/dropsentry/internal/logging"
)

func TestNew_WritesJSONToFile(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	path := filepath.Join(t.TempDir(), "dropsentry.log")

	logger, err := logging.New(logging.Config{Level: "debug", Format: logging.FormatJSON, OutputPath: path})
	g.Expect(err).NotTo(HaveOccurred())

	logger.Debug("walking", zap.String("root", "docs"))
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(string(data)).To(ContainSubstring(`"msg":"walking"`))
	g.Expect(string(data)).To(ContainSubstring(`"root":"docs"`))
}

func TestNew_UnknownLevelFallsBackToInfo(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	logger, err := logging.New(logging.Config{Level: "chatty", OutputPath: filepath.Join(t.TempDir(), "x.log")})
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(logger.Core().Enabled(zapcore.InfoLevel)).To(BeTrue())
	g.Expect(logger.Core().Enabled(zapcore.DebugLevel)).To(BeFalse())
}

func TestL_IsUsableBeforeInit(t *testing.T) {
	t.Parallel()

	logging.L().Info("no-op before init")
}

func TestMiddleware_PropagatesRequestID(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	core, logs := observer.New(zapcore.InfoLevel)

	var seenID string
	handler := logging.Middleware(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenID = logging.RequestID(r.Context())
		logging.FromContext(r.Context(), zap.NewNop()).Info("inside")
		w.WriteHeader(http.StatusCreated)
	}))

	req := httptest.NewRequest(http.MethodPost, "/report", nil)
	req.Header.Set(logging.RequestIDHeader, "req-1")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	g.Expect(seenID).To(Equal("req-1"))
	g.Expect(rec.Header().Get(logging.RequestIDHeader)).To(Equal("req-1"))

	completed := logs.FilterMessage("request completed").All()
	g.Expect(completed).To(HaveLen(1))
	g.Expect(completed[0].ContextMap()).To(HaveKeyWithValue("status", int64(http.StatusCreated)))
	g.Expect(logs.FilterMessage("inside").All()[0].ContextMap()).To(HaveKeyWithValue("request_id", "req-1"))
}

func TestMiddleware_GeneratesRequestID(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	handler := logging.Middleware(zap.NewNop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	g.Expect(rec.Header().Get(logging.RequestIDHeader)).To(HaveLen(36))
}
