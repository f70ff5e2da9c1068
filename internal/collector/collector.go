package collector

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/joe/dropsentry/internal/events"
	"github.com/joe/dropsentry/internal/logging"
	"github.com/joe/dropsentry/internal/report"
	"github.com/joe/dropsentry/internal/walker"
)

// Exported constants.
const (
	DefaultListLimit = 50
	MaxListLimit     = 1000
)

// Collector accepts reports from native-messaging streams and HTTP.
type Collector struct {
	store   *Store
	logger  *zap.Logger
	emitter events.Emitter
}

// New creates a Collector persisting into store.
func New(store *Store, logger *zap.Logger, emitter events.Emitter) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}

	if emitter == nil {
		emitter = events.Discard
	}

	return &Collector{store: store, logger: logger, emitter: emitter}
}

// Accept persists one message.
func (c *Collector) Accept(ctx context.Context, msg report.Message) (StoredReport, error) {
	stored, err := c.store.Save(ctx, msg)
	if err != nil {
		return StoredReport{}, err
	}

	logging.FromContext(ctx, c.logger).Info("report stored",
		zap.String("id", stored.ID),
		zap.String("kind", stored.Kind),
		zap.String("url", stored.URL),
		zap.Int("files", len(stored.Files)),
	)

	c.emitter.Emit(events.ReportStored{ID: stored.ID, Kind: stored.Kind, Records: len(stored.Files)})

	return stored, nil
}

// ServeNative reads native-messaging frames from r until it ends and stores
// each message. Undecodable or unstorable messages are logged and skipped;
// a broken frame stream ends the loop with an error.
func (c *Collector) ServeNative(ctx context.Context, r io.Reader) (int, error) {
	stored := 0

	for {
		if err := ctx.Err(); err != nil {
			return stored, err
		}

		payload, err := report.ReadFrame(r)
		if errors.Is(err, io.EOF) {
			return stored, nil
		}

		if err != nil {
			return stored, err
		}

		msg, err := report.Decode(payload)
		if err != nil {
			c.logger.Warn("skipping undecodable message", zap.Int("bytes", len(payload)), zap.Error(err))
			continue
		}

		if _, err := c.Accept(ctx, msg); err != nil {
			c.logger.Warn("skipping message", zap.String("kind", msg.Kind()), zap.Error(err))
			continue
		}

		stored++
	}
}

// Handler returns the collector HTTP API:
//
//	POST /report        store one message, 201 with {"id": ...}
//	GET  /reports       newest reports, ?limit=N
//	GET  /reports/{id}  one report
func (c *Collector) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /report", c.handleReport)
	mux.HandleFunc("GET /reports", c.handleList)
	mux.HandleFunc("GET /reports/{id}", c.handleGet)

	return logging.Middleware(c.logger)(mux)
}

func (c *Collector) handleReport(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, report.MaxFrameSize))
	if err != nil {
		respondError(w, http.StatusRequestEntityTooLarge, err.Error())
		return
	}

	msg, err := report.Decode(payload)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	stored, err := c.Accept(r.Context(), msg)

	switch {
	case errors.Is(err, ErrEmptyMessage), errors.Is(err, walker.ErrMalformedRecord):
		respondError(w, http.StatusBadRequest, err.Error())
	case err != nil:
		logging.FromContext(r.Context(), c.logger).Error("store report", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to store report")
	default:
		respondJSON(w, http.StatusCreated, map[string]string{"id": stored.ID})
	}
}

func (c *Collector) handleList(w http.ResponseWriter, r *http.Request) {
	limit := DefaultListLimit

	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}

		limit = min(n, MaxListLimit)
	}

	reports, err := c.store.Recent(r.Context(), limit)
	if err != nil {
		logging.FromContext(r.Context(), c.logger).Error("list reports", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to list reports")

		return
	}

	if reports == nil {
		reports = []StoredReport{}
	}

	respondJSON(w, http.StatusOK, reports)
}

func (c *Collector) handleGet(w http.ResponseWriter, r *http.Request) {
	stored, err := c.store.Get(r.Context(), r.PathValue("id"))

	switch {
	case errors.Is(err, ErrReportNotFound):
		respondError(w, http.StatusNotFound, "report not found")
	case err != nil:
		logging.FromContext(r.Context(), c.logger).Error("get report", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to get report")
	default:
		respondJSON(w, http.StatusOK, stored)
	}
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
