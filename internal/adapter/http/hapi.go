package http

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/couchcryptid/psws-hapi/internal/catalog"
	"github.com/couchcryptid/psws-hapi/internal/domain"
	"github.com/couchcryptid/psws-hapi/internal/pipeline"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/google/uuid"
)

// HAPIVersion is the protocol version advertised in every JSON response.
const HAPIVersion = "3.1"

type hapiStatus struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

var statusOK = hapiStatus{Code: 1200, Message: "OK"}

type envelope struct {
	HAPI   string     `json:"HAPI"`
	Status hapiStatus `json:"status"`
}

func writeStatus(w http.ResponseWriter, code int, st hapiStatus) {
	sharedobs.WriteJSON(w, code, envelope{HAPI: HAPIVersion, Status: st})
}

// statusFor maps a request error to its HTTP and HAPI status.
func statusFor(err error) (int, hapiStatus) {
	switch {
	case errors.Is(err, domain.ErrUnknownDatasetType),
		errors.Is(err, domain.ErrDatasetDirectoryNotFound),
		errors.Is(err, catalog.ErrDatasetNotFound):
		return http.StatusNotFound, hapiStatus{Code: 1406, Message: "Bad request - unknown dataset id"}
	case errors.Is(err, domain.ErrInvalidStart):
		return http.StatusBadRequest, hapiStatus{Code: 1402, Message: "Bad request - error in start time"}
	case errors.Is(err, domain.ErrInvalidStop):
		return http.StatusBadRequest, hapiStatus{Code: 1403, Message: "Bad request - error in stop time"}
	case errors.Is(err, domain.ErrInvalidWindow):
		return http.StatusBadRequest, hapiStatus{Code: 1404, Message: "Bad request - start time equal to or after stop time"}
	case errors.Is(err, domain.ErrUnknownParameter):
		return http.StatusBadRequest, hapiStatus{Code: 1407, Message: "Bad request - unknown dataset parameter"}
	case errors.Is(err, errUnknownQueryParam):
		return http.StatusBadRequest, hapiStatus{Code: 1401, Message: "Bad request - unknown API parameter name"}
	case errors.Is(err, errUnsupportedFormat):
		return http.StatusBadRequest, hapiStatus{Code: 1409, Message: "Bad request - unsupported output format"}
	case errors.Is(err, errUnsupportedInclude):
		return http.StatusBadRequest, hapiStatus{Code: 1410, Message: "Bad request - unsupported include value"}
	case errors.Is(err, errMissingDataset):
		return http.StatusBadRequest, hapiStatus{Code: 1400, Message: "Bad request - user input error"}
	default:
		return http.StatusInternalServerError, hapiStatus{Code: 1500, Message: "Internal server error"}
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code, st := statusFor(err)
	if code >= http.StatusInternalServerError {
		s.logger.Error("hapi request failed", "path", r.URL.Path, "error", err)
	} else {
		st.Message += ": " + err.Error()
		s.logger.Debug("hapi request rejected", "path", r.URL.Path, "code", st.Code, "error", err)
	}
	writeStatus(w, code, st)
}

var (
	errUnknownQueryParam  = errors.New("unknown request parameter")
	errUnsupportedFormat  = errors.New("unsupported format")
	errUnsupportedInclude = errors.New("unsupported include")
	errMissingDataset     = errors.New("missing dataset")
)

// query reads HAPI request parameters, accepting HAPI 2 aliases.
type query struct {
	dataset    string
	start      string
	stop       string
	parameters string
	header     bool
}

var dataParams = map[string]bool{
	"dataset": true, "id": true,
	"start": true, "time.min": true,
	"stop": true, "time.max": true,
	"parameters": true, "format": true, "include": true,
}

var infoParams = map[string]bool{"dataset": true, "id": true, "parameters": true}

func parseQuery(v url.Values, allowed map[string]bool) (query, error) {
	for k := range v {
		if !allowed[k] {
			return query{}, fmt.Errorf("%w: %q", errUnknownQueryParam, k)
		}
	}
	q := query{
		dataset:    first(v, "dataset", "id"),
		start:      first(v, "start", "time.min"),
		stop:       first(v, "stop", "time.max"),
		parameters: v.Get("parameters"),
	}
	if q.dataset == "" {
		return query{}, errMissingDataset
	}
	if f := v.Get("format"); f != "" && f != "csv" {
		return query{}, fmt.Errorf("%w: %q", errUnsupportedFormat, f)
	}
	switch inc := v.Get("include"); inc {
	case "":
	case "header":
		q.header = true
	default:
		return query{}, fmt.Errorf("%w: %q", errUnsupportedInclude, inc)
	}
	return q, nil
}

func first(v url.Values, keys ...string) string {
	for _, k := range keys {
		if s := v.Get(k); s != "" {
			return s
		}
	}
	return ""
}

func (s *Server) handleCapabilities(w http.ResponseWriter, _ *http.Request) {
	sharedobs.WriteJSON(w, http.StatusOK, struct {
		envelope
		OutputFormats []string `json:"outputFormats"`
	}{
		envelope:      envelope{HAPI: HAPIVersion, Status: statusOK},
		OutputFormats: []string{"csv"},
	})
}

func (s *Server) handleCatalog(w http.ResponseWriter, _ *http.Request) {
	datasets := s.catalog.Datasets()
	if datasets == nil {
		datasets = []catalog.Dataset{}
	}
	sharedobs.WriteJSON(w, http.StatusOK, struct {
		envelope
		Catalog []catalog.Dataset `json:"catalog"`
	}{
		envelope: envelope{HAPI: HAPIVersion, Status: statusOK},
		Catalog:  datasets,
	})
}

type infoResponse struct {
	envelope
	catalog.Info
	Format string `json:"format,omitempty"`
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r.URL.Query(), infoParams)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	info, err := s.catalog.Info(q.dataset, q.parameters)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, infoResponse{
		envelope: envelope{HAPI: HAPIVersion, Status: statusOK},
		Info:     info,
	})
}

// handleData streams CSV rows. Every setup error is reported before the
// status line is written; failures after that point can only be logged.
func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	reqID := uuid.NewString()
	w.Header().Set("X-Request-Id", reqID)
	logger := s.logger.With("request_id", reqID)

	q, err := parseQuery(r.URL.Query(), dataParams)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	plan, err := s.data.Prepare(pipeline.Request{
		DatasetID:  q.dataset,
		Start:      q.start,
		Stop:       q.stop,
		Parameters: q.parameters,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var header []byte
	if q.header {
		header, err = s.infoHeader(q)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
	}

	// Large ranges outlive the server-wide write timeout.
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		logger.Debug("clear write deadline failed", "error", err)
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	bw := bufio.NewWriterSize(w, 64<<10)
	if _, err := bw.Write(header); err != nil {
		logger.Warn("write header failed", "error", err)
		return
	}
	sum, err := s.data.Stream(r.Context(), plan, bw)
	if err == nil {
		err = bw.Flush()
	}
	if err != nil {
		logger.Warn("data stream ended early",
			"dataset", plan.Dataset.ID,
			"records", sum.Records,
			"error", err,
		)
		return
	}
	logger.Debug("data request served",
		"dataset", plan.Dataset.ID,
		"files", sum.Files,
		"failed_files", len(sum.Failures),
		"records", sum.Records,
	)
}

// infoHeader renders the info response as '#'-prefixed lines.
func (s *Server) infoHeader(q query) ([]byte, error) {
	info, err := s.catalog.Info(q.dataset, q.parameters)
	if err != nil {
		return nil, err
	}
	body, err := json.MarshalIndent(infoResponse{
		envelope: envelope{HAPI: HAPIVersion, Status: statusOK},
		Info:     info,
		Format:   "csv",
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode info header: %w", err)
	}
	var b strings.Builder
	for line := range strings.SplitSeq(string(body), "\n") {
		b.WriteString("#")
		b.WriteString(line)
		b.WriteString("\n")
	}
	return []byte(b.String()), nil
}
