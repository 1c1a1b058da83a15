package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/autopeer-io/sensor-emulator/internal/emulator/server"
	"github.com/autopeer-io/sensor-emulator/pkg/log"
	"github.com/autopeer-io/sensor-emulator/pkg/sensor"
)

// maxBodySize bounds a posted record.
const maxBodySize = 64 * 1024

type statusResponse struct {
	Server     server.State    `json:"server"`
	Simulating bool            `json:"simulating"`
	LastRecord json.RawMessage `json:"lastRecord,omitempty"`
}

type eventsResponse struct {
	Lines []string `json:"lines"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// readyz reports ready while the sensor stream server is listening.
func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	if !s.ctrl.Status().Server.Listening {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("sensor stream server is not listening"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) getStatus(w http.ResponseWriter, r *http.Request) {
	s.writeStatus(w, http.StatusOK)
}

func (s *Server) serverAction(w http.ResponseWriter, r *http.Request) {
	var err error
	switch mux.Vars(r)["action"] {
	case "start":
		err = s.ctrl.StartServer()
	case "stop":
		s.ctrl.StopServer()
	case "toggle":
		err = s.ctrl.ToggleServer()
	}

	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeStatus(w, http.StatusOK)
}

func (s *Server) disconnect(w http.ResponseWriter, r *http.Request) {
	s.ctrl.Disconnect()
	s.writeStatus(w, http.StatusOK)
}

func (s *Server) sendRecord(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, err)
		return
	}

	rec, err := sensor.UnmarshalJSON(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := s.ctrl.SendSensorData(rec); err != nil {
		var writeErr *server.WriteError
		switch {
		case errors.Is(err, server.ErrNoActiveConnection):
			writeError(w, http.StatusConflict, err)
		case errors.As(err, &writeErr):
			writeError(w, http.StatusBadGateway, err)
		default:
			writeError(w, http.StatusInternalServerError, err)
		}
		return
	}

	writeRecord(w, http.StatusAccepted, rec)
}

func (s *Server) lastRecord(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.ctrl.LastRecord()
	if !ok {
		writeError(w, http.StatusNotFound, errors.New("no record received yet"))
		return
	}
	writeRecord(w, http.StatusOK, rec)
}

func (s *Server) formRecord(w http.ResponseWriter, r *http.Request) {
	writeRecord(w, http.StatusOK, s.ctrl.FormRecord())
}

func (s *Server) simulatorAction(w http.ResponseWriter, r *http.Request) {
	switch mux.Vars(r)["action"] {
	case "start":
		if err := s.ctrl.StartCANSimulation(); err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
	case "stop":
		s.ctrl.StopCANSimulation()
	}
	s.writeStatus(w, http.StatusOK)
}

func (s *Server) listEvents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, eventsResponse{Lines: s.ctrl.Events().Snapshot()})
}

func (s *Server) writeStatus(w http.ResponseWriter, code int) {
	st := s.ctrl.Status()
	resp := statusResponse{Server: st.Server, Simulating: st.Simulating}
	if st.LastRecord != nil {
		raw, err := sensor.MarshalJSON(*st.LastRecord)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		resp.LastRecord = raw
	}
	writeJSON(w, code, resp)
}

func writeRecord(w http.ResponseWriter, code int, rec sensor.Record) {
	raw, err := sensor.MarshalJSON(rec)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(raw)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error(err, "Failed to write response")
	}
}
